package render

import (
	"fmt"
	"path"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/debug-flow/debug-flow/internal/api/contracts"
)

// FilterDiffs keeps the diffs touching a path matched by one of patterns.
// Patterns support ** and are also tried against the base name, so "*.go"
// matches in every directory. Renames match on either side. No patterns
// keeps everything.
func FilterDiffs(diffs []contracts.Diff, patterns []string) ([]contracts.Diff, error) {
	if len(patterns) == 0 {
		return diffs, nil
	}
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid path pattern %q", p)
		}
	}
	var out []contracts.Diff
	for _, d := range diffs {
		if diffMatches(d, patterns) {
			out = append(out, d)
		}
	}
	return out, nil
}

func diffMatches(d contracts.Diff, patterns []string) bool {
	var paths []string
	if d.Old != nil && d.Old.Path != "" {
		paths = append(paths, d.Old.Path)
	}
	if d.New != nil && d.New.Path != "" {
		paths = append(paths, d.New.Path)
	}
	for _, p := range paths {
		for _, pattern := range patterns {
			if doublestar.MatchUnvalidated(pattern, p) || doublestar.MatchUnvalidated(pattern, path.Base(p)) {
				return true
			}
		}
	}
	return false
}
