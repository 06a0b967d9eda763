package revision

import (
	"encoding/json"
	"fmt"
)

// Kind identifies what a revision string refers to.
type Kind uint8

const (
	KindCommit Kind = iota
	KindTag
	KindBranch
)

const shortLen = 7

func (k Kind) String() string {
	switch k {
	case KindCommit:
		return "commit"
	case KindTag:
		return "tag"
	case KindBranch:
		return "branch"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	switch k {
	case KindCommit, KindTag, KindBranch:
		return []byte(k.String()), nil
	default:
		return nil, fmt.Errorf("unknown revision kind %d", uint8(k))
	}
}

func (k *Kind) UnmarshalText(text []byte) error {
	kind, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = kind
	return nil
}

func ParseKind(raw string) (Kind, error) {
	switch raw {
	case "commit":
		return KindCommit, nil
	case "tag":
		return KindTag, nil
	case "branch":
		return KindBranch, nil
	default:
		return 0, fmt.Errorf("unknown revision kind %q", raw)
	}
}

// Metadata is a reference to a point in repository history together with a
// human readable summary. The kind is fixed at construction.
type Metadata struct {
	rev     string
	summary string
	kind    Kind
}

func Commit(rev, summary string) Metadata {
	return Metadata{rev: rev, summary: summary, kind: KindCommit}
}

func Tag(name, summary string) Metadata {
	return Metadata{rev: name, summary: summary, kind: KindTag}
}

func Branch(name, summary string) Metadata {
	return Metadata{rev: name, summary: summary, kind: KindBranch}
}

func New(kind Kind, rev, summary string) (Metadata, error) {
	switch kind {
	case KindCommit, KindTag, KindBranch:
		return Metadata{rev: rev, summary: summary, kind: kind}, nil
	default:
		return Metadata{}, fmt.Errorf("unknown revision kind %d", uint8(kind))
	}
}

func (m Metadata) Rev() string     { return m.rev }
func (m Metadata) Summary() string { return m.summary }
func (m Metadata) Kind() Kind      { return m.kind }

// WithSummary returns a copy of m carrying summary.
func (m Metadata) WithSummary(summary string) Metadata {
	m.summary = summary
	return m
}

func (m *Metadata) IsCommit() bool { return m != nil && m.kind == KindCommit }
func (m *Metadata) IsTag() bool    { return m != nil && m.kind == KindTag }
func (m *Metadata) IsBranch() bool { return m != nil && m.kind == KindBranch }

// String renders the metadata the way it is shown next to a node.
func (m Metadata) String() string {
	return Format(m)
}

// Format returns the display form of m: an abbreviated hash for commits and
// the plain name for tags and branches.
func Format(m Metadata) string {
	if m.kind == KindCommit {
		return Short(m.rev)
	}
	return m.rev
}

// Short abbreviates a commit hash.
func Short(rev string) string {
	if len(rev) <= shortLen {
		return rev
	}
	return rev[:shortLen]
}

// SameRevision reports whether a and b point at the same revision string.
// Summaries and kinds are ignored.
func SameRevision(a, b *Metadata) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.rev == b.rev
}

type wireMetadata struct {
	Rev     string `json:"rev"`
	Summary string `json:"summary"`
	Type    Kind   `json:"type"`
}

func (m Metadata) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireMetadata{Rev: m.rev, Summary: m.summary, Type: m.kind})
}

func (m *Metadata) UnmarshalJSON(data []byte) error {
	var w wireMetadata
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*m = Metadata{rev: w.Rev, summary: w.Summary, kind: w.Type}
	return nil
}
