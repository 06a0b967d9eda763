package render

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/debug-flow/debug-flow/internal/api/contracts"
)

type ColorMode int

const (
	// ColorAuto colours output written to a terminal.
	ColorAuto ColorMode = iota
	ColorNever
	ColorAlways
)

func ParseColorMode(raw string) (ColorMode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "auto":
		return ColorAuto, nil
	case "never", "off":
		return ColorNever, nil
	case "always", "on":
		return ColorAlways, nil
	default:
		return ColorAuto, fmt.Errorf("unknown color mode %q", raw)
	}
}

// Printer writes styled output. Without colour every method writes plain
// text.
type Printer struct {
	w       io.Writer
	r       *lipgloss.Renderer
	palette Palette
	style   *chroma.Style
}

func NewPrinter(w io.Writer, pref ThemePreference, mode ColorMode) *Printer {
	r := lipgloss.NewRenderer(w)
	switch mode {
	case ColorNever:
		r.SetColorProfile(termenv.Ascii)
	case ColorAlways:
		r.SetColorProfile(termenv.TrueColor)
	}
	palette := PaletteFor(pref)
	return &Printer{w: w, r: r, palette: palette, style: styleForPalette(palette)}
}

func (p *Printer) Palette() Palette { return p.palette }

// Diffs prints diffs as one highlighted unified patch, each file introduced
// by a diff --git header.
func (p *Printer) Diffs(diffs []contracts.Diff) error {
	var sb strings.Builder
	for _, d := range diffs {
		oldPath, newPath := d.Path(), d.Path()
		if d.Old != nil && d.Old.Path != "" {
			oldPath = d.Old.Path
		}
		fmt.Fprintf(&sb, "diff --git %s %s\n", quotePath("a/"+oldPath), quotePath("b/"+newPath))
		if d.Kind == contracts.DiffBinary {
			sb.WriteString("Binary files differ\n")
			continue
		}
		sb.WriteString(d.Patch)
		if d.Patch != "" && !strings.HasSuffix(d.Patch, "\n") {
			sb.WriteByte('\n')
		}
	}
	return p.Patch(sb.String())
}

// Patch prints unified diff text. Code lines are highlighted with the lexer
// of the file named by the preceding diff --git header.
func (p *Printer) Patch(text string) error {
	bw := bufio.NewWriter(p.w)
	header := p.r.NewStyle().Bold(true).Background(lipgloss.Color(p.palette.DiffHeader))
	hunk := p.r.NewStyle().Foreground(lipgloss.Color(p.palette.Accent))
	muted := p.r.NewStyle().Foreground(lipgloss.Color(p.palette.Muted))

	var currentLexer chroma.Lexer
	for _, line := range strings.Split(strings.TrimSuffix(text, "\n"), "\n") {
		if path, ok := diffPathFromLine(line); ok {
			currentLexer = nil
			if path != "" {
				currentLexer = lexerForPath(path)
			}
			bw.WriteString(header.Render(line))
		} else if strings.HasPrefix(line, "--- ") || strings.HasPrefix(line, "+++ ") {
			bw.WriteString(muted.Render(line))
		} else if strings.HasPrefix(line, "@@") {
			bw.WriteString(hunk.Render(line))
		} else if code, offset, ok := diffLineCode(line); ok {
			bg := ""
			switch line[0] {
			case '+':
				bg = p.palette.DiffAdd
			case '-':
				bg = p.palette.DiffDel
			}
			bw.WriteString(p.background(bg).Render(line[:offset]))
			bw.WriteString(p.highlightCode(currentLexer, code, bg))
		} else {
			bw.WriteString(line)
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

func (p *Printer) background(bg string) lipgloss.Style {
	st := p.r.NewStyle().TabWidth(lipgloss.NoTabConversion)
	if bg != "" {
		st = st.Background(lipgloss.Color(bg))
	}
	return st
}

func (p *Printer) highlightCode(lexer chroma.Lexer, code, bg string) string {
	if lexer == nil || p.style == nil || code == "" {
		return p.background(bg).Render(code)
	}
	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return p.background(bg).Render(code)
	}
	var sb strings.Builder
	for _, token := range iterator.Tokens() {
		value := strings.ReplaceAll(token.Value, "\n", "")
		if value == "" {
			continue
		}
		st := p.background(bg)
		if color := colorFromEntry(p.style.Get(token.Type)); color != "" {
			st = st.Foreground(lipgloss.Color(color))
		}
		sb.WriteString(st.Render(value))
	}
	return sb.String()
}

func styleForPalette(p Palette) *chroma.Style {
	if st := styles.Get(p.ChromaStyle); st != nil {
		return st
	}
	return styles.Fallback
}

func colorFromEntry(entry chroma.StyleEntry) string {
	if entry.Colour.IsSet() {
		col := entry.Colour.String()
		col = strings.TrimPrefix(strings.ToLower(col), "#")
		return "#" + col
	}
	return ""
}

func lexerForPath(path string) chroma.Lexer {
	if path == "" {
		return nil
	}
	lexer := lexers.Match(path)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	return chroma.Coalesce(lexer)
}

func diffPathFromLine(line string) (string, bool) {
	const prefix = "diff --git "
	if !strings.HasPrefix(line, prefix) {
		return "", false
	}
	tokens := Tokenize(strings.TrimSpace(line[len(prefix):]))
	if len(tokens) < 2 {
		return "", true
	}
	return normalizeDiffPath(tokens[1]), true
}

func normalizeDiffPath(token string) string {
	token = strings.TrimPrefix(token, "a/")
	token = strings.TrimPrefix(token, "b/")
	return token
}

// quotePath quotes paths containing blanks, quotes or backslashes the way
// git does in diff headers.
func quotePath(path string) string {
	if !strings.ContainsAny(path, " \t\"\\") {
		return path
	}
	return strconv.Quote(path)
}

func diffLineCode(line string) (string, int, bool) {
	if line == "" {
		return "", 0, false
	}
	switch line[0] {
	case '+', '-', ' ':
		if strings.HasPrefix(line, "+++") || strings.HasPrefix(line, "---") {
			return "", 0, false
		}
		return line[1:], 1, true
	default:
		return "", 0, false
	}
}

// Tokenize splits s on blanks. Double quoted tokens may contain blanks and
// backslash escapes.
func Tokenize(s string) []string {
	var tokens []string
	for {
		s = strings.TrimLeft(s, " \t")
		if s == "" {
			break
		}
		if s[0] == '"' {
			var buf strings.Builder
			escaped := false
			i := 1
			for i < len(s) {
				ch := s[i]
				if escaped {
					buf.WriteByte(unescape(ch))
					escaped = false
					i++
					continue
				}
				if ch == '\\' {
					escaped = true
					i++
					continue
				}
				if ch == '"' {
					i++
					break
				}
				buf.WriteByte(ch)
				i++
			}
			tokens = append(tokens, buf.String())
			s = s[i:]
			continue
		}
		j := 0
		for j < len(s) && s[j] != ' ' && s[j] != '\t' {
			j++
		}
		tokens = append(tokens, s[:j])
		s = s[j:]
	}
	return tokens
}

func unescape(ch byte) byte {
	switch ch {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	default:
		return ch
	}
}
