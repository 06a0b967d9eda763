// Package render formats repository data and flows for terminals and
// exports.
package render

import (
	"log/slog"
	"strings"

	darkmode "github.com/thiagokokada/dark-mode-go"
)

type ThemePreference int

const (
	ThemeAuto ThemePreference = iota
	ThemeLight
	ThemeDark
)

func (p ThemePreference) String() string {
	switch p {
	case ThemeLight:
		return "light"
	case ThemeDark:
		return "dark"
	default:
		return "auto"
	}
}

func ThemePreferenceFromString(raw string) ThemePreference {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case ThemeDark.String():
		return ThemeDark
	case ThemeLight.String():
		return ThemeLight
	default:
		return ThemeAuto
	}
}

// Palette holds the colours of one theme. ChromaStyle names the chroma style
// used for syntax highlighting.
type Palette struct {
	Name        string
	ChromaStyle string
	DiffAdd     string
	DiffDel     string
	DiffHeader  string
	Accent      string
	Muted       string
}

var (
	lightPalette = Palette{
		Name:        "light",
		ChromaStyle: "github",
		DiffAdd:     "#dff5de",
		DiffDel:     "#f9d6d5",
		DiffHeader:  "#e4e4e4",
		Accent:      "#0550ae",
		Muted:       "#6e7781",
	}
	darkPalette = Palette{
		Name:        "dark",
		ChromaStyle: "github-dark",
		DiffAdd:     "#1f3d2b",
		DiffDel:     "#3d1f29",
		DiffHeader:  "#2f2f2f",
		Accent:      "#79c0ff",
		Muted:       "#8b949e",
	}
	detectDarkMode = darkmode.IsDarkMode
)

// PaletteFor resolves pref to a palette. ThemeAuto follows the desktop dark
// mode setting and falls back to light when it cannot be read.
func PaletteFor(pref ThemePreference) Palette {
	switch pref {
	case ThemeDark:
		return darkPalette
	case ThemeLight:
		return lightPalette
	default:
		if detectDarkMode != nil {
			if dark, err := detectDarkMode(); err == nil {
				if dark {
					return darkPalette
				}
			} else {
				slog.Debug("detect dark-mode", slog.Any("error", err))
			}
		}
		return lightPalette
	}
}

func (p Palette) IsDark() bool {
	return strings.Contains(strings.ToLower(p.Name), "dark")
}
