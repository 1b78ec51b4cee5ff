package models

import (
	"fmt"
	"strings"
)

// Theme is the colour theme a scrum is displayed with.
type Theme string

const (
	ThemeBubblegum  Theme = "bubblegum"
	ThemeButtercup  Theme = "buttercup"
	ThemeIndigo     Theme = "indigo"
	ThemeLavender   Theme = "lavender"
	ThemeMagenta    Theme = "magenta"
	ThemeNavy       Theme = "navy"
	ThemeOrange     Theme = "orange"
	ThemeOxblood    Theme = "oxblood"
	ThemePeriwinkle Theme = "periwinkle"
	ThemePoppy      Theme = "poppy"
	ThemePurple     Theme = "purple"
	ThemeSeafoam    Theme = "seafoam"
	ThemeSky        Theme = "sky"
	ThemeTan        Theme = "tan"
	ThemeTeal       Theme = "teal"
	ThemeYellow     Theme = "yellow"
)

// AllThemes lists every theme in picker order.
var AllThemes = []Theme{
	ThemeBubblegum, ThemeButtercup, ThemeIndigo, ThemeLavender,
	ThemeMagenta, ThemeNavy, ThemeOrange, ThemeOxblood,
	ThemePeriwinkle, ThemePoppy, ThemePurple, ThemeSeafoam,
	ThemeSky, ThemeTan, ThemeTeal, ThemeYellow,
}

// ParseTheme resolves a theme name case-insensitively.
func ParseTheme(s string) (Theme, error) {
	t := Theme(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown theme %q", s)
	}
	return t, nil
}

// Valid reports whether t is one of the known themes.
func (t Theme) Valid() bool {
	for _, known := range AllThemes {
		if t == known {
			return true
		}
	}
	return false
}

// Name is the display name, e.g. "Bubblegum".
func (t Theme) Name() string {
	if t == "" {
		return ""
	}
	return strings.ToUpper(string(t[:1])) + string(t[1:])
}

// MainColor is the colour asset name for the theme.
func (t Theme) MainColor() string {
	return string(t)
}

// AccentColor is the foreground colour readable on top of MainColor.
func (t Theme) AccentColor() string {
	switch t {
	case ThemeIndigo, ThemeMagenta, ThemeNavy, ThemeOxblood, ThemePurple:
		return "white"
	default:
		return "black"
	}
}

func (t Theme) MarshalText() ([]byte, error) {
	return []byte(t), nil
}

func (t *Theme) UnmarshalText(text []byte) error {
	parsed, err := ParseTheme(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
