// Package ui is the terminal front end of breathe: a bubbletea program that
// renders the session surface and drives the session engine from a tick.
package ui

import (
	"os"
	"strconv"
	"strings"

	"breathe/internal/technique"

	"github.com/charmbracelet/lipgloss"
)

// Palette. The phase colors follow the breathing direction: cool on the way in,
// warm on the way out.
var (
	LightBackground = lipgloss.Color("#f5f7f6")
	LightForeground = lipgloss.Color("#1d2b2a")
	LightPrimary    = lipgloss.Color("#2f6f62")
	LightMuted      = lipgloss.Color("#8a9a97")
	LightBorder     = lipgloss.Color("#d3ddda")

	DarkBackground = lipgloss.Color("#10181a")
	DarkForeground = lipgloss.Color("#e8efed")
	DarkPrimary    = lipgloss.Color("#7fc8b4")
	DarkMuted      = lipgloss.Color("#5d6d6a")
	DarkBorder     = lipgloss.Color("#2a3a3a")

	InhaleColor = lipgloss.Color("#4fa3d9")
	HoldColor   = lipgloss.Color("#9b8bd6")
	ExhaleColor = lipgloss.Color("#e59a6b")
	Warning     = lipgloss.Color("#FFC107")
	Success     = lipgloss.Color("#8BC34A")
)

// Theme holds the current color scheme.
type Theme struct {
	Background lipgloss.Color
	Foreground lipgloss.Color
	Primary    lipgloss.Color
	Muted      lipgloss.Color
	Border     lipgloss.Color
	IsDark     bool
}

// LightTheme returns the light mode theme.
func LightTheme() Theme {
	return Theme{
		Background: LightBackground,
		Foreground: LightForeground,
		Primary:    LightPrimary,
		Muted:      LightMuted,
		Border:     LightBorder,
	}
}

// DarkTheme returns the dark mode theme.
func DarkTheme() Theme {
	return Theme{
		Background: DarkBackground,
		Foreground: DarkForeground,
		Primary:    DarkPrimary,
		Muted:      DarkMuted,
		Border:     DarkBorder,
		IsDark:     true,
	}
}

// DetectTheme resolves a theme preference. "auto" reads COLORFGBG and then
// BREATHE_DARK_MODE, defaulting to light.
func DetectTheme(pref string) Theme {
	switch strings.ToLower(pref) {
	case "dark":
		return DarkTheme()
	case "light":
		return LightTheme()
	}

	// "foreground;background", background 0-6 or 8 is a dark terminal
	if parts := strings.Split(os.Getenv("COLORFGBG"), ";"); len(parts) == 2 {
		if bg, err := strconv.Atoi(parts[1]); err == nil && ((bg >= 0 && bg <= 6) || bg == 8) {
			return DarkTheme()
		}
	}
	if os.Getenv("BREATHE_DARK_MODE") == "1" {
		return DarkTheme()
	}
	return LightTheme()
}

// Styles holds all the styled components.
type Styles struct {
	Theme Theme

	Header  lipgloss.Style
	Footer  lipgloss.Style
	Content lipgloss.Style
	Surface lipgloss.Style

	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Body     lipgloss.Style
	Muted    lipgloss.Style

	Countdown lipgloss.Style
	Warning   lipgloss.Style
	Success   lipgloss.Style
	ExitHint  lipgloss.Style
}

// NewStyles creates a Styles instance for theme.
func NewStyles(theme Theme) Styles {
	return Styles{
		Theme: theme,

		Header: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Padding(0, 2).
			Bold(true),

		Footer: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Padding(0, 2),

		Content: lipgloss.NewStyle().
			Padding(0, 2),

		Surface: lipgloss.NewStyle().
			Padding(1, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).
			Align(lipgloss.Center),

		Title: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true),

		Subtitle: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Italic(true),

		Body: lipgloss.NewStyle().
			Foreground(theme.Foreground),

		Muted: lipgloss.NewStyle().
			Foreground(theme.Muted),

		Countdown: lipgloss.NewStyle().
			Foreground(theme.Foreground).
			Bold(true),

		Warning: lipgloss.NewStyle().
			Foreground(Warning).
			Bold(true),

		Success: lipgloss.NewStyle().
			Foreground(Success).
			Bold(true),

		ExitHint: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Underline(true),
	}
}

// PhaseColor is the orb color for a phase key.
func PhaseColor(key string) lipgloss.Color {
	switch key {
	case technique.KeyInhale:
		return InhaleColor
	case technique.KeyExhale:
		return ExhaleColor
	default:
		return HoldColor
	}
}
