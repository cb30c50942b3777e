package ui

import (
	"fmt"
	"strings"
	"time"

	"breathe/internal/technique"

	"github.com/charmbracelet/glamour"
)

// instructionsMarkdown describes how to perform t for the given schedule.
func instructionsMarkdown(t technique.Technique, s technique.Schedule) string {
	var b strings.Builder
	name := t.Name
	if name == "" {
		name = t.ID
	}
	fmt.Fprintf(&b, "# %s\n\n", name)
	if t.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", t.Description)
	}
	b.WriteString("| Phase | Seconds |\n|---|---|\n")
	for _, p := range t.Phases {
		if p.Duration <= 0 {
			continue
		}
		fmt.Fprintf(&b, "| %s | %g |\n", p.Label, p.Duration.Seconds())
	}
	fmt.Fprintf(&b, "\nOne breath takes **%gs**; this session is **%d breaths** (%s).\n",
		s.CycleLength.Seconds(), s.TotalCycles, s.TotalDuration().Round(time.Second))
	if s.TimeBox > 0 {
		fmt.Fprintf(&b, "\nStops on its own after %s.\n", s.TimeBox)
	}
	b.WriteString("\nBreathe through the nose, let the shoulders drop, and follow the orb.\n")
	return b.String()
}

func newRenderer(dark bool, width int) *glamour.TermRenderer {
	style := "light"
	if dark {
		style = "dark"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath(style),
		glamour.WithWordWrap(max(width, 20)),
	)
	if err != nil {
		return nil
	}
	return r
}

// renderMarkdown falls back to the raw text when no renderer is available.
func renderMarkdown(r *glamour.TermRenderer, md string) string {
	if r == nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}
