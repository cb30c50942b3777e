package ui

import (
	"strings"

	"breathe/internal/technique"
)

// minOrbScale is the orb size at the bottom of the breath.
const minOrbScale = 0.35

// orbScale is the orb's size relative to full for the current phase and progress.
// Reduced motion holds the orb still at full size.
func orbScale(step technique.Step, progress float64, reduced bool) float64 {
	if reduced {
		return 1
	}
	p := smoothstep(min(max(progress, 0), 1))
	switch {
	case step.Key == technique.KeyInhale:
		return minOrbScale + (1-minOrbScale)*p
	case step.IsExhale():
		return 1 - (1-minOrbScale)*p
	case step.Key == technique.KeyHold1:
		return 1
	default:
		return minOrbScale
	}
}

func smoothstep(p float64) float64 {
	return p * p * (3 - 2*p)
}

// drawOrb renders a filled ellipse in a width x rows box, rows being about half
// the width to account for cell aspect. The box never changes size so the layout
// around it stays put while the orb breathes.
func drawOrb(width int, scale float64) string {
	width = max(width, 3)
	rows := width/2 | 1
	rx := float64(width) / 2 * scale
	ry := float64(rows) / 2 * scale
	cx, cy := float64(width-1)/2, float64(rows-1)/2

	var b strings.Builder
	for y := 0; y < rows; y++ {
		for x := 0; x < width; x++ {
			dx := (float64(x) - cx) / max(rx, 0.5)
			dy := (float64(y) - cy) / max(ry, 0.5)
			if dx*dx+dy*dy <= 1 {
				b.WriteRune('●')
			} else {
				b.WriteByte(' ')
			}
		}
		if y < rows-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
