// Package technique defines breathing techniques and compiles them into the timed,
// repeating phase schedules the session clock runs.
package technique

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Phase keys in the order a cycle visits them.
const (
	KeyInhale = "in"
	KeyHold1  = "hold1"
	KeyExhale = "out"
	KeyHold2  = "hold2"
)

// ErrUnknownTechnique is returned by Lookup for ids with no preset.
var ErrUnknownTechnique = errors.New("unknown technique")

// Phase is one labeled timed segment of a breathing cycle.
type Phase struct {
	Key      string        `json:"key" yaml:"key"`
	Label    string        `json:"label" yaml:"label"`
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// IsHold reports whether the phase is one of the two breath holds.
func (p Phase) IsHold() bool {
	return p.Key == KeyHold1 || p.Key == KeyHold2
}

// IsExhale reports whether the phase is the exhale.
func (p Phase) IsExhale() bool {
	return p.Key == KeyExhale
}

// Technique is a named phase-duration pattern such as Box or 4-7-8.
type Technique struct {
	ID          string        `json:"id" yaml:"id"`
	Name        string        `json:"name" yaml:"name"`
	Description string        `json:"description" yaml:"description"`
	Phases      []Phase       `json:"phases" yaml:"phases"`
	TimeBox     time.Duration `json:"time_box,omitempty" yaml:"time_box,omitempty"`
}

// Pattern renders the phase durations as "4-7-8-0".
func (t Technique) Pattern() string {
	parts := make([]string, 0, len(t.Phases))
	for _, p := range t.Phases {
		parts = append(parts, trimSeconds(p.Duration))
	}
	return strings.Join(parts, "-")
}

func trimSeconds(d time.Duration) string {
	s := d.Seconds()
	if s == float64(int64(s)) {
		return fmt.Sprintf("%d", int64(s))
	}
	return fmt.Sprintf("%g", s)
}

// FromDurations builds a four-phase technique from raw seconds. Negative values are
// treated as zero; the holds are labelled "Hold".
func FromDurations(id string, in, hold1, out, hold2 float64) Technique {
	return Technique{
		ID:   id,
		Name: id,
		Phases: []Phase{
			{Key: KeyInhale, Label: "Inhale", Duration: seconds(in)},
			{Key: KeyHold1, Label: "Hold", Duration: seconds(hold1)},
			{Key: KeyExhale, Label: "Exhale", Duration: seconds(out)},
			{Key: KeyHold2, Label: "Hold", Duration: seconds(hold2)},
		},
	}
}

// Durations returns the four raw phase lengths in seconds, in/hold1/out/hold2 order.
// Missing phases read as zero.
func (t Technique) Durations() (in, hold1, out, hold2 float64) {
	for _, p := range t.Phases {
		switch p.Key {
		case KeyInhale:
			in = p.Duration.Seconds()
		case KeyHold1:
			hold1 = p.Duration.Seconds()
		case KeyExhale:
			out = p.Duration.Seconds()
		case KeyHold2:
			hold2 = p.Duration.Seconds()
		}
	}
	return
}

func seconds(v float64) time.Duration {
	if v <= 0 {
		return 0
	}
	return time.Duration(v * float64(time.Second))
}

var presets = map[string]Technique{
	"box": {
		ID:          "box",
		Name:        "Box Breathing",
		Description: "Equal 4-4-4-4 timing for all phases. Great for focus and calm.",
		Phases:      FromDurations("box", 4, 4, 4, 4).Phases,
	},
	"478": {
		ID:          "478",
		Name:        "4-7-8 Breathing",
		Description: "Extended hold and exhale for deep relaxation. 4s inhale, 7s hold, 8s exhale.",
		Phases:      FromDurations("478", 4, 7, 8, 0).Phases,
	},
	"coherent": {
		ID:          "coherent",
		Name:        "Coherent 5-5",
		Description: "Simple 5-5 pattern. Inhale and exhale equally for heart rate variability.",
		Phases:      FromDurations("coherent", 5, 0, 5, 0).Phases,
	},
	"sos": {
		ID:          "sos",
		Name:        "SOS Reset",
		Description: "4s inhale, 6s exhale. Quick calm for transitions.",
		Phases:      FromDurations("sos", 4, 0, 6, 0).Phases,
	},
	"sos60": {
		ID:          "sos60",
		Name:        "SOS 60s Reset",
		Description: "60-second reset. 4s inhale, 6s exhale, stops on its own after a minute.",
		Phases:      FromDurations("sos60", 4, 0, 6, 0).Phases,
		TimeBox:     60 * time.Second,
	},
}

// Presets returns the built-in techniques sorted by id.
func Presets() []Technique {
	out := make([]Technique, 0, len(presets))
	for _, t := range presets {
		out = append(out, t.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Lookup returns a copy of the preset with the given id.
func Lookup(id string) (Technique, error) {
	t, ok := presets[strings.ToLower(strings.TrimSpace(id))]
	if !ok {
		return Technique{}, fmt.Errorf("%w: %q", ErrUnknownTechnique, id)
	}
	return t.clone(), nil
}

func (t Technique) clone() Technique {
	t.Phases = append([]Phase(nil), t.Phases...)
	return t
}
