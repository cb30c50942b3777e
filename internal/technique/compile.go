package technique

import (
	"math"
	"time"
)

// DefaultPhase is substituted when every phase of a technique resolves to zero, so the
// clock never spins through an empty cycle.
var DefaultPhase = Phase{Key: KeyInhale, Label: "Inhale", Duration: 4 * time.Second}

// Step is a compiled phase. Instant steps have zero duration; the clock advances
// through them without emitting a countdown frame.
type Step struct {
	Phase
	Index   int  `json:"index"`
	Instant bool `json:"instant"`
}

// Schedule is the ordered, repeating phase list for one run.
type Schedule struct {
	TechniqueID string        `json:"technique_id"`
	Steps       []Step        `json:"steps"`
	CycleLength time.Duration `json:"cycle_length"`
	TotalCycles int           `json:"total_cycles"`
	TimeBox     time.Duration `json:"time_box,omitempty"`
}

// CompileOptions selects how the number of breaths is derived.
// FixedCycles wins over BreathsPerMinute, which wins over the duration-derived count.
type CompileOptions struct {
	FixedCycles      int
	BreathsPerMinute int
	CyclesPerLap     float64
}

// Compile turns a technique and a target session length into a schedule.
func Compile(t Technique, target time.Duration, opts CompileOptions) Schedule {
	steps := make([]Step, 0, len(t.Phases))
	var cycle time.Duration
	for _, p := range t.Phases {
		if p.Duration < 0 {
			p.Duration = 0
		}
		steps = append(steps, Step{Phase: p, Index: len(steps), Instant: p.Duration == 0})
		cycle += p.Duration
	}
	if cycle <= 0 {
		steps = []Step{{Phase: DefaultPhase, Index: 0}}
		cycle = DefaultPhase.Duration
	}

	return Schedule{
		TechniqueID: t.ID,
		Steps:       steps,
		CycleLength: cycle,
		TotalCycles: totalCycles(cycle, target, opts),
		TimeBox:     t.TimeBox,
	}
}

func totalCycles(cycle, target time.Duration, opts CompileOptions) int {
	if opts.FixedCycles > 0 {
		return opts.FixedCycles
	}
	if opts.BreathsPerMinute > 0 {
		minutes := int(math.Round(target.Minutes()))
		if minutes < 1 {
			minutes = 1
		}
		return max(1, minutes*opts.BreathsPerMinute)
	}
	lap := opts.CyclesPerLap
	if lap <= 0 {
		lap = 1
	}
	n := int(math.Round(float64(target) / float64(cycle) * lap))
	return max(1, n)
}

// Len is the number of steps in one cycle.
func (s Schedule) Len() int {
	return len(s.Steps)
}

// Step returns the step at i, wrapping around the cycle.
func (s Schedule) Step(i int) Step {
	if len(s.Steps) == 0 {
		return Step{Phase: DefaultPhase}
	}
	i %= len(s.Steps)
	if i < 0 {
		i += len(s.Steps)
	}
	return s.Steps[i]
}

// TotalDuration is the planned length of the whole run.
func (s Schedule) TotalDuration() time.Duration {
	return s.CycleLength * time.Duration(s.TotalCycles)
}
