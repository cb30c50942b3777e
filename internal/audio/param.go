package audio

import "math"

type eventKind int

const (
	eventSet eventKind = iota
	eventLinear
	eventExp
	eventTarget
)

type paramEvent struct {
	kind  eventKind
	time  float64
	value float64
	tau   float64
}

// Param is an automatable value: a base value plus a timeline of set, ramp and
// set-target events evaluated in seconds of context time. Events must be scheduled
// in time order.
type Param struct {
	initial float64
	start   float64
	events  []paramEvent
}

// NewParam returns a param holding v.
func NewParam(v float64) *Param {
	return &Param{initial: v}
}

// Set drops the timeline and holds v.
func (p *Param) Set(v float64) {
	p.initial = v
	p.events = p.events[:0]
}

// SetAt jumps to v at time t.
func (p *Param) SetAt(v, t float64) {
	p.events = append(p.events, paramEvent{kind: eventSet, time: t, value: v})
}

// LinearRampTo ramps linearly from the previous event to v, arriving at end.
func (p *Param) LinearRampTo(v, end float64) {
	p.events = append(p.events, paramEvent{kind: eventLinear, time: end, value: v})
}

// ExponentialRampTo ramps exponentially from the previous event to v, arriving at end.
// Non-positive endpoints fall back to a linear ramp.
func (p *Param) ExponentialRampTo(v, end float64) {
	p.events = append(p.events, paramEvent{kind: eventExp, time: end, value: v})
}

// SetTargetAt approaches target exponentially from start with time constant tau.
func (p *Param) SetTargetAt(target, start, tau float64) {
	if tau <= 0 {
		p.SetAt(target, start)
		return
	}
	p.events = append(p.events, paramEvent{kind: eventTarget, time: start, value: target, tau: tau})
}

// advance folds events that can no longer affect values at or after t into the base
// value. Nodes call it at the start of each block so a param that is rescheduled
// for the lifetime of a session keeps a short timeline.
func (p *Param) advance(t float64) {
	n := 0
	for n+1 < len(p.events) && p.events[n+1].time <= t {
		e := p.events[n]
		if e.kind == eventTarget {
			next := p.events[n+1].time
			p.initial = e.value + (p.initial-e.value)*math.Exp(-(next-e.time)/e.tau)
			p.start = next
		} else {
			p.initial, p.start = e.value, e.time
		}
		n++
	}
	if n > 0 {
		p.events = append(p.events[:0], p.events[n:]...)
	}
}

// Value returns the base value ignoring automation.
func (p *Param) Value() float64 {
	return p.initial
}

// ValueAt evaluates the timeline at time t.
func (p *Param) ValueAt(t float64) float64 {
	v := p.initial
	prevT := p.start
	for i, e := range p.events {
		switch e.kind {
		case eventSet:
			if t < e.time {
				return v
			}
			v, prevT = e.value, e.time

		case eventLinear, eventExp:
			if t < e.time {
				if e.time <= prevT || t < prevT {
					return v
				}
				frac := (t - prevT) / (e.time - prevT)
				if e.kind == eventExp && v > 0 && e.value > 0 {
					return v * math.Pow(e.value/v, frac)
				}
				return v + (e.value-v)*frac
			}
			v, prevT = e.value, e.time

		case eventTarget:
			if t < e.time {
				return v
			}
			if i+1 < len(p.events) && t >= p.events[i+1].time {
				next := p.events[i+1].time
				v = e.value + (v-e.value)*math.Exp(-(next-e.time)/e.tau)
				prevT = next
				continue
			}
			return e.value + (v-e.value)*math.Exp(-(t-e.time)/e.tau)
		}
	}
	return v
}
