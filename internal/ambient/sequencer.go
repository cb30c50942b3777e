package ambient

import (
	"math/rand/v2"
	"sync/atomic"

	"breathe/internal/audio"
)

type spawnFunc func(ctx *audio.Context, rng *rand.Rand, start float64) audio.Node

// sequencer is a node that fires short events at random intervals and mixes the
// events it has spawned. Events are placed in sample time, so the stream is exact
// regardless of how large the device's blocks are. Before scheduling each next
// event it checks alive; once the flag drops it stops spawning and reports itself
// finished.
type sequencer struct {
	ctx      *audio.Context
	rate     float64
	rng      *rand.Rand
	alive    *atomic.Bool
	offset   float64
	next     int64
	spawn    spawnFunc
	interval func(rng *rand.Rand) float64

	voices  []audio.Node
	scratch []float64
}

// Process renders one block.
func (s *sequencer) Process(out []float64, at int64) bool {
	clear(out)
	if !s.alive.Load() {
		s.voices = nil
		return false
	}
	if s.next < 0 {
		s.next = at + int64(s.offset*s.rate)
	}
	end := at + int64(len(out))
	for s.next < end {
		s.voices = append(s.voices, s.spawn(s.ctx, s.rng, float64(s.next)/s.rate))
		if !s.alive.Load() {
			break
		}
		s.next += max(1, int64(s.interval(s.rng)*s.rate))
	}

	if cap(s.scratch) < len(out) {
		s.scratch = make([]float64, len(out))
	}
	scratch := s.scratch[:len(out)]
	live := s.voices[:0]
	for _, v := range s.voices {
		alive := v.Process(scratch, at)
		for i, x := range scratch {
			out[i] += x
		}
		if alive {
			live = append(live, v)
		}
	}
	for i := len(live); i < len(s.voices); i++ {
		s.voices[i] = nil
	}
	s.voices = live
	return true
}

// Stop drops every pending event.
func (s *sequencer) Stop() {
	s.voices = nil
}

func (s *sequencer) voiceCount() int {
	return len(s.voices)
}
