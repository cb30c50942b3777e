// Package ambient is the bank of procedural background generators. Exactly one
// generator plays at a time and every generator feeds one shared gain bus.
package ambient

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"breathe/internal/audio"
	"breathe/internal/logging"

	"go.uber.org/zap"
)

// Choice names an ambient generator.
type Choice string

const (
	None       Choice = "none"
	Rain       Choice = "rain"
	Ocean      Choice = "ocean"
	Birds      Choice = "birds"
	Forest     Choice = "forest"
	Wind       Choice = "wind"
	Bowl       Choice = "bowl"
	Cosmic     Choice = "cosmic"
	Fire       Choice = "fire"
	Tibetan    Choice = "tibetan"
	Meditation Choice = "meditation"
	Spiritual  Choice = "spiritual"
)

// DefaultVolume is the shared bus level a new bank starts at.
const DefaultVolume = 0.2

// volumeTau is the time constant used to smooth volume changes.
const volumeTau = 0.08

// ErrUnknownChoice is returned for a generator name the bank does not know.
var ErrUnknownChoice = errors.New("unknown ambient choice")

// Choices lists every selectable generator, "none" first.
func Choices() []Choice {
	out := make([]Choice, 0, len(generators)+1)
	for c := range generators {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return append([]Choice{None}, out...)
}

// ParseChoice resolves a case-insensitive generator name. Empty means none.
func ParseChoice(s string) (Choice, error) {
	c := Choice(strings.ToLower(strings.TrimSpace(s)))
	if c == "" || c == None {
		return None, nil
	}
	if _, ok := generators[c]; !ok {
		return None, fmt.Errorf("%w: %q", ErrUnknownChoice, s)
	}
	return c, nil
}

// voice is the node set of the generator currently playing.
type voice struct {
	choice Choice
	nodes  []audio.Node
	alive  *atomic.Bool
}

// Bank owns the ambient generators and their gain bus. A bank built without an
// audio context accepts every call and produces nothing.
type Bank struct {
	mu      sync.Mutex
	ctx     *audio.Context
	bus     *audio.Mixer
	rng     *rand.Rand
	choice  Choice
	current *voice
	volume  float64
	muted   bool
}

// NewBank attaches a bus at DefaultVolume to ctx's destination. ctx may be nil.
func NewBank(ctx *audio.Context, rng *rand.Rand) *Bank {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	b := &Bank{ctx: ctx, rng: rng, choice: None, volume: DefaultVolume}
	if ctx != nil {
		b.bus = ctx.NewMixer(DefaultVolume)
		ctx.Do(func(float64) { ctx.Destination().Add(b.bus) })
	}
	return b
}

// Choice returns the most recent selection, whether or not it is playing.
func (b *Bank) Choice() Choice {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.choice
}

// Playing returns the generator currently producing audio, or None.
func (b *Bank) Playing() Choice {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil {
		return None
	}
	return b.current.choice
}

// Volume returns the target bus level.
func (b *Bank) Volume() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.volume
}

// Select releases the playing generator and starts choice. Every node of the
// previous generator is disconnected before Select returns.
func (b *Bank) Select(choice Choice) error {
	gen, ok := generators[choice]
	if !ok && choice != None {
		return fmt.Errorf("%w: %q", ErrUnknownChoice, choice)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.releaseLocked()
	b.choice = choice
	if choice == None || b.ctx == nil {
		return nil
	}

	v := &voice{choice: choice, alive: new(atomic.Bool)}
	v.alive.Store(true)
	bld := &builder{
		ctx:   b.ctx,
		rate:  b.ctx.SampleRate(),
		rng:   rand.New(rand.NewPCG(b.rng.Uint64(), b.rng.Uint64())),
		alive: v.alive,
	}
	gen(bld)
	v.nodes = bld.nodes

	b.ctx.Do(func(float64) {
		for _, n := range v.nodes {
			b.bus.Add(n)
		}
	})
	b.current = v
	logging.Get(logging.CategoryAmbient).Debug("ambient started",
		zap.String("choice", string(choice)),
		zap.Int("nodes", len(v.nodes)))
	return nil
}

// Play restarts the last selection if nothing is playing.
func (b *Bank) Play() error {
	b.mu.Lock()
	playing := b.current != nil
	choice := b.choice
	b.mu.Unlock()
	if playing {
		return nil
	}
	return b.Select(choice)
}

// Stop releases the playing generator. The selection is kept for Play.
func (b *Bank) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.releaseLocked()
}

func (b *Bank) releaseLocked() {
	v := b.current
	if v == nil {
		return
	}
	b.current = nil
	v.alive.Store(false)
	b.ctx.Do(func(float64) {
		for _, n := range v.nodes {
			b.bus.Remove(n)
			if s, ok := n.(interface{ Stop() }); ok {
				s.Stop()
			}
		}
	})
	logging.Get(logging.CategoryAmbient).Debug("ambient released", zap.String("choice", string(v.choice)))
}

// SetVolume clamps v to [0,1] and glides the bus towards it.
func (b *Bank) SetVolume(v float64) {
	v = min(max(v, 0), 1)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.volume = v
	if !b.muted {
		b.glideLocked(v)
	}
}

// Mute glides the bus to silence without releasing the generator, and back.
func (b *Bank) Mute(muted bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.muted == muted {
		return
	}
	b.muted = muted
	if muted {
		b.glideLocked(0)
	} else {
		b.glideLocked(b.volume)
	}
}

func (b *Bank) glideLocked(target float64) {
	if b.ctx == nil {
		return
	}
	b.ctx.Do(func(now float64) {
		b.bus.Level.SetTargetAt(target, now, volumeTau)
	})
}

// ActiveNodes counts the generator nodes currently connected to the bus,
// including transient chirps and chimes.
func (b *Bank) ActiveNodes() int {
	if b.ctx == nil {
		return 0
	}
	b.mu.Lock()
	var seqs []*sequencer
	if b.current != nil {
		for _, n := range b.current.nodes {
			if s, ok := n.(*sequencer); ok {
				seqs = append(seqs, s)
			}
		}
	}
	b.mu.Unlock()

	n := 0
	b.ctx.Do(func(float64) {
		n = b.bus.Len()
		for _, s := range seqs {
			if b.bus.Has(s) {
				n += s.voiceCount()
			}
		}
	})
	return n
}

// Close releases the generator and detaches the bus.
func (b *Bank) Close() {
	b.Stop()
	if b.ctx == nil {
		return
	}
	b.ctx.Do(func(float64) { b.ctx.Destination().Remove(b.bus) })
}
