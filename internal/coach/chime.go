package coach

import "breathe/internal/audio"

// Chimer plays the phase-change tone.
type Chimer interface {
	Chime()
}

// AudioChime plays a short 440 Hz sine straight into the context destination,
// bypassing the ambient bus.
type AudioChime struct {
	ctx *audio.Context
}

// NewAudioChime returns a chime on ctx. A nil ctx gives a nil chimer.
func NewAudioChime(ctx *audio.Context) *AudioChime {
	if ctx == nil {
		return nil
	}
	return &AudioChime{ctx: ctx}
}

// Chime implements Chimer.
func (c *AudioChime) Chime() {
	c.ctx.Do(func(now float64) {
		osc := c.ctx.NewOscillator(audio.Sine, 440)
		osc.StopAt(now + 0.6)
		g := c.ctx.NewGain(osc, 0.001)
		g.Level.SetTargetAt(0.18, now, 0.03)
		g.Level.SetTargetAt(0.0001, now+0.5, 0.1)
		c.ctx.Destination().Add(g)
	})
}
