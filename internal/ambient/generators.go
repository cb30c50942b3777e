package ambient

import (
	"math/rand/v2"
	"sync/atomic"

	"breathe/internal/audio"
)

// builder collects the top-level nodes of one generator before they are attached
// to the bus. Nothing it builds is reachable from the render goroutine until the
// bank connects it, so it needs no lock.
type builder struct {
	ctx   *audio.Context
	rate  int
	rng   *rand.Rand
	alive *atomic.Bool
	nodes []audio.Node
}

func (b *builder) add(n audio.Node) {
	b.nodes = append(b.nodes, n)
}

// tone adds a steady oscillator at level.
func (b *builder) tone(wave audio.Waveform, freq, level float64) {
	b.add(b.ctx.NewGain(b.ctx.NewOscillator(wave, freq), level))
}

// stack adds one tone per frequency. The last partial is a triangle when
// triangleTop is set.
func (b *builder) stack(freqs, levels []float64, triangleTop bool) {
	for i, f := range freqs {
		wave := audio.Sine
		if triangleTop && i == len(freqs)-1 {
			wave = audio.Triangle
		}
		b.tone(wave, f, levels[i])
	}
}

// loop returns a looping source over two seconds of noise.
func (b *builder) loop(color audio.NoiseColor) *audio.BufferSource {
	return b.ctx.NewBufferSource(audio.NoiseBuffer(b.rng, color, b.rate, 2), true)
}

// sequence adds a self-scheduling event stream. The first event fires offset
// seconds after the stream is first rendered.
func (b *builder) sequence(offset float64, spawn spawnFunc, interval func(rng *rand.Rand) float64) {
	b.add(&sequencer{
		ctx:      b.ctx,
		rate:     float64(b.rate),
		rng:      rand.New(rand.NewPCG(b.rng.Uint64(), b.rng.Uint64())),
		alive:    b.alive,
		offset:   offset,
		next:     -1,
		spawn:    spawn,
		interval: interval,
	})
}

var generators = map[Choice]func(*builder){
	Rain:       rain,
	Ocean:      ocean,
	Birds:      birds,
	Forest:     forest,
	Wind:       windChimes,
	Bowl:       bowl,
	Cosmic:     cosmic,
	Fire:       fire,
	Tibetan:    tibetan,
	Meditation: meditation,
	Spiritual:  spiritual,
}

func rain(b *builder) {
	noise := b.ctx.NewBufferSource(whiteBuffer(b.rng, b.rate, 2), true)
	band := b.ctx.NewBiquad(noise, audio.Bandpass, 1200, 0.4)
	b.add(b.ctx.NewBiquad(band, audio.Lowpass, 3000, 0))
}

func ocean(b *builder) {
	lfo := b.ctx.NewOscillator(audio.Sine, 0.08)
	carrier := b.ctx.NewOscillator(audio.Sine, 80)
	carrier.Modulator = b.ctx.NewGain(lfo, 400)
	b.add(carrier)

	noise := b.ctx.NewBufferSource(whiteBuffer(b.rng, b.rate, 2), true)
	b.add(b.ctx.NewGain(b.ctx.NewBiquad(noise, audio.Lowpass, 600, 0), 0.3))
}

func birds(b *builder) {
	b.add(b.ctx.NewGain(b.ctx.NewBiquad(b.loop(audio.PinkNoise), audio.Highpass, 1000, 0), 0.1))
	b.sequence(0, chirp, chirpInterval)
	b.sequence(1.5, chirp, chirpInterval)
}

func forest(b *builder) {
	b.add(b.ctx.NewGain(b.ctx.NewBiquad(b.loop(audio.BrownNoise), audio.Lowpass, 800, 0), 0.25))
	b.sequence(0, chirp, chirpInterval)
	b.sequence(1.5, chirp, chirpInterval)
}

func windChimes(b *builder) {
	b.sequence(0, chime, chimeInterval)
	b.sequence(1, chime, chimeInterval)
}

func bowl(b *builder) {
	freqs := []float64{220, 330, 440, 550}
	levels := make([]float64, len(freqs))
	for i := range freqs {
		levels[i] = 0.25 / float64(i+1)
	}
	b.stack(freqs, levels, false)
}

func cosmic(b *builder) {
	b.stack([]float64{60, 90, 120, 180}, []float64{0.15, 0.1, 0.08, 0.05}, true)
}

func fire(b *builder) {
	crackle := b.ctx.NewBufferSource(audio.Sparse(b.rng, b.rate, 0.5, 0.95, 0.5), true)
	b.add(b.ctx.NewBiquad(crackle, audio.Lowpass, 1200, 0))
	b.tone(audio.Sine, 60, 0.3)
}

func tibetan(b *builder) {
	b.stack([]float64{174, 285, 396, 528, 639}, []float64{0.12, 0.1, 0.08, 0.06, 0.04}, true)
}

func meditation(b *builder) {
	// 100 and 104 Hz beat at 4 Hz
	b.stack([]float64{100, 104, 200, 300}, []float64{0.15, 0.15, 0.08, 0.05}, true)
}

func spiritual(b *builder) {
	b.stack([]float64{256, 384, 512, 768}, []float64{0.1, 0.08, 0.06, 0.04}, true)
	b.add(b.ctx.NewGain(b.ctx.NewBiquad(b.loop(audio.WhiteNoise), audio.Highpass, 8000, 0), 0.02))
}

// whiteBuffer is full-scale white noise, louder than NoiseBuffer's white.
func whiteBuffer(rng *rand.Rand, rate int, seconds float64) []float64 {
	buf := make([]float64, int(float64(rate)*seconds))
	for i := range buf {
		buf[i] = rng.Float64()*2 - 1
	}
	return buf
}

var chirpFreqs = []float64{600, 800, 1000, 1200, 1400, 1600, 1800, 2000}

func chirp(ctx *audio.Context, rng *rand.Rand, start float64) audio.Node {
	osc := ctx.NewOscillator(audio.Sine, chirpFreqs[rng.IntN(len(chirpFreqs))])
	osc.StopAt(start + 0.4)
	env := ctx.NewGain(osc, 0)
	env.Level.SetAt(0, start)
	env.Level.LinearRampTo(0.08, start+0.01)
	env.Level.LinearRampTo(0, start+0.1+rng.Float64()*0.3)
	return env
}

func chirpInterval(rng *rand.Rand) float64 {
	return 0.8 + rng.Float64()*3.2
}

var pentatonic = []float64{261.63, 293.66, 329.63, 392.00, 440.00}

func chime(ctx *audio.Context, rng *rand.Rand, start float64) audio.Node {
	osc := ctx.NewOscillator(audio.Sine, pentatonic[rng.IntN(len(pentatonic))])
	osc.StopAt(start + 2.5)
	env := ctx.NewGain(osc, 0)
	env.Level.SetAt(0, start)
	env.Level.LinearRampTo(0.15, start+0.02)
	env.Level.ExponentialRampTo(0.01, start+2.5)
	return env
}

func chimeInterval(rng *rand.Rand) float64 {
	return 1.5 + rng.Float64()*4.5
}
