package audio

import "math"

// Waveform selects an oscillator shape.
type Waveform int

const (
	Sine Waveform = iota
	Triangle
	Square
	Sawtooth
)

// Oscillator is a periodic source with an automatable frequency and an optional
// modulator whose output is added to the frequency in Hz.
type Oscillator struct {
	Wave      Waveform
	Frequency *Param
	Modulator Node

	rate    float64
	phase   float64
	stopAt  float64
	stopped bool
	modBuf  []float64
}

// NewOscillator creates an oscillator running at freq Hz.
func (c *Context) NewOscillator(wave Waveform, freq float64) *Oscillator {
	return &Oscillator{Wave: wave, Frequency: NewParam(freq), rate: float64(c.rate), stopAt: math.Inf(1)}
}

// StopAt schedules the oscillator to go silent at t seconds.
func (o *Oscillator) StopAt(t float64) {
	o.stopAt = t
}

// Stop silences the oscillator immediately.
func (o *Oscillator) Stop() {
	o.stopped = true
}

// Process renders one block.
func (o *Oscillator) Process(out []float64, at int64) bool {
	if o.stopped {
		clear(out)
		return false
	}
	var mod []float64
	if o.Modulator != nil {
		if cap(o.modBuf) < len(out) {
			o.modBuf = make([]float64, len(out))
		}
		mod = o.modBuf[:len(out)]
		o.Modulator.Process(mod, at)
	}
	o.Frequency.advance(float64(at) / o.rate)
	for i := range out {
		t := float64(at+int64(i)) / o.rate
		if t >= o.stopAt {
			clear(out[i:])
			o.stopped = true
			return false
		}
		f := o.Frequency.ValueAt(t)
		if mod != nil {
			f += mod[i]
		}
		out[i] = wave(o.Wave, o.phase)
		o.phase += f / o.rate
		o.phase -= math.Floor(o.phase)
	}
	return true
}

func wave(w Waveform, phase float64) float64 {
	switch w {
	case Triangle:
		return 1 - 4*math.Abs(phase-0.5)
	case Square:
		if phase < 0.5 {
			return 1
		}
		return -1
	case Sawtooth:
		return 2*phase - 1
	default:
		return math.Sin(2 * math.Pi * phase)
	}
}

// Gain scales its input by an automatable level.
type Gain struct {
	Input Node
	Level *Param
	rate  float64
}

// NewGain wraps in with a gain of level.
func (c *Context) NewGain(in Node, level float64) *Gain {
	return &Gain{Input: in, Level: NewParam(level), rate: float64(c.rate)}
}

// Process renders one block.
func (g *Gain) Process(out []float64, at int64) bool {
	if g.Input == nil {
		clear(out)
		return false
	}
	alive := g.Input.Process(out, at)
	g.Level.advance(float64(at) / g.rate)
	for i := range out {
		out[i] *= g.Level.ValueAt(float64(at+int64(i)) / g.rate)
	}
	return alive
}

// BufferSource plays a sample buffer, optionally looping.
type BufferSource struct {
	Buffer  []float64
	Loop    bool
	pos     int
	stopped bool
}

// NewBufferSource creates a source over buf.
func (c *Context) NewBufferSource(buf []float64, loop bool) *BufferSource {
	return &BufferSource{Buffer: buf, Loop: loop}
}

// Stop silences the source.
func (b *BufferSource) Stop() {
	b.stopped = true
}

// Process renders one block.
func (b *BufferSource) Process(out []float64, _ int64) bool {
	if b.stopped || len(b.Buffer) == 0 {
		clear(out)
		return false
	}
	for i := range out {
		if b.pos >= len(b.Buffer) {
			if !b.Loop {
				clear(out[i:])
				b.stopped = true
				return false
			}
			b.pos = 0
		}
		out[i] = b.Buffer[b.pos]
		b.pos++
	}
	return true
}

// Mixer sums its inputs and applies a master level. Inputs that report they have
// finished are dropped.
type Mixer struct {
	Level   *Param
	rate    float64
	inputs  []Node
	scratch []float64
}

// NewMixer creates an empty mixer at level.
func (c *Context) NewMixer(level float64) *Mixer {
	return &Mixer{Level: NewParam(level), rate: float64(c.rate)}
}

// Add connects n to the mixer.
func (m *Mixer) Add(n Node) {
	m.inputs = append(m.inputs, n)
}

// Remove disconnects n. Unknown nodes are ignored.
func (m *Mixer) Remove(n Node) {
	for i, in := range m.inputs {
		if in == n {
			m.inputs = append(m.inputs[:i], m.inputs[i+1:]...)
			return
		}
	}
}

// Clear disconnects every input.
func (m *Mixer) Clear() {
	m.inputs = m.inputs[:0]
}

// Len is the number of connected inputs.
func (m *Mixer) Len() int {
	return len(m.inputs)
}

// Has reports whether n is connected.
func (m *Mixer) Has(n Node) bool {
	for _, in := range m.inputs {
		if in == n {
			return true
		}
	}
	return false
}

// Process renders one block. A mixer keeps running with no inputs.
func (m *Mixer) Process(out []float64, at int64) bool {
	clear(out)
	if cap(m.scratch) < len(out) {
		m.scratch = make([]float64, len(out))
	}
	scratch := m.scratch[:len(out)]

	live := m.inputs[:0]
	for _, in := range m.inputs {
		alive := in.Process(scratch, at)
		for i, s := range scratch {
			out[i] += s
		}
		if alive {
			live = append(live, in)
		}
	}
	for i := len(live); i < len(m.inputs); i++ {
		m.inputs[i] = nil
	}
	m.inputs = live

	m.Level.advance(float64(at) / m.rate)
	for i := range out {
		out[i] *= m.Level.ValueAt(float64(at+int64(i)) / m.rate)
	}
	return true
}
