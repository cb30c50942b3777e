package audio

import "math"

// FilterType selects a biquad response.
type FilterType int

const (
	Lowpass FilterType = iota
	Highpass
	Bandpass
)

// Biquad is a second-order IIR filter using the RBJ audio-EQ cookbook coefficients.
type Biquad struct {
	Input Node

	b0, b1, b2, a1, a2 float64
	x1, x2, y1, y2     float64
}

// NewBiquad filters in with the given response, cutoff (or centre) freq and q.
func (c *Context) NewBiquad(in Node, kind FilterType, freq, q float64) *Biquad {
	if q <= 0 {
		q = math.Sqrt2 / 2
	}
	rate := float64(c.rate)
	if freq >= rate/2 {
		freq = rate/2 - 1
	}
	w0 := 2 * math.Pi * freq / rate
	cos, sin := math.Cos(w0), math.Sin(w0)
	alpha := sin / (2 * q)

	var b0, b1, b2 float64
	switch kind {
	case Highpass:
		b0, b1, b2 = (1+cos)/2, -(1 + cos), (1+cos)/2
	case Bandpass:
		b0, b1, b2 = alpha, 0, -alpha
	default:
		b0, b1, b2 = (1-cos)/2, 1-cos, (1-cos)/2
	}
	a0 := 1 + alpha
	return &Biquad{
		Input: in,
		b0:    b0 / a0, b1: b1 / a0, b2: b2 / a0,
		a1: -2 * cos / a0, a2: (1 - alpha) / a0,
	}
}

// Process renders one block.
func (f *Biquad) Process(out []float64, at int64) bool {
	if f.Input == nil {
		clear(out)
		return false
	}
	alive := f.Input.Process(out, at)
	for i, x := range out {
		y := f.b0*x + f.b1*f.x1 + f.b2*f.x2 - f.a1*f.y1 - f.a2*f.y2
		f.x2, f.x1 = f.x1, x
		f.y2, f.y1 = f.y1, y
		out[i] = y
	}
	return alive
}
