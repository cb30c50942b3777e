package audio

import "math/rand/v2"

// NoiseColor selects the spectrum of a generated noise buffer.
type NoiseColor int

const (
	WhiteNoise NoiseColor = iota
	PinkNoise
	BrownNoise
)

// NoiseBuffer returns seconds of noise at rate, suitable for a looping BufferSource.
// Pink noise uses Paul Kellet's refined filter; brown noise is leaky-integrated white.
func NoiseBuffer(rng *rand.Rand, color NoiseColor, rate int, seconds float64) []float64 {
	n := int(float64(rate) * seconds)
	if n <= 0 {
		return nil
	}
	out := make([]float64, n)
	var b0, b1, b2, b3, b4, b5, b6 float64
	for i := range out {
		white := rng.Float64()*2 - 1
		switch color {
		case PinkNoise:
			b0 = 0.99886*b0 + white*0.0555179
			b1 = 0.99332*b1 + white*0.0750759
			b2 = 0.96900*b2 + white*0.1538520
			b3 = 0.86650*b3 + white*0.3104856
			b4 = 0.55000*b4 + white*0.5329522
			b5 = -0.7616*b5 - white*0.0168980
			out[i] = (b0 + b1 + b2 + b3 + b4 + b5 + b6 + white*0.5362) * 0.11
			b6 = white * 0.115926
		case BrownNoise:
			b0 = (b0 + 0.02*white) / 1.02
			out[i] = b0 * 3.5
		default:
			out[i] = white * 0.5
		}
	}
	return out
}

// Sparse returns a crackle buffer: mostly silence with random impulses where the
// draw exceeds threshold.
func Sparse(rng *rand.Rand, rate int, seconds, threshold, amp float64) []float64 {
	n := int(float64(rate) * seconds)
	out := make([]float64, max(n, 0))
	for i := range out {
		if rng.Float64() > threshold {
			out[i] = (rng.Float64()*2 - 1) * amp
		}
	}
	return out
}
