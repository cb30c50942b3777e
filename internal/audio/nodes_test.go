package audio

import (
	"encoding/binary"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func offline(t *testing.T) *Context {
	t.Helper()
	c, err := NewContext(nil, 8000)
	require.NoError(t, err)
	return c
}

func TestOscillator_SineFrequency(t *testing.T) {
	c := offline(t)
	osc := c.NewOscillator(Sine, 1000)
	c.Destination().Add(osc)

	buf := make([]float64, 8000)
	c.Render(buf)

	crossings := 0
	for i := 1; i < len(buf); i++ {
		if buf[i-1] < 0 && buf[i] >= 0 {
			crossings++
		}
	}
	assert.InDelta(t, 1000, crossings, 2)
}

func TestOscillator_StopAtRemovesFromMixer(t *testing.T) {
	c := offline(t)
	osc := c.NewOscillator(Triangle, 440)
	osc.StopAt(0.01)
	c.Destination().Add(osc)

	buf := make([]float64, 160)
	c.Render(buf)
	assert.Equal(t, 0, c.Destination().Len())
	assert.Equal(t, 0.0, buf[len(buf)-1])
	assert.InDelta(t, 0.02, c.CurrentTime(), 1e-9)
}

func TestOscillator_Modulator(t *testing.T) {
	c := offline(t)
	carrier := c.NewOscillator(Sine, 80)
	lfo := c.NewOscillator(Sine, 0.08)
	carrier.Modulator = c.NewGain(lfo, 400)

	buf := make([]float64, 512)
	assert.True(t, carrier.Process(buf, 0))
	for _, s := range buf {
		assert.LessOrEqual(t, math.Abs(s), 1.0)
	}
}

func TestGain_ScalesInput(t *testing.T) {
	c := offline(t)
	src := c.NewBufferSource([]float64{1, 1, 1, 1}, true)
	g := c.NewGain(src, 0.25)

	buf := make([]float64, 4)
	g.Process(buf, 0)
	assert.Equal(t, []float64{0.25, 0.25, 0.25, 0.25}, buf)
}

func TestBufferSource_OneShotFinishes(t *testing.T) {
	c := offline(t)
	src := c.NewBufferSource([]float64{0.5, 0.5}, false)
	buf := make([]float64, 4)
	assert.False(t, src.Process(buf, 0))
	assert.Equal(t, []float64{0.5, 0.5, 0, 0}, buf)
}

func TestMixer_SumsAndRemoves(t *testing.T) {
	c := offline(t)
	m := c.NewMixer(0.5)
	a := c.NewBufferSource([]float64{1, 1}, true)
	b := c.NewBufferSource([]float64{1, 1}, true)
	m.Add(a)
	m.Add(b)

	buf := make([]float64, 2)
	m.Process(buf, 0)
	assert.Equal(t, []float64{1, 1}, buf)

	m.Remove(a)
	assert.False(t, m.Has(a))
	assert.True(t, m.Has(b))
	m.Clear()
	assert.Equal(t, 0, m.Len())
}

func TestBiquad_LowpassAttenuatesHighFrequency(t *testing.T) {
	c := offline(t)
	rms := func(freq float64) float64 {
		osc := c.NewOscillator(Sine, freq)
		lp := c.NewBiquad(osc, Lowpass, 200, 0.7)
		buf := make([]float64, 4000)
		lp.Process(buf, 0)
		var sum float64
		for _, s := range buf[1000:] {
			sum += s * s
		}
		return math.Sqrt(sum / float64(len(buf)-1000))
	}
	assert.Greater(t, rms(50), 4*rms(3000))
}

func TestNoiseBuffer_Bounded(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for _, color := range []NoiseColor{WhiteNoise, PinkNoise, BrownNoise} {
		buf := NoiseBuffer(rng, color, 8000, 0.5)
		require.Len(t, buf, 4000)
		for _, s := range buf {
			assert.LessOrEqual(t, math.Abs(s), 1.5)
		}
	}
	assert.Nil(t, NoiseBuffer(rng, WhiteNoise, 8000, 0))
}

func TestContext_ReadProducesStereoPCM(t *testing.T) {
	c := offline(t)
	c.Destination().Add(c.NewBufferSource([]float64{0.5}, true))

	p := make([]byte, 16)
	n, err := c.Read(p)
	require.NoError(t, err)
	assert.Equal(t, 16, n)
	want := int16(math.Round(0.5 * math.MaxInt16))
	for i := 0; i < 4; i++ {
		left := int16(binary.LittleEndian.Uint16(p[i*4:]))
		right := int16(binary.LittleEndian.Uint16(p[i*4+2:]))
		assert.Equal(t, want, left)
		assert.Equal(t, want, right)
	}
}

func TestContext_CloseSilences(t *testing.T) {
	c := offline(t)
	c.Destination().Add(c.NewBufferSource([]float64{1}, true))
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	buf := []float64{9, 9}
	c.Render(buf)
	assert.Equal(t, []float64{0, 0}, buf)
}

func TestToInt16Clamps(t *testing.T) {
	assert.Equal(t, int16(math.MaxInt16), toInt16(3))
	assert.Equal(t, int16(-math.MaxInt16), toInt16(-3))
	assert.Equal(t, int16(0), toInt16(math.NaN()))
}
