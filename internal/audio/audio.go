// Package audio is a small procedural audio graph: parameter automation, oscillators,
// filters, noise buffers and mixers rendered into 16-bit PCM for an output device.
//
// A Context owns the graph and the device. The device pulls samples on its own
// goroutine through Context.Read; every graph mutation goes through Context.Do so it
// is serialized with rendering.
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
)

// DefaultSampleRate is used when a caller passes zero.
const DefaultSampleRate = 44100

// Channels is the interleaved channel count delivered to devices. The graph is mono
// and duplicated into both channels.
const Channels = 2

// ErrAudioUnavailable is returned when no output device could be opened.
var ErrAudioUnavailable = errors.New("audio unavailable")

// Node produces mono samples. Process overwrites out with the block starting at
// sample frame at and reports whether the node is still producing.
type Node interface {
	Process(out []float64, at int64) bool
}

// Context renders a node graph into a device.
type Context struct {
	mu     sync.Mutex
	rate   int
	frame  int64
	dest   *Mixer
	device Device
	block  []float64
	closed bool
}

// NewContext opens dev and starts pulling audio from the graph. A nil device gives an
// offline context that only renders when Render or Read is called directly.
func NewContext(dev Device, rate int) (*Context, error) {
	if rate <= 0 {
		rate = DefaultSampleRate
	}
	c := &Context{rate: rate, device: dev}
	c.dest = c.NewMixer(1)
	if dev != nil {
		if err := dev.Open(c, rate, Channels); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrAudioUnavailable, err)
		}
	}
	return c, nil
}

// SampleRate returns the render rate in Hz.
func (c *Context) SampleRate() int {
	return c.rate
}

// Destination is the final mixer every audible node ends up in.
func (c *Context) Destination() *Mixer {
	return c.dest
}

// CurrentTime is the render position in seconds.
func (c *Context) CurrentTime() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seconds(c.frame)
}

func (c *Context) seconds(frame int64) float64 {
	return float64(frame) / float64(c.rate)
}

// Do runs fn with the render lock held, passing the current time in seconds.
// All graph construction and teardown must go through Do.
func (c *Context) Do(fn func(now float64)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c.seconds(c.frame))
}

// Render fills buf with the next mono block and advances time.
func (c *Context) Render(buf []float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.renderLocked(buf)
}

func (c *Context) renderLocked(buf []float64) {
	if c.closed {
		clear(buf)
		return
	}
	c.dest.Process(buf, c.frame)
	c.frame += int64(len(buf))
}

// Read implements io.Reader, producing interleaved signed 16-bit little-endian
// stereo PCM. It never returns io.EOF; the device decides when to stop pulling.
func (c *Context) Read(p []byte) (int, error) {
	const frameBytes = 2 * Channels
	frames := len(p) / frameBytes
	if frames == 0 {
		return 0, nil
	}

	c.mu.Lock()
	if cap(c.block) < frames {
		c.block = make([]float64, frames)
	}
	block := c.block[:frames]
	c.renderLocked(block)
	c.mu.Unlock()

	for i, s := range block {
		v := uint16(toInt16(s))
		for ch := 0; ch < Channels; ch++ {
			binary.LittleEndian.PutUint16(p[i*frameBytes+ch*2:], v)
		}
	}
	return frames * frameBytes, nil
}

func toInt16(s float64) int16 {
	if math.IsNaN(s) {
		return 0
	}
	if s > 1 {
		s = 1
	} else if s < -1 {
		s = -1
	}
	return int16(math.Round(s * math.MaxInt16))
}

// Close stops the device and silences the graph. Safe to call more than once.
func (c *Context) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.dest.Clear()
	dev := c.device
	c.mu.Unlock()

	if dev != nil {
		return dev.Close()
	}
	return nil
}
