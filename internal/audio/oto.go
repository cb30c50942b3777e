package audio

import (
	"errors"
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// oto allows a single context per process, so every OtoDevice shares it. The first
// Open fixes the sample rate and channel count.
var (
	otoOnce sync.Once
	otoCtx  *oto.Context
	otoErr  error
	otoRate int
)

// OtoDevice plays through the platform mixer via oto.
type OtoDevice struct {
	BufferSize time.Duration

	mu     sync.Mutex
	player *oto.Player
}

// NewOtoDevice returns a device with the given buffer length.
func NewOtoDevice(buffer time.Duration) *OtoDevice {
	return &OtoDevice{BufferSize: buffer}
}

// Open creates (once) the shared oto context and starts a player over r.
func (d *OtoDevice) Open(r io.Reader, rate, channels int) error {
	otoOnce.Do(func() {
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   rate,
			ChannelCount: channels,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   d.BufferSize,
		})
		if err != nil {
			otoErr = err
			return
		}
		<-ready
		otoCtx, otoRate = ctx, rate
	})
	if otoErr != nil {
		return otoErr
	}
	if otoRate != rate {
		return errors.New("oto context already running at a different sample rate")
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.player != nil {
		return errors.New("oto device already open")
	}
	d.player = otoCtx.NewPlayer(r)
	d.player.Play()
	return nil
}

// Close stops the player. The shared context stays alive for later devices.
func (d *OtoDevice) Close() error {
	d.mu.Lock()
	p := d.player
	d.player = nil
	d.mu.Unlock()
	if p == nil {
		return nil
	}
	p.Pause()
	return p.Close()
}
