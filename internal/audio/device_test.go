package audio

import (
	"errors"
	"io"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type failingDevice struct{}

func (failingDevice) Open(io.Reader, int, int) error { return errors.New("no sound card") }
func (failingDevice) Close() error                   { return nil }

func TestNewContext_DeviceFailure(t *testing.T) {
	_, err := NewContext(failingDevice{}, 0)
	assert.ErrorIs(t, err, ErrAudioUnavailable)
}

func TestNewContext_NullDevice(t *testing.T) {
	c, err := NewContext(NullDevice{}, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultSampleRate, c.SampleRate())
	assert.NoError(t, c.Close())
}

func TestPipeDevice_StartAndClose(t *testing.T) {
	defer goleak.VerifyNone(t)
	if _, err := exec.LookPath("cat"); err != nil {
		t.Skip("cat not available")
	}

	dev := NewPipeDevice([]string{"sh", "-c", "cat > /dev/null"})
	c, err := NewContext(dev, 8000)
	require.NoError(t, err)
	c.Destination().Add(c.NewOscillator(Sine, 440))

	require.NoError(t, c.Close())
	assert.NoError(t, dev.Close())
}

func TestPipeDevice_Errors(t *testing.T) {
	assert.Error(t, NewPipeDevice(nil).Open(nil, 8000, 2))
	_, err := NewContext(NewPipeDevice([]string{"/definitely/not/a/player"}), 8000)
	assert.ErrorIs(t, err, ErrAudioUnavailable)
}
