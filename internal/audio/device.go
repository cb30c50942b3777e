package audio

import (
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
)

// Device is an audio output that pulls PCM from r until closed.
type Device interface {
	Open(r io.Reader, rate, channels int) error
	Close() error
}

// NullDevice accepts the stream and never reads it. Used when audio is disabled but
// the rest of the engine should behave as if a context exists.
type NullDevice struct{}

// Open implements Device.
func (NullDevice) Open(io.Reader, int, int) error { return nil }

// Close implements Device.
func (NullDevice) Close() error { return nil }

// PipeDevice streams raw s16le PCM into the stdin of an external player such as
// `aplay -q -f S16_LE -c 2 -r 44100` or `pacat --format=s16le`. The literal
// arguments {rate} and {channels} are substituted.
type PipeDevice struct {
	Command []string

	mu   sync.Mutex
	cmd  *exec.Cmd
	done chan struct{}
}

// NewPipeDevice returns a device running argv.
func NewPipeDevice(argv []string) *PipeDevice {
	return &PipeDevice{Command: argv}
}

// Open starts the player and a copier goroutine.
func (d *PipeDevice) Open(r io.Reader, rate, channels int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cmd != nil {
		return errors.New("pipe device already open")
	}
	if len(d.Command) == 0 {
		return errors.New("pipe device has no command")
	}

	args := make([]string, len(d.Command))
	for i, a := range d.Command {
		switch a {
		case "{rate}":
			a = fmt.Sprint(rate)
		case "{channels}":
			a = fmt.Sprint(channels)
		}
		args[i] = a
	}

	cmd := exec.Command(args[0], args[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("pipe device stdin: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", args[0], err)
	}

	d.cmd = cmd
	d.done = make(chan struct{})
	go func() {
		defer close(d.done)
		_, _ = io.Copy(stdin, r)
		_ = stdin.Close()
	}()
	return nil
}

// Close kills the player and waits for the copier to exit.
func (d *PipeDevice) Close() error {
	d.mu.Lock()
	cmd, done := d.cmd, d.done
	d.cmd, d.done = nil, nil
	d.mu.Unlock()

	if cmd == nil {
		return nil
	}
	if cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
	_ = cmd.Wait()
	<-done
	return nil
}
