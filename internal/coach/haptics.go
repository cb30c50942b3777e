package coach

import (
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"
	"time"
)

// Vibrator produces a short haptic pulse.
type Vibrator interface {
	Vibrate(d time.Duration) error
}

// NopVibrator is used when the platform has no vibration.
type NopVibrator struct{}

// Vibrate implements Vibrator.
func (NopVibrator) Vibrate(time.Duration) error { return nil }

// BellVibrator rings the terminal bell, which many terminals turn into a visual
// flash or a system haptic.
type BellVibrator struct {
	W io.Writer
}

// Vibrate implements Vibrator.
func (b BellVibrator) Vibrate(time.Duration) error {
	_, err := io.WriteString(b.W, "\a")
	return err
}

// CommandVibrator runs a vibration helper such as termux-vibrate with -d <ms>.
type CommandVibrator struct {
	Command string

	once     sync.Once
	launcher *launcher
}

// NewCommandVibrator returns a vibrator for command, or an error if it is not
// installed.
func NewCommandVibrator(command string) (*CommandVibrator, error) {
	if _, err := exec.LookPath(command); err != nil {
		return nil, fmt.Errorf("vibrator %s: %w", command, err)
	}
	return &CommandVibrator{Command: command}, nil
}

func (v *CommandVibrator) init() {
	v.once.Do(func() { v.launcher = &launcher{} })
}

// Vibrate implements Vibrator.
func (v *CommandVibrator) Vibrate(d time.Duration) error {
	v.init()
	return v.launcher.start(v.Command, "-d", strconv.FormatInt(d.Milliseconds(), 10))
}

// Close waits for pending pulses.
func (v *CommandVibrator) Close() error {
	v.init()
	v.launcher.close()
	return nil
}
