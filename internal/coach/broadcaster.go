// Package coach fans phase changes out to the voice, chime and haptic channels.
// Every channel is best-effort and independent of the others.
package coach

import (
	"sync"
	"sync/atomic"
	"time"

	"breathe/internal/logging"
	"breathe/internal/technique"

	"go.uber.org/zap"
)

// Pulse lengths for the haptic channel.
const (
	ExhalePulse = 14 * time.Millisecond
	PhasePulse  = 22 * time.Millisecond
)

// Options toggles the channels.
type Options struct {
	Voice   bool
	Chime   bool
	Haptics bool
}

// Broadcaster announces phase changes. Channels that are nil are skipped.
type Broadcaster struct {
	opts     Options
	speaker  Speaker
	chimer   Chimer
	vibrator Vibrator

	voiceDown atomic.Bool
	dropOnce  sync.Once
	announced atomic.Int64
}

// NewBroadcaster wires the channels. A CommandSpeaker is hooked so an utterance
// that fails after starting also takes the voice channel down.
func NewBroadcaster(opts Options, speaker Speaker, chimer Chimer, vibrator Vibrator) *Broadcaster {
	b := &Broadcaster{opts: opts, speaker: speaker, chimer: chimer, vibrator: vibrator}
	if cs, ok := speaker.(*CommandSpeaker); ok {
		cs.OnFailure(b.dropVoice)
	}
	return b
}

// Announce fires every enabled channel for p. It never blocks on the channels.
func (b *Broadcaster) Announce(p technique.Phase) {
	b.announced.Add(1)
	log := logging.Get(logging.CategoryCoach)

	if b.opts.Haptics && b.vibrator != nil {
		d := PhasePulse
		if p.IsExhale() {
			d = ExhalePulse
		}
		if err := b.vibrator.Vibrate(d); err != nil {
			log.Debug("vibrate failed", zap.Error(err))
		}
	}

	if b.opts.Chime && !isNilChimer(b.chimer) {
		b.chimer.Chime()
	}

	if b.opts.Voice && b.speaker != nil && !b.voiceDown.Load() {
		_ = b.speaker.Cancel()
		if err := b.speaker.Speak(p.Label); err != nil {
			b.dropVoice(err)
		}
	}
}

// Announced is the number of Announce calls so far.
func (b *Broadcaster) Announced() int {
	return int(b.announced.Load())
}

// VoiceAvailable reports whether the voice channel is still up.
func (b *Broadcaster) VoiceAvailable() bool {
	return b.opts.Voice && b.speaker != nil && !b.voiceDown.Load()
}

// Cancel silences any utterance in flight.
func (b *Broadcaster) Cancel() {
	if b.speaker != nil {
		_ = b.speaker.Cancel()
	}
}

func (b *Broadcaster) dropVoice(err error) {
	b.voiceDown.Store(true)
	b.dropOnce.Do(func() {
		logging.Get(logging.CategoryCoach).Warn("voice coaching disabled", zap.Error(err))
	})
}

func isNilChimer(c Chimer) bool {
	if c == nil {
		return true
	}
	ac, ok := c.(*AudioChime)
	return ok && ac == nil
}
