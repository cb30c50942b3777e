package session

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"breathe/internal/ambient"
	"breathe/internal/audio"
	"breathe/internal/technique"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type harness struct {
	clock     *fakeClock
	coach     *fakeCoach
	ambience  *fakeAmbience
	presenter *fakePresenter
	store     *fakeStore
	engine    *Engine
}

func newHarness() *harness {
	h := &harness{
		clock:     newFakeClock(),
		coach:     &fakeCoach{},
		ambience:  &fakeAmbience{},
		presenter: &fakePresenter{},
		store:     &fakeStore{},
	}
	h.engine = NewEngine(
		WithClock(h.clock),
		WithAnnouncer(h.coach),
		WithAmbience(h.ambience),
		WithPresenter(h.presenter),
		WithRecorder(NewRecorder(h.store)),
	)
	return h
}

func lookup(t *testing.T, id string) technique.Technique {
	t.Helper()
	tech, err := technique.Lookup(id)
	require.NoError(t, err)
	return tech
}

// runFor ticks every step until d has passed or the run ends.
func (h *harness) runFor(d, step time.Duration, each func(Frame)) Frame {
	var f Frame
	for passed := time.Duration(0); passed < d; passed += step {
		h.clock.Advance(step)
		f = h.engine.Tick()
		if each != nil {
			each(f)
		}
		if f.Status != Running {
			break
		}
	}
	return f
}

func TestEngine_BoxSixtySecondsFinishesAfterFourCycles(t *testing.T) {
	h := newHarness()
	f := h.engine.Start(Config{Technique: lookup(t, "box"), Target: time.Minute})
	assert.Equal(t, Running, f.Status)
	assert.Equal(t, 4, f.TotalCycles)
	assert.Equal(t, technique.KeyInhale, f.Step.Key)

	f = h.runFor(63*time.Second+900*time.Millisecond, 100*time.Millisecond, nil)
	assert.Equal(t, Running, f.Status)
	assert.Equal(t, 3, f.CyclesCompleted)

	h.clock.Advance(100 * time.Millisecond)
	f = h.engine.Tick()
	require.Equal(t, Finished, f.Status)
	require.NotNil(t, f.Summary)
	assert.Equal(t, 64*time.Second, f.Summary.Total)
	assert.Equal(t, 4, f.Summary.Cycles)
	assert.True(t, f.Summary.Recorded)
	assert.Equal(t, 1, f.Summary.Totals.Sessions)

	assert.Equal(t, []storeCall{{"box", 64, 4}}, h.store.calls)
	assert.Len(t, h.coach.phases, 16)
	assert.Equal(t, 1, h.ambience.stops)
	assert.Equal(t, 1, h.presenter.exited)

	h.clock.Advance(time.Minute)
	h.engine.Tick()
	h.engine.Stop()
	assert.Equal(t, 1, h.store.count(), "finish records exactly once")
}

func TestEngine_TrailingZeroPhaseIsSkipped(t *testing.T) {
	h := newHarness()
	h.engine.Start(Config{Technique: technique.FromDurations("478", 4, 7, 8, 0), Target: time.Minute})

	f := h.runFor(2*time.Minute, 50*time.Millisecond, func(f Frame) {
		assert.NotEqual(t, technique.KeyHold2, f.Step.Key, "instant phase never shows")
	})
	require.Equal(t, Finished, f.Status)
	assert.Equal(t, 57*time.Second, f.Summary.Total)
	assert.NotContains(t, h.coach.keys(), technique.KeyHold2)
	assert.Len(t, h.coach.phases, 9)
}

func TestEngine_InstantPhaseSkippedWithinTheSameTick(t *testing.T) {
	h := newHarness()
	h.engine.Start(Config{Technique: technique.FromDurations("478", 4, 7, 8, 0), Target: time.Minute})

	h.clock.Advance(19 * time.Second)
	f := h.engine.Tick()
	assert.Equal(t, technique.KeyInhale, f.Step.Key)
	assert.Equal(t, 1, f.CyclesCompleted)
	assert.Equal(t, 4*time.Second, f.Remaining)
	assert.True(t, f.Transition)
}

func TestEngine_PauseResumePreservesCountdown(t *testing.T) {
	h := newHarness()
	h.engine.Start(Config{Technique: lookup(t, "box"), Target: time.Minute})

	h.clock.Advance(6 * time.Second)
	before := h.engine.Tick()
	require.Equal(t, 1, before.Step.Index)
	require.Equal(t, 2*time.Second, before.Remaining)

	require.NoError(t, h.engine.Pause())
	h.clock.Advance(37 * time.Minute)
	paused := h.engine.Tick()
	assert.Equal(t, Paused, paused.Status)
	assert.Equal(t, before.Remaining, paused.Remaining)

	require.NoError(t, h.engine.Resume())
	resumed := h.engine.Snapshot()
	assert.Equal(t, Running, resumed.Status)
	assert.Equal(t, 1, resumed.Step.Index)
	assert.Equal(t, 2*time.Second, resumed.Remaining)

	h.clock.Advance(500 * time.Millisecond)
	assert.Equal(t, 1500*time.Millisecond, h.engine.Tick().Remaining)
	assert.Equal(t, 6*time.Second+500*time.Millisecond, h.engine.Snapshot().Elapsed)
}

func TestEngine_PauseAndResumeAtSameInstant(t *testing.T) {
	h := newHarness()
	h.engine.Start(Config{Technique: lookup(t, "box"), Target: time.Minute})
	h.clock.Advance(2500 * time.Millisecond)
	before := h.engine.Tick()

	require.NoError(t, h.engine.TogglePause())
	require.NoError(t, h.engine.TogglePause())
	after := h.engine.Tick()
	assert.Equal(t, before.Step.Index, after.Step.Index)
	assert.Equal(t, before.Remaining, after.Remaining)
}

func TestEngine_ResumeRepeatsCurrentCue(t *testing.T) {
	h := newHarness()
	h.engine.Start(Config{Technique: lookup(t, "box"), Target: time.Minute})
	h.clock.Advance(5 * time.Second)
	h.engine.Tick()
	require.NoError(t, h.engine.Pause())
	require.NoError(t, h.engine.Resume())
	assert.Equal(t, []string{technique.KeyInhale, technique.KeyHold1, technique.KeyHold1}, h.coach.keys())
}

func TestEngine_PauseMutesAmbientWhenConfigured(t *testing.T) {
	h := newHarness()
	h.engine.Start(Config{Technique: lookup(t, "box"), Target: time.Minute, Ambient: ambient.Rain, PauseAmbient: true})
	require.NoError(t, h.engine.Pause())
	assert.True(t, h.ambience.muted)
	assert.Zero(t, h.ambience.stops)
	require.NoError(t, h.engine.Resume())
	assert.False(t, h.ambience.muted)

	h2 := newHarness()
	h2.engine.Start(Config{Technique: lookup(t, "box"), Target: time.Minute, Ambient: ambient.Rain})
	require.NoError(t, h2.engine.Pause())
	assert.False(t, h2.ambience.muted, "ambient continues through pause by default")
}

func TestEngine_PauseWhenNotRunning(t *testing.T) {
	h := newHarness()
	assert.ErrorIs(t, h.engine.Pause(), ErrNotRunning)
	assert.ErrorIs(t, h.engine.Resume(), ErrNotRunning)
	assert.ErrorIs(t, h.engine.TogglePause(), ErrNotRunning)
}

func TestEngine_StopNeverRecords(t *testing.T) {
	h := newHarness()
	h.engine.Start(Config{Technique: lookup(t, "box"), Target: time.Minute, Focus: true, Ambient: ambient.Ocean})
	h.runFor(40*time.Second, time.Second, nil)
	h.engine.Stop()

	f := h.engine.Snapshot()
	assert.Equal(t, Idle, f.Status)
	assert.Nil(t, f.Summary)
	assert.Zero(t, h.store.count())
	assert.Equal(t, 1, h.ambience.stops)
	assert.Equal(t, 1, h.presenter.entered)
	assert.Equal(t, 1, h.presenter.exited)
	assert.Positive(t, h.coach.cancels)

	h.engine.Stop()
	assert.Equal(t, 1, h.ambience.stops, "stopping an idle engine is a no-op")
}

func TestEngine_ProgressBoundsAndCycleCounting(t *testing.T) {
	h := newHarness()
	h.engine.Start(Config{Technique: technique.FromDurations("odd", 3.3, 0, 5.1, 1.7), Target: 2 * time.Minute})

	rng := rand.New(rand.NewPCG(3, 4))
	prevCycles, prevIdx := 0, 0
	for i := 0; i < 2000; i++ {
		h.clock.Advance(time.Duration(rng.IntN(700)) * time.Millisecond)
		f := h.engine.Tick()
		if f.Status != Running {
			break
		}
		assert.GreaterOrEqual(t, f.Progress, 0.0)
		assert.LessOrEqual(t, f.Progress, 1.0)
		assert.GreaterOrEqual(t, f.Remaining, time.Duration(0))
		assert.LessOrEqual(t, f.Remaining, f.Step.Duration)

		if f.CyclesCompleted != prevCycles {
			assert.Equal(t, prevCycles+1, f.CyclesCompleted, "at most one wrap per sub-cycle tick")
			assert.LessOrEqual(t, f.Step.Index, prevIdx, "cycles only advance on a wrap")
		}
		prevCycles, prevIdx = f.CyclesCompleted, f.Step.Index
	}
	assert.Equal(t, Finished, h.engine.Status())
}

func TestEngine_SlowTicksDoNotDrift(t *testing.T) {
	h := newHarness()
	h.engine.Start(Config{Technique: lookup(t, "box"), Target: time.Minute})

	// irregular frame times that never land on a boundary
	h.runFor(63*time.Second+950*time.Millisecond, 1650*time.Millisecond, nil)
	h.clock.Advance(time.Hour)
	f := h.engine.Tick()
	require.Equal(t, Finished, f.Status)
	assert.Equal(t, 64*time.Second, f.Summary.Total)
	assert.Equal(t, 64*time.Second, f.Elapsed)
}

func TestEngine_StalledTickAnnouncesOnlyLandingPhase(t *testing.T) {
	h := newHarness()
	h.engine.Start(Config{Technique: lookup(t, "box"), Target: time.Minute})
	require.Equal(t, []string{technique.KeyInhale}, h.coach.keys())

	// inhale and hold1 both end inside this one tick
	h.clock.Advance(9 * time.Second)
	f := h.engine.Tick()
	assert.Equal(t, technique.KeyExhale, f.Step.Key)
	assert.Equal(t, 0, f.CyclesCompleted)
	assert.Equal(t, []string{technique.KeyInhale, technique.KeyExhale}, h.coach.keys())

	// a stall across a whole cycle still counts it
	h.clock.Advance(16 * time.Second)
	f = h.engine.Tick()
	assert.Equal(t, technique.KeyExhale, f.Step.Key)
	assert.Equal(t, 1, f.CyclesCompleted)
	assert.Equal(t, []string{technique.KeyInhale, technique.KeyExhale, technique.KeyExhale}, h.coach.keys())
}

func TestEngine_TimeBoxStopsAtLimit(t *testing.T) {
	h := newHarness()
	h.engine.Start(Config{Technique: lookup(t, "sos60"), Target: 5 * time.Minute})
	assert.Equal(t, 30, h.engine.Schedule().TotalCycles)

	f := h.runFor(2*time.Minute, 250*time.Millisecond, nil)
	require.Equal(t, Finished, f.Status)
	assert.Equal(t, 6, f.Summary.Cycles)
	assert.Equal(t, 60*time.Second, f.Summary.Total)

	h2 := newHarness()
	h2.engine.Start(Config{Technique: lookup(t, "box"), Target: 5 * time.Minute, TimeBox: 30 * time.Second})
	f = h2.runFor(time.Minute, 250*time.Millisecond, nil)
	require.Equal(t, Finished, f.Status)
	assert.Equal(t, 1, f.Summary.Cycles)
	assert.Equal(t, 16*time.Second, f.Summary.Total)
}

func TestEngine_RecorderFailureDoesNotBlockFinish(t *testing.T) {
	h := newHarness()
	h.store.err = errStoreDown
	h.engine.Start(Config{Technique: lookup(t, "coherent"), Target: 10 * time.Second})
	f := h.runFor(time.Minute, time.Second, nil)
	require.Equal(t, Finished, f.Status)
	assert.False(t, f.Summary.Recorded)
	assert.Equal(t, 1, h.store.count())
}

func TestEngine_FocusFailureStillStarts(t *testing.T) {
	h := newHarness()
	h.presenter.enterErr = assert.AnError
	f := h.engine.Start(Config{Technique: lookup(t, "box"), Target: time.Minute, Focus: true})
	assert.Equal(t, Running, f.Status)
}

func TestEngine_AmbientFollowsRun(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.engine.SetAmbient(ambient.Birds))
	assert.Empty(t, h.ambience.selected, "idle selection waits for the next run")

	h.engine.Start(Config{Technique: lookup(t, "box"), Target: time.Minute, Ambient: ambient.Rain, AmbientVolume: 0.3})
	assert.Equal(t, 0.3, h.ambience.volume)
	require.NoError(t, h.engine.SetAmbient(ambient.Ocean))
	assert.Equal(t, []ambient.Choice{ambient.Rain, ambient.Ocean}, h.ambience.selected)

	h.engine.SetVolume(2)
	assert.Equal(t, 1.0, h.engine.Config().AmbientVolume)

	h.ambience.err = assert.AnError
	assert.Error(t, h.engine.SetAmbient(ambient.Fire))
}

func TestEngine_RestartDiscardsRun(t *testing.T) {
	h := newHarness()
	h.engine.Start(Config{Technique: lookup(t, "box"), Target: time.Minute})
	first := h.engine.Snapshot().RunID
	h.clock.Advance(10 * time.Second)
	h.engine.Tick()

	f := h.engine.Start(Config{Technique: lookup(t, "coherent"), Target: time.Minute})
	assert.NotEqual(t, first, f.RunID)
	assert.Equal(t, 0, f.Step.Index)
	assert.Equal(t, 5*time.Second, f.Remaining)
	assert.Zero(t, h.store.count())
	assert.Equal(t, 1, h.ambience.stops)
}

func TestEngine_AmbientBankReleasedOnFinishAndStop(t *testing.T) {
	ctx, err := audio.NewContext(nil, 8000)
	require.NoError(t, err)
	bank := ambient.NewBank(ctx, rand.New(rand.NewPCG(1, 2)))

	clock := newFakeClock()
	e := NewEngine(WithClock(clock), WithAmbience(bank))

	e.Start(Config{Technique: lookup(t, "coherent"), Target: 20 * time.Second, Ambient: ambient.Wind})
	assert.Positive(t, bank.ActiveNodes())
	for e.Status() == Running {
		clock.Advance(time.Second)
		e.Tick()
		ctx.Render(make([]float64, 8000))
	}
	assert.Zero(t, bank.ActiveNodes())

	e.Start(Config{Technique: lookup(t, "box"), Target: time.Minute, Ambient: ambient.Rain})
	require.NoError(t, e.SetAmbient(ambient.Ocean))
	assert.Equal(t, ambient.Ocean, bank.Playing())
	e.Stop()
	assert.Zero(t, bank.ActiveNodes())
}

func TestEngine_Run(t *testing.T) {
	defer goleak.VerifyNone(t)
	h := newHarness()
	h.engine.Start(Config{Technique: lookup(t, "box"), Target: 30 * time.Second})

	frames := 0
	sum, err := h.engine.Run(context.Background(), time.Millisecond, func(Frame) {
		frames++
		h.clock.Advance(time.Second)
	})
	require.NoError(t, err)
	require.NotNil(t, sum)
	assert.Equal(t, 2, sum.Cycles)
	assert.Equal(t, 32*time.Second, sum.Total)
	assert.GreaterOrEqual(t, frames, 32)
}

func TestEngine_RunCancelledStops(t *testing.T) {
	defer goleak.VerifyNone(t)
	h := newHarness()
	h.engine.Start(Config{Technique: lookup(t, "box"), Target: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	sum, err := h.engine.Run(ctx, time.Millisecond, func(Frame) { cancel() })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, sum)
	assert.Equal(t, Idle, h.engine.Status())
	assert.Zero(t, h.store.count())
}

func TestEngine_RunIdle(t *testing.T) {
	_, err := NewEngine().Run(context.Background(), time.Millisecond, nil)
	assert.ErrorIs(t, err, ErrNotRunning)
}

func TestFrame_Countdown(t *testing.T) {
	assert.Equal(t, 2, Frame{Remaining: 1100 * time.Millisecond}.Countdown())
	assert.Equal(t, 2, Frame{Remaining: 2 * time.Second}.Countdown())
	assert.Equal(t, 0, Frame{}.Countdown())
	assert.Equal(t, 4, Frame{CyclesCompleted: 4, TotalCycles: 4}.Breath())
	assert.Equal(t, 1, Frame{}.Breath())
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "paused", Paused.String())
	assert.Equal(t, "idle", Status(42).String())
}
