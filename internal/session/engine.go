// Package session runs a breathing session: it advances through a compiled phase
// schedule against a wall clock and drives coaching, ambient sound and focus mode
// from the run state.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"breathe/internal/ambient"
	"breathe/internal/logging"
	"breathe/internal/store"
	"breathe/internal/technique"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Status is the run state.
type Status int

const (
	Idle Status = iota
	Running
	Paused
	Finished
)

func (s Status) String() string {
	switch s {
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Finished:
		return "finished"
	default:
		return "idle"
	}
}

// Clock supplies wall-clock time.
type Clock interface {
	Now() time.Time
}

// SystemClock is the real clock.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now() }

// Announcer receives one call per phase transition.
type Announcer interface {
	Announce(p technique.Phase)
	Cancel()
}

// Ambience is the ambient sound bank as seen by the engine.
type Ambience interface {
	Select(choice ambient.Choice) error
	Stop()
	SetVolume(v float64)
	Mute(muted bool)
}

// Presenter switches the focus presentation.
type Presenter interface {
	Enter() error
	Exit()
}

// Config is fixed for the lifetime of one run.
type Config struct {
	Technique     technique.Technique
	Target        time.Duration
	Compile       technique.CompileOptions
	TimeBox       time.Duration // overrides the technique's own time box when set
	Ambient       ambient.Choice
	AmbientVolume float64
	PauseAmbient  bool // mute ambient while paused
	Focus         bool
	ReducedMotion bool
}

// Frame is the observable state after a tick.
type Frame struct {
	Status          Status
	RunID           string
	Step            technique.Step
	Remaining       time.Duration
	Progress        float64 // through the current phase, [0,1]
	CyclesCompleted int
	TotalCycles     int
	Elapsed         time.Duration // running time, pauses excluded
	Transition      bool          // a new phase began during this tick
	Summary         *Summary
}

// Breath is the 1-based breath being performed, capped at the total.
func (f Frame) Breath() int {
	return min(f.CyclesCompleted+1, max(f.TotalCycles, 1))
}

// Countdown is the whole seconds shown to the user, rounded up.
func (f Frame) Countdown() int {
	return int((f.Remaining + time.Second - 1) / time.Second)
}

// Summary is produced once when a run finishes.
type Summary struct {
	RunID       string
	TechniqueID string
	Total       time.Duration // cycle length times completed cycles
	Cycles      int
	Recorded    bool
	Totals      store.Totals
}

// ErrNotRunning is returned when pausing or resuming a run that is not active.
var ErrNotRunning = errors.New("session not running")

// Engine is the session clock. It exclusively owns the run state; every
// collaborator is optional.
type Engine struct {
	clock     Clock
	coach     Announcer
	ambience  Ambience
	presenter Presenter
	recorder  *Recorder

	mu         sync.Mutex
	cfg        Config
	sched      technique.Schedule
	status     Status
	runID      string
	idx        int
	anchor     time.Time     // when the current phase began, shifted on resume
	pausedAt   time.Duration // elapsed in the current phase when paused
	cycles     int
	done       time.Duration // running time spent in finished phases
	transition bool
	summary    *Summary
}

// Option configures an Engine.
type Option func(*Engine)

func WithClock(c Clock) Option         { return func(e *Engine) { e.clock = c } }
func WithAnnouncer(a Announcer) Option { return func(e *Engine) { e.coach = a } }
func WithAmbience(a Ambience) Option   { return func(e *Engine) { e.ambience = a } }
func WithPresenter(p Presenter) Option { return func(e *Engine) { e.presenter = p } }
func WithRecorder(r *Recorder) Option  { return func(e *Engine) { e.recorder = r } }

// NewEngine returns an idle engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{clock: SystemClock{}}
	for _, o := range opts {
		o(e)
	}
	return e
}

// effects are collaborator calls collected under the lock and run after it is
// released, in order.
type effects struct {
	announce *technique.Phase
	teardown bool
	summary  *Summary
}

// Start compiles cfg and begins a run, discarding any run in progress without
// recording it.
func (e *Engine) Start(cfg Config) Frame {
	if e.Status() == Running || e.Status() == Paused {
		e.Stop()
	}

	e.mu.Lock()
	now := e.clock.Now()
	e.cfg = cfg
	e.sched = technique.Compile(cfg.Technique, cfg.Target, cfg.Compile)
	if cfg.TimeBox > 0 {
		e.sched.TimeBox = cfg.TimeBox
	}
	e.status = Running
	e.runID = uuid.NewString()
	e.idx = 0
	e.cycles = 0
	e.done = 0
	e.pausedAt = 0
	e.anchor = now
	e.summary = nil
	e.transition = true

	var fx effects
	e.enterStepLocked(&fx)
	runID, sched := e.runID, e.sched
	e.mu.Unlock()

	logging.Get(logging.CategorySession).Info("session started",
		zap.String("run", runID),
		zap.String("technique", sched.TechniqueID),
		zap.Duration("cycle", sched.CycleLength),
		zap.Int("cycles", sched.TotalCycles))

	if e.presenter != nil && cfg.Focus {
		if err := e.presenter.Enter(); err != nil {
			logging.Get(logging.CategorySession).Warn("focus mode unavailable", zap.Error(err))
		}
	}
	if e.ambience != nil {
		e.ambience.SetVolume(cfg.AmbientVolume)
		if err := e.ambience.Select(cfg.Ambient); err != nil {
			logging.Get(logging.CategorySession).Warn("ambient unavailable", zap.Error(err))
		}
	}
	e.apply(fx)
	return e.Snapshot()
}

// enterStepLocked makes e.idx current. Instant steps are passed through at once
// with no announcement. It queues the announcement of the step that ends up
// current, or finishes the run after the final cycle or once the time box is used.
func (e *Engine) enterStepLocked(fx *effects) {
	for e.sched.Step(e.idx).Instant {
		if e.nextIndexLocked() {
			e.finishLocked(fx)
			return
		}
	}
	if box := e.sched.TimeBox; box > 0 && e.done >= box {
		e.finishLocked(fx)
		return
	}
	p := e.sched.Step(e.idx).Phase
	fx.announce = &p
}

// nextIndexLocked moves to the following step and reports whether the final
// cycle has just completed.
func (e *Engine) nextIndexLocked() bool {
	e.idx++
	if e.idx < e.sched.Len() {
		return false
	}
	e.idx = 0
	e.cycles++
	return e.cycles >= e.sched.TotalCycles
}

// Tick advances the run to the clock's current time. Paused, idle and finished
// runs are left untouched. When one tick crosses several boundaries (a stalled
// frame loop) only the phase the run lands in is announced; the phases skipped
// over are counted but not cued.
func (e *Engine) Tick() Frame {
	e.mu.Lock()
	var fx effects
	e.transition = false
	if e.status == Running {
		e.advanceLocked(e.clock.Now(), &fx)
	}
	e.mu.Unlock()

	e.apply(fx)
	return e.Snapshot()
}

func (e *Engine) advanceLocked(now time.Time, fx *effects) {
	box := e.sched.TimeBox
	for e.status == Running {
		step := e.sched.Step(e.idx)
		elapsed := now.Sub(e.anchor)
		if elapsed < step.Duration {
			if box > 0 && e.done+max(elapsed, 0) >= box {
				e.finishLocked(fx)
			}
			return
		}

		// re-anchor on the scheduled boundary so slow ticks do not accumulate drift
		e.anchor = e.anchor.Add(step.Duration)
		e.done += step.Duration
		e.transition = true
		if e.nextIndexLocked() {
			e.finishLocked(fx)
			return
		}
		e.enterStepLocked(fx)
	}
}

func (e *Engine) finishLocked(fx *effects) {
	e.status = Finished
	e.idx = 0
	e.summary = &Summary{
		RunID:       e.runID,
		TechniqueID: e.sched.TechniqueID,
		Total:       e.sched.CycleLength * time.Duration(e.cycles),
		Cycles:      e.cycles,
	}
	fx.announce = nil
	fx.teardown = true
	fx.summary = e.summary
}

// apply runs the side effects of a state change without holding the lock.
// Announcements go out before the frame that reflects them is returned.
func (e *Engine) apply(fx effects) {
	if fx.announce != nil && e.coach != nil {
		e.coach.Announce(*fx.announce)
	}
	if fx.teardown {
		e.teardown()
	}
	if fx.summary != nil {
		logging.Get(logging.CategorySession).Info("session finished",
			zap.String("run", fx.summary.RunID),
			zap.Int("cycles", fx.summary.Cycles),
			zap.Duration("total", fx.summary.Total))
		if e.recorder != nil {
			totals, err := e.recorder.Record(context.Background(), *fx.summary)
			e.mu.Lock()
			if err == nil {
				fx.summary.Recorded = true
				fx.summary.Totals = totals
			}
			e.mu.Unlock()
		}
	}
}

func (e *Engine) teardown() {
	if e.coach != nil {
		e.coach.Cancel()
	}
	if e.ambience != nil {
		e.ambience.Mute(false)
		e.ambience.Stop()
	}
	if e.presenter != nil {
		e.presenter.Exit()
	}
}

// Pause freezes the countdown. The ambient bed keeps playing unless the run was
// configured to mute it.
func (e *Engine) Pause() error {
	e.mu.Lock()
	if e.status != Running {
		e.mu.Unlock()
		return ErrNotRunning
	}
	now := e.clock.Now()
	var fx effects
	e.advanceLocked(now, &fx)
	if e.status == Running {
		e.pausedAt = min(max(now.Sub(e.anchor), 0), e.sched.Step(e.idx).Duration)
		e.status = Paused
	}
	paused := e.status == Paused
	muteAmbient := e.cfg.PauseAmbient
	e.mu.Unlock()

	e.apply(fx)
	if paused {
		if e.coach != nil {
			e.coach.Cancel()
		}
		if muteAmbient && e.ambience != nil {
			e.ambience.Mute(true)
		}
		logging.Get(logging.CategoryClock).Debug("paused")
	}
	return nil
}

// Resume re-anchors the clock so the countdown continues from where it was
// paused, and repeats the current phase's cue.
func (e *Engine) Resume() error {
	e.mu.Lock()
	if e.status != Paused {
		e.mu.Unlock()
		return ErrNotRunning
	}
	e.anchor = e.clock.Now().Add(-e.pausedAt)
	e.status = Running
	p := e.sched.Step(e.idx).Phase
	muteAmbient := e.cfg.PauseAmbient
	e.mu.Unlock()

	if muteAmbient && e.ambience != nil {
		e.ambience.Mute(false)
	}
	if e.coach != nil {
		e.coach.Announce(p)
	}
	logging.Get(logging.CategoryClock).Debug("resumed")
	return nil
}

// TogglePause pauses a running session or resumes a paused one.
func (e *Engine) TogglePause() error {
	switch e.Status() {
	case Running:
		return e.Pause()
	case Paused:
		return e.Resume()
	}
	return ErrNotRunning
}

// Stop abandons the run. Nothing is recorded.
func (e *Engine) Stop() {
	e.mu.Lock()
	active := e.status == Running || e.status == Paused
	if active {
		e.status = Idle
		e.idx = 0
		e.summary = nil
	}
	runID := e.runID
	e.mu.Unlock()

	if !active {
		return
	}
	e.teardown()
	logging.Get(logging.CategorySession).Info("session stopped", zap.String("run", runID))
}

// SetAmbient switches the ambient generator. While a run is active the change
// is audible at once; otherwise it applies to the next run.
func (e *Engine) SetAmbient(choice ambient.Choice) error {
	e.mu.Lock()
	e.cfg.Ambient = choice
	active := e.status == Running || e.status == Paused
	e.mu.Unlock()
	if !active || e.ambience == nil {
		return nil
	}
	if err := e.ambience.Select(choice); err != nil {
		return fmt.Errorf("select ambient %s: %w", choice, err)
	}
	return nil
}

// SetVolume adjusts the ambient bus.
func (e *Engine) SetVolume(v float64) {
	e.mu.Lock()
	e.cfg.AmbientVolume = min(max(v, 0), 1)
	e.mu.Unlock()
	if e.ambience != nil {
		e.ambience.SetVolume(v)
	}
}

// Status returns the run state.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Schedule returns the compiled schedule of the current or last run.
func (e *Engine) Schedule() technique.Schedule {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sched
}

// Config returns the current run's configuration.
func (e *Engine) Config() Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// Snapshot reports the state without advancing it.
func (e *Engine) Snapshot() Frame {
	e.mu.Lock()
	defer e.mu.Unlock()

	f := Frame{
		Status:          e.status,
		RunID:           e.runID,
		Step:            e.sched.Step(e.idx),
		CyclesCompleted: e.cycles,
		TotalCycles:     e.sched.TotalCycles,
		Transition:      e.transition,
		Summary:         e.summary,
	}
	dur := f.Step.Duration

	var elapsed time.Duration
	switch e.status {
	case Running:
		elapsed = e.clock.Now().Sub(e.anchor)
	case Paused:
		elapsed = e.pausedAt
	case Finished:
		f.Elapsed = e.done
		f.Progress = 1
		return f
	default:
		f.Remaining = dur
		return f
	}
	elapsed = min(max(elapsed, 0), dur)
	f.Remaining = dur - elapsed
	if dur > 0 {
		f.Progress = float64(elapsed) / float64(dur)
	}
	f.Elapsed = e.done + elapsed
	return f
}

// Run ticks every interval until the run finishes or ctx is cancelled, calling
// onFrame with each frame. A cancelled run is stopped, not recorded.
func (e *Engine) Run(ctx context.Context, interval time.Duration, onFrame func(Frame)) (*Summary, error) {
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		f := e.Tick()
		if onFrame != nil {
			onFrame(f)
		}
		switch f.Status {
		case Finished:
			return f.Summary, nil
		case Idle:
			return nil, ErrNotRunning
		}

		select {
		case <-ctx.Done():
			e.Stop()
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
