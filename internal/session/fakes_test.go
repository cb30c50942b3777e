package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"breathe/internal/ambient"
	"breathe/internal/store"
	"breathe/internal/technique"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fakeCoach struct {
	mu      sync.Mutex
	phases  []technique.Phase
	cancels int
}

func (f *fakeCoach) Announce(p technique.Phase) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.phases = append(f.phases, p)
}

func (f *fakeCoach) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels++
}

func (f *fakeCoach) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.phases))
	for i, p := range f.phases {
		out[i] = p.Key
	}
	return out
}

type fakePresenter struct {
	enterErr error
	entered  int
	exited   int
}

func (f *fakePresenter) Enter() error {
	f.entered++
	return f.enterErr
}

func (f *fakePresenter) Exit() { f.exited++ }

type storeCall struct {
	technique string
	seconds   float64
	cycles    int
}

type fakeStore struct {
	mu    sync.Mutex
	calls []storeCall
	err   error
}

func (f *fakeStore) AddSession(_ context.Context, techniqueID string, seconds float64, cycles int) (store.Totals, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, storeCall{techniqueID, seconds, cycles})
	if f.err != nil {
		return store.Totals{}, f.err
	}
	return store.Totals{Sessions: len(f.calls), TotalBreaths: cycles, DayStreak: 1}, nil
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeAmbience struct {
	selected []ambient.Choice
	stops    int
	muted    bool
	volume   float64
	err      error
}

func (f *fakeAmbience) Select(c ambient.Choice) error {
	f.selected = append(f.selected, c)
	return f.err
}
func (f *fakeAmbience) Stop()               { f.stops++ }
func (f *fakeAmbience) SetVolume(v float64) { f.volume = v }
func (f *fakeAmbience) Mute(m bool)         { f.muted = m }

var errStoreDown = errors.New("disk full")
