package session

import (
	"context"
	"errors"
	"time"

	"breathe/internal/logging"
	"breathe/internal/store"

	"go.uber.org/zap"
)

// ErrNoStore is returned by Record when no progress store is configured.
var ErrNoStore = errors.New("no progress store")

// ProgressStore receives completed sessions.
type ProgressStore interface {
	AddSession(ctx context.Context, techniqueID string, seconds float64, cycles int) (store.Totals, error)
}

// Recorder hands completed sessions to the progress store. It is best-effort:
// failures are logged and returned but never block completion.
type Recorder struct {
	store   ProgressStore
	timeout time.Duration
}

// NewRecorder returns a recorder for s, which may be nil.
func NewRecorder(s ProgressStore) *Recorder {
	return &Recorder{store: s, timeout: 2 * time.Second}
}

// Record stores a finished session's summary.
func (r *Recorder) Record(ctx context.Context, s Summary) (store.Totals, error) {
	log := logging.Get(logging.CategoryStore)
	if r == nil || r.store == nil {
		log.Debug("no progress store, session not recorded", zap.String("run", s.RunID))
		return store.Totals{}, ErrNoStore
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	totals, err := r.store.AddSession(ctx, s.TechniqueID, s.Total.Seconds(), s.Cycles)
	if err != nil {
		log.Warn("failed to record session", zap.String("run", s.RunID), zap.Error(err))
		return store.Totals{}, err
	}
	log.Info("session recorded",
		zap.String("run", s.RunID),
		zap.String("technique", s.TechniqueID),
		zap.Duration("total", s.Total),
		zap.Int("cycles", s.Cycles),
		zap.Int("streak", totals.DayStreak))
	return totals, nil
}
