// Package store persists completed breathing sessions in SQLite and derives the
// running totals and day streak shown after each session.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"breathe/internal/logging"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const dayLayout = "2006-01-02"

// Totals summarizes every recorded session.
type Totals struct {
	Sessions     int       `json:"sessions"`
	TotalSeconds float64   `json:"total_seconds"`
	TotalMinutes int       `json:"total_minutes"`
	TotalBreaths int       `json:"total_breaths"`
	DayStreak    int       `json:"day_streak"`
	LastSession  time.Time `json:"last_session,omitempty"`
}

// Day is one calendar day of history in the store's time zone.
type Day struct {
	Key        string         `json:"day"`
	Seconds    float64        `json:"seconds"`
	Breaths    int            `json:"breaths"`
	Sessions   int            `json:"sessions"`
	Techniques map[string]int `json:"techniques"`
}

// Entry is one recorded session.
type Entry struct {
	ID          string
	TechniqueID string
	Seconds     float64
	Breaths     int
	Source      string
	RecordedAt  time.Time
}

// ProgressStore is the SQLite-backed progress tracker.
type ProgressStore struct {
	db   *sql.DB
	mu   sync.RWMutex
	path string
	loc  *time.Location
	now  func() time.Time
}

// Open opens (creating if needed) the database at path. Days are bucketed in loc;
// nil means local time.
func Open(path string, loc *time.Location) (*ProgressStore, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Open")
	defer timer.Stop()
	log := logging.Get(logging.CategoryStore)

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		log.Debug("failed to set busy_timeout", zap.Error(err))
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		log.Debug("failed to set journal_mode=WAL", zap.Error(err))
	}

	if loc == nil {
		loc = time.Local
	}
	s := &ProgressStore{db: db, path: path, loc: loc, now: time.Now}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	log.Debug("progress store opened", zap.String("path", path), zap.String("tz", loc.String()))
	return s, nil
}

// Close closes the database.
func (s *ProgressStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Location is the time zone days are bucketed in.
func (s *ProgressStore) Location() *time.Location {
	return s.loc
}

// AddSession records a completed session now and returns the updated totals.
// Negative values are stored as zero.
func (s *ProgressStore) AddSession(ctx context.Context, techniqueID string, seconds float64, cycles int) (Totals, error) {
	if err := s.Record(ctx, Entry{
		TechniqueID: techniqueID,
		Seconds:     seconds,
		Breaths:     cycles,
		Source:      "session",
	}); err != nil {
		return Totals{}, err
	}
	return s.Totals(ctx)
}

// Record inserts e. A zero ID or time is filled in.
func (s *ProgressStore) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.RecordedAt.IsZero() {
		e.RecordedAt = s.now()
	}
	if e.Source == "" {
		e.Source = "session"
	}
	seconds := e.Seconds
	if math.IsNaN(seconds) || seconds < 0 {
		seconds = 0
	}
	breaths := max(e.Breaths, 0)
	ts := e.RecordedAt.In(s.loc)

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, technique, seconds, breaths, day, recorded_at, source)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, strings.TrimSpace(e.TechniqueID), seconds, breaths,
		ts.Format(dayLayout), ts.UTC().Format(time.RFC3339Nano), e.Source)
	if err != nil {
		return fmt.Errorf("failed to record session: %w", err)
	}
	logging.Get(logging.CategoryStore).Debug("session recorded",
		zap.String("id", e.ID),
		zap.String("technique", e.TechniqueID),
		zap.Float64("seconds", seconds),
		zap.Int("breaths", breaths))
	return nil
}

// Totals aggregates every session. The streak counts consecutive days with at
// least one session, ending on the day of the most recent session.
func (s *ProgressStore) Totals(ctx context.Context) (Totals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		t    Totals
		last sql.NullString
	)
	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(seconds), 0), COALESCE(SUM(breaths), 0), MAX(recorded_at) FROM sessions`)
	if err := row.Scan(&t.Sessions, &t.TotalSeconds, &t.TotalBreaths, &last); err != nil {
		return Totals{}, fmt.Errorf("failed to read totals: %w", err)
	}
	t.TotalMinutes = int(math.Round(t.TotalSeconds / 60))
	if !last.Valid {
		return t, nil
	}
	if ts, err := time.Parse(time.RFC3339Nano, last.String); err == nil {
		t.LastSession = ts
	}

	days, err := s.activeDaysLocked(ctx)
	if err != nil {
		return Totals{}, err
	}
	t.DayStreak = streak(days, t.LastSession.In(s.loc).Format(dayLayout))
	return t, nil
}

func (s *ProgressStore) activeDaysLocked(ctx context.Context) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT day FROM sessions`)
	if err != nil {
		return nil, fmt.Errorf("failed to read days: %w", err)
	}
	defer rows.Close()
	days := map[string]bool{}
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		days[d] = true
	}
	return days, rows.Err()
}

// streak walks back one calendar day at a time from anchor.
func streak(days map[string]bool, anchor string) int {
	cur, err := time.Parse(dayLayout, anchor)
	if err != nil {
		return 0
	}
	n := 0
	for days[cur.Format(dayLayout)] {
		n++
		cur = cur.AddDate(0, 0, -1)
	}
	return n
}

// History returns per-day aggregates, oldest first. limit <= 0 returns every day;
// otherwise only the most recent limit days.
func (s *ProgressStore) History(ctx context.Context, limit int) ([]Day, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT day, technique, COUNT(*), SUM(seconds), SUM(breaths) FROM sessions GROUP BY day, technique`)
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	defer rows.Close()

	byDay := map[string]*Day{}
	for rows.Next() {
		var (
			key, tech string
			n, br     int
			sec       float64
		)
		if err := rows.Scan(&key, &tech, &n, &sec, &br); err != nil {
			return nil, err
		}
		d := byDay[key]
		if d == nil {
			d = &Day{Key: key, Techniques: map[string]int{}}
			byDay[key] = d
		}
		d.Sessions += n
		d.Seconds += sec
		d.Breaths += br
		if tech != "" {
			d.Techniques[tech] += n
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]Day, 0, len(byDay))
	for _, d := range byDay {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// Pref returns a stored preference, or "" if unset.
func (s *ProgressStore) Pref(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM prefs WHERE key = ?`, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read pref %s: %w", key, err)
	}
	return v, nil
}

// SetPref stores a preference. An empty value deletes it.
func (s *ProgressStore) SetPref(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var err error
	if value == "" {
		_, err = s.db.ExecContext(ctx, `DELETE FROM prefs WHERE key = ?`, key)
	} else {
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO prefs (key, value, updated_at) VALUES (?, ?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			key, value, s.now().UTC().Format(time.RFC3339))
	}
	if err != nil {
		return fmt.Errorf("failed to write pref %s: %w", key, err)
	}
	return nil
}
