package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *ProgressStore {
	t.Helper()
	london, err := time.LoadLocation("Europe/London")
	require.NoError(t, err)
	s, err := Open(filepath.Join(t.TempDir(), "nested", "progress.db"), london)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func at(s string) time.Time {
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return ts
}

func TestAddSession_ReturnsTotals(t *testing.T) {
	s := openTestStore(t)
	s.now = func() time.Time { return at("2026-03-02T09:00:00Z") }
	ctx := context.Background()

	totals, err := s.AddSession(ctx, "box", 64, 4)
	require.NoError(t, err)
	assert.Equal(t, 1, totals.Sessions)
	assert.Equal(t, 64.0, totals.TotalSeconds)
	assert.Equal(t, 1, totals.TotalMinutes)
	assert.Equal(t, 4, totals.TotalBreaths)
	assert.Equal(t, 1, totals.DayStreak)

	totals, err = s.AddSession(ctx, "478", 57, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, totals.Sessions)
	assert.Equal(t, 2, totals.TotalMinutes)
	assert.Equal(t, 7, totals.TotalBreaths)
	assert.Equal(t, 1, totals.DayStreak, "same day does not extend the streak")
}

func TestTotals_Empty(t *testing.T) {
	s := openTestStore(t)
	totals, err := s.Totals(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Totals{}, totals)
}

func TestTotals_StreakUsesStoreTimeZone(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// 23:30 UTC on 30 June is 00:30 BST on 1 July
	for _, e := range []Entry{
		{TechniqueID: "box", Seconds: 60, Breaths: 4, RecordedAt: at("2026-06-29T08:00:00Z")},
		{TechniqueID: "box", Seconds: 60, Breaths: 4, RecordedAt: at("2026-06-30T23:30:00Z")},
		{TechniqueID: "sos", Seconds: 60, Breaths: 6, RecordedAt: at("2026-07-02T07:00:00Z")},
	} {
		require.NoError(t, s.Record(ctx, e))
	}

	totals, err := s.Totals(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, totals.DayStreak, "1 and 2 July; 30 June has no session in London")
	assert.Equal(t, at("2026-07-02T07:00:00Z"), totals.LastSession)
}

func TestTotals_StreakBrokenByGap(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	for _, ts := range []string{"2026-01-01T10:00:00Z", "2026-01-02T10:00:00Z", "2026-01-04T10:00:00Z"} {
		require.NoError(t, s.Record(ctx, Entry{TechniqueID: "box", Seconds: 16, Breaths: 1, RecordedAt: at(ts)}))
	}
	totals, err := s.Totals(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, totals.DayStreak)
}

func TestRecord_ClampsNegatives(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Record(ctx, Entry{TechniqueID: "box", Seconds: -5, Breaths: -2}))
	totals, err := s.Totals(ctx)
	require.NoError(t, err)
	assert.Zero(t, totals.TotalSeconds)
	assert.Zero(t, totals.TotalBreaths)
	assert.Equal(t, 1, totals.Sessions)
}

func TestHistory(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	for _, e := range []Entry{
		{TechniqueID: "box", Seconds: 64, Breaths: 4, RecordedAt: at("2026-01-01T10:00:00Z")},
		{TechniqueID: "box", Seconds: 64, Breaths: 4, RecordedAt: at("2026-01-01T11:00:00Z")},
		{TechniqueID: "478", Seconds: 57, Breaths: 3, RecordedAt: at("2026-01-01T12:00:00Z")},
		{TechniqueID: "sos", Seconds: 60, Breaths: 6, RecordedAt: at("2026-01-03T12:00:00Z")},
	} {
		require.NoError(t, s.Record(ctx, e))
	}

	days, err := s.History(ctx, 0)
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, "2026-01-01", days[0].Key)
	assert.Equal(t, 3, days[0].Sessions)
	assert.Equal(t, 185.0, days[0].Seconds)
	assert.Equal(t, 11, days[0].Breaths)
	assert.Equal(t, map[string]int{"box": 2, "478": 1}, days[0].Techniques)

	days, err = s.History(ctx, 1)
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, "2026-01-03", days[0].Key)
}

func TestPrefs(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	v, err := s.Pref(ctx, PrefVoice)
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, s.SetPref(ctx, PrefVoice, "en-gb"))
	require.NoError(t, s.SetPref(ctx, PrefVoice, "en-us"))
	v, err = s.Pref(ctx, PrefVoice)
	require.NoError(t, err)
	assert.Equal(t, "en-us", v)

	require.NoError(t, s.SetPref(ctx, PrefVoice, ""))
	v, err = s.Pref(ctx, PrefVoice)
	require.NoError(t, err)
	assert.Empty(t, v)
}

func TestOpen_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.db")
	s, err := Open(path, time.UTC)
	require.NoError(t, err)
	_, err = s.AddSession(context.Background(), "box", 64, 4)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path, nil)
	require.NoError(t, err)
	defer s.Close()
	totals, err := s.Totals(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, totals.Sessions)
	assert.Equal(t, time.Local, s.Location())
}

func TestStreak(t *testing.T) {
	days := map[string]bool{"2026-02-28": true, "2026-03-01": true}
	assert.Equal(t, 2, streak(days, "2026-03-01"))
	assert.Equal(t, 0, streak(days, "2026-03-02"))
	assert.Equal(t, 0, streak(days, "garbage"))
}
