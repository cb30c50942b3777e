package store

import (
	"database/sql"
	"fmt"

	"breathe/internal/logging"

	"go.uber.org/zap"
)

// Preference keys.
const (
	PrefVoice = "tts.voice"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id          TEXT PRIMARY KEY,
	technique   TEXT NOT NULL DEFAULT '',
	seconds     REAL NOT NULL DEFAULT 0,
	breaths     INTEGER NOT NULL DEFAULT 0,
	day         TEXT NOT NULL,
	recorded_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_day ON sessions(day);

CREATE TABLE IF NOT EXISTS prefs (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TEXT
);
`

// migration adds a column to a table created by an older version.
type migration struct {
	Table  string
	Column string
	Def    string
}

var pendingMigrations = []migration{
	{"sessions", "source", "TEXT NOT NULL DEFAULT 'session'"},
}

func (s *ProgressStore) initialize() error {
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	for _, m := range pendingMigrations {
		ok, err := columnExists(s.db, m.Table, m.Column)
		if err != nil {
			return err
		}
		if ok {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", m.Table, m.Column, m.Def)
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration %s.%s: %w", m.Table, m.Column, err)
		}
		logging.Get(logging.CategoryStore).Info("applied migration",
			zap.String("table", m.Table), zap.String("column", m.Column))
	}
	return nil
}

func columnExists(db *sql.DB, table, column string) (bool, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, fmt.Errorf("table_info %s: %w", table, err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notnull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}
