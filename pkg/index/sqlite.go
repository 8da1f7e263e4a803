package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Starlink/ORAC-DR-sub008/pkg/header"
)

// DB is a sqlite-backed store holding the indexes of every calibration
// type in one file. Header sets are persisted as flat JSON objects.
type DB struct {
	sql *sql.DB
}

// OpenDB opens (and if needed creates) the index database.
func OpenDB(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	// Ensure schema exists for convenience.
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS calibration_frames (
  id        INTEGER PRIMARY KEY,
  cal_type  TEXT NOT NULL,
  oractime  REAL NOT NULL,
  headers   TEXT NOT NULL,
  added_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_frames_type ON calibration_frames(cal_type, id);
	`); err != nil {
		return nil, err
	}
	return &DB{sql: db}, nil
}

func (d *DB) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

// ForType returns the Store view of one calibration type's records.
func (d *DB) ForType(calType string) *TypeStore {
	return &TypeStore{db: d, calType: calType}
}

// TypeStore implements Store over one cal_type partition of the database.
type TypeStore struct {
	db      *DB
	calType string
}

func (s *TypeStore) Load(ctx context.Context) ([]header.Set, error) {
	rows, err := s.db.sql.QueryContext(ctx,
		"SELECT headers FROM calibration_frames WHERE cal_type = ? ORDER BY id", s.calType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []header.Set
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		h, err := header.FromJSON([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("corrupt index record for %s: %w", s.calType, err)
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *TypeStore) Append(ctx context.Context, h header.Set) error {
	t, ok := h.Lookup(TimeField)
	if !ok {
		return fmt.Errorf("record has no %s", TimeField)
	}
	oractime, err := t.Float()
	if err != nil {
		return fmt.Errorf("%s %q is not numeric", TimeField, t.Text())
	}
	raw, err := json.Marshal(h)
	if err != nil {
		return err
	}
	_, err = s.db.sql.ExecContext(ctx,
		"INSERT INTO calibration_frames(cal_type, oractime, headers) VALUES(?,?,?)",
		s.calType, oractime, string(raw))
	return err
}

// TypeStats summarizes one calibration type's records.
type TypeStats struct {
	CalType  string
	Count    int
	MinTime  float64
	MaxTime  float64
	LastSeen time.Time
}

// Stats returns per-type record counts and time spans.
func (d *DB) Stats(ctx context.Context) ([]TypeStats, error) {
	rows, err := d.sql.QueryContext(ctx, `
		SELECT cal_type, COUNT(*), MIN(oractime), MAX(oractime), MAX(added_at)
		FROM calibration_frames
		GROUP BY cal_type
		ORDER BY cal_type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []TypeStats
	for rows.Next() {
		var s TypeStats
		var lastSeen string
		if err := rows.Scan(&s.CalType, &s.Count, &s.MinTime, &s.MaxTime, &lastSeen); err != nil {
			return nil, err
		}
		// Parse SQLite CURRENT_TIMESTAMP format, then RFC3339.
		if t, perr := time.Parse("2006-01-02 15:04:05", lastSeen); perr == nil {
			s.LastSeen = t
		} else if t2, perr2 := time.Parse(time.RFC3339, lastSeen); perr2 == nil {
			s.LastSeen = t2
		}
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return stats, nil
}

// Types returns every calibration type present in the database.
func (d *DB) Types(ctx context.Context) ([]string, error) {
	rows, err := d.sql.QueryContext(ctx,
		"SELECT DISTINCT cal_type FROM calibration_frames ORDER BY cal_type")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
