// Package journal records every harvest attempt in SQLite. It is pure
// observability: the roster and stats files are the source of truth, and a
// journal write failure never fails a player. What it buys is history: per
// player attempt trails, failure breakdowns for the status API, and a way to
// spot a site format change (extract errors piling up across runs).
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/moisson/dbopen"
	"github.com/hazyhaar/moisson/idgen"
)

// Attempt outcomes.
const (
	StatusOK           = "ok"
	StatusFetchError   = "fetch_error"
	StatusExtractError = "extract_error"
	StatusRepaired     = "repaired"
)

const schema = `
CREATE TABLE IF NOT EXISTS harvest_log (
    id          TEXT PRIMARY KEY,
    player_id   TEXT NOT NULL,
    status      TEXT NOT NULL,
    status_code INTEGER NOT NULL DEFAULT 0,
    error       TEXT NOT NULL DEFAULT '',
    duration_ms INTEGER NOT NULL DEFAULT 0,
    created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_harvest_log_player ON harvest_log(player_id, created_at);
CREATE INDEX IF NOT EXISTS idx_harvest_log_status ON harvest_log(status, created_at);
`

// Entry is one attempt record.
type Entry struct {
	ID         string `json:"id"`
	PlayerID   string `json:"player_id"`
	Status     string `json:"status"`
	StatusCode int    `json:"status_code"`
	Error      string `json:"error"`
	DurationMs int64  `json:"duration_ms"`
	CreatedAt  int64  `json:"created_at"`
}

// Journal wraps the attempts database. Row ids come from a
// time-sortable generator so the log scans in insertion order even
// when timestamps collide.
type Journal struct {
	db    *sql.DB
	newID idgen.Generator
}

// Open opens (creating if needed) the journal database at path.
func Open(path string) (*Journal, error) {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(schema))
	if err != nil {
		return nil, fmt.Errorf("journal: %w", err)
	}
	return &Journal{db: db, newID: idgen.Default}, nil
}

// New wraps an existing database, applying the schema. Used by tests with
// dbopen.OpenMemory.
func New(db *sql.DB) (*Journal, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("journal: schema: %w", err)
	}
	return &Journal{db: db, newID: idgen.Default}, nil
}

// Close closes the underlying database.
func (j *Journal) Close() error { return j.db.Close() }

// Record inserts one attempt. ID and CreatedAt are filled when zero.
func (j *Journal) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = j.newID()
	}
	if e.CreatedAt == 0 {
		e.CreatedAt = time.Now().UnixMilli()
	}
	_, err := dbopen.Exec(ctx, j.db,
		`INSERT INTO harvest_log (id, player_id, status, status_code, error, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.PlayerID, e.Status, e.StatusCode, e.Error, e.DurationMs, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("journal: record: %w", err)
	}
	return nil
}

// RecentFailures returns the newest non-ok entries, newest first.
func (j *Journal) RecentFailures(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, player_id, status, status_code, error, duration_ms, created_at
		 FROM harvest_log
		 WHERE status != ?
		 ORDER BY created_at DESC, id
		 LIMIT ?`, StatusOK, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: recent failures: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.PlayerID, &e.Status, &e.StatusCode,
			&e.Error, &e.DurationMs, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("journal: scan: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// History returns a player's attempts, newest first.
func (j *Journal) History(ctx context.Context, playerID string, limit int) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, player_id, status, status_code, error, duration_ms, created_at
		 FROM harvest_log
		 WHERE player_id = ?
		 ORDER BY created_at DESC, id
		 LIMIT ?`, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: history: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.PlayerID, &e.Status, &e.StatusCode,
			&e.Error, &e.DurationMs, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("journal: scan: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Totals returns attempt counts by status.
func (j *Journal) Totals(ctx context.Context) (map[string]int, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM harvest_log GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("journal: totals: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("journal: scan: %w", err)
		}
		out[status] = n
	}
	return out, rows.Err()
}
