// Package record persists per-tick detections to a SQLite database so a
// session can be reviewed after the fact.
package record

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/promptvision/promptcam/pkg/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id          TEXT PRIMARY KEY,
	source      TEXT NOT NULL,
	prompts     TEXT NOT NULL,
	started_at  TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS detections (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id  TEXT NOT NULL REFERENCES sessions(id),
	frame_idx   INTEGER NOT NULL,
	label       TEXT NOT NULL,
	confidence  REAL NOT NULL,
	x           REAL NOT NULL,
	y           REAL NOT NULL,
	w           REAL NOT NULL,
	h           REAL NOT NULL,
	created_at  TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_detections_session ON detections(session_id, frame_idx);
`

// Recorder writes one row per detection per tick.
type Recorder struct {
	db        *sql.DB
	sessionID string
}

// Open creates or opens the database at path and registers a new session.
func Open(path, sourceDesc string, prompts []string) (*Recorder, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("record: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("record: create schema: %w", err)
	}

	id := uuid.NewString()
	_, err = db.Exec(
		`INSERT INTO sessions (id, source, prompts, started_at) VALUES (?, ?, ?, ?)`,
		id, sourceDesc, strings.Join(prompts, "|"), time.Now().UTC(),
	)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("record: insert session: %w", err)
	}
	return &Recorder{db: db, sessionID: id}, nil
}

// SessionID returns the identifier assigned to this run.
func (r *Recorder) SessionID() string { return r.sessionID }

// Record inserts all detections for one tick in a single transaction.
func (r *Recorder) Record(frameIdx uint64, dets []model.Detection) error {
	if len(dets) == 0 {
		return nil
	}
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("record: begin: %w", err)
	}
	stmt, err := tx.Prepare(
		`INSERT INTO detections (session_id, frame_idx, label, confidence, x, y, w, h, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("record: prepare: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, d := range dets {
		if _, err := stmt.Exec(r.sessionID, frameIdx, d.Label, d.Confidence, d.X, d.Y, d.W, d.H, now); err != nil {
			tx.Rollback()
			return fmt.Errorf("record: insert detection: %w", err)
		}
	}
	return tx.Commit()
}

// Count returns the number of recorded detections for this session.
func (r *Recorder) Count() (int, error) {
	var n int
	err := r.db.QueryRow(
		`SELECT COUNT(*) FROM detections WHERE session_id = ?`, r.sessionID,
	).Scan(&n)
	return n, err
}

// Close releases the database handle.
func (r *Recorder) Close() error {
	return r.db.Close()
}
