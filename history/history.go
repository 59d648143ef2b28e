// Package history records compile and invoke events in DuckDB and
// answers the aggregate queries behind `forge stats`.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/marcboeker/go-duckdb"
)

// Kind distinguishes event rows.
type Kind string

const (
	KindCompile Kind = "compile"
	KindInvoke  Kind = "invoke"
)

// Event is one compile or invoke outcome.
type Event struct {
	Kind     Kind
	Mode     string
	Key      string
	OK       bool
	Duration time.Duration
	Error    string
}

// Stats aggregates the event log.
type Stats struct {
	Compiles     int
	CompileFails int
	Invokes      int
	InvokeFails  int
	AvgCompileMs float64
	MaxCompileMs float64
	SlowestKey   string
}

// Recorder appends events to a DuckDB database. A nil *Recorder is a
// valid no-op, so callers never need to branch on whether history is
// configured.
type Recorder struct {
	db *sql.DB
}

// Open opens (or creates) the event log at path.
func Open(path string) (*Recorder, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS events (
		ts          TIMESTAMP NOT NULL,
		kind        VARCHAR NOT NULL,
		mode        VARCHAR NOT NULL,
		key         VARCHAR NOT NULL,
		ok          BOOLEAN NOT NULL,
		duration_ms DOUBLE NOT NULL,
		error       VARCHAR NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating events table: %w", err)
	}

	return &Recorder{db: db}, nil
}

// Close closes the event log.
func (r *Recorder) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// Record appends one event.
func (r *Recorder) Record(ev Event) error {
	if r == nil {
		return nil
	}
	_, err := r.db.Exec(
		`INSERT INTO events (ts, kind, mode, key, ok, duration_ms, error) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		time.Now(), string(ev.Kind), ev.Mode, ev.Key, ev.OK,
		float64(ev.Duration)/float64(time.Millisecond), ev.Error,
	)
	if err != nil {
		return fmt.Errorf("recording %s event: %w", ev.Kind, err)
	}
	return nil
}

// Query returns aggregate statistics over the full log.
func (r *Recorder) Query(ctx context.Context) (Stats, error) {
	var st Stats
	if r == nil {
		return st, nil
	}

	row := r.db.QueryRowContext(ctx, `SELECT
		COUNT(*) FILTER (WHERE kind = 'compile'),
		COUNT(*) FILTER (WHERE kind = 'compile' AND NOT ok),
		COUNT(*) FILTER (WHERE kind = 'invoke'),
		COUNT(*) FILTER (WHERE kind = 'invoke' AND NOT ok),
		COALESCE(AVG(duration_ms) FILTER (WHERE kind = 'compile'), 0),
		COALESCE(MAX(duration_ms) FILTER (WHERE kind = 'compile'), 0)
	FROM events`)
	if err := row.Scan(&st.Compiles, &st.CompileFails, &st.Invokes, &st.InvokeFails,
		&st.AvgCompileMs, &st.MaxCompileMs); err != nil {
		return st, fmt.Errorf("querying stats: %w", err)
	}

	if st.Compiles > 0 {
		row = r.db.QueryRowContext(ctx,
			`SELECT key FROM events WHERE kind = 'compile' ORDER BY duration_ms DESC LIMIT 1`)
		if err := row.Scan(&st.SlowestKey); err != nil && err != sql.ErrNoRows {
			return st, fmt.Errorf("querying slowest compile: %w", err)
		}
	}
	return st, nil
}
