package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/chazu/forge/backend"
)

// ErrNotFound indicates the requested key has no index entry.
var ErrNotFound = errors.New("cache: entry not found")

// Entry is one indexed compilation.
type Entry struct {
	Key      string
	Mode     string
	Artifact string // on-disk artifact path, "" for backends without one
	Meta     Meta
	Created  time.Time
}

// Store indexes compiled units in SQLite and memoizes loaded programs
// in process. Programs are never persisted themselves; only artifact
// paths and metadata are.
type Store struct {
	db   *sql.DB
	path string

	mu   sync.RWMutex
	memo map[string]backend.Program
}

// Open opens (or creates) the index at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache index: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS programs (
		key        TEXT PRIMARY KEY,
		mode       TEXT NOT NULL,
		artifact   TEXT NOT NULL DEFAULT '',
		meta       BLOB NOT NULL,
		created_at INTEGER NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating programs table: %w", err)
	}

	return &Store{
		db:   db,
		path: path,
		memo: make(map[string]backend.Program),
	}, nil
}

// Close closes the index. Memoized programs stay loaded; the Go runtime
// cannot unload plugins.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Put records a compiled unit under its key and memoizes the program.
func (s *Store) Put(key string, prog backend.Program, m Meta) error {
	meta, err := MarshalMeta(m)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO programs (key, mode, artifact, meta, created_at) VALUES (?, ?, ?, ?, ?)`,
		key, prog.Mode(), prog.Artifact(), meta, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("indexing program: %w", err)
	}

	s.mu.Lock()
	s.memo[key] = prog
	s.mu.Unlock()
	return nil
}

// Program returns the memoized program for key, if this process has
// already loaded it.
func (s *Store) Program(key string) (backend.Program, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	prog, ok := s.memo[key]
	return prog, ok
}

// Get returns the index entry for key, or ErrNotFound.
func (s *Store) Get(key string) (*Entry, error) {
	row := s.db.QueryRow(
		`SELECT mode, artifact, meta, created_at FROM programs WHERE key = ?`, key)

	var e Entry
	var meta []byte
	var created int64
	if err := row.Scan(&e.Mode, &e.Artifact, &meta, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading index entry: %w", err)
	}

	m, err := UnmarshalMeta(meta)
	if err != nil {
		return nil, err
	}
	e.Key = key
	e.Meta = m
	e.Created = time.Unix(created, 0)
	return &e, nil
}

// Count returns the number of indexed units.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM programs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting index entries: %w", err)
	}
	return n, nil
}
