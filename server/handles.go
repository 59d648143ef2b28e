package server

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chazu/forge/backend"
)

// storedProgram is a server-side reference to a compiled unit.
type storedProgram struct {
	id       string
	key      string
	mode     string
	entry    string
	program  backend.Program
	created  time.Time
	lastUsed time.Time
}

// ProgramStore maps opaque string IDs to compiled programs so clients
// can re-invoke without recompiling.
type ProgramStore struct {
	mu       sync.RWMutex
	programs map[string]*storedProgram
	nextID   atomic.Uint64
}

// NewProgramStore creates an empty program store.
func NewProgramStore() *ProgramStore {
	return &ProgramStore{
		programs: make(map[string]*storedProgram),
	}
}

// Create registers a compiled program and returns an opaque handle ID.
func (s *ProgramStore) Create(prog backend.Program, key, entry string) string {
	id := fmt.Sprintf("p-%d", s.nextID.Add(1))

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.programs[id] = &storedProgram{
		id:       id,
		key:      key,
		mode:     prog.Mode(),
		entry:    entry,
		program:  prog,
		created:  now,
		lastUsed: now,
	}
	return id
}

// Lookup returns the program and default entry name behind a handle.
func (s *ProgramStore) Lookup(id string) (backend.Program, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sp, ok := s.programs[id]
	if !ok {
		return nil, "", false
	}
	sp.lastUsed = time.Now()
	return sp.program, sp.entry, true
}

// Remove drops a handle. The Go runtime cannot unload plugins, so the
// program itself stays mapped for the life of the process.
func (s *ProgramStore) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.programs[id]; !ok {
		return false
	}
	delete(s.programs, id)
	return true
}

// Sweep drops handles that have not been looked up within maxIdle and
// reports how many were removed. The programs themselves stay mapped
// for the life of the process; sweeping only bounds the handle table.
func (s *ProgramStore) Sweep(maxIdle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-maxIdle)
	removed := 0
	for id, sp := range s.programs {
		if sp.lastUsed.Before(cutoff) {
			delete(s.programs, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of live handles.
func (s *ProgramStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.programs)
}
