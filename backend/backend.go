// Package backend defines the compiler backends that turn a generated
// program shell into an executable unit, and a registry for selecting
// one by mode name.
package backend

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Unit is a single compilation input: one generated source file plus the
// metadata the backend needs to build and later address it.
type Unit struct {
	// Key is the content hash of the unit, hex-encoded. Backends use it
	// to name build directories and artifacts.
	Key string

	// Source is the complete generated Go source.
	Source string

	// PackageName is the package clause of Source.
	PackageName string

	// EntryName is the exported function invoked after compilation.
	EntryName string

	// Requires maps module paths to versions for references outside the
	// standard library. Only the plugin backend consults it.
	Requires map[string]string
}

// Program is a compiled unit ready for invocation.
type Program interface {
	// Invoke calls the named exported function with the given arguments.
	Invoke(name string, args ...any) (any, error)

	// Mode returns the mode name of the backend that produced this program.
	Mode() string

	// Artifact returns the on-disk artifact path, or "" if the program
	// has no reusable artifact.
	Artifact() string
}

// Backend compiles units. Implementations are safe for concurrent use.
type Backend interface {
	// Mode returns the registry name of this backend.
	Mode() string

	// Compile builds the unit and returns an invocable program.
	Compile(ctx context.Context, u Unit) (Program, error)
}

// Loader is implemented by backends whose artifacts can be reloaded
// without recompiling.
type Loader interface {
	// Load opens a previously built artifact.
	Load(artifactPath string) (Program, error)
}

// ---------------------------------------------------------------------------
// Registry
// ---------------------------------------------------------------------------

var registry = struct {
	sync.RWMutex
	backends map[string]Backend
}{
	backends: make(map[string]Backend),
}

// Register adds a backend to the registry, replacing any backend
// previously registered under the same mode name.
func Register(b Backend) {
	registry.Lock()
	defer registry.Unlock()
	registry.backends[b.Mode()] = b
}

// Get returns the backend registered under mode.
func Get(mode string) (Backend, error) {
	registry.RLock()
	defer registry.RUnlock()
	b, ok := registry.backends[mode]
	if !ok {
		return nil, fmt.Errorf("backend: unknown compiler mode %q (have %v)", mode, modesLocked())
	}
	return b, nil
}

// Modes returns the registered mode names in sorted order.
func Modes() []string {
	registry.RLock()
	defer registry.RUnlock()
	return modesLocked()
}

func modesLocked() []string {
	modes := make([]string, 0, len(registry.backends))
	for m := range registry.backends {
		modes = append(modes, m)
	}
	sort.Strings(modes)
	return modes
}
