package backend

import (
	"context"
	"fmt"
	"sync"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// ModeInterp is the registry name of the in-process interpreter backend.
const ModeInterp = "interp"

// InterpBackend evaluates units with the yaegi interpreter. No external
// toolchain is needed, and there is no on-disk artifact; the tradeoff is
// that units can only reach the standard library symbols yaegi exports.
type InterpBackend struct{}

// NewInterpBackend creates an interpreter backend.
func NewInterpBackend() *InterpBackend { return &InterpBackend{} }

func init() {
	Register(NewInterpBackend())
}

func (b *InterpBackend) Mode() string { return ModeInterp }

// Compile evaluates the unit source in a fresh interpreter. Compilation
// and execution of top-level declarations happen in one step; entry
// functions are resolved on Invoke.
func (b *InterpBackend) Compile(ctx context.Context, u Unit) (Program, error) {
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("loading stdlib symbols: %w", err)
	}
	if _, err := i.Eval(u.Source); err != nil {
		return nil, fmt.Errorf("interp compile: %w", err)
	}

	pkg := u.PackageName
	if pkg == "" {
		pkg = "main"
	}
	return &interpProgram{i: i, pkg: pkg}, nil
}

// interpProgram holds a loaded interpreter session. yaegi interpreters
// are not safe for concurrent evaluation, so Invoke serializes.
type interpProgram struct {
	i   *interp.Interpreter
	pkg string
	mu  sync.Mutex
}

func (ip *interpProgram) Mode() string     { return ModeInterp }
func (ip *interpProgram) Artifact() string { return "" }

func (ip *interpProgram) Invoke(name string, args ...any) (any, error) {
	ip.mu.Lock()
	defer ip.mu.Unlock()

	v, err := ip.i.Eval(ip.pkg + "." + name)
	if err != nil {
		return nil, fmt.Errorf("entry %q not found in unit: %w", name, err)
	}
	return callFunc(v, args)
}
