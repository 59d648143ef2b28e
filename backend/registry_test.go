package backend

import (
	"context"
	"strings"
	"testing"
)

// fakeBackend is a registry test double.
type fakeBackend struct {
	mode string
}

func (f *fakeBackend) Mode() string { return f.mode }
func (f *fakeBackend) Compile(ctx context.Context, u Unit) (Program, error) {
	return nil, nil
}

func TestRegistry_DefaultModes(t *testing.T) {
	// plugin and interp self-register via init.
	if _, err := Get(ModePlugin); err != nil {
		t.Errorf("plugin backend not registered: %v", err)
	}
	if _, err := Get(ModeInterp); err != nil {
		t.Errorf("interp backend not registered: %v", err)
	}
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	Register(&fakeBackend{mode: "fake-test"})

	b, err := Get("fake-test")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if b.Mode() != "fake-test" {
		t.Errorf("Mode = %q, want fake-test", b.Mode())
	}
}

func TestRegistry_UnknownMode(t *testing.T) {
	_, err := Get("no-such-mode")
	if err == nil {
		t.Fatal("expected error for unknown mode")
	}
	if !strings.Contains(err.Error(), "unknown compiler mode") {
		t.Errorf("error = %v, want unknown compiler mode", err)
	}
}

func TestRegistry_ModesSorted(t *testing.T) {
	modes := Modes()
	for i := 1; i < len(modes); i++ {
		if modes[i-1] > modes[i] {
			t.Errorf("modes not sorted: %v", modes)
		}
	}
}
