package eval

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/forge/backend"
	"github.com/chazu/forge/cache"
)

// interpContext returns a context on the interpreter backend so tests
// never depend on the external toolchain.
func interpContext(opts ...Option) *Context {
	c := NewContext(opts...)
	c.Mode = backend.ModeInterp
	return c
}

// ---------------------------------------------------------------------------
// EvalExpression
// ---------------------------------------------------------------------------

func TestEvalExpression_Simple(t *testing.T) {
	c := interpContext()

	c.EvalExpression("6 * 7")
	if c.Failed {
		t.Fatalf("EvalExpression failed: %s", c.ErrorText)
	}
	if c.Result != 42 {
		t.Errorf("Result = %v, want 42", c.Result)
	}
	if c.ErrorText != "" {
		t.Errorf("ErrorText = %q, want empty", c.ErrorText)
	}
	if c.Source == "" {
		t.Error("generated source should be retained")
	}
	if c.Key() == "" {
		t.Error("content key should be set")
	}
	if c.Program() == nil {
		t.Error("compiled program should be retained")
	}
}

func TestEvalExpression_String(t *testing.T) {
	c := interpContext()

	c.EvalExpression(`"for" + "ge"`)
	if c.Failed {
		t.Fatalf("EvalExpression failed: %s", c.ErrorText)
	}
	if c.Result != "forge" {
		t.Errorf("Result = %v, want forge", c.Result)
	}
}

func TestEvalExpression_CompileError(t *testing.T) {
	c := interpContext()

	c.EvalExpression(`1 +`)
	if !c.Failed {
		t.Fatal("expected failure for broken expression")
	}
	if c.ErrorText == "" {
		t.Error("ErrorText should be set on failure")
	}
	if c.Result != nil {
		t.Error("Result must be nil when Failed is set")
	}
	if c.Program() != nil {
		t.Error("no program should be retained after a compile failure")
	}
}

// ---------------------------------------------------------------------------
// RunSnippet
// ---------------------------------------------------------------------------

func TestRunSnippet_Success(t *testing.T) {
	c := interpContext()

	c.RunSnippet("x := 3\n_ = x")
	if c.Failed {
		t.Fatalf("RunSnippet failed: %s", c.ErrorText)
	}
	if c.Result != nil {
		t.Errorf("snippets produce no value, got %v", c.Result)
	}
}

func TestRunSnippet_Empty(t *testing.T) {
	c := interpContext()

	c.RunSnippet("   \n\t")
	if !c.Failed {
		t.Fatal("expected failure for empty source")
	}
	if !strings.Contains(c.ErrorText, "empty") {
		t.Errorf("ErrorText = %q", c.ErrorText)
	}
}

func TestRunSnippet_ValidationError(t *testing.T) {
	c := interpContext()

	c.RunSnippet("x := undefinedThing()")
	if !c.Failed {
		t.Fatal("expected validation failure")
	}
	if !strings.Contains(c.ErrorText, "validation failed") {
		t.Errorf("ErrorText = %q", c.ErrorText)
	}
}

// ---------------------------------------------------------------------------
// RunMethod
// ---------------------------------------------------------------------------

func TestRunMethod_WithArguments(t *testing.T) {
	c := interpContext()

	c.RunMethod(`func Add(a, b int) int { return a + b }`, "Add", 2, 3)
	if c.Failed {
		t.Fatalf("RunMethod failed: %s", c.ErrorText)
	}
	if c.Result != 5 {
		t.Errorf("Result = %v, want 5", c.Result)
	}
}

func TestRunMethod_MissingEntryName(t *testing.T) {
	c := interpContext()

	c.RunMethod(`func Add(a, b int) int { return a + b }`, "")
	if !c.Failed {
		t.Fatal("expected failure without entry name")
	}
}

func TestRunMethod_WrongEntryName(t *testing.T) {
	c := interpContext()

	c.RunMethod(`func Add(a, b int) int { return a + b }`, "Sub", 1, 2)
	if !c.Failed {
		t.Fatal("expected failure for wrong entry name")
	}
	if !strings.Contains(c.ErrorText, "invoke failed") {
		t.Errorf("ErrorText = %q", c.ErrorText)
	}
	// A failed invoke keeps the compiled program.
	if c.Program() == nil {
		t.Error("program should survive an invoke failure")
	}
}

// ---------------------------------------------------------------------------
// Reference checking
// ---------------------------------------------------------------------------

func TestRequiredImportsSkipReferenceCheck(t *testing.T) {
	// The host process's module cannot resolve this path, but a module
	// requirement makes the scratch build self-sufficient, so the
	// reference check must not reject it.
	c := interpContext()
	c.Imports = []string{"example.invalid/fake/pkg"}
	c.Requires = map[string]string{"example.invalid/fake": "v1.0.0"}

	c.EvalExpression("6 * 7")
	if c.Failed {
		t.Fatalf("EvalExpression failed: %s", c.ErrorText)
	}
	if c.Result != 42 {
		t.Errorf("Result = %v, want 42", c.Result)
	}
}

func TestUnresolvableImportFailsReferenceCheck(t *testing.T) {
	c := interpContext()
	c.Imports = []string{"example.invalid/fake/pkg"}

	c.EvalExpression("6 * 7")
	if !c.Failed {
		t.Fatal("expected failure for unresolvable import reference")
	}
	if !strings.Contains(c.ErrorText, "reference check failed") {
		t.Errorf("ErrorText = %q", c.ErrorText)
	}
}

func TestUncoveredImports(t *testing.T) {
	c := NewContext()
	c.Imports = []string{"strings", "example.com/mod/sub", "example.com/mod"}
	c.Requires = map[string]string{"example.com/mod": "v1.2.3"}

	got := c.uncoveredImports()
	if len(got) != 1 || got[0] != "strings" {
		t.Errorf("uncoveredImports = %v, want [strings]", got)
	}
}

// ---------------------------------------------------------------------------
// Configuration and state
// ---------------------------------------------------------------------------

func TestUnknownCompilerMode(t *testing.T) {
	c := NewContext()
	c.Mode = "bogus"

	c.EvalExpression("1")
	if !c.Failed {
		t.Fatal("expected failure for unknown mode")
	}
	if !strings.Contains(c.ErrorText, "unknown compiler mode") {
		t.Errorf("ErrorText = %q", c.ErrorText)
	}
}

func TestReset(t *testing.T) {
	c := interpContext()

	c.EvalExpression("1 + 1")
	if c.Failed {
		t.Fatalf("EvalExpression failed: %s", c.ErrorText)
	}

	c.Reset()
	if c.Failed || c.ErrorText != "" || c.Result != nil || c.Source != "" {
		t.Error("Reset should clear all result state")
	}
	if c.Program() != nil || c.Key() != "" {
		t.Error("Reset should drop the program and key")
	}
}

func TestCallReplacesPreviousResult(t *testing.T) {
	c := interpContext()

	c.EvalExpression("1")
	first := c.Key()

	c.EvalExpression("2")
	if c.Key() == first {
		t.Error("a new call should replace the previous compilation")
	}
	if c.Result != 2 {
		t.Errorf("Result = %v, want 2", c.Result)
	}
}

func TestErrorAndResultMutuallyExclusive(t *testing.T) {
	c := interpContext()

	c.EvalExpression("41 + 1")
	if c.Failed {
		t.Fatalf("EvalExpression failed: %s", c.ErrorText)
	}

	c.EvalExpression("not valid go")
	if !c.Failed {
		t.Fatal("expected failure")
	}
	if c.Result != nil {
		t.Error("Result must be cleared when a later call fails")
	}
}

// ---------------------------------------------------------------------------
// Cache integration
// ---------------------------------------------------------------------------

func TestEvalExpression_CacheHit(t *testing.T) {
	store, err := cache.Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("cache.Open failed: %v", err)
	}
	defer store.Close()

	c := interpContext(WithCache(store))

	c.EvalExpression("6 * 7")
	if c.Failed {
		t.Fatalf("first call failed: %s", c.ErrorText)
	}
	key := c.Key()

	if _, ok := store.Program(key); !ok {
		t.Fatal("program should be memoized after first call")
	}
	first, _ := store.Program(key)

	c.EvalExpression("6 * 7")
	if c.Failed {
		t.Fatalf("second call failed: %s", c.ErrorText)
	}
	if c.Key() != key {
		t.Errorf("key changed between identical calls")
	}
	if c.Program() != first {
		t.Error("second call should reuse the memoized program")
	}
	if c.Result != 42 {
		t.Errorf("Result = %v, want 42", c.Result)
	}
}
