// Package eval is the facade over runtime compilation: it wraps user
// source in a program shell, hands it to a compiler backend, and invokes
// the result. Failures are reported through status fields on the
// Context, not through returned errors; callers check Failed after
// each call.
package eval

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tliron/commonlog"

	"github.com/chazu/forge/backend"
	"github.com/chazu/forge/cache"
	"github.com/chazu/forge/codegen"
	"github.com/chazu/forge/history"
	"github.com/chazu/forge/refcheck"
)

// Context holds the configuration for compilation and the accumulated
// state of the most recent call. A Context owns exactly one most-recent
// compilation; a new call replaces it. Not safe for concurrent use.
type Context struct {
	// Configuration, mutable between calls.
	Imports     []string          // import references added to generated shells
	PackageName string            // package clause of generated shells; "main" if empty
	Mode        string            // compiler mode; backend.ModePlugin if empty
	EntryName   string            // entry function name; codegen.DefaultEntryName if empty
	GoTool      string            // forwarded to the plugin backend when set
	BuildDir    string            // forwarded to the plugin backend when set
	Requires    map[string]string // module requirements for non-stdlib references

	// Result state of the most recent call. Failed and Result are
	// mutually exclusive: a failed call always clears Result.
	Failed    bool
	ErrorText string
	Source    string // generated program shell text
	Result    any

	program backend.Program
	key     string

	store *cache.Store
	rec   *history.Recorder
	log   commonlog.Logger
}

// Option configures a Context.
type Option func(*Context)

// WithCache attaches a compiled-unit cache.
func WithCache(s *cache.Store) Option {
	return func(c *Context) { c.store = s }
}

// WithHistory attaches a compile/invoke event recorder.
func WithHistory(r *history.Recorder) Option {
	return func(c *Context) { c.rec = r }
}

// NewContext creates an execution context with default configuration.
func NewContext(opts ...Option) *Context {
	c := &Context{
		Mode: backend.ModePlugin,
		log:  commonlog.GetLogger("forge.eval"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Reset clears all accumulated result state, keeping configuration.
func (c *Context) Reset() {
	c.Failed = false
	c.ErrorText = ""
	c.Source = ""
	c.Result = nil
	c.program = nil
	c.key = ""
}

// Program returns the most recent compiled program, or nil.
func (c *Context) Program() backend.Program { return c.program }

// Key returns the content hash of the most recent compilation, or "".
func (c *Context) Key() string { return c.key }

// RunSnippet wraps bare statements in an entry function, compiles, and
// runs them. On success Result is nil (snippets produce no value).
func (c *Context) RunSnippet(code string) {
	if !c.compile(codegen.ModeSnippet, code) {
		return
	}
	c.invoke(c.entryName())
}

// EvalExpression wraps a single expression, compiles, and evaluates it.
// On success Result holds the expression's value.
func (c *Context) EvalExpression(expr string) {
	if !c.compile(codegen.ModeExpression, expr) {
		return
	}
	c.invoke(c.entryName())
}

// RunMethod compiles src, which must contain a function declaration
// named entry, and invokes it with args. On success Result holds the
// function's return value.
func (c *Context) RunMethod(src, entry string, args ...any) {
	if entry == "" {
		c.fail("entry function name is required")
		return
	}
	saved := c.EntryName
	c.EntryName = entry
	ok := c.compile(codegen.ModeMethod, src)
	c.EntryName = saved
	if !ok {
		return
	}
	c.invoke(entry, args...)
}

// ---------------------------------------------------------------------------
// Compile and invoke steps
// ---------------------------------------------------------------------------

// compile runs the full compile step: reference resolution, shell
// generation, static validation, cache lookup, backend compilation.
// It reports success; on failure the context's error state is set.
func (c *Context) compile(mode codegen.Mode, code string) bool {
	c.Reset()

	if strings.TrimSpace(code) == "" {
		return c.fail("source is empty")
	}

	if _, err := refcheck.Check(c.uncoveredImports()); err != nil {
		return c.fail("reference check failed: %v", err)
	}

	shell := &codegen.Shell{
		PackageName: c.PackageName,
		EntryName:   c.EntryName,
		Imports:     c.Imports,
		Mode:        mode,
	}
	entry := c.entryName()
	if mode == codegen.ModeMethod {
		entry = c.EntryName
	}

	source, err := shell.Generate(code)
	if err != nil {
		return c.fail("shell generation failed: %v", err)
	}
	c.Source = source

	if verrs := codegen.NewValidator("forge-unit.go").Validate(source); len(verrs) > 0 {
		return c.fail("validation failed: %s", verrs[0].String())
	}

	meta := cache.Meta{
		Mode:        c.mode(),
		PackageName: c.packageName(),
		EntryName:   entry,
		Imports:     c.Imports,
		Source:      source,
		Requires:    c.Requires,
	}
	key, err := cache.Key(meta)
	if err != nil {
		return c.fail("cache key: %v", err)
	}
	c.key = key

	if prog, ok := c.cached(key); ok {
		c.program = prog
		return true
	}

	b, err := c.backend()
	if err != nil {
		return c.fail("%v", err)
	}

	start := time.Now()
	prog, err := b.Compile(context.Background(), backend.Unit{
		Key:         key,
		Source:      source,
		PackageName: c.packageName(),
		EntryName:   entry,
		Requires:    c.Requires,
	})
	c.record(history.KindCompile, key, time.Since(start), err)
	if err != nil {
		return c.fail("compile failed: %v", err)
	}

	c.program = prog
	if c.store != nil {
		if err := c.store.Put(key, prog, meta); err != nil {
			c.log.Errorf("caching unit %s: %v", key, err)
		}
	}
	return true
}

// invoke runs the entry function of the compiled program and stores the
// result. A failed invoke keeps the compiled program on the context.
func (c *Context) invoke(entry string, args ...any) {
	start := time.Now()
	result, err := c.program.Invoke(entry, args...)
	c.record(history.KindInvoke, c.key, time.Since(start), err)
	if err != nil {
		prog := c.program
		key := c.key
		c.fail("invoke failed: %v", err)
		c.program = prog
		c.key = key
		return
	}
	c.Result = result
}

// cached returns an already-usable program for key, from the in-process
// memo or by reloading an on-disk artifact.
func (c *Context) cached(key string) (backend.Program, bool) {
	if c.store == nil {
		return nil, false
	}
	if prog, ok := c.store.Program(key); ok {
		return prog, true
	}

	entry, err := c.store.Get(key)
	if err != nil || entry.Artifact == "" {
		return nil, false
	}
	b, err := c.backend()
	if err != nil {
		return nil, false
	}
	loader, ok := b.(backend.Loader)
	if !ok {
		return nil, false
	}
	prog, err := loader.Load(entry.Artifact)
	if err != nil {
		c.log.Infof("stale artifact for %s: %v", key, err)
		return nil, false
	}
	return prog, true
}

// fail sets the error state. Result and error state are mutually
// exclusive, so the result side is cleared. Always returns false so
// callers can `return c.fail(...)`.
func (c *Context) fail(format string, args ...any) bool {
	c.Failed = true
	c.ErrorText = fmt.Sprintf(format, args...)
	c.Result = nil
	c.program = nil
	c.key = ""
	return false
}

func (c *Context) record(kind history.Kind, key string, d time.Duration, err error) {
	ev := history.Event{Kind: kind, Mode: c.mode(), Key: key, OK: err == nil, Duration: d}
	if err != nil {
		ev.Error = err.Error()
	}
	if rerr := c.rec.Record(ev); rerr != nil {
		c.log.Errorf("recording %s event: %v", kind, rerr)
	}
}

func (c *Context) backend() (backend.Backend, error) {
	b, err := backend.Get(c.mode())
	if err != nil {
		return nil, err
	}
	// Respect per-context toolchain overrides for the plugin backend.
	if pb, ok := b.(*backend.PluginBackend); ok && (c.GoTool != "" || c.BuildDir != "") {
		override := *pb
		if c.GoTool != "" {
			override.GoTool = c.GoTool
		}
		if c.BuildDir != "" {
			override.BuildDir = c.BuildDir
		}
		return &override, nil
	}
	return b, nil
}

// uncoveredImports returns the configured imports that have no module
// requirement behind them. Refcheck resolves in the host process's
// module, which knows nothing about the scratch module's requirements;
// required imports are left for the backend to resolve.
func (c *Context) uncoveredImports() []string {
	if len(c.Requires) == 0 {
		return c.Imports
	}
	var refs []string
	for _, imp := range c.Imports {
		if !c.requiredModule(imp) {
			refs = append(refs, imp)
		}
	}
	return refs
}

// requiredModule reports whether path is inside a required module.
func (c *Context) requiredModule(path string) bool {
	for mod := range c.Requires {
		if path == mod || strings.HasPrefix(path, mod+"/") {
			return true
		}
	}
	return false
}

func (c *Context) mode() string {
	if c.Mode == "" {
		return backend.ModePlugin
	}
	return c.Mode
}

func (c *Context) packageName() string {
	if c.PackageName == "" {
		return "main"
	}
	return c.PackageName
}

func (c *Context) entryName() string {
	if c.EntryName == "" {
		return codegen.DefaultEntryName
	}
	return c.EntryName
}
