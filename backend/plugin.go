package backend

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"plugin"
	"reflect"
	"runtime"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"
)

// ModePlugin is the registry name of the gc toolchain backend.
const ModePlugin = "plugin"

// ErrPluginUnsupported reports that shared-object plugins are not
// available on this platform.
var ErrPluginUnsupported = errors.New("plugin mode not supported on Windows")

func init() {
	Register(NewPluginBackend("", ""))
}

// PluginBackend compiles units with the external go toolchain in
// -buildmode=plugin and loads the resulting shared object.
type PluginBackend struct {
	// GoTool is the go command to run; "go" if empty.
	GoTool string

	// BuildDir is where scratch modules and artifacts are written.
	// Defaults to a forge-build directory under the OS temp dir.
	BuildDir string

	log commonlog.Logger
}

// NewPluginBackend creates a plugin backend with the given toolchain
// path and build directory, either of which may be empty for defaults.
func NewPluginBackend(goTool, buildDir string) *PluginBackend {
	if goTool == "" {
		goTool = "go"
	}
	if buildDir == "" {
		buildDir = filepath.Join(os.TempDir(), "forge-build")
	}
	return &PluginBackend{
		GoTool:   goTool,
		BuildDir: buildDir,
		log:      commonlog.GetLogger("forge.backend.plugin"),
	}
}

func (b *PluginBackend) Mode() string { return ModePlugin }

// Compile writes the unit into a scratch module, runs
// go build -buildmode=plugin, and loads the shared object.
func (b *PluginBackend) Compile(ctx context.Context, u Unit) (Program, error) {
	if runtime.GOOS == "windows" {
		return nil, ErrPluginUnsupported
	}
	if u.PackageName != "" && u.PackageName != "main" {
		return nil, fmt.Errorf("plugin units must be package main, got %q", u.PackageName)
	}

	name := u.Key
	if name == "" {
		name = uuid.NewString()
	}
	dir := filepath.Join(b.BuildDir, name)
	out := filepath.Join(dir, "unit.so")

	// Content-addressed: an existing artifact for this key is current.
	if u.Key != "" {
		if _, err := os.Stat(out); err == nil {
			return b.Load(out)
		}
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating build directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "main.go"), []byte(u.Source), 0644); err != nil {
		return nil, fmt.Errorf("writing unit source: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "go.mod"), []byte(scratchGoMod(name, u.Requires)), 0644); err != nil {
		return nil, fmt.Errorf("writing scratch go.mod: %w", err)
	}

	b.log.Debugf("building plugin unit %s in %s", name, dir)

	// The build runs under the default -mod=readonly, so units with
	// module requirements need a go.sum before go build will look at
	// them.
	if len(u.Requires) > 0 {
		tidy := exec.CommandContext(ctx, b.GoTool, "mod", "tidy")
		tidy.Dir = dir
		if output, err := tidy.CombinedOutput(); err != nil {
			return nil, fmt.Errorf("go mod tidy failed: %w\n%s", err, strings.TrimSpace(string(output)))
		}
	}

	cmd := exec.CommandContext(ctx, b.GoTool, "build", "-buildmode=plugin", "-o", out, ".")
	cmd.Dir = dir
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("go build failed: %w\n%s", err, strings.TrimSpace(string(output)))
	}

	return b.Load(out)
}

// Load opens a previously built shared object.
func (b *PluginBackend) Load(artifactPath string) (Program, error) {
	if runtime.GOOS == "windows" {
		return nil, ErrPluginUnsupported
	}
	p, err := plugin.Open(artifactPath)
	if err != nil {
		return nil, fmt.Errorf("opening plugin: %w", err)
	}
	return &pluginProgram{p: p, path: artifactPath}, nil
}

// scratchGoMod renders the go.mod of a scratch unit module.
func scratchGoMod(name string, requires map[string]string) string {
	var sb strings.Builder
	sb.WriteString("module forge-unit-" + name + "\n\n")
	sb.WriteString("go 1.25\n")
	if len(requires) > 0 {
		paths := make([]string, 0, len(requires))
		for p := range requires {
			paths = append(paths, p)
		}
		sort.Strings(paths)
		sb.WriteString("\nrequire (\n")
		for _, p := range paths {
			sb.WriteString("\t" + p + " " + requires[p] + "\n")
		}
		sb.WriteString(")\n")
	}
	return sb.String()
}

// pluginProgram wraps a loaded shared object.
type pluginProgram struct {
	p    *plugin.Plugin
	path string
}

func (pp *pluginProgram) Mode() string     { return ModePlugin }
func (pp *pluginProgram) Artifact() string { return pp.path }

func (pp *pluginProgram) Invoke(name string, args ...any) (any, error) {
	sym, err := pp.p.Lookup(name)
	if err != nil {
		return nil, fmt.Errorf("entry %q not found in unit: %w", name, err)
	}
	return callFunc(reflect.ValueOf(sym), args)
}
