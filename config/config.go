// Package config loads forge.toml project configuration and validates
// it against a CUE schema before anything touches the toolchain.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/BurntSushi/toml"
)

// Config is a forge.toml project configuration.
type Config struct {
	Build    Build    `toml:"build"`
	Defaults Defaults `toml:"defaults"`
	Cache    Cache    `toml:"cache"`
	History  History  `toml:"history"`

	// Dir is the directory containing the forge.toml file (set at load time).
	Dir string `toml:"-"`
}

// Build configures the external toolchain.
type Build struct {
	Dir      string            `toml:"dir"`
	GoTool   string            `toml:"go-tool"`
	Requires map[string]string `toml:"requires"`
}

// Defaults seed new execution contexts.
type Defaults struct {
	Mode        string   `toml:"mode"`
	PackageName string   `toml:"package"`
	Imports     []string `toml:"imports"`
}

// Cache configures the compiled-unit index.
type Cache struct {
	Path string `toml:"path"`
}

// History configures the compile/invoke event log.
type History struct {
	Path string `toml:"path"`
}

// configSchema constrains a decoded Config. Field names follow the Go
// struct because validation runs on the decoded value, not the TOML text.
const configSchema = `
#Config: {
	Build?: {
		Dir?:      string
		GoTool?:   string
		Requires?: {[string]: string}
		...
	}
	Defaults?: {
		Mode?:        "plugin" | "interp" | ""
		PackageName?: string
		Imports?: [...string]
		...
	}
	Cache?: {Path?: string, ...}
	History?: {Path?: string, ...}
	...
}
`

// Load reads and validates forge.toml from dir.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, "forge.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var c Config
	if err := toml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	if err := validate(&c); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}

	// Defaults
	if c.Defaults.Mode == "" {
		c.Defaults.Mode = "plugin"
	}
	if c.Build.GoTool == "" {
		c.Build.GoTool = "go"
	}

	return &c, nil
}

// FindAndLoad walks up from startDir to find a forge.toml file, then
// loads and returns it. Returns nil if no configuration is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, "forge.toml")
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// validate unifies the decoded config with the CUE schema.
func validate(c *Config) error {
	cctx := cuecontext.New()

	schema := cctx.CompileString(configSchema)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compiling config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))
	if err := def.Err(); err != nil {
		return fmt.Errorf("resolving config schema: %w", err)
	}

	val := cctx.Encode(c)
	if err := val.Err(); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := def.Unify(val).Validate(cue.Concrete(false)); err != nil {
		return err
	}
	return nil
}
