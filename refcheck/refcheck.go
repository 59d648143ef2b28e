// Package refcheck resolves a context's configured import references
// before compilation, so a bad reference fails with the loader's error
// text instead of a toolchain stack of messages.
package refcheck

import (
	"fmt"
	"strings"

	"golang.org/x/tools/go/packages"
)

// Ref is a resolved import reference.
type Ref struct {
	Path string // import path as configured
	Name string // package name
}

// Check loads every reference and returns the resolved set. A reference
// that cannot be loaded, or that loads with errors, fails the whole check.
func Check(refs []string) ([]Ref, error) {
	if len(refs) == 0 {
		return nil, nil
	}

	cfg := &packages.Config{
		Mode: packages.NeedName,
	}
	pkgs, err := packages.Load(cfg, refs...)
	if err != nil {
		return nil, fmt.Errorf("loading references: %w", err)
	}

	var bad []string
	resolved := make([]Ref, 0, len(pkgs))
	for _, pkg := range pkgs {
		if len(pkg.Errors) > 0 {
			bad = append(bad, fmt.Sprintf("%s: %v", pkg.PkgPath, pkg.Errors[0]))
			continue
		}
		if pkg.Name == "" {
			bad = append(bad, fmt.Sprintf("%s: no package found", pkg.PkgPath))
			continue
		}
		resolved = append(resolved, Ref{Path: pkg.PkgPath, Name: pkg.Name})
	}
	if len(bad) > 0 {
		return nil, fmt.Errorf("unresolved references:\n%s", strings.Join(bad, "\n"))
	}
	return resolved, nil
}
