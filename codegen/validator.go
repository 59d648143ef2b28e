// This file contains in-memory validation of generated shells using
// go/parser and go/types, so broken user code is rejected with positioned
// errors before the compiler backend ever runs.
package codegen

import (
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"strconv"
	"strings"
)

// ValidationError is a positioned error from parsing or type-checking
// a generated shell.
type ValidationError struct {
	Line     int
	Column   int
	Function string // enclosing function name, "<package>" for file-level errors
	Message  string
}

func (e ValidationError) String() string {
	return e.Function + ":" + strconv.Itoa(e.Line) + ":" + strconv.Itoa(e.Column) + ": " + e.Message
}

// Validator type-checks generated Go source in memory.
type Validator struct {
	fset     *token.FileSet
	filename string
}

// NewValidator creates a validator; filename only appears in messages.
func NewValidator(filename string) *Validator {
	return &Validator{filename: filename}
}

// Validate parses and type-checks source, returning any errors.
// Import errors for packages outside the standard library are dropped:
// reference resolution is the refcheck package's job, and the gc export
// data importer used here cannot see module dependencies.
func (v *Validator) Validate(source string) []ValidationError {
	v.fset = token.NewFileSet()

	file, err := parser.ParseFile(v.fset, v.filename, source, parser.AllErrors)
	if err != nil {
		return v.parseErrors(err)
	}

	funcAt := buildFunctionMap(v.fset, file)

	var errs []ValidationError
	conf := types.Config{
		Importer: importer.Default(),
		Error: func(err error) {
			typeErr, ok := err.(types.Error)
			if !ok {
				return
			}
			if strings.Contains(typeErr.Msg, "could not import") {
				return
			}
			pos := v.fset.Position(typeErr.Pos)
			fn := funcAt[pos.Line]
			if fn == "" {
				fn = "<package>"
			}
			errs = append(errs, ValidationError{
				Line:     pos.Line,
				Column:   pos.Column,
				Function: fn,
				Message:  typeErr.Msg,
			})
		},
	}

	info := &types.Info{
		Types: make(map[ast.Expr]types.TypeAndValue),
		Defs:  make(map[*ast.Ident]types.Object),
		Uses:  make(map[*ast.Ident]types.Object),
	}
	_, _ = conf.Check(file.Name.Name, v.fset, []*ast.File{file}, info)

	return errs
}

// parseErrors converts scanner.ErrorList entries to ValidationErrors.
func (v *Validator) parseErrors(err error) []ValidationError {
	var errs []ValidationError
	for _, line := range strings.Split(err.Error(), "\n") {
		msg := line
		ln, col := 0, 0
		// Lines look like "file.go:3:7: unexpected token".
		if idx := strings.Index(line, ":"); idx >= 0 {
			parts := strings.SplitN(line, ":", 4)
			if len(parts) == 4 {
				if n, perr := strconv.Atoi(parts[1]); perr == nil {
					ln = n
				}
				if n, perr := strconv.Atoi(parts[2]); perr == nil {
					col = n
				}
				msg = strings.TrimSpace(parts[3])
			}
		}
		errs = append(errs, ValidationError{
			Line:     ln,
			Column:   col,
			Function: "<package>",
			Message:  msg,
		})
	}
	return errs
}

// buildFunctionMap maps each source line to the name of the function
// declared over it, for error attribution.
func buildFunctionMap(fset *token.FileSet, file *ast.File) map[int]string {
	m := make(map[int]string)
	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok {
			continue
		}
		start := fset.Position(fn.Pos()).Line
		end := fset.Position(fn.End()).Line
		for line := start; line <= end; line++ {
			m[line] = fn.Name.Name
		}
	}
	return m
}
