// Package codegen builds the program shell around user-supplied source.
// A shell is a complete Go file: package clause, imports, and an entry
// function wrapping the user's snippet, expression, or method declaration.
package codegen

import (
	"fmt"
	"strings"

	"golang.org/x/tools/imports"
)

// Mode selects the kind of shell generated around user code.
type Mode int

const (
	// ModeSnippet wraps bare statements in the body of the entry function.
	ModeSnippet Mode = iota

	// ModeExpression wraps a single expression in a return statement;
	// the entry function returns any.
	ModeExpression

	// ModeMethod splices a complete function declaration into the
	// package; the declaration itself is the entry point.
	ModeMethod
)

func (m Mode) String() string {
	switch m {
	case ModeSnippet:
		return "snippet"
	case ModeExpression:
		return "expression"
	case ModeMethod:
		return "method"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// DefaultEntryName is the exported entry symbol used for snippet and
// expression shells. Method shells use the user's own function name.
const DefaultEntryName = "ForgeMain"

// Shell describes the program shell to generate.
type Shell struct {
	PackageName string // package clause; "main" if empty
	EntryName   string // entry function name; DefaultEntryName if empty
	Imports     []string
	Mode        Mode
}

// Generate produces the complete Go source for the shell around userCode.
// The configured imports are added verbatim and then pruned by goimports,
// so references the user code never touches do not fail compilation.
// The user code itself is spliced, never rewritten.
func (s *Shell) Generate(userCode string) (string, error) {
	pkg := s.PackageName
	if pkg == "" {
		pkg = "main"
	}
	entry := s.EntryName
	if entry == "" {
		entry = DefaultEntryName
	}

	var sb strings.Builder
	sb.WriteString("// Code generated by forge. DO NOT EDIT.\n\n")
	sb.WriteString("package " + pkg + "\n\n")

	if len(s.Imports) > 0 {
		sb.WriteString("import (\n")
		for _, imp := range s.Imports {
			sb.WriteString("\t" + fmt.Sprintf("%q", imp) + "\n")
		}
		sb.WriteString(")\n\n")
	}

	switch s.Mode {
	case ModeSnippet:
		sb.WriteString("// " + entry + " runs the wrapped snippet.\n")
		sb.WriteString("func " + entry + "() {\n")
		sb.WriteString(indent(userCode))
		sb.WriteString("}\n")

	case ModeExpression:
		sb.WriteString("// " + entry + " evaluates the wrapped expression.\n")
		sb.WriteString("func " + entry + "() any {\n")
		sb.WriteString("\treturn " + strings.TrimSpace(userCode) + "\n")
		sb.WriteString("}\n")

	case ModeMethod:
		sb.WriteString(strings.TrimSpace(userCode) + "\n")

	default:
		return "", fmt.Errorf("codegen: unknown shell mode %d", int(s.Mode))
	}

	src := sb.String()

	// Prune unused configured imports and add missing stdlib ones.
	fixed, err := imports.Process(pkg+".go", []byte(src), nil)
	if err != nil {
		// Leave the raw shell in place so the validator can attribute
		// the error to a user line.
		return src, nil
	}
	return string(fixed), nil
}

// indent prefixes every non-empty line of code with a tab.
func indent(code string) string {
	lines := strings.Split(strings.TrimRight(code, "\n"), "\n")
	var sb strings.Builder
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			sb.WriteString("\n")
			continue
		}
		sb.WriteString("\t" + line + "\n")
	}
	return sb.String()
}
