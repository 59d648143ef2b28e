package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/chazu/forge/config"
	"github.com/chazu/forge/eval"
)

// handleRunCommand processes the `forge run` subcommand.
// Usage:
//
//	forge run snippet.go.txt     # run a snippet file
//	echo 'fmt.Println(1)' | forge run   # run stdin
//	forge run -m interp snippet.go.txt  # pick a compiler mode
func handleRunCommand(cfg *config.Config, args []string, verbose bool) {
	mode, imports, rest := parseEvalFlags(args)

	source, err := readSource(rest)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading source: %v\n", err)
		os.Exit(1)
	}

	c, cleanup := newContext(cfg, mode)
	defer cleanup()
	c.Imports = append(c.Imports, imports...)

	c.RunSnippet(source)
	finish(c, verbose)
}

// handleEvalCommand processes the `forge eval` subcommand.
func handleEvalCommand(cfg *config.Config, args []string, verbose bool) {
	mode, imports, rest := parseEvalFlags(args)

	if len(rest) != 1 {
		fmt.Fprintln(os.Stderr, "Usage: forge eval [-m mode] [-i import] <expression>")
		os.Exit(2)
	}

	c, cleanup := newContext(cfg, mode)
	defer cleanup()
	c.Imports = append(c.Imports, imports...)

	c.EvalExpression(rest[0])
	finish(c, verbose)
}

// handleCallCommand processes the `forge call` subcommand: compile a
// file containing function declarations and invoke one by name.
// Numeric-looking arguments are passed as int64, everything else as
// string.
func handleCallCommand(cfg *config.Config, args []string, verbose bool) {
	mode, imports, rest := parseEvalFlags(args)

	if len(rest) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: forge call [-m mode] <file> <entry> [args...]")
		os.Exit(2)
	}

	data, err := os.ReadFile(rest[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", rest[0], err)
		os.Exit(1)
	}

	callArgs := make([]any, 0, len(rest)-2)
	for _, raw := range rest[2:] {
		if n, perr := strconv.ParseInt(raw, 10, 64); perr == nil {
			callArgs = append(callArgs, n)
			continue
		}
		if f, perr := strconv.ParseFloat(raw, 64); perr == nil {
			callArgs = append(callArgs, f)
			continue
		}
		callArgs = append(callArgs, raw)
	}

	c, cleanup := newContext(cfg, mode)
	defer cleanup()
	c.Imports = append(c.Imports, imports...)

	c.RunMethod(string(data), rest[1], callArgs...)
	finish(c, verbose)
}

// parseEvalFlags strips the flags shared by run/eval/call.
func parseEvalFlags(args []string) (mode string, imports []string, rest []string) {
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-m", "--mode":
			if i+1 < len(args) {
				mode = args[i+1]
				i++
			} else {
				fmt.Fprintln(os.Stderr, "Error: -m requires a mode name")
				os.Exit(2)
			}
		case "-i", "--import":
			if i+1 < len(args) {
				imports = append(imports, args[i+1])
				i++
			} else {
				fmt.Fprintln(os.Stderr, "Error: -i requires an import path")
				os.Exit(2)
			}
		default:
			rest = append(rest, args[i])
		}
	}
	return mode, imports, rest
}

// readSource reads the first path argument, or stdin when none.
func readSource(rest []string) (string, error) {
	if len(rest) == 0 || rest[0] == "-" {
		data, err := io.ReadAll(os.Stdin)
		return string(data), err
	}
	data, err := os.ReadFile(rest[0])
	return string(data), err
}

// finish prints the outcome of a facade call and exits non-zero on
// failure.
func finish(c *eval.Context, verbose bool) {
	if verbose && c.Source != "" {
		fmt.Fprintln(os.Stderr, "--- generated source ---")
		fmt.Fprintln(os.Stderr, c.Source)
		fmt.Fprintln(os.Stderr, "------------------------")
	}
	if c.Failed {
		fmt.Fprintf(os.Stderr, "Error: %s\n", c.ErrorText)
		os.Exit(1)
	}
	if c.Result != nil {
		fmt.Println(c.Result)
	}
}
