package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/chazu/forge/config"
	"github.com/chazu/forge/server"
)

// handleServeCommand processes the `forge serve` subcommand.
// Usage:
//
//	forge serve              # serve on :4568
//	forge serve -port 8080   # custom port
func handleServeCommand(cfg *config.Config, args []string, verbose bool) {
	port := 4568
	mode := ""

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-port", "--port":
			if i+1 < len(args) {
				n, err := strconv.Atoi(args[i+1])
				if err != nil {
					fmt.Fprintf(os.Stderr, "Error: invalid port %q\n", args[i+1])
					os.Exit(2)
				}
				port = n
				i++
			} else {
				fmt.Fprintln(os.Stderr, "Error: -port requires a number")
				os.Exit(2)
			}
		case "-m", "--mode":
			if i+1 < len(args) {
				mode = args[i+1]
				i++
			} else {
				fmt.Fprintln(os.Stderr, "Error: -m requires a mode name")
				os.Exit(2)
			}
		default:
			fmt.Fprintf(os.Stderr, "Unknown serve argument %q\n", args[i])
			os.Exit(2)
		}
	}

	c, cleanup := newContext(cfg, mode)
	defer cleanup()

	s := server.New(c)
	defer s.Close()

	addr := fmt.Sprintf(":%d", port)
	if verbose {
		fmt.Printf("Serving evaluation service on %s (mode %s)\n", addr, c.Mode)
	}
	if err := s.ListenAndServe(addr); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
