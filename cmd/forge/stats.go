package main

import (
	"context"
	"fmt"
	"os"

	"github.com/chazu/forge/cache"
	"github.com/chazu/forge/config"
	"github.com/chazu/forge/history"
)

// handleStatsCommand processes the `forge stats` subcommand: aggregate
// compile/invoke statistics from the history log plus cache size.
func handleStatsCommand(cfg *config.Config, args []string) {
	if cfg == nil || cfg.History.Path == "" {
		fmt.Fprintln(os.Stderr, "No history configured; set [history] path in forge.toml")
		os.Exit(1)
	}

	rec, err := history.Open(cfg.History.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening history: %v\n", err)
		os.Exit(1)
	}
	defer rec.Close()

	st, err := rec.Query(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error querying history: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Compiles:   %d (%d failed)\n", st.Compiles, st.CompileFails)
	fmt.Printf("Invokes:    %d (%d failed)\n", st.Invokes, st.InvokeFails)
	if st.Compiles > 0 {
		fmt.Printf("Compile ms: avg %.1f, max %.1f\n", st.AvgCompileMs, st.MaxCompileMs)
		fmt.Printf("Slowest:    %s\n", st.SlowestKey)
	}

	if cfg.Cache.Path != "" {
		store, err := cache.Open(cfg.Cache.Path)
		if err == nil {
			defer store.Close()
			if n, cerr := store.Count(); cerr == nil {
				fmt.Printf("Cached:     %d units\n", n)
			}
		}
	}
}
