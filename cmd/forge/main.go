// Forge CLI - compile and run Go source at runtime
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/tliron/commonlog"

	"github.com/chazu/forge/cache"
	"github.com/chazu/forge/config"
	"github.com/chazu/forge/eval"
	"github.com/chazu/forge/history"

	_ "github.com/tliron/commonlog/simple"
)

func main() {
	verbose := flag.Bool("v", false, "Verbose output")
	configDir := flag.String("C", "", "Directory to search for forge.toml (default: walk up from cwd)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: forge [options] <command> [args...]\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  run [file]      Compile and run a snippet (or stdin)\n")
		fmt.Fprintf(os.Stderr, "  eval <expr>     Compile and evaluate an expression\n")
		fmt.Fprintf(os.Stderr, "  call <file> <entry> [args...]  Compile a function and invoke it\n")
		fmt.Fprintf(os.Stderr, "  serve           Start the evaluation service\n")
		fmt.Fprintf(os.Stderr, "  stats           Show compile/invoke statistics\n")
		fmt.Fprintf(os.Stderr, "  rpc <target> <service/method> [json]  Invoke a gRPC method dynamically\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  forge eval '6 * 7'\n")
		fmt.Fprintf(os.Stderr, "  forge run hello.go.txt\n")
		fmt.Fprintf(os.Stderr, "  forge call mathlib.go.txt Add 2 3\n")
		fmt.Fprintf(os.Stderr, "  forge serve -port 4568\n")
		fmt.Fprintf(os.Stderr, "  forge rpc localhost:50051 greet.Greeter/SayHello '{\"name\":\"forge\"}'\n")
	}
	flag.Parse()

	verbosity := 0
	if *verbose {
		verbosity = 2
	}
	commonlog.Configure(verbosity, nil)

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	startDir := *configDir
	if startDir == "" {
		startDir = "."
	}
	cfg, err := config.FindAndLoad(startDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading forge.toml: %v\n", err)
		os.Exit(1)
	}

	switch args[0] {
	case "run":
		handleRunCommand(cfg, args[1:], *verbose)
	case "eval":
		handleEvalCommand(cfg, args[1:], *verbose)
	case "call":
		handleCallCommand(cfg, args[1:], *verbose)
	case "serve":
		handleServeCommand(cfg, args[1:], *verbose)
	case "stats":
		handleStatsCommand(cfg, args[1:])
	case "rpc":
		handleRpcCommand(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q\n\n", args[0])
		flag.Usage()
		os.Exit(2)
	}
}

// newContext builds an execution context from the loaded configuration,
// attaching the cache and history stores when configured.
func newContext(cfg *config.Config, mode string) (*eval.Context, func()) {
	var opts []eval.Option
	var closers []func()

	if cfg != nil && cfg.Cache.Path != "" {
		store, err := cache.Open(cfg.Cache.Path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: cache disabled: %v\n", err)
		} else {
			opts = append(opts, eval.WithCache(store))
			closers = append(closers, func() { store.Close() })
		}
	}
	if cfg != nil && cfg.History.Path != "" {
		rec, err := history.Open(cfg.History.Path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: history disabled: %v\n", err)
		} else {
			opts = append(opts, eval.WithHistory(rec))
			closers = append(closers, func() { rec.Close() })
		}
	}

	c := eval.NewContext(opts...)
	if cfg != nil {
		c.Mode = cfg.Defaults.Mode
		c.PackageName = cfg.Defaults.PackageName
		c.Imports = append(c.Imports, cfg.Defaults.Imports...)
		c.GoTool = cfg.Build.GoTool
		c.BuildDir = cfg.Build.Dir
		c.Requires = cfg.Build.Requires
	}
	if mode != "" {
		c.Mode = mode
	}

	cleanup := func() {
		for _, fn := range closers {
			fn()
		}
	}
	return c, cleanup
}
