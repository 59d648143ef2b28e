package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/chazu/forge/remote"
)

// handleRpcCommand processes the `forge rpc` subcommand: dynamic
// invocation of a unary method on a reflection-enabled gRPC server.
// Usage:
//
//	forge rpc localhost:50051 greet.Greeter/SayHello '{"name":"forge"}'
//	forge rpc localhost:50051 list            # list services
func handleRpcCommand(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: forge rpc <target> <service/method|list> [request-json]")
		os.Exit(2)
	}
	target := args[0]

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := remote.Dial(ctx, target)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to %s: %v\n", target, err)
		os.Exit(1)
	}
	defer client.Close()

	if args[1] == "list" {
		services, err := client.Services()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing services: %v\n", err)
			os.Exit(1)
		}
		for _, svc := range services {
			fmt.Println(svc)
		}
		return
	}

	fields := map[string]any{}
	if len(args) > 2 {
		if err := json.Unmarshal([]byte(args[2]), &fields); err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing request JSON: %v\n", err)
			os.Exit(2)
		}
	}

	result, err := client.Invoke(ctx, args[1], fields)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error rendering response: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}
