// Package main is the entry point for the fluxtodo CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"fluxtodo/internal/cli"
	"fluxtodo/internal/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	// A nil factory opens the backend named in config.toml.
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, nil)

	code := dispatcher.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
