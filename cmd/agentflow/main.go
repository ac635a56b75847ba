// Command agentflow manages projects, agents and nodes and runs agents
// against the configured checkpoint store.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		logger.Error("command failed", "kind", errorKind(err), "error", err)
		stop()
		os.Exit(exitCode(err))
	}
}
