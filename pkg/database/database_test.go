package database_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/JaimeStill/agentflow/pkg/database"
	"github.com/JaimeStill/agentflow/pkg/lifecycle"
)

func testConfig() *database.Config {
	cfg := &database.Config{
		Host:     "127.0.0.1",
		Port:     1,
		Name:     "agentflow",
		User:     "agentflow",
		Password: "agentflow",
	}
	cfg.Finalize(nil)
	cfg.MaxOpenConns = 42
	cfg.ConnTimeout = "200ms"
	return cfg
}

func TestNew(t *testing.T) {
	sys, err := database.New(testConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	conn := sys.Connection()
	defer conn.Close()

	if got := conn.Stats().MaxOpenConnections; got != 42 {
		t.Errorf("MaxOpenConnections = %d, want 42", got)
	}
}

func TestReadyBeforeConnect(t *testing.T) {
	sys, err := database.New(testConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer sys.Connection().Close()

	if err := sys.Ready(context.Background()); !errors.Is(err, database.ErrNotReady) {
		t.Errorf("Ready() = %v, want ErrNotReady", err)
	}
}

func TestStartUnreachable(t *testing.T) {
	sys, err := database.New(testConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	lc := lifecycle.New()
	if err := sys.Start(lc); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	lc.WaitForStartup()

	status := lc.Readiness(context.Background())
	if status.Ready {
		t.Error("ready with unreachable database")
	}
	if status.Checks["database"] != database.ErrNotReady.Error() {
		t.Errorf("database check = %q, want %q", status.Checks["database"], database.ErrNotReady.Error())
	}

	if err := lc.Shutdown(5 * time.Second); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}
