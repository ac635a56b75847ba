package infrastructure_test

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/JaimeStill/agentflow/internal/config"
	"github.com/JaimeStill/agentflow/internal/infrastructure"
	"github.com/JaimeStill/agentflow/pkg/checkpoint"
	"github.com/JaimeStill/agentflow/pkg/database"
	"github.com/JaimeStill/agentflow/pkg/provider"
	"github.com/JaimeStill/agentflow/pkg/storage"
)

const azuriteConnString = "DefaultEndpointsProtocol=http;AccountName=devstoreaccount1;AccountKey=Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw==;BlobEndpoint=http://127.0.0.1:10000/devstoreaccount1;"

func validConfig() *config.Config {
	return &config.Config{
		Database: database.Config{
			Host:            "localhost",
			Port:            5432,
			Name:            "agentflow",
			User:            "agentflow",
			Password:        "agentflow",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: "15m",
			ConnTimeout:     "5s",
		},
		Checkpoint: checkpoint.Config{Backend: checkpoint.BackendMemory},
		Models: provider.Config{
			CallTimeout: "30s",
			CacheSize:   4,
			Providers: []provider.ProviderConfig{
				{Name: "local", Kind: provider.KindOllama, Models: []string{"llama3.1:8b"}, Burst: 1},
			},
		},
		Workflow: config.WorkflowConfig{NodeTimeout: "10s", StrictOutputs: true},
		LogLevel: "info",
		Version:  "0.1.0",
	}
}

func newInfra(t *testing.T, cfg *config.Config) *infrastructure.Infrastructure {
	t.Helper()
	infra, err := infrastructure.NewWithLogger(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return infra
}

func TestNew(t *testing.T) {
	infra := newInfra(t, validConfig())

	if infra.Lifecycle == nil {
		t.Error("Lifecycle is nil")
	}
	if infra.Logger == nil {
		t.Error("Logger is nil")
	}
	if infra.Database == nil {
		t.Error("Database is nil")
	}
	if infra.Storage != nil {
		t.Error("Storage should be nil when disabled")
	}
	if _, ok := infra.Checkpoints.(*checkpoint.Memory); !ok {
		t.Errorf("Checkpoints = %T, want *checkpoint.Memory", infra.Checkpoints)
	}
	if infra.Models == nil {
		t.Error("Models is nil")
	}
	if infra.Tracing == nil {
		t.Error("Tracing is nil")
	}
}

func TestNewDatabaseConnection(t *testing.T) {
	infra := newInfra(t, validConfig())

	conn := infra.Database.Connection()
	if conn == nil {
		t.Fatal("Database.Connection() returned nil")
	}
	conn.Close()
}

func TestNewSQLiteCheckpoints(t *testing.T) {
	cfg := validConfig()
	cfg.Checkpoint = checkpoint.Config{
		Backend:    checkpoint.BackendSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "checkpoints.db"),
	}

	infra := newInfra(t, cfg)
	if _, ok := infra.Checkpoints.(*checkpoint.SQLite); !ok {
		t.Errorf("Checkpoints = %T, want *checkpoint.SQLite", infra.Checkpoints)
	}
	if err := infra.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := infra.Lifecycle.Shutdown(5 * time.Second); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestNewStorageEnabled(t *testing.T) {
	cfg := validConfig()
	cfg.Storage = storage.Config{
		Enabled:          true,
		ContainerName:    "runs",
		ConnectionString: azuriteConnString,
	}

	infra := newInfra(t, cfg)
	if infra.Storage == nil {
		t.Fatal("Storage is nil")
	}

	rt := infra.Runtime(&cfg.Workflow)
	if rt.Archive == nil {
		t.Error("runtime archive should be the storage system")
	}
}

func TestNewInvalidStorageConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Storage = storage.Config{
		Enabled:          true,
		ContainerName:    "runs",
		ConnectionString: "not-a-connection-string",
	}

	_, err := infrastructure.NewWithLogger(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err == nil {
		t.Fatal("expected error for invalid storage connection string")
	}
}

func TestNewUnknownCheckpointBackend(t *testing.T) {
	cfg := validConfig()
	cfg.Checkpoint.Backend = "etcd"

	_, err := infrastructure.NewWithLogger(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err == nil {
		t.Fatal("expected error for unknown checkpoint backend")
	}
}

func TestRuntime(t *testing.T) {
	cfg := validConfig()
	infra := newInfra(t, cfg)

	rt := infra.Runtime(&cfg.Workflow)

	if rt.Checkpoints != infra.Checkpoints {
		t.Error("runtime checkpoints differ from infrastructure store")
	}
	if rt.Models == nil {
		t.Error("runtime models is nil")
	}
	if rt.Archive != nil {
		t.Error("runtime archive should be nil when storage is disabled")
	}
	if rt.Tracer == nil {
		t.Error("runtime tracer is nil")
	}
	if rt.NodeTimeout != 10*time.Second {
		t.Errorf("node timeout: got %v, want 10s", rt.NodeTimeout)
	}
	if !rt.StrictOutputs {
		t.Error("strict outputs not propagated")
	}
}

func TestStart(t *testing.T) {
	infra := newInfra(t, validConfig())

	if err := infra.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := infra.Lifecycle.Shutdown(5 * time.Second); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}
