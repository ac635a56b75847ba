package api_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/JaimeStill/agentflow/internal/api"
	"github.com/JaimeStill/agentflow/internal/config"
	"github.com/JaimeStill/agentflow/internal/infrastructure"
	"github.com/JaimeStill/agentflow/pkg/checkpoint"
	"github.com/JaimeStill/agentflow/pkg/database"
	"github.com/JaimeStill/agentflow/pkg/middleware"
	"github.com/JaimeStill/agentflow/pkg/pagination"
	"github.com/JaimeStill/agentflow/pkg/provider"
	"github.com/JaimeStill/agentflow/pkg/storage"
)

const azuriteConnString = "DefaultEndpointsProtocol=http;AccountName=devstoreaccount1;AccountKey=Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw==;BlobEndpoint=http://127.0.0.1:10000/devstoreaccount1;"

func validConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     "1m",
			WriteTimeout:    "15m",
			ShutdownTimeout: "30s",
		},
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
		API: config.APIConfig{
			BasePath:    "/api",
			MaxBodySize: "1KB",
			CORS: middleware.CORSConfig{
				Enabled: false,
			},
			Pagination: pagination.Config{
				DefaultPageSize: 20,
				MaxPageSize:     100,
			},
		},
		Checkpoint: checkpoint.Config{Backend: checkpoint.BackendMemory},
		Models: provider.Config{
			CallTimeout: "30s",
			CacheSize:   4,
			Providers: []provider.ProviderConfig{
				{Name: "local", Kind: provider.KindOllama, Models: []string{"llama3.1:8b"}, Burst: 1},
			},
		},
		LogLevel:        "info",
		ShutdownTimeout: "30s",
		Version:         "0.1.0",
	}
}

func setupInfra(t *testing.T, cfg *config.Config) *infrastructure.Infrastructure {
	t.Helper()
	infra, err := infrastructure.NewWithLogger(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("infrastructure.New() error = %v", err)
	}
	return infra
}

func TestNewModule(t *testing.T) {
	cfg := validConfig()

	m, err := api.NewModule(cfg, setupInfra(t, cfg))
	if err != nil {
		t.Fatalf("NewModule() error = %v", err)
	}

	if m.Prefix() != "/api" {
		t.Errorf("prefix: got %s, want /api", m.Prefix())
	}
}

func TestNewRuntime(t *testing.T) {
	cfg := validConfig()
	infra := setupInfra(t, cfg)

	runtime := api.NewRuntime(cfg, infra)

	if runtime.Pagination.DefaultPageSize != 20 {
		t.Errorf("pagination default page size: got %d, want 20", runtime.Pagination.DefaultPageSize)
	}
	if runtime.Logger == nil || runtime.Logger == infra.Logger {
		t.Error("runtime logger should be module scoped")
	}
	if runtime.Database == nil {
		t.Error("runtime database is nil")
	}
	if runtime.Lifecycle != infra.Lifecycle {
		t.Error("runtime lifecycle differs from infrastructure")
	}
	if runtime.Workflow == nil || runtime.Workflow.Checkpoints != infra.Checkpoints {
		t.Error("runtime workflow not wired to infrastructure checkpoints")
	}
}

func TestNewDomain(t *testing.T) {
	cfg := validConfig()
	domain := api.NewDomain(api.NewRuntime(cfg, setupInfra(t, cfg)))

	if domain.Projects == nil || domain.Agents == nil || domain.Nodes == nil {
		t.Fatalf("domain = %+v, want all systems", domain)
	}
}

func TestRoutes(t *testing.T) {
	tests := []struct {
		name    string
		storage bool
		method  string
		path    string
		body    string
		want    int
	}{
		{"project invalid id", false, "GET", "/api/projects/bad", "", http.StatusBadRequest},
		{"agent invalid id", false, "GET", "/api/agents/bad", "", http.StatusBadRequest},
		{"agent run invalid id", false, "POST", "/api/agents/bad/run", "", http.StatusBadRequest},
		{"node invalid id", false, "GET", "/api/nodes/bad", "", http.StatusBadRequest},
		{"body over limit", false, "POST", "/api/projects", `{"name": "` + strings.Repeat("x", 2048) + `"}`, http.StatusBadRequest},
		{"archive disabled", false, "GET", "/api/archive", "", http.StatusNotFound},
		{"archive invalid max results", true, "GET", "/api/archive?max_results=bad", "", http.StatusBadRequest},
		{"archive run invalid max results", true, "GET", "/api/runs/abc/archive?max_results=0", "", http.StatusBadRequest},
		{"archive invalid step", true, "GET", "/api/runs/abc/archive/last", "", http.StatusBadRequest},
		{"archive delete invalid step", true, "DELETE", "/api/runs/abc/archive/-1", "", http.StatusBadRequest},
		{"unknown route", false, "GET", "/api/nowhere", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			if tt.storage {
				cfg.Storage = storage.Config{
					Enabled:          true,
					ContainerName:    "runs",
					ConnectionString: azuriteConnString,
					MaxListSize:      50,
				}
			}

			m, err := api.NewModule(cfg, setupInfra(t, cfg))
			if err != nil {
				t.Fatalf("NewModule() error = %v", err)
			}

			var body io.Reader
			if tt.body != "" {
				body = strings.NewReader(tt.body)
			}

			rec := httptest.NewRecorder()
			m.Serve(rec, httptest.NewRequest(tt.method, tt.path, body))

			if rec.Code != tt.want {
				t.Errorf("status: got %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
