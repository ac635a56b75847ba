package tracing_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/JaimeStill/agentflow/pkg/lifecycle"
	"github.com/JaimeStill/agentflow/pkg/tracing"
)

func TestConfigFinalize(t *testing.T) {
	tests := []struct {
		name    string
		cfg     tracing.Config
		wantErr bool
	}{
		{name: "disabled defaults", cfg: tracing.Config{}},
		{name: "enabled with endpoint", cfg: tracing.Config{Enabled: true, Endpoint: "localhost:4317"}},
		{name: "enabled without endpoint", cfg: tracing.Config{Enabled: true}, wantErr: true},
		{name: "bad protocol", cfg: tracing.Config{Protocol: "udp"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Finalize(nil)
			if tt.wantErr && err == nil {
				t.Fatal("expected error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestDisabledSystem(t *testing.T) {
	cfg := tracing.Config{}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	sys, err := tracing.New(context.Background(), &cfg, "test", slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	_, span := sys.Tracer("test").Start(context.Background(), "noop")
	if span.SpanContext().IsValid() {
		t.Error("disabled tracer should produce invalid span contexts")
	}
	span.End()

	lc := lifecycle.New()
	if err := sys.Start(lc); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := lc.Shutdown(time.Second); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
