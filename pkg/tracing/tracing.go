// Package tracing provides an OpenTelemetry tracer provider with OTLP export
// and lifecycle-coordinated shutdown.
package tracing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/JaimeStill/agentflow/pkg/lifecycle"
)

// System supplies tracers and flushes pending spans on shutdown.
type System interface {
	Tracer(name string) trace.Tracer
	Start(lc *lifecycle.Coordinator) error
}

type otlp struct {
	provider *sdktrace.TracerProvider
	logger   *slog.Logger
}

type disabled struct {
	provider trace.TracerProvider
}

// New creates a tracing system. When tracing is disabled the returned system
// hands out no-op tracers.
func New(ctx context.Context, cfg *Config, version string, logger *slog.Logger) (System, error) {
	if !cfg.Enabled {
		return &disabled{provider: noop.NewTracerProvider()}, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("otel resource: %w", err)
	}

	var exporter sdktrace.SpanExporter
	switch cfg.Protocol {
	case "http":
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		exporter, err = otlptracehttp.New(ctx, opts...)
	default:
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		exporter, err = otlptracegrpc.New(ctx, opts...)
	}
	if err != nil {
		return nil, fmt.Errorf("otel exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter,
			sdktrace.WithMaxExportBatchSize(100),
			sdktrace.WithBatchTimeout(5*time.Second),
		),
		sdktrace.WithResource(res),
	)

	return &otlp{
		provider: tp,
		logger:   logger.With("system", "tracing"),
	}, nil
}

func (o *otlp) Tracer(name string) trace.Tracer {
	return o.provider.Tracer(name)
}

func (o *otlp) Start(lc *lifecycle.Coordinator) error {
	o.logger.Info("trace export enabled")

	lc.OnShutdown(func() {
		<-lc.Context().Done()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := o.provider.Shutdown(ctx); err != nil {
			o.logger.Error("trace provider shutdown failed", "error", err)
			return
		}
		o.logger.Info("trace provider shut down")
	})

	return nil
}

func (d *disabled) Tracer(name string) trace.Tracer {
	return d.provider.Tracer(name)
}

func (d *disabled) Start(*lifecycle.Coordinator) error {
	return nil
}
