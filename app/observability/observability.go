package observability

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	matchmetrics "github.com/scuffedaim/matchview/app/observability/metrics/match"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Config holds settings for logging, metrics and tracing.
type Config struct {
	ServiceName    string
	Environment    string
	Version        string
	LogLevel       string
	MetricsAddress string

	TempoEndpoint   string
	TempoInsecure   bool
	TempoSampleRate float64
	OTLPEndpoint    string
}

// Provider exposes the process-wide telemetry providers.
type Provider struct {
	Logger         *slog.Logger
	TracerProvider trace.TracerProvider
}

// Registry holds the instruments modules are built with.
type Registry struct {
	Tracer       trace.Tracer
	Prometheus   *prometheus.Registry
	MatchMetrics matchmetrics.MatchMetrics
}

// Observability bundles providers and instruments.
type Observability struct {
	Config   Config
	Provider Provider
	Registry Registry

	shutdown func(context.Context) error
}

// Shutdown flushes pending spans and stops the exporter.
func (o Observability) Shutdown(ctx context.Context) error {
	if o.shutdown == nil {
		return nil
	}
	return o.shutdown(ctx)
}

// Init builds the logger, Prometheus registry and tracer for the service.
// Spans are exported over OTLP when an OTLP or Tempo endpoint is configured;
// otherwise the global provider is used as is.
func Init(ctx context.Context, cfg Config) (Observability, error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "matchview"
	}

	logger := NewLogger(os.Stdout, cfg).With(
		slog.String("service", cfg.ServiceName),
		slog.String("version", cfg.Version),
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	metrics, err := matchmetrics.NewPrometheus(reg, strings.ReplaceAll(cfg.ServiceName, "-", "_"))
	if err != nil {
		return Observability{}, fmt.Errorf("failed to register match metrics: %w", err)
	}

	var (
		tp       trace.TracerProvider = otel.GetTracerProvider()
		shutdown func(context.Context) error
	)
	if cfg.traceEndpoint() != "" {
		exporter, err := newOTLPExporter(ctx, cfg)
		if err != nil {
			return Observability{}, err
		}
		sdk := newTracerProvider(cfg, exporter)
		installTracing(sdk)
		tp, shutdown = sdk, sdk.Shutdown
		logger.InfoContext(ctx, "Exporting traces over OTLP",
			slog.String("endpoint", cfg.traceEndpoint()),
			slog.Float64("sample_rate", cfg.TempoSampleRate),
		)
	}

	return Observability{
		shutdown: shutdown,
		Config: cfg,
		Provider: Provider{
			Logger:         logger,
			TracerProvider: tp,
		},
		Registry: Registry{
			Tracer:       tp.Tracer(cfg.ServiceName),
			Prometheus:   reg,
			MatchMetrics: metrics,
		},
	}, nil
}

// NewNoop returns an Observability that discards logs, metrics and spans.
func NewNoop() Observability {
	tp := noop.NewTracerProvider()
	return Observability{
		Config: Config{ServiceName: "matchview", Environment: "test"},
		Provider: Provider{
			Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
			TracerProvider: tp,
		},
		Registry: Registry{
			Tracer:       tp.Tracer("test"),
			Prometheus:   prometheus.NewRegistry(),
			MatchMetrics: matchmetrics.NoOpMetrics{},
		},
	}
}

// NewLogger builds the slog logger: JSON outside development, text otherwise.
func NewLogger(w io.Writer, cfg Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.LogLevel)}
	if cfg.Environment == "development" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// ParseLevel maps a config string to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
