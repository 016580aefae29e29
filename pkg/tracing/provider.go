package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/neerajsamtani/ledgershift/config"
	"github.com/neerajsamtani/ledgershift/pkg/tracing/exporters"
)

// Setup configures the global tracer provider from service config and
// returns a shutdown func. When tracing is disabled spans are no-ops.
func Setup(ctx context.Context, cfg *config.Config) (func(context.Context) error, error) {
	var exporter sdktrace.SpanExporter
	if cfg.TracingEnabled {
		otlpExporter, err := exporters.NewOTLPExporter(ctx, exporters.OTLPConfig{
			Endpoint: cfg.TracingOTLPEndpoint,
			Protocol: cfg.TracingOTLPProtocol,
			Insecure: cfg.TracingInsecure,
			Timeout:  exporters.DefaultOTLPConfig().Timeout,
		})
		if err != nil {
			return nil, err
		}
		exporter = otlpExporter
	} else {
		exporter = &exporters.ConsoleExporter{}
	}

	provider := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(provider)
	SetTracer(provider.Tracer(cfg.AppName))

	return provider.Shutdown, nil
}
