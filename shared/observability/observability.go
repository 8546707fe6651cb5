// Package observability sets up the process-wide OpenTelemetry providers: a
// Prometheus-backed meter provider and an optional stdout trace exporter.
package observability

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Config selects which signals are exported
type Config struct {
	ServiceName    string
	TracingEnabled bool
	MetricsEnabled bool
	// TraceOutput receives spans when tracing is on; defaults to stdout
	TraceOutput io.Writer
}

// Provider owns the installed providers and the Prometheus registry behind /metrics
type Provider struct {
	tracer   *trace.TracerProvider
	meter    *metric.MeterProvider
	registry *promclient.Registry
}

func newResource(serviceName string) (*resource.Resource, error) {
	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		),
	)
}

// Setup installs the global tracer and meter providers. Disabled signals keep
// the otel no-op defaults.
func Setup(cfg Config) (*Provider, error) {
	res, err := newResource(cfg.ServiceName)
	if err != nil {
		return nil, err
	}

	p := &Provider{}

	if cfg.MetricsEnabled {
		p.registry = promclient.NewRegistry()
		p.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		exp, err := prometheus.New(prometheus.WithRegisterer(p.registry))
		if err != nil {
			return nil, err
		}
		p.meter = metric.NewMeterProvider(metric.WithReader(exp), metric.WithResource(res))
		otel.SetMeterProvider(p.meter)
	}

	if cfg.TracingEnabled {
		out := cfg.TraceOutput
		if out == nil {
			out = os.Stdout
		}
		exp, err := stdouttrace.New(stdouttrace.WithWriter(out))
		if err != nil {
			return nil, err
		}
		p.tracer = trace.NewTracerProvider(
			trace.WithBatcher(exp),
			trace.WithResource(res),
		)
		otel.SetTracerProvider(p.tracer)
	}

	return p, nil
}

// MetricsEnabled reports whether /metrics has anything to serve
func (p *Provider) MetricsEnabled() bool {
	return p.registry != nil
}

// MetricsHandler serves the Prometheus exposition format
func (p *Provider) MetricsHandler() http.Handler {
	if p.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Shutdown flushes pending spans and stops the providers
func (p *Provider) Shutdown(ctx context.Context) error {
	var errs []error
	if p.tracer != nil {
		errs = append(errs, p.tracer.Shutdown(ctx))
	}
	if p.meter != nil {
		errs = append(errs, p.meter.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
