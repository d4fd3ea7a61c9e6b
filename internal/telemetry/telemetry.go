package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/WailSalutem-Health-Care/appointment-service/internal/config"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Config holds OpenTelemetry configuration
type Config struct {
	ServiceName      string
	ServiceNamespace string
	ServiceVersion   string
	Environment      string
	OTLPEndpoint     string
	TracesSampler    string
	MetricsInterval  time.Duration
}

// ConfigFrom picks the OTEL_* settings out of the service config. An
// empty endpoint disables export.
func ConfigFrom(cfg *config.Config) Config {
	interval := cfg.OTELMetricsInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return Config{
		ServiceName:      cfg.OTELServiceName,
		ServiceNamespace: cfg.OTELServiceNS,
		ServiceVersion:   cfg.OTELServiceVersion,
		Environment:      cfg.Env,
		OTLPEndpoint:     cfg.OTELEndpoint,
		TracesSampler:    cfg.OTELTracesSampler,
		MetricsInterval:  interval,
	}
}

// Provider holds the OpenTelemetry providers
type Provider struct {
	TracerProvider *trace.TracerProvider
	MeterProvider  *metric.MeterProvider
}

// InitProvider installs global tracer and meter providers. A collector that
// cannot be reached is logged and the service carries on without export.
func InitProvider(ctx context.Context, cfg Config) (*Provider, error) {
	p := &Provider{}
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	if cfg.OTLPEndpoint == "" {
		log.Info().Msg("OpenTelemetry export disabled")
		return p, nil
	}

	log.Info().Str("endpoint", cfg.OTLPEndpoint).Msg("initializing OpenTelemetry")

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceNamespace(cfg.ServiceNamespace),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	if tp, err := initTracerProvider(ctx, cfg, res); err != nil {
		log.Warn().Err(err).Msg("continuing without distributed tracing")
	} else {
		otel.SetTracerProvider(tp)
		p.TracerProvider = tp
	}

	if mp, err := initMeterProvider(ctx, cfg, res); err != nil {
		log.Warn().Err(err).Msg("continuing without metrics export")
	} else {
		otel.SetMeterProvider(mp)
		p.MeterProvider = mp
	}

	return p, nil
}

// Sampler maps OTEL_TRACES_SAMPLER onto an SDK sampler. Unknown names
// sample everything.
func Sampler(name string) trace.Sampler {
	switch name {
	case "always_off":
		return trace.NeverSample()
	case "traceidratio":
		return trace.TraceIDRatioBased(0.1)
	case "parentbased_always_on":
		return trace.ParentBased(trace.AlwaysSample())
	}
	return trace.AlwaysSample()
}

func initTracerProvider(ctx context.Context, cfg Config, res *resource.Resource) (*trace.TracerProvider, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	traceExporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		otlptracegrpc.WithTimeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	return trace.NewTracerProvider(
		trace.WithResource(res),
		trace.WithSampler(Sampler(cfg.TracesSampler)),
		trace.WithBatcher(traceExporter,
			trace.WithBatchTimeout(5*time.Second),
			trace.WithMaxExportBatchSize(512),
		),
	), nil
}

func initMeterProvider(ctx context.Context, cfg Config, res *resource.Resource) (*metric.MeterProvider, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	metricExporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlpmetricgrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		otlpmetricgrpc.WithTimeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metric exporter: %w", err)
	}

	return metric.NewMeterProvider(
		metric.WithResource(res),
		metric.WithReader(metric.NewPeriodicReader(metricExporter,
			metric.WithInterval(cfg.MetricsInterval),
		)),
	), nil
}

// Shutdown flushes and stops whichever providers were started.
func (p *Provider) Shutdown(ctx context.Context) error {
	var errs []error
	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider: %w", err))
		}
	}
	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		log.Error().Err(err).Msg("OpenTelemetry shutdown failed")
		return err
	}
	return nil
}
