// Package telemetry mide la duración de las operaciones de stock y entregas con OpenTelemetry.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"

	"github.com/jhoicas/Entregas-api/pkg/logger"
)

// MetricsConfig configuración del exportador OTLP.
type MetricsConfig struct {
	Enabled           bool
	CollectorEndpoint string
	ExportInterval    time.Duration // 60s por defecto
	ServiceName       string
	Insecure          bool
}

// MeterProvider envuelve el provider del SDK con su ciclo de vida.
type MeterProvider struct {
	provider *sdkmetric.MeterProvider
	log      *logger.Logger
}

// NewMeterProvider crea el provider OTLP/gRPC. Deshabilitado usa el meter global (no-op).
func NewMeterProvider(ctx context.Context, cfg MetricsConfig, log *logger.Logger) (*MeterProvider, error) {
	mp := &MeterProvider{log: log}
	if !cfg.Enabled {
		log.Info().Msg("métricas deshabilitadas")
		return mp, nil
	}
	interval := cfg.ExportInterval
	if interval == 0 {
		interval = 60 * time.Second
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.CollectorEndpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("otlp metrics exporter: %w", err)
	}
	res, err := resource.Merge(resource.Default(),
		resource.NewSchemaless(attribute.String("service.name", cfg.ServiceName)))
	if err != nil {
		return nil, fmt.Errorf("otel resource: %w", err)
	}

	mp.provider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
	)
	otel.SetMeterProvider(mp.provider)
	log.Info().Str("endpoint", cfg.CollectorEndpoint).Dur("interval", interval).Msg("métricas OTLP habilitadas")
	return mp, nil
}

// Meter devuelve un meter con nombre.
func (mp *MeterProvider) Meter(name string) metric.Meter {
	if mp.provider == nil {
		return otel.GetMeterProvider().Meter(name)
	}
	return mp.provider.Meter(name)
}

// Shutdown vacía y cierra el exportador.
func (mp *MeterProvider) Shutdown(ctx context.Context) error {
	if mp.provider == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := mp.provider.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown meter provider: %w", err)
	}
	return nil
}

// Histogram histograma de duraciones en milisegundos.
type Histogram struct {
	histogram metric.Float64Histogram
}

// NewHistogram crea el histograma con los límites dados (nil usa los del SDK).
func NewHistogram(meter metric.Meter, name, description string, boundaries []float64) (*Histogram, error) {
	opts := []metric.Float64HistogramOption{
		metric.WithDescription(description),
		metric.WithUnit("ms"),
	}
	if len(boundaries) > 0 {
		opts = append(opts, metric.WithExplicitBucketBoundaries(boundaries...))
	}
	h, err := meter.Float64Histogram(name, opts...)
	if err != nil {
		return nil, fmt.Errorf("histogram %s: %w", name, err)
	}
	return &Histogram{histogram: h}, nil
}

// RecordDuration registra d en milisegundos.
func (h *Histogram) RecordDuration(ctx context.Context, d time.Duration, attrs ...attribute.KeyValue) {
	h.histogram.Record(ctx, float64(d)/float64(time.Millisecond), metric.WithAttributes(attrs...))
}
