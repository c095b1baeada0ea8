package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/jhoicas/Entregas-api/internal/application/ports"
	"github.com/jhoicas/Entregas-api/internal/domain"
)

var _ ports.DurationRecorder = (*OperationRecorder)(nil)

// MetricOperationDuration nombre del histograma de operaciones.
const MetricOperationDuration = "entregas.operation.duration"

var durationBuckets = []float64{1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500}

// OperationRecorder implementa ports.DurationRecorder sobre un histograma.
// Atributos: operation y outcome (ok, rejected, conflict, error).
type OperationRecorder struct {
	h *Histogram
}

// NewOperationRecorder crea el histograma sobre meter.
func NewOperationRecorder(meter metric.Meter) (*OperationRecorder, error) {
	h, err := NewHistogram(meter, MetricOperationDuration, "Duración de operaciones de stock y entregas", durationBuckets)
	if err != nil {
		return nil, err
	}
	return &OperationRecorder{h: h}, nil
}

// RecordOperation registra la duración; nunca falla.
func (r *OperationRecorder) RecordOperation(ctx context.Context, operation string, d time.Duration, err error) {
	r.h.RecordDuration(context.WithoutCancel(ctx), d,
		attribute.String("operation", operation),
		attribute.String("outcome", outcome(err)),
	)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrConcurrencyExhausted):
		return "conflict"
	}
	if _, ok := domain.MessageOf(err); ok {
		return "rejected"
	}
	return "error"
}
