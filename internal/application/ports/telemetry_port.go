package ports

import (
	"context"
	"time"
)

// DurationRecorder registra la duración de una operación (fire-and-forget).
// Nunca debe alterar el flujo de control ni la semántica de error del llamador.
type DurationRecorder interface {
	RecordOperation(ctx context.Context, operation string, d time.Duration, err error)
}

// NopRecorder descarta las mediciones.
type NopRecorder struct{}

// RecordOperation no hace nada.
func (NopRecorder) RecordOperation(context.Context, string, time.Duration, error) {}
