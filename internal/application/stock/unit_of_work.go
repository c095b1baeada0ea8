package stock

import (
	"context"
	"errors"
	"time"

	"github.com/jhoicas/Entregas-api/internal/domain"
	"github.com/jhoicas/Entregas-api/internal/domain/repository"
	"github.com/jhoicas/Entregas-api/pkg/logger"
)

// Valores por defecto de la unidad de trabajo.
const (
	DefaultMaxAttempts  = 4
	DefaultRetryBackoff = 10 * time.Millisecond
)

// UnitOfWorkConfig límites de reintento.
type UnitOfWorkConfig struct {
	MaxAttempts int           // intentos totales (>= 1)
	Backoff     time.Duration // espera base; el intento n espera n*Backoff
}

// UnitOfWork ejecuta trabajo transaccional reintentando desde cero ante conflictos de versión.
type UnitOfWork struct {
	tx          TxRunner
	maxAttempts int
	backoff     time.Duration
	log         *logger.Logger
}

// NewUnitOfWork construye la unidad de trabajo sobre un TxRunner (PostgreSQL o memoria).
func NewUnitOfWork(tx TxRunner, cfg UnitOfWorkConfig, log *logger.Logger) *UnitOfWork {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Backoff < 0 {
		cfg.Backoff = 0
	}
	if log == nil {
		log = logger.Nop()
	}
	return &UnitOfWork{tx: tx, maxAttempts: cfg.MaxAttempts, backoff: cfg.Backoff, log: log}
}

// Execute variante sin valor de retorno de ExecuteWithRetry.
func (u *UnitOfWork) Execute(ctx context.Context, work func(ctx context.Context, repos repository.Repos) error) error {
	_, err := ExecuteWithRetry(ctx, u, func(ctx context.Context, repos repository.Repos) (struct{}, error) {
		return struct{}{}, work(ctx, repos)
	})
	return err
}

// ExecuteWithRetry invoca work dentro de una transacción nueva en cada intento.
//
// work debe hacer todas sus lecturas a través de repos: en un reintento se releen contra el
// estado confirmado por el otro escritor. Un intento fallido se descarta por completo (rollback),
// así que el llamador solo observa el resultado final. Errores distintos de
// domain.ErrConcurrencyConflict se devuelven sin reintentar.
func ExecuteWithRetry[T any](ctx context.Context, u *UnitOfWork, work func(ctx context.Context, repos repository.Repos) (T, error)) (T, error) {
	var zero T
	for attempt := 1; attempt <= u.maxAttempts; attempt++ {
		var result T
		err := u.tx.Run(ctx, func(repos repository.Repos) error {
			r, err := work(ctx, repos)
			if err != nil {
				return err
			}
			result = r
			return nil
		})
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, domain.ErrConcurrencyConflict) {
			return zero, err
		}

		u.log.Warn().
			Int("attempt", attempt).
			Int("max_attempts", u.maxAttempts).
			Err(err).
			Msg("conflicto de concurrencia, reintentando unidad de trabajo")

		if attempt == u.maxAttempts {
			break
		}
		if err := u.wait(ctx, attempt); err != nil {
			return zero, err
		}
	}
	return zero, &domain.ConcurrencyExhaustedError{Attempts: u.maxAttempts}
}

func (u *UnitOfWork) wait(ctx context.Context, attempt int) error {
	if u.backoff == 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(time.Duration(attempt) * u.backoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
