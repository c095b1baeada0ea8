package stock

import (
	"context"

	"github.com/jhoicas/Entregas-api/internal/domain/entity"
	"github.com/jhoicas/Entregas-api/internal/domain/repository"
	"github.com/jhoicas/Entregas-api/pkg/logger"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Si fn devuelve error se hace rollback; si no, commit. Un conflicto de versión detectado al escribir
// o al confirmar se reporta como domain.ErrConcurrencyConflict.
type TxRunner interface {
	Run(ctx context.Context, fn func(repos repository.Repos) error) error
}

// SnapshotCache caché de lectura de stock para pantallas. Puede estar desactualizada;
// nunca se usa para decidir una mutación.
type SnapshotCache interface {
	Put(ctx context.Context, stocks []entity.Stock) error
	// Get devuelve nil, nil si no hay entrada.
	Get(ctx context.Context, productID string) (*entity.Stock, error)
	Invalidate(ctx context.Context, productID string) error
}

// RefreshCache escribe snapshots ya confirmados. Si la escritura falla se borran las entradas
// de esos productos para no seguir sirviendo una versión vieja; nada de esto falla la operación.
func RefreshCache(ctx context.Context, cache SnapshotCache, snapshots []entity.Stock, log *logger.Logger) {
	if cache == nil || len(snapshots) == 0 {
		return
	}
	if err := cache.Put(ctx, snapshots); err != nil {
		log.Warn().Err(err).Msg("actualizar caché de stock")
		for _, s := range snapshots {
			if err := cache.Invalidate(ctx, s.ProductID); err != nil {
				log.Warn().Err(err).Str("product_id", s.ProductID).Msg("invalidar caché de stock")
			}
		}
	}
}
