package repository

import (
	"context"

	"github.com/jhoicas/Entregas-api/internal/domain/entity"
)

// ProductRepository puerto de solo lectura sobre el catálogo de productos.
type ProductRepository interface {
	// GetByIDs devuelve los productos existentes entre ids.
	GetByIDs(ctx context.Context, ids []string) ([]*entity.Product, error)
	// ListTrackedWithoutStock devuelve los productos con seguimiento que aún no tienen fila de stock.
	ListTrackedWithoutStock(ctx context.Context) ([]*entity.Product, error)
}
