package repository

import (
	"context"

	"github.com/jhoicas/Entregas-api/internal/domain/entity"
)

// StockRepository define el puerto para consultar/actualizar stock por producto.
// Las escrituras usan control de concurrencia optimista sobre Version.
type StockRepository interface {
	// GetByProductIDs devuelve las filas existentes; los productos sin fila simplemente no aparecen.
	GetByProductIDs(ctx context.Context, productIDs []string) ([]*entity.Stock, error)
	// GetByProductID devuelve nil, nil si el producto no tiene fila de stock.
	GetByProductID(ctx context.Context, productID string) (*entity.Stock, error)
	Create(ctx context.Context, stock *entity.Stock) error
	// Update escribe si la versión almacenada coincide con stock.Version; en ese caso la incrementa
	// en stock. Si no coincide devuelve domain.ErrConcurrencyConflict.
	Update(ctx context.Context, stock *entity.Stock) error
}

// StockHistoryRepository define el puerto del historial append-only de stock.
type StockHistoryRepository interface {
	Create(ctx context.Context, entry *entity.StockHistoryEntry) error
	// ListByProduct devuelve el historial del producto, más reciente primero.
	ListByProduct(ctx context.Context, productID string, limit, offset int) ([]*entity.StockHistoryEntry, error)
}
