package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/Entregas-api/internal/domain"
	"github.com/jhoicas/Entregas-api/internal/domain/entity"
	"github.com/jhoicas/Entregas-api/internal/domain/repository"
)

var _ repository.StockRepository = (*StockRepo)(nil)

// StockRepo implementación de StockRepository sobre PostgreSQL (usable con pool o tx).
type StockRepo struct {
	q Querier
}

// NewStockRepository construye el adaptador de stock. Pasar pool o tx (Querier).
func NewStockRepository(q Querier) *StockRepo {
	return &StockRepo{q: q}
}

const stockColumns = `id, product_id, quantity, version, updated_at`

// GetByProductIDs obtiene las filas existentes de los productos dados.
func (r *StockRepo) GetByProductIDs(ctx context.Context, productIDs []string) ([]*entity.Stock, error) {
	rows, err := r.q.Query(ctx, `SELECT `+stockColumns+` FROM stocks WHERE product_id = ANY($1) ORDER BY product_id`, productIDs)
	if err != nil {
		return nil, wrap("get stocks", err)
	}
	defer rows.Close()

	var out []*entity.Stock
	for rows.Next() {
		var s entity.Stock
		if err := rows.Scan(&s.ID, &s.ProductID, &s.Quantity, &s.Version, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan stock: %w", err)
		}
		out = append(out, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("get stocks", err)
	}
	return out, nil
}

// GetByProductID obtiene la fila de un producto; nil si no existe.
func (r *StockRepo) GetByProductID(ctx context.Context, productID string) (*entity.Stock, error) {
	var s entity.Stock
	err := r.q.QueryRow(ctx, `SELECT `+stockColumns+` FROM stocks WHERE product_id = $1`, productID).Scan(
		&s.ID, &s.ProductID, &s.Quantity, &s.Version, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrap("get stock", err)
	}
	return &s, nil
}

// Create inserta la fila con versión 1. Una fila duplicada cuenta como conflicto (otro escritor ganó).
func (r *StockRepo) Create(ctx context.Context, stock *entity.Stock) error {
	if stock.Version == 0 {
		stock.Version = 1
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO stocks (id, product_id, quantity, version, updated_at)
		VALUES ($1, $2, $3, $4, $5)`,
		stock.ID, stock.ProductID, stock.Quantity, stock.Version, stock.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert stock %s: %w", stock.ProductID, domain.ErrConcurrencyConflict)
		}
		return wrap("insert stock", err)
	}
	return nil
}

// Update escribe cantidad con compare-and-swap sobre version.
func (r *StockRepo) Update(ctx context.Context, stock *entity.Stock) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE stocks SET quantity = $3, version = version + 1, updated_at = $4
		WHERE product_id = $1 AND version = $2`,
		stock.ProductID, stock.Version, stock.Quantity, stock.UpdatedAt,
	)
	if err != nil {
		return wrap("update stock", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update stock %s v%d: %w", stock.ProductID, stock.Version, domain.ErrConcurrencyConflict)
	}
	stock.Version++
	return nil
}

var _ repository.StockHistoryRepository = (*StockHistoryRepo)(nil)

// StockHistoryRepo historial append-only de stock.
type StockHistoryRepo struct {
	q Querier
}

// NewStockHistoryRepository construye el adaptador de historial.
func NewStockHistoryRepository(q Querier) *StockHistoryRepo {
	return &StockHistoryRepo{q: q}
}

// Create inserta una entrada de historial.
func (r *StockHistoryRepo) Create(ctx context.Context, e *entity.StockHistoryEntry) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO stock_history (id, stock_id, product_id, user_id, operation, value, quantity_before, quantity_after, reference, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		e.ID, e.StockID, e.ProductID, e.UserID, string(e.Operation), e.Value,
		e.QuantityBefore, e.QuantityAfter, e.Reference, e.Notes, e.CreatedAt,
	)
	if err != nil {
		return wrap("insert stock history", err)
	}
	return nil
}

// ListByProduct historial del producto, más reciente primero.
func (r *StockHistoryRepo) ListByProduct(ctx context.Context, productID string, limit, offset int) ([]*entity.StockHistoryEntry, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, stock_id, product_id, user_id, operation, value, quantity_before, quantity_after, reference, notes, created_at
		FROM stock_history WHERE product_id = $1
		ORDER BY seq DESC
		LIMIT $2 OFFSET $3`, productID, limit, offset)
	if err != nil {
		return nil, wrap("list stock history", err)
	}
	defer rows.Close()

	var out []*entity.StockHistoryEntry
	for rows.Next() {
		var e entity.StockHistoryEntry
		var op string
		if err := rows.Scan(&e.ID, &e.StockID, &e.ProductID, &e.UserID, &op, &e.Value,
			&e.QuantityBefore, &e.QuantityAfter, &e.Reference, &e.Notes, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan stock history: %w", err)
		}
		e.Operation = entity.StockOperation(op)
		out = append(out, &e)
	}
	return out, rows.Err()
}
