package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/Entregas-api/internal/domain/entity"
	"github.com/jhoicas/Entregas-api/internal/domain/repository"
)

var _ repository.ProductRepository = (*ProductRepo)(nil)

// ProductRepo implementación del puerto ProductRepository sobre PostgreSQL (usable con pool o tx).
type ProductRepo struct {
	q Querier
}

// NewProductRepository construye el adaptador de persistencia para productos. Pasar pool o tx (Querier).
func NewProductRepository(q Querier) *ProductRepo {
	return &ProductRepo{q: q}
}

// GetByIDs obtiene los productos existentes entre ids.
func (r *ProductRepo) GetByIDs(ctx context.Context, ids []string) ([]*entity.Product, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, sku, name, track_stock FROM products WHERE id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return nil, wrap("get products", err)
	}
	return collectProducts(rows)
}

// ListTrackedWithoutStock productos con seguimiento sin fila en stocks.
func (r *ProductRepo) ListTrackedWithoutStock(ctx context.Context) ([]*entity.Product, error) {
	rows, err := r.q.Query(ctx, `
		SELECT p.id, p.sku, p.name, p.track_stock
		FROM products p
		LEFT JOIN stocks s ON s.product_id = p.id
		WHERE p.track_stock AND s.id IS NULL
		ORDER BY p.id`)
	if err != nil {
		return nil, wrap("list products without stock", err)
	}
	return collectProducts(rows)
}

func collectProducts(rows pgx.Rows) ([]*entity.Product, error) {
	defer rows.Close()
	var out []*entity.Product
	for rows.Next() {
		var p entity.Product
		if err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.TrackStock); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}
