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

var _ repository.DeliveryRepository = (*DeliveryRepo)(nil)

// DeliveryRepo entregas y sus líneas sobre PostgreSQL. Create y ReplaceLines deben ir en una tx.
type DeliveryRepo struct {
	q Querier
}

// NewDeliveryRepository construye el adaptador de entregas.
func NewDeliveryRepository(q Querier) *DeliveryRepo {
	return &DeliveryRepo{q: q}
}

const deliveryColumns = `id, state, from_user_id, client_id, message, notices, version, created_at, updated_at`

// Create inserta la entrega y sus líneas.
func (r *DeliveryRepo) Create(ctx context.Context, d *entity.Delivery) error {
	if d.Version == 0 {
		d.Version = 1
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO deliveries (`+deliveryColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		d.ID, string(d.State), d.FromUserID, d.ClientID, d.Message, notices(d.Notices), d.Version, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return wrap("insert delivery", err)
	}
	return r.insertLines(ctx, d.ID, d.Lines)
}

// GetByID obtiene la entrega con sus líneas; nil si no existe.
func (r *DeliveryRepo) GetByID(ctx context.Context, id string) (*entity.Delivery, error) {
	d, err := scanDelivery(r.q.QueryRow(ctx, `SELECT `+deliveryColumns+` FROM deliveries WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrap("get delivery", err)
	}
	if err := r.loadLines(ctx, []*entity.Delivery{d}); err != nil {
		return nil, err
	}
	return d, nil
}

// ListByUser entregas del remitente, más recientes primero.
func (r *DeliveryRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*entity.Delivery, error) {
	return r.list(ctx, `SELECT `+deliveryColumns+` FROM deliveries WHERE from_user_id = $1
		ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`, userID, limit, offset)
}

// ListAll todas las entregas, más recientes primero.
func (r *DeliveryRepo) ListAll(ctx context.Context, limit, offset int) ([]*entity.Delivery, error) {
	return r.list(ctx, `SELECT `+deliveryColumns+` FROM deliveries
		ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`, limit, offset)
}

func (r *DeliveryRepo) list(ctx context.Context, query string, args ...any) ([]*entity.Delivery, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, wrap("list deliveries", err)
	}
	defer rows.Close()

	var out []*entity.Delivery
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list deliveries", err)
	}
	if err := r.loadLines(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update escribe la cabecera con compare-and-swap sobre version.
func (r *DeliveryRepo) Update(ctx context.Context, d *entity.Delivery) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE deliveries
		SET state = $3, from_user_id = $4, message = $5, notices = $6, updated_at = $7, version = version + 1
		WHERE id = $1 AND version = $2`,
		d.ID, d.Version, string(d.State), d.FromUserID, d.Message, notices(d.Notices), d.UpdatedAt,
	)
	if err != nil {
		return wrap("update delivery", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update delivery %s v%d: %w", d.ID, d.Version, domain.ErrConcurrencyConflict)
	}
	d.Version++
	return nil
}

// ReplaceLines borra las líneas actuales e inserta las nuevas.
func (r *DeliveryRepo) ReplaceLines(ctx context.Context, deliveryID string, lines []entity.DeliveryLine) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM delivery_lines WHERE delivery_id = $1`, deliveryID); err != nil {
		return wrap("delete delivery lines", err)
	}
	return r.insertLines(ctx, deliveryID, lines)
}

// Delete borra la entrega; las líneas caen por ON DELETE CASCADE.
func (r *DeliveryRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM deliveries WHERE id = $1`, id)
	if err != nil {
		return wrap("delete delivery", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDeliveryNotFound
	}
	return nil
}

func (r *DeliveryRepo) insertLines(ctx context.Context, deliveryID string, lines []entity.DeliveryLine) error {
	for _, l := range lines {
		_, err := r.q.Exec(ctx, `
			INSERT INTO delivery_lines (id, delivery_id, product_id, quantity) VALUES ($1, $2, $3, $4)`,
			l.ID, deliveryID, l.ProductID, l.Quantity,
		)
		if err != nil {
			return wrap("insert delivery line", err)
		}
	}
	return nil
}

// loadLines carga las líneas de todas las entregas en una sola consulta.
func (r *DeliveryRepo) loadLines(ctx context.Context, deliveries []*entity.Delivery) error {
	if len(deliveries) == 0 {
		return nil
	}
	byID := make(map[string]*entity.Delivery, len(deliveries))
	ids := make([]string, 0, len(deliveries))
	for _, d := range deliveries {
		byID[d.ID] = d
		ids = append(ids, d.ID)
	}
	rows, err := r.q.Query(ctx, `
		SELECT id, delivery_id, product_id, quantity FROM delivery_lines
		WHERE delivery_id = ANY($1) ORDER BY product_id`, ids)
	if err != nil {
		return wrap("get delivery lines", err)
	}
	defer rows.Close()
	for rows.Next() {
		var l entity.DeliveryLine
		if err := rows.Scan(&l.ID, &l.DeliveryID, &l.ProductID, &l.Quantity); err != nil {
			return fmt.Errorf("scan delivery line: %w", err)
		}
		d := byID[l.DeliveryID]
		d.Lines = append(d.Lines, l)
	}
	return rows.Err()
}

func scanDelivery(row pgx.Row) (*entity.Delivery, error) {
	var d entity.Delivery
	var state string
	if err := row.Scan(&d.ID, &state, &d.FromUserID, &d.ClientID, &d.Message, &d.Notices, &d.Version, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	d.State = entity.DeliveryState(state)
	return &d, nil
}

// notices evita escribir NULL en la columna text[].
func notices(n []string) []string {
	if n == nil {
		return []string{}
	}
	return n
}
