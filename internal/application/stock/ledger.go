package stock

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/Entregas-api/internal/domain"
	"github.com/jhoicas/Entregas-api/internal/domain/entity"
	"github.com/jhoicas/Entregas-api/internal/domain/repository"
)

// Operation una operación del lote. Reference y Notes son opcionales y se copian al historial.
type Operation struct {
	ProductID string
	Operation entity.StockOperation
	Value     int64
	Reference string
	Notes     string
}

// Ledger es el único componente que escribe filas de stock. Garantiza cantidad >= 0 y
// deja una entrada de historial por operación aplicada.
type Ledger struct {
	now func() time.Time
}

// NewLedger construye el ledger.
func NewLedger() *Ledger {
	return &Ledger{now: time.Now}
}

// ApplyBulk aplica el lote completo o nada, usando repos de la transacción en curso.
//
// El lote se evalúa en una sola pasada sobre un mapa en memoria de las cantidades leídas al
// inicio; si alguna operación deja un producto en negativo no se escribe ninguna fila.
// Devuelve los snapshots actualizados ordenados por producto.
func (l *Ledger) ApplyBulk(ctx context.Context, repos repository.Repos, userID string, ops []Operation) ([]entity.Stock, error) {
	pending, err := filterOperations(ops)
	if err != nil {
		return nil, err
	}

	productIDs := uniqueProductIDs(pending)
	rows, err := repos.Stock.GetByProductIDs(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	stocks := make(map[string]*entity.Stock, len(rows))
	for _, s := range rows {
		stocks[s.ProductID] = s
	}
	var missing []string
	for _, id := range productIDs {
		if _, ok := stocks[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return nil, &domain.UnknownStockError{ProductIDs: missing}
	}

	// Evaluación en memoria: ninguna escritura hasta validar el lote entero.
	quantities := make(map[string]int64, len(stocks))
	for id, s := range stocks {
		quantities[id] = s.Quantity
	}
	now := l.now()
	entries := make([]*entity.StockHistoryEntry, 0, len(pending))
	for _, op := range pending {
		before := quantities[op.ProductID]
		if op.Operation == entity.StockOperationAdd && before > math.MaxInt64-op.Value {
			return nil, domain.ErrInvalidInput
		}
		after := op.Operation.Apply(before, op.Value)
		if after < 0 {
			return nil, l.insufficient(ctx, repos, op, before)
		}
		quantities[op.ProductID] = after
		entries = append(entries, &entity.StockHistoryEntry{
			ID:             uuid.New().String(),
			StockID:        stocks[op.ProductID].ID,
			ProductID:      op.ProductID,
			UserID:         userID,
			Operation:      op.Operation,
			Value:          op.Value,
			QuantityBefore: before,
			QuantityAfter:  after,
			Reference:      op.Reference,
			Notes:          op.Notes,
			CreatedAt:      now,
		})
	}

	// Escritura: una vez por fila (orden estable para reducir interbloqueos), luego el historial.
	snapshots := make([]entity.Stock, 0, len(productIDs))
	for _, id := range productIDs {
		s := stocks[id]
		s.Quantity = quantities[id]
		s.UpdatedAt = now
		if err := repos.Stock.Update(ctx, s); err != nil {
			return nil, err
		}
		snapshots = append(snapshots, *s)
	}
	for _, e := range entries {
		if err := repos.History.Create(ctx, e); err != nil {
			return nil, err
		}
	}
	return snapshots, nil
}

// insufficient arma el error tipado con el nombre del producto (si se puede resolver).
func (l *Ledger) insufficient(ctx context.Context, repos repository.Repos, op Operation, current int64) error {
	e := &domain.InsufficientStockError{ProductID: op.ProductID, Current: current, Requested: op.Value}
	if repos.Product != nil {
		if products, err := repos.Product.GetByIDs(ctx, []string{op.ProductID}); err == nil && len(products) == 1 {
			e.ProductName = products[0].Name
		}
	}
	return e
}

// filterOperations valida el lote y descarta las operaciones sin efecto (valor 0 salvo SET).
func filterOperations(ops []Operation) ([]Operation, error) {
	pending := make([]Operation, 0, len(ops))
	for _, op := range ops {
		if op.ProductID == "" || !op.Operation.IsValid() || op.Value < 0 {
			return nil, domain.ErrInvalidInput
		}
		if op.Value == 0 && op.Operation != entity.StockOperationSet {
			continue
		}
		pending = append(pending, op)
	}
	if len(pending) == 0 {
		return nil, domain.ErrEmptyBatch
	}
	return pending, nil
}

func uniqueProductIDs(ops []Operation) []string {
	seen := make(map[string]struct{}, len(ops))
	ids := make([]string, 0, len(ops))
	for _, op := range ops {
		if _, ok := seen[op.ProductID]; ok {
			continue
		}
		seen[op.ProductID] = struct{}{}
		ids = append(ids, op.ProductID)
	}
	sort.Strings(ids)
	return ids
}
