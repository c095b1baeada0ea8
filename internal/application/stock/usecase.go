package stock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/Entregas-api/internal/application/dto"
	"github.com/jhoicas/Entregas-api/internal/application/ports"
	"github.com/jhoicas/Entregas-api/internal/domain"
	"github.com/jhoicas/Entregas-api/internal/domain/entity"
	"github.com/jhoicas/Entregas-api/internal/domain/repository"
	"github.com/jhoicas/Entregas-api/pkg/logger"
)

// Nombres de operación para telemetría.
const (
	OpBulkUpdate = "stock.bulk_update"
	OpBackfill   = "stock.backfill"
)

// StockUseCase casos de uso de stock: actualización masiva, lectura, historial y backfill.
type StockUseCase struct {
	uow         *UnitOfWork
	ledger      *Ledger
	stockRepo   repository.StockRepository
	historyRepo repository.StockHistoryRepository
	cache       SnapshotCache
	recorder    ports.DurationRecorder
	log         *logger.Logger
}

// NewStockUseCase construye el caso de uso. stockRepo e historyRepo son de lectura (pool);
// cache y recorder pueden ser nil.
func NewStockUseCase(
	uow *UnitOfWork,
	ledger *Ledger,
	stockRepo repository.StockRepository,
	historyRepo repository.StockHistoryRepository,
	cache SnapshotCache,
	recorder ports.DurationRecorder,
	log *logger.Logger,
) *StockUseCase {
	if recorder == nil {
		recorder = ports.NopRecorder{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &StockUseCase{
		uow:         uow,
		ledger:      ledger,
		stockRepo:   stockRepo,
		historyRepo: historyRepo,
		cache:       cache,
		recorder:    recorder,
		log:         log,
	}
}

// BulkUpdate aplica el lote en una unidad de trabajo con reintentos y devuelve los snapshots.
func (uc *StockUseCase) BulkUpdate(ctx context.Context, userID string, in []dto.StockOperationRequest) (resp []dto.StockResponse, err error) {
	start := time.Now()
	defer func() { uc.recorder.RecordOperation(ctx, OpBulkUpdate, time.Since(start), err) }()

	if userID == "" {
		return nil, domain.ErrUnauthorizedAccess
	}
	ops := make([]Operation, 0, len(in))
	for _, o := range in {
		ops = append(ops, Operation{
			ProductID: o.ProductID,
			Operation: entity.StockOperation(o.Operation),
			Value:     o.Value,
			Reference: o.Reference,
			Notes:     o.Notes,
		})
	}

	snapshots, err := ExecuteWithRetry(ctx, uc.uow, func(ctx context.Context, repos repository.Repos) ([]entity.Stock, error) {
		return uc.ledger.ApplyBulk(ctx, repos, userID, ops)
	})
	if err != nil {
		return nil, err
	}

	uc.refreshCache(ctx, snapshots)
	uc.log.Info().Str("user_id", userID).Int("products", len(snapshots)).Msg("actualización masiva de stock aplicada")
	return toStockResponses(snapshots), nil
}

// GetStock devuelve el stock de un producto para visualización (primero caché, luego BD).
func (uc *StockUseCase) GetStock(ctx context.Context, productID string) (*dto.StockResponse, error) {
	if productID == "" {
		return nil, domain.ErrInvalidInput
	}
	if uc.cache != nil {
		if s, err := uc.cache.Get(ctx, productID); err == nil && s != nil {
			r := toStockResponse(*s)
			return &r, nil
		} else if err != nil {
			uc.log.Warn().Err(err).Str("product_id", productID).Msg("lectura de caché de stock")
		}
	}
	s, err := uc.stockRepo.GetByProductID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, &domain.UnknownStockError{ProductIDs: []string{productID}}
	}
	uc.refreshCache(ctx, []entity.Stock{*s})
	r := toStockResponse(*s)
	return &r, nil
}

// History lista el historial de un producto, más reciente primero.
func (uc *StockUseCase) History(ctx context.Context, productID string, page dto.PageRequest) ([]dto.StockHistoryResponse, error) {
	if productID == "" {
		return nil, domain.ErrInvalidInput
	}
	page.Normalize()
	entries, err := uc.historyRepo.ListByProduct(ctx, productID, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	out := make([]dto.StockHistoryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, dto.StockHistoryResponse{
			ID:             e.ID,
			ProductID:      e.ProductID,
			UserID:         e.UserID,
			Operation:      string(e.Operation),
			Value:          e.Value,
			QuantityBefore: e.QuantityBefore,
			QuantityAfter:  e.QuantityAfter,
			Reference:      e.Reference,
			Notes:          e.Notes,
			CreatedAt:      e.CreatedAt,
		})
	}
	return out, nil
}

// Backfill crea filas de stock en 0 para los productos con seguimiento que aún no tienen una.
// Es idempotente; devuelve cuántas filas se crearon.
func (uc *StockUseCase) Backfill(ctx context.Context) (created int, err error) {
	start := time.Now()
	defer func() { uc.recorder.RecordOperation(ctx, OpBackfill, time.Since(start), err) }()

	created, err = ExecuteWithRetry(ctx, uc.uow, func(ctx context.Context, repos repository.Repos) (int, error) {
		products, err := repos.Product.ListTrackedWithoutStock(ctx)
		if err != nil {
			return 0, err
		}
		now := time.Now()
		for _, p := range products {
			if err := repos.Stock.Create(ctx, &entity.Stock{
				ID:        uuid.New().String(),
				ProductID: p.ID,
				Quantity:  0,
				UpdatedAt: now,
			}); err != nil {
				return 0, err
			}
		}
		return len(products), nil
	})
	if err != nil {
		return 0, err
	}
	if created > 0 {
		uc.log.Info().Int("created", created).Msg("backfill de stock completado")
	}
	return created, nil
}

func (uc *StockUseCase) refreshCache(ctx context.Context, snapshots []entity.Stock) {
	RefreshCache(ctx, uc.cache, snapshots, uc.log)
}

func toStockResponse(s entity.Stock) dto.StockResponse {
	return dto.StockResponse{
		ID:        s.ID,
		ProductID: s.ProductID,
		Quantity:  s.Quantity,
		Version:   s.Version,
		UpdatedAt: s.UpdatedAt,
	}
}

func toStockResponses(stocks []entity.Stock) []dto.StockResponse {
	out := make([]dto.StockResponse, 0, len(stocks))
	for _, s := range stocks {
		out = append(out, toStockResponse(s))
	}
	return out
}
