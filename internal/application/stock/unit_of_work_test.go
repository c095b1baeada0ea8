package stock_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Entregas-api/internal/application/stock"
	"github.com/jhoicas/Entregas-api/internal/domain"
	"github.com/jhoicas/Entregas-api/internal/domain/entity"
	"github.com/jhoicas/Entregas-api/internal/domain/repository"
	"github.com/jhoicas/Entregas-api/internal/infrastructure/memory"
	"github.com/jhoicas/Entregas-api/pkg/logger"
)

// bumpStock simula otro escritor confirmando sobre la fila del producto.
func bumpStock(t *testing.T, s *memory.Store, productID string, delta int64) {
	t.Helper()
	repos := s.Repos()
	st, err := repos.Stock.GetByProductID(context.Background(), productID)
	require.NoError(t, err)
	require.NotNil(t, st)
	st.Quantity += delta
	require.NoError(t, repos.Stock.Update(context.Background(), st))
}

func TestExecuteWithRetry_ReintentoEsTransparente(t *testing.T) {
	s := newStore(t, map[string]int64{"A": 10})
	var logs bytes.Buffer
	uow := stock.NewUnitOfWork(s, stock.UnitOfWorkConfig{MaxAttempts: 3}, logger.NewWithWriter(&logs, "warn"))
	l := stock.NewLedger()

	// El primer commit pierde contra un escritor que suma 5.
	s.SetBeforeCommit(func() {
		s.SetBeforeCommit(nil)
		bumpStock(t, s, "A", 5)
	})

	attempts := 0
	snaps, err := stock.ExecuteWithRetry(context.Background(), uow, func(ctx context.Context, repos repository.Repos) ([]entity.Stock, error) {
		attempts++
		return l.ApplyBulk(ctx, repos, "user-1", []stock.Operation{
			{ProductID: "A", Operation: entity.StockOperationRemove, Value: 4},
		})
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	require.Len(t, snaps, 1)
	assert.EqualValues(t, 11, snaps[0].Quantity, "el reintento relee la cantidad confirmada")

	h := s.HistoryOf("A")
	require.Len(t, h, 1, "el intento descartado no deja historial")
	assert.EqualValues(t, 15, h[0].QuantityBefore)
	assert.EqualValues(t, 11, h[0].QuantityAfter)
	assert.EqualValues(t, 11, quantity(t, s, "A"))
	assert.True(t, strings.Contains(logs.String(), `"attempt":1`), "se registra el conflicto")
}

func TestExecuteWithRetry_ErrorNoConflictoNoReintenta(t *testing.T) {
	s := newStore(t, map[string]int64{"A": 1})
	uow := stock.NewUnitOfWork(s, stock.UnitOfWorkConfig{MaxAttempts: 5}, nil)

	attempts := 0
	err := uow.Execute(context.Background(), func(ctx context.Context, repos repository.Repos) error {
		attempts++
		return domain.ErrInvalidInput
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, 1, attempts)
}

func TestExecuteWithRetry_AgotaIntentos(t *testing.T) {
	s := newStore(t, map[string]int64{"A": 10})
	uow := stock.NewUnitOfWork(s, stock.UnitOfWorkConfig{MaxAttempts: 3, Backoff: time.Millisecond}, nil)
	l := stock.NewLedger()

	// Cada commit pierde.
	s.SetBeforeCommit(func() { bumpStock(t, s, "A", 1) })
	defer s.SetBeforeCommit(nil)

	attempts := 0
	_, err := stock.ExecuteWithRetry(context.Background(), uow, func(ctx context.Context, repos repository.Repos) ([]entity.Stock, error) {
		attempts++
		return l.ApplyBulk(ctx, repos, "user-1", []stock.Operation{
			{ProductID: "A", Operation: entity.StockOperationRemove, Value: 1},
		})
	})

	var exhausted *domain.ConcurrencyExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 3, exhausted.Attempts)
	assert.Equal(t, 3, attempts)
	assert.Empty(t, s.HistoryOf("A"))
	assert.EqualValues(t, 13, quantity(t, s, "A"), "solo quedan las escrituras del otro escritor")
}

func TestExecuteWithRetry_ContextoCanceladoCortaEspera(t *testing.T) {
	s := newStore(t, map[string]int64{"A": 10})
	uow := stock.NewUnitOfWork(s, stock.UnitOfWorkConfig{MaxAttempts: 5, Backoff: time.Hour}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	err := uow.Execute(ctx, func(ctx context.Context, repos repository.Repos) error {
		cancel()
		return domain.ErrConcurrencyConflict
	})
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
}

func TestNewUnitOfWork_ValoresPorDefecto(t *testing.T) {
	s := memory.New()
	uow := stock.NewUnitOfWork(s, stock.UnitOfWorkConfig{}, nil)

	attempts := 0
	err := uow.Execute(context.Background(), func(ctx context.Context, repos repository.Repos) error {
		attempts++
		return domain.ErrConcurrencyConflict
	})
	assert.ErrorIs(t, err, domain.ErrConcurrencyExhausted)
	assert.Equal(t, stock.DefaultMaxAttempts, attempts)
}
