package delivery_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Entregas-api/internal/application/delivery"
	"github.com/jhoicas/Entregas-api/internal/application/dto"
	"github.com/jhoicas/Entregas-api/internal/application/stock"
	"github.com/jhoicas/Entregas-api/internal/domain"
	"github.com/jhoicas/Entregas-api/internal/domain/entity"
	"github.com/jhoicas/Entregas-api/internal/infrastructure/memory"
)

type keyTranslator struct{}

func (keyTranslator) Translate(_, key string, args ...any) string {
	return fmt.Sprint(append([]any{key, ":"}, args...)...)
}

var (
	owner   = delivery.Actor{UserID: "u1"}
	other   = delivery.Actor{UserID: "u2"}
	admin   = delivery.Actor{UserID: "admin", Permissions: []string{entity.PermissionCreateForOthers}}
	handler = delivery.Actor{UserID: "handler", Permissions: []string{entity.PermissionCanHandleDeliveries}}
)

// snapshotCache guarda el último snapshot por producto.
type snapshotCache struct {
	mu          sync.Mutex
	items       map[string]entity.Stock
	putErr      error
	invalidated []string
}

func newSnapshotCache() *snapshotCache { return &snapshotCache{items: map[string]entity.Stock{}} }

func (c *snapshotCache) Put(_ context.Context, stocks []entity.Stock) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.putErr != nil {
		return c.putErr
	}
	for _, s := range stocks {
		c.items[s.ProductID] = s
	}
	return nil
}

func (c *snapshotCache) Get(_ context.Context, productID string) (*entity.Stock, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.items[productID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (c *snapshotCache) Invalidate(_ context.Context, productID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, productID)
	c.invalidated = append(c.invalidated, productID)
	return nil
}

func setup(t *testing.T) (*memory.Store, *delivery.Orchestrator) {
	t.Helper()
	return setupWithCache(t, nil)
}

func setupWithCache(t *testing.T, cache stock.SnapshotCache) (*memory.Store, *delivery.Orchestrator) {
	t.Helper()
	s := memory.New()
	s.AddProduct(entity.Product{ID: "P1", Name: "Tornillos", TrackStock: true})
	s.AddProduct(entity.Product{ID: "P2", Name: "Tuercas", TrackStock: true})
	s.AddProduct(entity.Product{ID: "SVC", Name: "Instalación", TrackStock: false})
	s.PutStock(entity.Stock{ID: "s1", ProductID: "P1", Quantity: 5, Version: 1})
	s.PutStock(entity.Stock{ID: "s2", ProductID: "P2", Quantity: 10, Version: 1})
	s.AddClient(entity.Client{ID: "C1", Name: "Ferretería Central"})
	s.AddClient(entity.Client{ID: "C2", Name: "Otra"})
	for _, a := range []delivery.Actor{owner, other, admin, handler} {
		s.AddUser(entity.User{ID: a.UserID, Name: a.UserID, Locale: "es", Permissions: a.Permissions})
	}

	uow := stock.NewUnitOfWork(s, stock.UnitOfWorkConfig{MaxAttempts: 4}, nil)
	o := delivery.NewOrchestrator(uow, stock.NewLedger(), s.Repos().Delivery, cache, keyTranslator{}, nil, nil)
	return s, o
}

func qty(t *testing.T, s *memory.Store, productID string) int64 {
	t.Helper()
	st, ok := s.StockOf(productID)
	require.True(t, ok)
	return st.Quantity
}

func create(t *testing.T, o *delivery.Orchestrator, actor delivery.Actor, lines ...dto.DeliveryLineRequest) *dto.DeliveryResponse {
	t.Helper()
	d, err := o.Create(context.Background(), actor, dto.CreateDeliveryRequest{ClientID: "C1", Lines: lines})
	require.NoError(t, err)
	return d
}

func line(productID string, q int64) dto.DeliveryLineRequest {
	return dto.DeliveryLineRequest{ProductID: productID, Quantity: q}
}

// ──────────────────────────────────────────────────────────────────────────────
// Create
// ──────────────────────────────────────────────────────────────────────────────

func TestCreate_DescuentaStockYRechazaSegundaEntrega(t *testing.T) {
	s, o := setup(t)

	d := create(t, o, owner, line("P1", 5))
	assert.Equal(t, string(entity.DeliveryStateInProgress), d.State)
	assert.Equal(t, "u1", d.FromUserID)
	assert.Zero(t, qty(t, s, "P1"))

	h := s.HistoryOf("P1")
	require.Len(t, h, 1)
	assert.Equal(t, entity.StockOperationRemove, h[0].Operation)
	assert.EqualValues(t, 5, h[0].Value)
	assert.EqualValues(t, 5, h[0].QuantityBefore)
	assert.Zero(t, h[0].QuantityAfter)
	assert.Equal(t, "stock-reference-delivery:"+d.ID, h[0].Reference)

	_, err := o.Create(context.Background(), owner, dto.CreateDeliveryRequest{ClientID: "C1", Lines: []dto.DeliveryLineRequest{line("P1", 5)}})
	var insufficient *domain.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, "Tornillos", insufficient.ProductName)
	assert.Equal(t, 1, s.DeliveryCount(), "la entrega rechazada no se persiste")
	assert.Len(t, s.HistoryOf("P1"), 1)
}

func TestCreate_LineasDuplicadasSeFusionan(t *testing.T) {
	s, o := setup(t)

	d := create(t, o, owner, line("P2", 3), line("P2", 4))
	require.Len(t, d.Lines, 1)
	assert.EqualValues(t, 7, d.Lines[0].Quantity)
	assert.EqualValues(t, 3, qty(t, s, "P2"))
}

func TestCreate_ProductoSinSeguimientoSoloGeneraAviso(t *testing.T) {
	s, o := setup(t)

	d := create(t, o, owner, line("SVC", 1))
	assert.Equal(t, []string{"delivery-notice-untracked-product:Instalación"}, d.Notices)
	assert.Zero(t, s.HistoryLen(), "sin operaciones no se invoca el ledger")
	assert.Equal(t, 1, s.DeliveryCount())
}

func TestCreate_ParaOtroUsuarioRequierePermiso(t *testing.T) {
	_, o := setup(t)
	ctx := context.Background()

	_, err := o.Create(ctx, owner, dto.CreateDeliveryRequest{FromUserID: "u2", ClientID: "C1"})
	assert.ErrorIs(t, err, domain.ErrUnauthorizedAccess)

	d, err := o.Create(ctx, admin, dto.CreateDeliveryRequest{FromUserID: "u2", ClientID: "C1"})
	require.NoError(t, err)
	assert.Equal(t, "u2", d.FromUserID)

	_, err = o.Create(ctx, admin, dto.CreateDeliveryRequest{FromUserID: "ghost", ClientID: "C1"})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestCreate_ReferenciasInexistentes(t *testing.T) {
	s, o := setup(t)
	ctx := context.Background()

	_, err := o.Create(ctx, owner, dto.CreateDeliveryRequest{ClientID: "nope"})
	assert.ErrorIs(t, err, domain.ErrClientNotFound)

	_, err = o.Create(ctx, owner, dto.CreateDeliveryRequest{ClientID: "C1", Lines: []dto.DeliveryLineRequest{line("P1", 1), line("ZZ", 1)}})
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
	assert.EqualValues(t, 5, qty(t, s, "P1"))

	_, err = o.Create(ctx, delivery.Actor{UserID: "ghost"}, dto.CreateDeliveryRequest{ClientID: "C1"})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = o.Create(ctx, owner, dto.CreateDeliveryRequest{ClientID: "C1", Lines: []dto.DeliveryLineRequest{line("P1", -1)}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Zero(t, s.DeliveryCount())
}

// ──────────────────────────────────────────────────────────────────────────────
// Update
// ──────────────────────────────────────────────────────────────────────────────

func TestUpdate_ReconciliaDiferencias(t *testing.T) {
	s, o := setup(t)
	ctx := context.Background()
	d := create(t, o, owner, line("P1", 2), line("P2", 4))
	require.EqualValues(t, 3, qty(t, s, "P1"))
	require.EqualValues(t, 6, qty(t, s, "P2"))

	// P1 sube a 5 (REMOVE 3), P2 se omite (ADD 4).
	got, err := o.Update(ctx, owner, d.ID, dto.UpdateDeliveryRequest{ClientID: "C1", Message: "urgente", Lines: []dto.DeliveryLineRequest{line("P1", 5)}})
	require.NoError(t, err)
	assert.Zero(t, qty(t, s, "P1"))
	assert.EqualValues(t, 10, qty(t, s, "P2"))
	assert.Equal(t, "urgente", got.Message)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, "P1", got.Lines[0].ProductID)

	stored, err := o.Get(ctx, owner, d.ID)
	require.NoError(t, err)
	require.Len(t, stored.Lines, 1)
	assert.EqualValues(t, 5, stored.Lines[0].Quantity)
}

func TestUpdate_SinCambiosNoTocaStock(t *testing.T) {
	s, o := setup(t)
	d := create(t, o, owner, line("P1", 2))
	before := s.HistoryLen()

	_, err := o.Update(context.Background(), owner, d.ID, dto.UpdateDeliveryRequest{Lines: []dto.DeliveryLineRequest{line("P1", 2)}})
	require.NoError(t, err)
	assert.Equal(t, before, s.HistoryLen())
	assert.EqualValues(t, 3, qty(t, s, "P1"))
}

func TestUpdate_StockInsuficienteNoCambiaNada(t *testing.T) {
	s, o := setup(t)
	ctx := context.Background()
	d := create(t, o, owner, line("P1", 2))

	_, err := o.Update(ctx, owner, d.ID, dto.UpdateDeliveryRequest{Lines: []dto.DeliveryLineRequest{line("P1", 8)}})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.EqualValues(t, 3, qty(t, s, "P1"))

	stored, err := o.Get(ctx, owner, d.ID)
	require.NoError(t, err)
	require.Len(t, stored.Lines, 1)
	assert.EqualValues(t, 2, stored.Lines[0].Quantity)
}

func TestUpdate_Restricciones(t *testing.T) {
	_, o := setup(t)
	ctx := context.Background()
	d := create(t, o, owner, line("P1", 1))

	_, err := o.Update(ctx, owner, d.ID, dto.UpdateDeliveryRequest{ClientID: "C2"})
	assert.ErrorIs(t, err, domain.ErrCannotChangeRecipient)

	_, err = o.Update(ctx, other, d.ID, dto.UpdateDeliveryRequest{})
	assert.ErrorIs(t, err, domain.ErrUnauthorizedAccess)

	_, err = o.Update(ctx, owner, d.ID, dto.UpdateDeliveryRequest{FromUserID: "fantasma", Lines: []dto.DeliveryLineRequest{line("P1", 1)}})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	got, err := o.Update(ctx, admin, d.ID, dto.UpdateDeliveryRequest{FromUserID: "u2", Lines: []dto.DeliveryLineRequest{line("P1", 1)}})
	require.NoError(t, err)
	assert.Equal(t, "u2", got.FromUserID)

	_, err = o.Update(ctx, owner, d.ID, dto.UpdateDeliveryRequest{Lines: []dto.DeliveryLineRequest{line("P1", 1)}})
	assert.ErrorIs(t, err, domain.ErrUnauthorizedAccess, "u1 ya no es el dueño")

	_, err = o.Update(ctx, owner, "nope", dto.UpdateDeliveryRequest{})
	assert.ErrorIs(t, err, domain.ErrDeliveryNotFound)

	_, err = o.TransitionDelivery(ctx, admin, d.ID, string(entity.DeliveryStateCompleted))
	require.NoError(t, err)
	_, err = o.Update(ctx, admin, d.ID, dto.UpdateDeliveryRequest{})
	assert.ErrorIs(t, err, domain.ErrDeliveryLocked)
}

func TestUpdate_DuenoReasignaRemitente(t *testing.T) {
	s, o := setup(t)
	ctx := context.Background()
	d := create(t, o, owner, line("P1", 2))

	got, err := o.Update(ctx, owner, d.ID, dto.UpdateDeliveryRequest{FromUserID: other.UserID, Lines: []dto.DeliveryLineRequest{line("P1", 2)}})
	require.NoError(t, err)
	assert.Equal(t, other.UserID, got.FromUserID)
	assert.EqualValues(t, 3, qty(t, s, "P1"), "reasignar no mueve stock")

	_, err = o.Get(ctx, other, d.ID)
	assert.NoError(t, err, "el nuevo remitente ve la entrega")
}

func TestUpdate_EscritorConcurrenteNoDuplicaDescuento(t *testing.T) {
	s, o := setup(t)
	ctx := context.Background()
	d := create(t, o, owner, line("P2", 2))
	require.EqualValues(t, 8, qty(t, s, "P2"))

	// Otra actualización (a 3) se confirma entre la lectura y el commit de la nuestra (a 5).
	s.SetBeforeCommit(func() {
		s.SetBeforeCommit(nil)
		_, err := o.Update(ctx, owner, d.ID, dto.UpdateDeliveryRequest{Lines: []dto.DeliveryLineRequest{line("P2", 3)}})
		require.NoError(t, err)
	})

	got, err := o.Update(ctx, owner, d.ID, dto.UpdateDeliveryRequest{Lines: []dto.DeliveryLineRequest{line("P2", 5)}})
	require.NoError(t, err)
	require.Len(t, got.Lines, 1)
	assert.EqualValues(t, 5, got.Lines[0].Quantity)
	assert.EqualValues(t, 5, qty(t, s, "P2"), "stock = inicial - cantidad final")

	var sum int64
	for _, h := range s.HistoryOf("P2") {
		if h.Operation == entity.StockOperationRemove {
			sum += h.Value
		} else {
			sum -= h.Value
		}
	}
	assert.EqualValues(t, 5, sum)
}

// ──────────────────────────────────────────────────────────────────────────────
// Estados y borrado
// ──────────────────────────────────────────────────────────────────────────────

func TestTransitionDelivery_MaquinaDeEstados(t *testing.T) {
	s, o := setup(t)
	ctx := context.Background()
	d := create(t, o, owner, line("P1", 2))

	got, err := o.TransitionDelivery(ctx, owner, d.ID, string(entity.DeliveryStateCompleted))
	require.NoError(t, err)
	assert.Equal(t, []string{"IN_PROGRESS", "CANCELLED"}, got.NextStates)

	_, err = o.TransitionDelivery(ctx, owner, d.ID, string(entity.DeliveryStateHandled))
	var invalid *domain.InvalidNextStateError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "COMPLETED", invalid.From)

	got, err = o.TransitionDelivery(ctx, handler, d.ID, string(entity.DeliveryStateHandled))
	require.NoError(t, err)
	assert.Equal(t, []string{"COMPLETED"}, got.NextStates)

	_, err = o.TransitionDelivery(ctx, owner, d.ID, string(entity.DeliveryStateCompleted))
	assert.ErrorIs(t, err, domain.ErrInvalidNextState)

	_, err = o.TransitionDelivery(ctx, handler, d.ID, string(entity.DeliveryStateCompleted))
	require.NoError(t, err)

	_, err = o.TransitionDelivery(ctx, handler, d.ID, string(entity.DeliveryStateCancelled))
	assert.ErrorIs(t, err, domain.ErrUnauthorizedAccess, "cancelar no es una arista reservada")

	got, err = o.TransitionDelivery(ctx, owner, d.ID, string(entity.DeliveryStateCancelled))
	require.NoError(t, err)
	assert.Empty(t, got.NextStates)

	_, err = o.TransitionDelivery(ctx, admin, d.ID, string(entity.DeliveryStateInProgress))
	assert.ErrorIs(t, err, domain.ErrInvalidNextState, "CANCELLED es terminal")

	_, err = o.TransitionDelivery(ctx, owner, d.ID, "SHIPPED")
	assert.ErrorIs(t, err, domain.ErrInvalidNextState)

	assert.EqualValues(t, 3, qty(t, s, "P1"), "los cambios de estado no tocan el stock")
	assert.Len(t, s.HistoryOf("P1"), 1)
}

func TestDelete_NoDevuelveStock(t *testing.T) {
	s, o := setup(t)
	ctx := context.Background()
	d := create(t, o, owner, line("P1", 2))

	assert.ErrorIs(t, o.Delete(ctx, other, d.ID), domain.ErrUnauthorizedAccess)
	require.NoError(t, o.Delete(ctx, owner, d.ID))
	assert.Zero(t, s.DeliveryCount())
	assert.EqualValues(t, 3, qty(t, s, "P1"))

	assert.ErrorIs(t, o.Delete(ctx, owner, d.ID), domain.ErrDeliveryNotFound)
}

// ──────────────────────────────────────────────────────────────────────────────
// Lecturas
// ──────────────────────────────────────────────────────────────────────────────

func TestGetYList_Visibilidad(t *testing.T) {
	_, o := setup(t)
	ctx := context.Background()
	mine := create(t, o, owner, line("P2", 1))
	create(t, o, other, line("P2", 1))

	_, err := o.Get(ctx, other, mine.ID)
	assert.ErrorIs(t, err, domain.ErrUnauthorizedAccess)
	_, err = o.Get(ctx, admin, mine.ID)
	assert.NoError(t, err)
	_, err = o.Get(ctx, owner, "nope")
	assert.ErrorIs(t, err, domain.ErrDeliveryNotFound)

	list, err := o.List(ctx, owner, dto.PageRequest{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, mine.ID, list[0].ID)

	all, err := o.List(ctx, admin, dto.PageRequest{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

// ──────────────────────────────────────────────────────────────────────────────
// Caché de snapshots
// ──────────────────────────────────────────────────────────────────────────────

func TestCache_RefrescaTrasCrearYEditarEntrega(t *testing.T) {
	cache := newSnapshotCache()
	s, o := setupWithCache(t, cache)
	ctx := context.Background()

	d := create(t, o, owner, line("P1", 5))
	cached, err := cache.Get(ctx, "P1")
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Zero(t, cached.Quantity)
	assert.Equal(t, int64(2), cached.Version)

	_, err = o.Update(ctx, owner, d.ID, dto.UpdateDeliveryRequest{Lines: []dto.DeliveryLineRequest{line("P1", 2)}})
	require.NoError(t, err)

	cached, err = cache.Get(ctx, "P1")
	require.NoError(t, err)
	require.NotNil(t, cached)
	st, ok := s.StockOf("P1")
	require.True(t, ok)
	assert.Equal(t, int64(3), cached.Quantity)
	assert.Equal(t, st.Version, cached.Version)

	p2, err := cache.Get(ctx, "P2")
	require.NoError(t, err)
	assert.Nil(t, p2, "P2 no se tocó")
}

func TestCache_FalloAlEscribirInvalidaSinFallarLaEntrega(t *testing.T) {
	cache := newSnapshotCache()
	cache.items["P1"] = entity.Stock{ProductID: "P1", Quantity: 5, Version: 1}
	cache.putErr = errors.New("redis caído")
	s, o := setupWithCache(t, cache)

	create(t, o, owner, line("P1", 1))
	assert.Equal(t, int64(4), qty(t, s, "P1"))

	cached, err := cache.Get(context.Background(), "P1")
	require.NoError(t, err)
	assert.Nil(t, cached, "la entrada vieja se borra")
	assert.Equal(t, []string{"P1"}, cache.invalidated)
}

func TestCache_ErrorDeNegocioNoTocaLaCache(t *testing.T) {
	cache := newSnapshotCache()
	_, o := setupWithCache(t, cache)

	_, err := o.Create(context.Background(), owner, dto.CreateDeliveryRequest{ClientID: "C1", Lines: []dto.DeliveryLineRequest{line("P1", 9)}})
	var insufficient *domain.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)

	cached, err := cache.Get(context.Background(), "P1")
	require.NoError(t, err)
	assert.Nil(t, cached)
}
