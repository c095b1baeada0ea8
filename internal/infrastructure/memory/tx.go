package memory

import (
	"context"
	"sort"

	"github.com/jhoicas/Entregas-api/internal/domain"
	"github.com/jhoicas/Entregas-api/internal/domain/entity"
	"github.com/jhoicas/Entregas-api/internal/domain/repository"
)

type stockWrite struct {
	row      entity.Stock
	expected int64 // versión confirmada al primer contacto
	isNew    bool
}

type deliveryWrite struct {
	row      entity.Delivery
	expected int64
	isNew    bool
	deleted  bool
}

// tx superpone escrituras pendientes sobre el estado confirmado (lectura de lo propio escrito).
type tx struct {
	s          *Store
	autocommit bool
	stocks     map[string]*stockWrite
	deliveries map[string]*deliveryWrite
	history    []entity.StockHistoryEntry
}

func newTx(s *Store, autocommit bool) *tx {
	t := &tx{s: s, autocommit: autocommit}
	t.reset()
	return t
}

func (t *tx) reset() {
	t.stocks = make(map[string]*stockWrite)
	t.deliveries = make(map[string]*deliveryWrite)
	t.history = nil
}

func (t *tx) repos() repository.Repos {
	return repository.Repos{
		Stock:    stockRepo{t},
		History:  historyRepo{t},
		Delivery: deliveryRepo{t},
		Product:  productRepo{t.s},
		Client:   clientRepo{t.s},
		User:     userRepo{t.s},
	}
}

// flush confirma en modo autocommit; en una transacción explícita no hace nada.
func (t *tx) flush() error {
	if !t.autocommit {
		return nil
	}
	return t.commit()
}

// commit valida versiones y aplica todo bajo el mismo lock, o nada.
func (t *tx) commit() error {
	defer t.reset()
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for productID, w := range t.stocks {
		cur, exists := s.stocks[productID]
		if w.isNew {
			if exists {
				return errConflict
			}
			continue
		}
		if !exists || cur.Version != w.expected {
			return errConflict
		}
	}
	for id, w := range t.deliveries {
		cur, exists := s.deliveries[id]
		if w.isNew {
			if exists {
				return errConflict
			}
			continue
		}
		if !exists {
			if w.deleted {
				return domain.ErrDeliveryNotFound
			}
			return errConflict
		}
		if cur.Version != w.expected {
			return errConflict
		}
	}

	for productID, w := range t.stocks {
		s.stocks[productID] = w.row
	}
	for id, w := range t.deliveries {
		if w.deleted {
			delete(s.deliveries, id)
			continue
		}
		s.deliveries[id] = cloneDelivery(w.row)
	}
	s.history = append(s.history, t.history...)
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Stock
// ──────────────────────────────────────────────────────────────────────────────

type stockRepo struct{ t *tx }

func (r stockRepo) visible(productID string) (entity.Stock, bool) {
	if w, ok := r.t.stocks[productID]; ok {
		return w.row, true
	}
	return r.t.s.StockOf(productID)
}

func (r stockRepo) GetByProductIDs(_ context.Context, productIDs []string) ([]*entity.Stock, error) {
	out := make([]*entity.Stock, 0, len(productIDs))
	for _, id := range productIDs {
		if st, ok := r.visible(id); ok {
			st := st
			out = append(out, &st)
		}
	}
	return out, nil
}

func (r stockRepo) GetByProductID(_ context.Context, productID string) (*entity.Stock, error) {
	st, ok := r.visible(productID)
	if !ok {
		return nil, nil
	}
	return &st, nil
}

func (r stockRepo) Create(_ context.Context, stock *entity.Stock) error {
	if stock == nil || stock.ProductID == "" {
		return domain.ErrInvalidInput
	}
	if _, ok := r.visible(stock.ProductID); ok {
		return errConflict
	}
	if stock.Version == 0 {
		stock.Version = 1
	}
	r.t.stocks[stock.ProductID] = &stockWrite{row: *stock, isNew: true}
	return r.t.flush()
}

func (r stockRepo) Update(_ context.Context, stock *entity.Stock) error {
	if stock == nil {
		return domain.ErrInvalidInput
	}
	cur, ok := r.visible(stock.ProductID)
	if !ok || cur.Version != stock.Version {
		return errConflict
	}
	w, ok := r.t.stocks[stock.ProductID]
	if !ok {
		w = &stockWrite{expected: cur.Version}
		r.t.stocks[stock.ProductID] = w
	}
	stock.Version++
	w.row = *stock
	return r.t.flush()
}

// ──────────────────────────────────────────────────────────────────────────────
// Historial
// ──────────────────────────────────────────────────────────────────────────────

type historyRepo struct{ t *tx }

func (r historyRepo) Create(_ context.Context, entry *entity.StockHistoryEntry) error {
	if entry == nil {
		return domain.ErrInvalidInput
	}
	r.t.history = append(r.t.history, *entry)
	return r.t.flush()
}

func (r historyRepo) ListByProduct(_ context.Context, productID string, limit, offset int) ([]*entity.StockHistoryEntry, error) {
	committed := r.t.s.HistoryOf(productID)
	all := make([]entity.StockHistoryEntry, 0, len(committed))
	all = append(all, committed...)
	for _, h := range r.t.history {
		if h.ProductID == productID {
			all = append(all, h)
		}
	}
	out := make([]*entity.StockHistoryEntry, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		h := all[i]
		out = append(out, &h)
	}
	return page(out, limit, offset), nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Entregas
// ──────────────────────────────────────────────────────────────────────────────

type deliveryRepo struct{ t *tx }

func (r deliveryRepo) visible(id string) (entity.Delivery, bool) {
	if w, ok := r.t.deliveries[id]; ok {
		if w.deleted {
			return entity.Delivery{}, false
		}
		return cloneDelivery(w.row), true
	}
	s := r.t.s
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.deliveries[id]
	if !ok {
		return entity.Delivery{}, false
	}
	return cloneDelivery(d), true
}

// touch devuelve la escritura pendiente de la entrega, creándola desde el estado visible.
func (r deliveryRepo) touch(id string) (*deliveryWrite, error) {
	if w, ok := r.t.deliveries[id]; ok {
		if w.deleted {
			return nil, domain.ErrDeliveryNotFound
		}
		return w, nil
	}
	d, ok := r.visible(id)
	if !ok {
		return nil, domain.ErrDeliveryNotFound
	}
	w := &deliveryWrite{row: d, expected: d.Version}
	r.t.deliveries[id] = w
	return w, nil
}

func (r deliveryRepo) Create(_ context.Context, delivery *entity.Delivery) error {
	if delivery == nil || delivery.ID == "" {
		return domain.ErrInvalidInput
	}
	if _, ok := r.visible(delivery.ID); ok {
		return errConflict
	}
	if delivery.Version == 0 {
		delivery.Version = 1
	}
	r.t.deliveries[delivery.ID] = &deliveryWrite{row: cloneDelivery(*delivery), isNew: true}
	return r.t.flush()
}

func (r deliveryRepo) GetByID(_ context.Context, id string) (*entity.Delivery, error) {
	d, ok := r.visible(id)
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (r deliveryRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*entity.Delivery, error) {
	return r.list(func(d entity.Delivery) bool { return d.FromUserID == userID }, limit, offset), nil
}

func (r deliveryRepo) ListAll(_ context.Context, limit, offset int) ([]*entity.Delivery, error) {
	return r.list(func(entity.Delivery) bool { return true }, limit, offset), nil
}

func (r deliveryRepo) list(keep func(entity.Delivery) bool, limit, offset int) []*entity.Delivery {
	s := r.t.s
	s.mu.RLock()
	ids := make([]string, 0, len(s.deliveries))
	for id := range s.deliveries {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	for id, w := range r.t.deliveries {
		if w.isNew {
			ids = append(ids, id)
		}
	}

	var out []*entity.Delivery
	for _, id := range ids {
		d, ok := r.visible(id)
		if ok && keep(d) {
			out = append(out, &d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return page(out, limit, offset)
}

func (r deliveryRepo) Update(_ context.Context, delivery *entity.Delivery) error {
	if delivery == nil {
		return domain.ErrInvalidInput
	}
	cur, ok := r.visible(delivery.ID)
	if !ok {
		return domain.ErrDeliveryNotFound
	}
	if cur.Version != delivery.Version {
		return errConflict
	}
	w, err := r.touch(delivery.ID)
	if err != nil {
		return err
	}
	delivery.Version++
	lines := w.row.Lines
	w.row = cloneDelivery(*delivery)
	w.row.Lines = lines
	return r.t.flush()
}

func (r deliveryRepo) ReplaceLines(_ context.Context, deliveryID string, lines []entity.DeliveryLine) error {
	w, err := r.touch(deliveryID)
	if err != nil {
		return err
	}
	w.row.Lines = append([]entity.DeliveryLine(nil), lines...)
	return r.t.flush()
}

func (r deliveryRepo) Delete(_ context.Context, id string) error {
	if w, ok := r.t.deliveries[id]; ok && w.isNew {
		delete(r.t.deliveries, id)
		return nil
	}
	w, err := r.touch(id)
	if err != nil {
		return err
	}
	w.deleted = true
	return r.t.flush()
}

// ──────────────────────────────────────────────────────────────────────────────
// Colaboradores de solo lectura
// ──────────────────────────────────────────────────────────────────────────────

type productRepo struct{ s *Store }

func (r productRepo) GetByIDs(_ context.Context, ids []string) ([]*entity.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*entity.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.s.products[id]; ok {
			p := p
			out = append(out, &p)
		}
	}
	return out, nil
}

func (r productRepo) ListTrackedWithoutStock(_ context.Context) ([]*entity.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*entity.Product
	for _, p := range r.s.products {
		if _, ok := r.s.stocks[p.ID]; p.TrackStock && !ok {
			p := p
			out = append(out, &p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type clientRepo struct{ s *Store }

func (r clientRepo) GetByID(_ context.Context, id string) (*entity.Client, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.clients[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

type userRepo struct{ s *Store }

func (r userRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, nil
	}
	u.Permissions = append([]string(nil), u.Permissions...)
	return &u, nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
