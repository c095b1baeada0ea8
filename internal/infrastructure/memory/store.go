// Package memory implementa los puertos de persistencia en memoria, con transacciones
// y control de concurrencia optimista equivalentes a los de PostgreSQL.
// Se usa en tests y con STORAGE_DRIVER=memory.
package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/Entregas-api/internal/application/stock"
	"github.com/jhoicas/Entregas-api/internal/domain"
	"github.com/jhoicas/Entregas-api/internal/domain/entity"
	"github.com/jhoicas/Entregas-api/internal/domain/repository"
)

var _ stock.TxRunner = (*Store)(nil)

// Store estado confirmado. Las transacciones acumulan escrituras y las validan al confirmar.
type Store struct {
	mu         sync.RWMutex
	stocks     map[string]entity.Stock // por product_id
	history    []entity.StockHistoryEntry
	deliveries map[string]entity.Delivery
	products   map[string]entity.Product
	clients    map[string]entity.Client
	users      map[string]entity.User

	hookMu       sync.Mutex
	beforeCommit func()
}

// New crea un store vacío.
func New() *Store {
	return &Store{
		stocks:     make(map[string]entity.Stock),
		deliveries: make(map[string]entity.Delivery),
		products:   make(map[string]entity.Product),
		clients:    make(map[string]entity.Client),
		users:      make(map[string]entity.User),
	}
}

// Run ejecuta fn con repos atados a una transacción nueva. Si fn devuelve error no se aplica nada.
// Al confirmar, cualquier fila cuya versión haya cambiado desde que la transacción la leyó
// provoca domain.ErrConcurrencyConflict y la transacción se descarta entera.
func (s *Store) Run(ctx context.Context, fn func(repos repository.Repos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t := newTx(s, false)
	if err := fn(t.repos()); err != nil {
		return err
	}
	if hook := s.hook(); hook != nil {
		hook()
	}
	return t.commit()
}

// Repos devuelve repositorios sin transacción explícita: cada escritura se confirma al momento.
// Las lecturas son seguras en paralelo; las escrituras no deben compartir el mismo Repos entre goroutines.
func (s *Store) Repos() repository.Repos {
	return newTx(s, true).repos()
}

// SetBeforeCommit registra fn para ejecutarse justo antes de cada commit de Run (nil la quita).
// Permite simular otro escritor entre la lectura y el commit.
func (s *Store) SetBeforeCommit(fn func()) {
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	s.beforeCommit = fn
}

func (s *Store) hook() func() {
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	return s.beforeCommit
}

// ──────────────────────────────────────────────────────────────────────────────
// Carga de datos de colaboradores (catálogo, clientes, usuarios) y stock inicial
// ──────────────────────────────────────────────────────────────────────────────

// AddProduct registra o reemplaza un producto.
func (s *Store) AddProduct(p entity.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
}

// AddClient registra o reemplaza un cliente.
func (s *Store) AddClient(c entity.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c.ID] = c
}

// AddUser registra o reemplaza un usuario.
func (s *Store) AddUser(u entity.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.Permissions = append([]string(nil), u.Permissions...)
	s.users[u.ID] = u
}

// PutStock fija una fila de stock tal cual (sin historial). Solo para preparar escenarios.
func (s *Store) PutStock(st entity.Stock) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stocks[st.ProductID] = st
}

// StockOf devuelve la fila confirmada del producto.
func (s *Store) StockOf(productID string) (entity.Stock, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.stocks[productID]
	return st, ok
}

// HistoryOf devuelve el historial confirmado del producto en orden de inserción.
func (s *Store) HistoryOf(productID string) []entity.StockHistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []entity.StockHistoryEntry
	for _, h := range s.history {
		if h.ProductID == productID {
			out = append(out, h)
		}
	}
	return out
}

// HistoryLen cantidad total de entradas de historial confirmadas.
func (s *Store) HistoryLen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.history)
}

// DeliveryCount cantidad de entregas confirmadas.
func (s *Store) DeliveryCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.deliveries)
}

func cloneDelivery(d entity.Delivery) entity.Delivery {
	d.Lines = append([]entity.DeliveryLine(nil), d.Lines...)
	d.Notices = append([]string(nil), d.Notices...)
	return d
}

var errConflict = domain.ErrConcurrencyConflict
