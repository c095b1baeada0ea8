// Package cache guarda snapshots de stock en Redis para pantallas de consulta.
// Nunca se lee desde la ruta de escritura: el ledger siempre decide contra PostgreSQL.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/Entregas-api/internal/application/stock"
	"github.com/jhoicas/Entregas-api/internal/domain/entity"
)

var _ stock.SnapshotCache = (*StockCache)(nil)

const keyPrefix = "stock:snapshot:"

// StockCache implementa stock.SnapshotCache sobre go-redis.
type StockCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStockCache construye la caché; ttl <= 0 deja las entradas sin expiración.
func NewStockCache(client *redis.Client, ttl time.Duration) *StockCache {
	if ttl < 0 {
		ttl = 0
	}
	return &StockCache{client: client, ttl: ttl}
}

// Put escribe los snapshots en un pipeline. Una versión vieja nunca pisa una más nueva
// gracias al chequeo en Lua.
func (c *StockCache) Put(ctx context.Context, stocks []entity.Stock) error {
	if len(stocks) == 0 {
		return nil
	}
	pipe := c.client.Pipeline()
	for _, s := range stocks {
		payload, err := json.Marshal(snapshot{ID: s.ID, ProductID: s.ProductID, Quantity: s.Quantity, Version: s.Version, UpdatedAt: s.UpdatedAt})
		if err != nil {
			return fmt.Errorf("marshal snapshot: %w", err)
		}
		putIfNewer.Eval(ctx, pipe, []string{keyPrefix + s.ProductID}, payload, s.Version, c.ttl.Milliseconds())
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis put snapshots: %w", err)
	}
	return nil
}

// Get devuelve nil, nil si no hay entrada.
func (c *StockCache) Get(ctx context.Context, productID string) (*entity.Stock, error) {
	raw, err := c.client.Get(ctx, keyPrefix+productID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get snapshot: %w", err)
	}
	var s snapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &entity.Stock{ID: s.ID, ProductID: s.ProductID, Quantity: s.Quantity, Version: s.Version, UpdatedAt: s.UpdatedAt}, nil
}

// Invalidate borra la entrada de un producto.
func (c *StockCache) Invalidate(ctx context.Context, productID string) error {
	return c.client.Del(ctx, keyPrefix+productID).Err()
}

type snapshot struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	Quantity  int64     `json:"quantity"`
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// putIfNewer: KEYS[1] clave, ARGV[1] payload, ARGV[2] versión, ARGV[3] ttl en ms (0 = sin ttl).
var putIfNewer = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
if current then
  local ok, decoded = pcall(cjson.decode, current)
  if ok and decoded.version and tonumber(decoded.version) > tonumber(ARGV[2]) then
    return 0
  end
end
if tonumber(ARGV[3]) > 0 then
  redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
else
  redis.call('SET', KEYS[1], ARGV[1])
end
return 1
`)
