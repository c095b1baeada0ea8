package dto

import "time"

// StockOperationRequest una operación dentro de POST /api/stock/bulk.
type StockOperationRequest struct {
	ProductID string `json:"product_id"`
	Operation string `json:"operation"` // ADD, REMOVE, SET
	Value     int64  `json:"value"`
	Reference string `json:"reference,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

// BulkStockRequest body para POST /api/stock/bulk.
type BulkStockRequest struct {
	Operations []StockOperationRequest `json:"operations"`
}

// StockResponse snapshot de stock de un producto.
type StockResponse struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	Quantity  int64     `json:"quantity"`
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StockHistoryResponse entrada del historial de stock.
type StockHistoryResponse struct {
	ID             string    `json:"id"`
	ProductID      string    `json:"product_id"`
	UserID         string    `json:"user_id"`
	Operation      string    `json:"operation"`
	Value          int64     `json:"value"`
	QuantityBefore int64     `json:"quantity_before"`
	QuantityAfter  int64     `json:"quantity_after"`
	Reference      string    `json:"reference,omitempty"`
	Notes          string    `json:"notes,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
