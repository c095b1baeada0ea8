package entity

import "time"

// StockOperation tipo de operación aplicada sobre una cantidad de stock.
type StockOperation string

// Operaciones de stock.
const (
	StockOperationAdd    StockOperation = "ADD"    // suma
	StockOperationRemove StockOperation = "REMOVE" // resta
	StockOperationSet    StockOperation = "SET"    // fija el valor
)

// IsValid indica si la operación es conocida.
func (o StockOperation) IsValid() bool {
	switch o {
	case StockOperationAdd, StockOperationRemove, StockOperationSet:
		return true
	}
	return false
}

// Apply devuelve la cantidad resultante de aplicar la operación sobre current.
// No valida el signo del resultado; eso le corresponde al ledger.
func (o StockOperation) Apply(current, value int64) int64 {
	switch o {
	case StockOperationAdd:
		return current + value
	case StockOperationRemove:
		return current - value
	default:
		return value
	}
}

// StockHistoryEntry registro inmutable (append-only) de una operación aplicada a un Stock.
type StockHistoryEntry struct {
	ID             string
	StockID        string
	ProductID      string
	UserID         string
	Operation      StockOperation
	Value          int64
	QuantityBefore int64
	QuantityAfter  int64
	Reference      string // opcional
	Notes          string // opcional
	CreatedAt      time.Time
}
