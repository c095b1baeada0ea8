package entity

import "time"

// DeliveryState estado del ciclo de vida de una entrega.
type DeliveryState string

// Estados de entrega.
const (
	DeliveryStateInProgress DeliveryState = "IN_PROGRESS"
	DeliveryStateCompleted  DeliveryState = "COMPLETED"
	DeliveryStateHandled    DeliveryState = "HANDLED"
	DeliveryStateCancelled  DeliveryState = "CANCELLED"
)

// IsValid indica si el estado es conocido.
func (s DeliveryState) IsValid() bool {
	switch s {
	case DeliveryStateInProgress, DeliveryStateCompleted, DeliveryStateHandled, DeliveryStateCancelled:
		return true
	}
	return false
}

// Delivery representa un despacho saliente hacia un cliente.
// Es dueña exclusiva de sus líneas (borrado en cascada).
type Delivery struct {
	ID         string
	State      DeliveryState
	FromUserID string
	ClientID   string
	Message    string
	Lines      []DeliveryLine
	Notices    []string // avisos generados por el sistema (ya localizados)
	Version    int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// DeliveryLine par (producto, cantidad) de una entrega. Un producto aparece una sola vez por entrega.
type DeliveryLine struct {
	ID         string
	DeliveryID string
	ProductID  string
	Quantity   int64
}
