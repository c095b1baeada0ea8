package dto

import "time"

// DeliveryLineRequest línea de una entrega (producto, cantidad).
type DeliveryLineRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
}

// CreateDeliveryRequest body para POST /api/deliveries.
// FromUserID es opcional; si difiere del usuario autenticado requiere el permiso create-for-others.
type CreateDeliveryRequest struct {
	FromUserID string                `json:"from_user_id,omitempty"`
	ClientID   string                `json:"client_id"`
	Message    string                `json:"message,omitempty"`
	Lines      []DeliveryLineRequest `json:"lines"`
}

// UpdateDeliveryRequest body para PUT /api/deliveries/:id.
// Las líneas reemplazan por completo a las anteriores; omitir un producto devuelve su stock.
type UpdateDeliveryRequest struct {
	FromUserID string                `json:"from_user_id,omitempty"`
	ClientID   string                `json:"client_id"`
	Message    string                `json:"message,omitempty"`
	Lines      []DeliveryLineRequest `json:"lines"`
}

// TransitionDeliveryRequest body para POST /api/deliveries/:id/state.
type TransitionDeliveryRequest struct {
	State string `json:"state"`
}

// DeliveryLineResponse línea persistida.
type DeliveryLineResponse struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
}

// DeliveryResponse entrega con sus líneas.
type DeliveryResponse struct {
	ID         string                 `json:"id"`
	State      string                 `json:"state"`
	FromUserID string                 `json:"from_user_id"`
	ClientID   string                 `json:"client_id"`
	Message    string                 `json:"message"`
	Lines      []DeliveryLineResponse `json:"lines"`
	Notices    []string               `json:"notices"`
	NextStates []string               `json:"next_states"`
	CreatedAt  time.Time              `json:"created_at"`
	UpdatedAt  time.Time              `json:"updated_at"`
}
