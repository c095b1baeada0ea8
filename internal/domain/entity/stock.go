package entity

import "time"

// Stock representa la cantidad disponible de un producto con seguimiento de inventario.
// Version se incrementa en cada escritura exitosa (control de concurrencia optimista).
type Stock struct {
	ID        string
	ProductID string
	Quantity  int64 // nunca negativo en un commit
	Version   int64
	UpdatedAt time.Time
}
