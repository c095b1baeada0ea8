package repository

import (
	"context"

	"github.com/jhoicas/Entregas-api/internal/domain/entity"
)

// DeliveryRepository define el puerto de persistencia para entregas y sus líneas.
type DeliveryRepository interface {
	// Create persiste la entrega junto con sus líneas.
	Create(ctx context.Context, delivery *entity.Delivery) error
	// GetByID devuelve nil, nil si no existe. Incluye las líneas.
	GetByID(ctx context.Context, id string) (*entity.Delivery, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*entity.Delivery, error)
	ListAll(ctx context.Context, limit, offset int) ([]*entity.Delivery, error)
	// Update escribe cabecera (estado, remitente, mensaje, avisos) con chequeo de versión;
	// devuelve domain.ErrConcurrencyConflict si otra escritura ganó.
	Update(ctx context.Context, delivery *entity.Delivery) error
	// ReplaceLines borra las líneas actuales e inserta las nuevas.
	ReplaceLines(ctx context.Context, deliveryID string, lines []entity.DeliveryLine) error
	// Delete borra la entrega (y sus líneas en cascada). Devuelve domain.ErrDeliveryNotFound si no existe.
	Delete(ctx context.Context, id string) error
}
