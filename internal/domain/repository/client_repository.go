package repository

import (
	"context"

	"github.com/jhoicas/Entregas-api/internal/domain/entity"
)

// ClientRepository puerto de lectura de clientes (destinatarios). GetByID devuelve nil, nil si no existe.
type ClientRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Client, error)
}
