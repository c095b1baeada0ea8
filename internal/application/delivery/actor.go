package delivery

import "github.com/jhoicas/Entregas-api/internal/domain/entity"

// Actor usuario autenticado que ejecuta la operación (tomado del token).
type Actor struct {
	UserID      string
	Permissions []string
}

// Has indica si el actor tiene el permiso.
func (a Actor) Has(permission string) bool {
	for _, p := range a.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// CanHandle indica si puede gestionar entregas (aristas reservadas de la máquina de estados).
func (a Actor) CanHandle() bool {
	return a.Has(entity.PermissionCanHandleDeliveries)
}

// CanActForOthers indica si puede crear o modificar entregas de otros usuarios.
func (a Actor) CanActForOthers() bool {
	return a.Has(entity.PermissionCreateForOthers)
}

// canManage dueño de la entrega o con create-for-others.
func (a Actor) canManage(d *entity.Delivery) bool {
	return d.FromUserID == a.UserID || a.CanActForOthers()
}
