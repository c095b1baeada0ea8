package entity

// Permisos relevantes para entregas.
const (
	PermissionCreateForOthers     = "create-for-others"
	PermissionCanHandleDeliveries = "can-handle-deliveries"
)

// User representa un usuario (operador) del sistema.
type User struct {
	ID          string
	Name        string
	Locale      string // es, en
	Permissions []string
}

// HasPermission indica si el usuario tiene el permiso dado.
func (u *User) HasPermission(permission string) bool {
	for _, p := range u.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}
