package delivery

import "github.com/jhoicas/Entregas-api/internal/domain/entity"

// transition arista de la máquina de estados; privileged exige el permiso can-handle-deliveries.
type transition struct {
	to         entity.DeliveryState
	privileged bool
}

// IN_PROGRESS -> COMPLETED, CANCELLED
// COMPLETED   -> IN_PROGRESS, CANCELLED, HANDLED*
// HANDLED     -> COMPLETED*
// CANCELLED   -> (terminal)
var transitions = map[entity.DeliveryState][]transition{
	entity.DeliveryStateInProgress: {
		{to: entity.DeliveryStateCompleted},
		{to: entity.DeliveryStateCancelled},
	},
	entity.DeliveryStateCompleted: {
		{to: entity.DeliveryStateInProgress},
		{to: entity.DeliveryStateCancelled},
		{to: entity.DeliveryStateHandled, privileged: true},
	},
	entity.DeliveryStateHandled: {
		{to: entity.DeliveryStateCompleted, privileged: true},
	},
}

// NextStates devuelve los estados alcanzables desde current según el nivel de permiso del actor.
func NextStates(current entity.DeliveryState, canHandle bool) []entity.DeliveryState {
	var next []entity.DeliveryState
	for _, t := range transitions[current] {
		if t.privileged && !canHandle {
			continue
		}
		next = append(next, t.to)
	}
	return next
}

// CanTransition indica si current -> next es válido para el nivel de permiso dado.
func CanTransition(current, next entity.DeliveryState, canHandle bool) bool {
	for _, s := range NextStates(current, canHandle) {
		if s == next {
			return true
		}
	}
	return false
}

// RequiresHandlePermission indica si la arista current -> next está reservada a quien gestiona entregas.
func RequiresHandlePermission(current, next entity.DeliveryState) bool {
	for _, t := range transitions[current] {
		if t.to == next {
			return t.privileged
		}
	}
	return false
}

// IsEditable indica si las líneas de la entrega todavía pueden modificarse.
func IsEditable(state entity.DeliveryState) bool {
	return state == entity.DeliveryStateInProgress
}
