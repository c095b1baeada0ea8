package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Errores de dominio (sin dependencias externas).
// El texto es solo para logs; el mensaje visible se obtiene de la clave simbólica (ver MessageOf).
var (
	ErrInvalidInput          = errors.New("entrada inválida")
	ErrUnauthorizedAccess    = errors.New("acceso no autorizado")
	ErrUserNotFound          = errors.New("usuario no encontrado")
	ErrClientNotFound        = errors.New("cliente no encontrado")
	ErrProductNotFound       = errors.New("producto no encontrado")
	ErrDeliveryNotFound      = errors.New("entrega no encontrada")
	ErrDeliveryLocked        = errors.New("la entrega ya no admite cambios")
	ErrCannotChangeRecipient = errors.New("no se puede cambiar el destinatario de la entrega")
	ErrInvalidNextState      = errors.New("transición de estado inválida")

	ErrEmptyBatch           = errors.New("lote de stock vacío")
	ErrUnknownStock         = errors.New("stock inexistente para uno o más productos")
	ErrInsufficientStock    = errors.New("stock insuficiente")
	ErrConcurrencyConflict  = errors.New("conflicto de concurrencia (versión de fila)")
	ErrConcurrencyExhausted = errors.New("reintentos agotados por concurrencia")
)

// Claves simbólicas de mensaje; el Translator las resuelve al idioma del usuario.
const (
	KeyInvalidInput          = "invalid-input"
	KeyUnauthorizedAccess    = "unauthorized-access"
	KeyUserNotFound          = "user-not-found"
	KeyClientNotFound        = "client-not-found"
	KeyProductNotFound       = "product-not-found"
	KeyDeliveryNotFound      = "delivery-not-found"
	KeyDeliveryLocked        = "delivery-locked"
	KeyCannotChangeRecipient = "delivery-cannot-change-recipient"
	KeyInvalidNextState      = "delivery-invalid-next-state"
	KeyEmptyBatch            = "stock-bulk-empty"
	KeyUnknownStock          = "stock-bulk-unknown-stock"
	KeyInsufficientStock     = "stock-bulk-insufficient-stock"
	KeyConcurrencyExhausted  = "stock-concurrency-exhausted"
	KeyInternal              = "internal-error"
)

// UnknownStockError lista los productos sin fila de stock.
type UnknownStockError struct {
	ProductIDs []string
}

func (e *UnknownStockError) Error() string {
	return fmt.Sprintf("stock inexistente: %s", strings.Join(e.ProductIDs, ", "))
}

func (e *UnknownStockError) Unwrap() error { return ErrUnknownStock }

// InsufficientStockError detalla la primera operación que dejaría la cantidad en negativo.
type InsufficientStockError struct {
	ProductID   string
	ProductName string
	Current     int64
	Requested   int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stock insuficiente para %s: actual %d, solicitado %d", e.ProductID, e.Current, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// ConcurrencyExhaustedError se devuelve cuando la unidad de trabajo agota sus intentos.
type ConcurrencyExhaustedError struct {
	Attempts int
}

func (e *ConcurrencyExhaustedError) Error() string {
	return fmt.Sprintf("conflicto de concurrencia tras %d intentos", e.Attempts)
}

func (e *ConcurrencyExhaustedError) Unwrap() error { return ErrConcurrencyExhausted }

// InvalidNextStateError indica una transición fuera de la tabla de estados.
type InvalidNextStateError struct {
	From string
	To   string
}

func (e *InvalidNextStateError) Error() string {
	return fmt.Sprintf("transición inválida: %s -> %s", e.From, e.To)
}

func (e *InvalidNextStateError) Unwrap() error { return ErrInvalidNextState }

// Message es la forma localizable de un error de dominio: clave + argumentos posicionales.
type Message struct {
	Key  string
	Args []any
}

// MessageOf traduce un error a su clave simbólica. ok es false para errores de infraestructura.
func MessageOf(err error) (msg Message, ok bool) {
	var insufficient *InsufficientStockError
	var unknown *UnknownStockError
	var exhausted *ConcurrencyExhaustedError
	var invalidState *InvalidNextStateError

	switch {
	case err == nil:
		return Message{}, false
	case errors.As(err, &insufficient):
		name := insufficient.ProductName
		if name == "" {
			name = insufficient.ProductID
		}
		return Message{Key: KeyInsufficientStock, Args: []any{name, insufficient.Current, insufficient.Requested}}, true
	case errors.As(err, &unknown):
		return Message{Key: KeyUnknownStock, Args: []any{strings.Join(unknown.ProductIDs, ", ")}}, true
	case errors.As(err, &exhausted):
		return Message{Key: KeyConcurrencyExhausted, Args: []any{exhausted.Attempts}}, true
	case errors.As(err, &invalidState):
		return Message{Key: KeyInvalidNextState, Args: []any{invalidState.From, invalidState.To}}, true
	}

	for _, s := range sentinelKeys {
		if errors.Is(err, s.err) {
			return Message{Key: s.key}, true
		}
	}
	return Message{Key: KeyInternal}, false
}

var sentinelKeys = []struct {
	err error
	key string
}{
	{ErrInvalidInput, KeyInvalidInput},
	{ErrUnauthorizedAccess, KeyUnauthorizedAccess},
	{ErrUserNotFound, KeyUserNotFound},
	{ErrClientNotFound, KeyClientNotFound},
	{ErrProductNotFound, KeyProductNotFound},
	{ErrDeliveryNotFound, KeyDeliveryNotFound},
	{ErrDeliveryLocked, KeyDeliveryLocked},
	{ErrCannotChangeRecipient, KeyCannotChangeRecipient},
	{ErrEmptyBatch, KeyEmptyBatch},
	{ErrConcurrencyExhausted, KeyConcurrencyExhausted},
}
