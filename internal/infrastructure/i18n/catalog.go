package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message/catalog"

	"github.com/jhoicas/Entregas-api/internal/application/delivery"
	"github.com/jhoicas/Entregas-api/internal/domain"
)

// messages textos por clave y por idioma. Los argumentos son posicionales (ver domain.MessageOf).
var messages = map[string]map[language.Tag]string{
	domain.KeyInvalidInput: {
		language.Spanish: "Los datos enviados no son válidos",
		language.English: "The submitted data is not valid",
	},
	domain.KeyUnauthorizedAccess: {
		language.Spanish: "No tiene permiso para realizar esta acción",
		language.English: "You are not allowed to perform this action",
	},
	domain.KeyUserNotFound: {
		language.Spanish: "Usuario no encontrado",
		language.English: "User not found",
	},
	domain.KeyClientNotFound: {
		language.Spanish: "Cliente no encontrado",
		language.English: "Client not found",
	},
	domain.KeyProductNotFound: {
		language.Spanish: "Producto no encontrado",
		language.English: "Product not found",
	},
	domain.KeyDeliveryNotFound: {
		language.Spanish: "Entrega no encontrada",
		language.English: "Delivery not found",
	},
	domain.KeyDeliveryLocked: {
		language.Spanish: "La entrega ya no admite cambios",
		language.English: "The delivery can no longer be changed",
	},
	domain.KeyCannotChangeRecipient: {
		language.Spanish: "No se puede cambiar el cliente de una entrega",
		language.English: "The recipient of a delivery cannot be changed",
	},
	domain.KeyInvalidNextState: {
		language.Spanish: "No se puede pasar la entrega de %s a %s",
		language.English: "The delivery cannot move from %s to %s",
	},
	domain.KeyEmptyBatch: {
		language.Spanish: "El lote no contiene operaciones",
		language.English: "The batch contains no operations",
	},
	domain.KeyUnknownStock: {
		language.Spanish: "No hay registro de stock para: %s",
		language.English: "No stock record for: %s",
	},
	domain.KeyInsufficientStock: {
		language.Spanish: "Stock insuficiente de %s: hay %d, se piden %d",
		language.English: "Not enough stock of %s: %d available, %d requested",
	},
	domain.KeyConcurrencyExhausted: {
		language.Spanish: "El stock cambió mientras se guardaba (%d intentos); vuelva a intentarlo",
		language.English: "Stock changed while saving (%d attempts); please try again",
	},
	domain.KeyInternal: {
		language.Spanish: "Error interno del servidor",
		language.English: "Internal server error",
	},
	delivery.KeyStockReference: {
		language.Spanish: "Entrega %s",
		language.English: "Delivery %s",
	},
	delivery.KeyNoticeUntracked: {
		language.Spanish: "%s no lleva control de stock; no se descontó",
		language.English: "%s is not stock-tracked; nothing was deducted",
	},
}

// Supported idiomas con catálogo.
var Supported = []language.Tag{language.Spanish, language.English}

func newCatalog() (*catalog.Builder, error) {
	b := catalog.NewBuilder(catalog.Fallback(language.Spanish))
	for key, byLang := range messages {
		for tag, text := range byLang {
			if err := b.SetString(tag, key, text); err != nil {
				return nil, err
			}
		}
	}
	return b, nil
}
