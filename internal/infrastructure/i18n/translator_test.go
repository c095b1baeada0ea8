package i18n_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Entregas-api/internal/domain"
	"github.com/jhoicas/Entregas-api/internal/domain/entity"
	"github.com/jhoicas/Entregas-api/internal/infrastructure/i18n"
	"github.com/jhoicas/Entregas-api/internal/infrastructure/memory"
)

func newTranslator(t *testing.T, defaultLocale string) *i18n.Translator {
	t.Helper()
	s := memory.New()
	s.AddUser(entity.User{ID: "ana", Locale: "es"})
	s.AddUser(entity.User{ID: "john", Locale: "en-US"})
	s.AddUser(entity.User{ID: "hans", Locale: "de"})
	tr, err := i18n.NewTranslator(s.Repos().User, defaultLocale, nil)
	require.NoError(t, err)
	return tr
}

func TestTranslate_IdiomaDelUsuario(t *testing.T) {
	tr := newTranslator(t, "es")

	assert.Equal(t, "Entrega no encontrada", tr.Translate("ana", domain.KeyDeliveryNotFound))
	assert.Equal(t, "Delivery not found", tr.Translate("john", domain.KeyDeliveryNotFound))
}

func TestTranslate_ArgumentosPosicionales(t *testing.T) {
	tr := newTranslator(t, "es")

	msg, ok := domain.MessageOf(&domain.InsufficientStockError{ProductID: "P1", ProductName: "Tornillos", Current: 2, Requested: 5})
	require.True(t, ok)
	assert.Equal(t, "Stock insuficiente de Tornillos: hay 2, se piden 5", tr.Translate("ana", msg.Key, msg.Args...))
	assert.Equal(t, "Not enough stock of Tornillos: 2 available, 5 requested", tr.Translate("john", msg.Key, msg.Args...))
}

func TestTranslate_IdiomaNoSoportadoUsaDefecto(t *testing.T) {
	tr := newTranslator(t, "en")

	assert.Equal(t, "User not found", tr.Translate("hans", domain.KeyUserNotFound))
	assert.Equal(t, "User not found", tr.Translate("desconocido", domain.KeyUserNotFound))
	assert.Equal(t, "User not found", tr.Translate("", domain.KeyUserNotFound))
}

func TestTranslateLocale_ClaveDesconocidaSeDevuelveTalCual(t *testing.T) {
	tr := newTranslator(t, "es")

	assert.Equal(t, "clave-inexistente", tr.TranslateLocale("es", "clave-inexistente"))
	assert.Equal(t, "Internal server error", tr.TranslateLocale("en-GB,en;q=0.8", domain.KeyInternal))
}

func TestTranslate_TodasLasClavesDeDominioTienenTexto(t *testing.T) {
	tr := newTranslator(t, "es")
	errs := []error{
		domain.ErrInvalidInput, domain.ErrUnauthorizedAccess, domain.ErrUserNotFound,
		domain.ErrClientNotFound, domain.ErrProductNotFound, domain.ErrDeliveryNotFound,
		domain.ErrDeliveryLocked, domain.ErrCannotChangeRecipient, domain.ErrEmptyBatch,
		&domain.UnknownStockError{ProductIDs: []string{"X"}},
		&domain.ConcurrencyExhaustedError{Attempts: 4},
		&domain.InvalidNextStateError{From: "CANCELLED", To: "IN_PROGRESS"},
		errors.New("boom"),
	}
	for _, err := range errs {
		msg, _ := domain.MessageOf(err)
		for _, locale := range []string{"es", "en"} {
			got := tr.TranslateLocale(locale, msg.Key, msg.Args...)
			assert.NotEqual(t, msg.Key, got, "falta texto %s para %s", locale, msg.Key)
		}
	}
}
