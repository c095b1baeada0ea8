package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/Entregas-api/internal/application/dto"
	"github.com/jhoicas/Entregas-api/internal/application/ports"
	"github.com/jhoicas/Entregas-api/internal/domain"
	"github.com/jhoicas/Entregas-api/pkg/logger"
)

// statusByKey código HTTP por clave de error de dominio.
var statusByKey = map[string]int{
	domain.KeyInvalidInput:          fiber.StatusBadRequest,
	domain.KeyEmptyBatch:            fiber.StatusBadRequest,
	domain.KeyCannotChangeRecipient: fiber.StatusBadRequest,
	domain.KeyInvalidNextState:      fiber.StatusBadRequest,
	domain.KeyUnauthorizedAccess:    fiber.StatusForbidden,
	domain.KeyUnknownStock:          fiber.StatusNotFound,
	domain.KeyUserNotFound:          fiber.StatusNotFound,
	domain.KeyClientNotFound:        fiber.StatusNotFound,
	domain.KeyProductNotFound:       fiber.StatusNotFound,
	domain.KeyDeliveryNotFound:      fiber.StatusNotFound,
	domain.KeyInsufficientStock:     fiber.StatusConflict,
	domain.KeyConcurrencyExhausted:  fiber.StatusConflict,
	domain.KeyDeliveryLocked:        fiber.StatusConflict,
}

// errorWriter traduce errores de dominio a respuestas localizadas.
type errorWriter struct {
	tr  ports.Translator
	log *logger.Logger
}

func (w errorWriter) write(c *fiber.Ctx, err error) error {
	userID := GetUserID(c)
	msg, ok := domain.MessageOf(err)
	status, known := statusByKey[msg.Key]
	if !ok || !known {
		status = fiber.StatusInternalServerError
		w.log.Error().Err(err).Str("path", c.Path()).Str("user_id", userID).Msg("error interno")
	}
	if errors.Is(err, domain.ErrConcurrencyExhausted) {
		c.Set(fiber.HeaderRetryAfter, "1")
	}
	return c.Status(status).JSON(dto.ErrorResponse{
		Code:    msg.Key,
		Message: w.tr.Translate(userID, msg.Key, msg.Args...),
	})
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}
