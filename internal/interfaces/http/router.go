package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/Entregas-api/internal/application/delivery"
	"github.com/jhoicas/Entregas-api/internal/application/ports"
	"github.com/jhoicas/Entregas-api/internal/application/stock"
	"github.com/jhoicas/Entregas-api/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	StockUC      *stock.StockUseCase
	Orchestrator *delivery.Orchestrator
	Translator   ports.Translator
	Logger       *logger.Logger
	JWTSecret    string
}

// Router registra las rutas de la API. Todas requieren Bearer Token.
func Router(app *fiber.App, deps RouterDeps) {
	if deps.Translator == nil {
		deps.Translator = ports.KeyTranslator{}
	}
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	errs := errorWriter{tr: deps.Translator, log: deps.Logger.Named("http")}

	protected := app.Group("/api", AuthMiddleware(deps.JWTSecret))

	stockGroup := protected.Group("/stock")
	stockHandler := NewStockHandler(deps.StockUC, errs)
	stockGroup.Post("/bulk", stockHandler.BulkUpdate)
	stockGroup.Get("/:product_id", stockHandler.Get)
	stockGroup.Get("/:product_id/history", stockHandler.History)

	deliveries := protected.Group("/deliveries")
	deliveryHandler := NewDeliveryHandler(deps.Orchestrator, errs)
	deliveries.Post("/", deliveryHandler.Create)
	deliveries.Get("/", deliveryHandler.List)
	deliveries.Get("/:id", deliveryHandler.GetByID)
	deliveries.Put("/:id", deliveryHandler.Update)
	deliveries.Delete("/:id", deliveryHandler.Delete)
	deliveries.Post("/:id/state", deliveryHandler.Transition)
}
