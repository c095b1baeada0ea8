package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/Entregas-api/internal/application/dto"
	"github.com/jhoicas/Entregas-api/internal/application/stock"
)

// StockHandler maneja las peticiones HTTP de stock (protegido).
type StockHandler struct {
	uc   *stock.StockUseCase
	errs errorWriter
}

// NewStockHandler construye el handler.
func NewStockHandler(uc *stock.StockUseCase, errs errorWriter) *StockHandler {
	return &StockHandler{uc: uc, errs: errs}
}

// BulkUpdate godoc
// @Summary      Actualización masiva de stock
// @Description  Aplica todas las operaciones o ninguna. ADD suma, REMOVE resta, SET fija.
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body      dto.BulkStockRequest  true  "operaciones"
// @Success      200   {array}   dto.StockResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/stock/bulk [post]
func (h *StockHandler) BulkUpdate(c *fiber.Ctx) error {
	var in dto.BulkStockRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.BulkUpdate(c.UserContext(), GetUserID(c), in.Operations)
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.JSON(out)
}

// Get godoc
// @Summary      Stock actual de un producto
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        product_id  path      string  true  "ID del producto"
// @Success      200         {object}  dto.StockResponse
// @Failure      404         {object}  dto.ErrorResponse
// @Router       /api/stock/{product_id} [get]
func (h *StockHandler) Get(c *fiber.Ctx) error {
	out, err := h.uc.GetStock(c.UserContext(), c.Params("product_id"))
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.JSON(out)
}

// History godoc
// @Summary      Historial de stock de un producto
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        product_id  path      string  true   "ID del producto"
// @Param        limit       query     int     false  "máximo 100"
// @Param        offset      query     int     false  "desplazamiento"
// @Success      200         {array}   dto.StockHistoryResponse
// @Router       /api/stock/{product_id}/history [get]
func (h *StockHandler) History(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return badBody(c)
	}
	out, err := h.uc.History(c.UserContext(), c.Params("product_id"), page)
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.JSON(out)
}
