package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/Entregas-api/internal/application/delivery"
	"github.com/jhoicas/Entregas-api/internal/application/dto"
)

// DeliveryHandler maneja las peticiones HTTP de entregas (protegido).
type DeliveryHandler struct {
	orch *delivery.Orchestrator
	errs errorWriter
}

// NewDeliveryHandler construye el handler.
func NewDeliveryHandler(orch *delivery.Orchestrator, errs errorWriter) *DeliveryHandler {
	return &DeliveryHandler{orch: orch, errs: errs}
}

// Create godoc
// @Summary      Crear entrega
// @Description  Descuenta el stock de los productos con seguimiento en la misma transacción.
// @Tags         deliveries
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body      dto.CreateDeliveryRequest  true  "client_id, lines, from_user_id opcional"
// @Success      201   {object}  dto.DeliveryResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/deliveries [post]
func (h *DeliveryHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateDeliveryRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.orch.Create(c.UserContext(), ActorFrom(c), in)
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// Update godoc
// @Summary      Reemplazar líneas de una entrega
// @Description  Solo en IN_PROGRESS. Omitir un producto devuelve su stock.
// @Tags         deliveries
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path      string                     true  "ID de la entrega"
// @Param        body  body      dto.UpdateDeliveryRequest  true  "líneas completas"
// @Success      200   {object}  dto.DeliveryResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/deliveries/{id} [put]
func (h *DeliveryHandler) Update(c *fiber.Ctx) error {
	var in dto.UpdateDeliveryRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.orch.Update(c.UserContext(), ActorFrom(c), c.Params("id"), in)
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.JSON(out)
}

// Transition godoc
// @Summary      Cambiar estado de una entrega
// @Tags         deliveries
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path      string                         true  "ID de la entrega"
// @Param        body  body      dto.TransitionDeliveryRequest  true  "estado destino"
// @Success      200   {object}  dto.DeliveryResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/deliveries/{id}/state [post]
func (h *DeliveryHandler) Transition(c *fiber.Ctx) error {
	var in dto.TransitionDeliveryRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.orch.TransitionDelivery(c.UserContext(), ActorFrom(c), c.Params("id"), in.State)
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.JSON(out)
}

// Delete godoc
// @Summary      Eliminar entrega
// @Description  No devuelve el stock descontado.
// @Tags         deliveries
// @Security     Bearer
// @Param        id   path  string  true  "ID de la entrega"
// @Success      204
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/deliveries/{id} [delete]
func (h *DeliveryHandler) Delete(c *fiber.Ctx) error {
	if err := h.orch.Delete(c.UserContext(), ActorFrom(c), c.Params("id")); err != nil {
		return h.errs.write(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetByID godoc
// @Summary      Obtener entrega
// @Tags         deliveries
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID de la entrega"
// @Success      200  {object}  dto.DeliveryResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/deliveries/{id} [get]
func (h *DeliveryHandler) GetByID(c *fiber.Ctx) error {
	out, err := h.orch.Get(c.UserContext(), ActorFrom(c), c.Params("id"))
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.JSON(out)
}

// List godoc
// @Summary      Listar entregas
// @Tags         deliveries
// @Security     Bearer
// @Produce      json
// @Param        limit   query     int  false  "máximo 100"
// @Param        offset  query     int  false  "desplazamiento"
// @Success      200     {object}  map[string]interface{}
// @Router       /api/deliveries [get]
func (h *DeliveryHandler) List(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return badBody(c)
	}
	page.Normalize()
	list, err := h.orch.List(c.UserContext(), ActorFrom(c), page)
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.JSON(fiber.Map{
		"items": list,
		"page":  dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	})
}
