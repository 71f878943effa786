package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/kabirclub/internal/middleware"
	"github.com/example/kabirclub/internal/models"
	"github.com/example/kabirclub/internal/services"
	"github.com/example/kabirclub/internal/utils"
)

// OrderHandler manages checkout and order history endpoints.
type OrderHandler struct {
	orders *services.OrderService
	log    *zap.Logger
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(orders *services.OrderService, log *zap.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, log: log}
}

type checkoutRequest struct {
	ShippingAddress  models.ShippingAddress `json:"shippingAddress"`
	PaymentMethod    string                 `json:"paymentMethod"`
	PaymentConfirmed bool                   `json:"paymentConfirmed"`
	Sizes            map[string]string      `json:"sizes"`
}

// Checkout turns the session cart into an order.
func (h *OrderHandler) Checkout(c *fiber.Ctx) error {
	var req checkoutRequest
	if err := decodeStrict(checkoutSchema, c.Body(), &req); err != nil {
		return domainError(h.log, c, err)
	}

	sizes := make(map[uuid.UUID]string, len(req.Sizes))
	for lineID, size := range req.Sizes {
		id, err := uuid.Parse(lineID)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid cart line id in sizes")
		}
		sizes[id] = size
	}

	order, err := h.orders.PlaceOrder(c.UserContext(), services.CheckoutRequest{
		SessionID:        middleware.CurrentSessionID(c),
		UserID:           middleware.CurrentUserIDPtr(c),
		ShippingAddress:  req.ShippingAddress,
		PaymentMethod:    req.PaymentMethod,
		PaymentConfirmed: req.PaymentConfirmed,
		Sizes:            sizes,
	})
	if err != nil {
		return domainError(h.log, c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    renderOrder(*order),
	})
}

// ListOrders returns orders of the current session and signed-in user.
func (h *OrderHandler) ListOrders(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)

	orders, total, err := h.orders.ListOrders(c.UserContext(),
		middleware.CurrentSessionID(c), middleware.CurrentUserIDPtr(c), pg)
	if err != nil {
		return domainError(h.log, c, err)
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"data":       renderOrders(orders),
		"pagination": pg.Meta(total),
	})
}

// GetOrder returns a single order visible to the caller.
func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	order, err := h.orders.GetOrder(c.UserContext(), id,
		middleware.CurrentSessionID(c), middleware.CurrentUserIDPtr(c))
	if err != nil {
		return domainError(h.log, c, err)
	}

	return c.JSON(fiber.Map{"success": true, "data": renderOrder(*order)})
}
