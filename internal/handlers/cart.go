package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/kabirclub/internal/middleware"
	"github.com/example/kabirclub/internal/services"
)

// CartHandler exposes the session cart.
type CartHandler struct {
	carts    *services.CartService
	log      *zap.Logger
	currency string
}

// NewCartHandler constructs CartHandler.
func NewCartHandler(carts *services.CartService, log *zap.Logger, currency string) *CartHandler {
	return &CartHandler{carts: carts, log: log, currency: currency}
}

type addCartItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  *int   `json:"quantity"`
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

// GetCart returns the priced cart of the current session.
func (h *CartHandler) GetCart(c *fiber.Ctx) error {
	return h.respondCart(c, fiber.StatusOK)
}

// AddItem puts a product into the cart.
func (h *CartHandler) AddItem(c *fiber.Ctx) error {
	var req addCartItemRequest
	if err := decodeStrict(addCartItemSchema, c.Body(), &req); err != nil {
		return domainError(h.log, c, err)
	}

	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid product id")
	}

	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	_, err = h.carts.Add(c.UserContext(), services.AddItemInput{
		SessionID: middleware.CurrentSessionID(c),
		ProductID: productID,
		Quantity:  quantity,
		UserID:    middleware.CurrentUserIDPtr(c),
	})
	if err != nil {
		return domainError(h.log, c, err)
	}

	return h.respondCart(c, fiber.StatusCreated)
}

// UpdateItem sets the quantity of a cart line. Zero removes it.
func (h *CartHandler) UpdateItem(c *fiber.Ctx) error {
	lineID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var req updateCartItemRequest
	if err := decodeStrict(updateCartItemSchema, c.Body(), &req); err != nil {
		return domainError(h.log, c, err)
	}

	if _, err := h.carts.UpdateQuantity(c.UserContext(), middleware.CurrentSessionID(c), lineID, req.Quantity); err != nil {
		return domainError(h.log, c, err)
	}

	return h.respondCart(c, fiber.StatusOK)
}

// RemoveItem deletes a cart line.
func (h *CartHandler) RemoveItem(c *fiber.Ctx) error {
	lineID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	if err := h.carts.Remove(c.UserContext(), middleware.CurrentSessionID(c), lineID); err != nil {
		return domainError(h.log, c, err)
	}

	return h.respondCart(c, fiber.StatusOK)
}

// ClearCart empties the cart.
func (h *CartHandler) ClearCart(c *fiber.Ctx) error {
	if err := h.carts.Clear(c.UserContext(), middleware.CurrentSessionID(c)); err != nil {
		return domainError(h.log, c, err)
	}
	return h.respondCart(c, fiber.StatusOK)
}

func (h *CartHandler) respondCart(c *fiber.Ctx, status int) error {
	cart, err := h.carts.GetCart(c.UserContext(), middleware.CurrentSessionID(c))
	if err != nil {
		return domainError(h.log, c, err)
	}

	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"data":    renderCart(cart, h.currency),
	})
}
