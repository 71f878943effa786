package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/kabirclub/internal/middleware"
	"github.com/example/kabirclub/internal/services"
	"github.com/example/kabirclub/internal/utils"
)

// AdminHandler manages admin-only endpoints.
type AdminHandler struct {
	orders   *services.OrderService
	users    *services.UserService
	log      *zap.Logger
	currency string
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(orders *services.OrderService, users *services.UserService, log *zap.Logger, currency string) *AdminHandler {
	return &AdminHandler{orders: orders, users: users, log: log, currency: currency}
}

// DashboardStats returns aggregate statistics for the admin dashboard.
func (h *AdminHandler) DashboardStats(c *fiber.Ctx) error {
	stats, err := h.orders.Dashboard(c.UserContext())
	if err != nil {
		return domainError(h.log, c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"total_users":      stats.TotalUsers,
			"total_orders":     stats.TotalOrders,
			"pending_orders":   stats.PendingOrders,
			"total_products":   stats.TotalProducts,
			"total_revenue":    money(stats.Revenue, h.currency),
			"orders_by_status": stats.OrdersByStatus,
			"recent_orders":    renderOrders(stats.RecentOrders),
		},
	})
}

// ListAllOrders returns all orders with pagination and filtering.
func (h *AdminHandler) ListAllOrders(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)

	orders, total, err := h.orders.ListAll(c.UserContext(), services.AdminOrderFilter{
		OrderStatus:   c.Query("status"),
		PaymentStatus: c.Query("payment_status"),
		Search:        c.Query("search"),
	}, pg)
	if err != nil {
		return domainError(h.log, c, err)
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"data":       renderOrders(orders),
		"pagination": pg.Meta(total),
	})
}

// GetOrder returns any order by id.
func (h *AdminHandler) GetOrder(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	order, err := h.orders.FindOrder(c.UserContext(), id)
	if err != nil {
		return domainError(h.log, c, err)
	}

	return c.JSON(fiber.Map{"success": true, "data": renderOrder(*order)})
}

type orderStatusRequest struct {
	OrderStatus   *string `json:"orderStatus"`
	PaymentStatus *string `json:"paymentStatus"`
}

// UpdateOrderStatus moves an order or its payment along the lifecycle.
func (h *AdminHandler) UpdateOrderStatus(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var req orderStatusRequest
	if err := decodeStrict(orderStatusSchema, c.Body(), &req); err != nil {
		return domainError(h.log, c, err)
	}

	order, err := h.orders.UpdateStatus(c.UserContext(), id, services.StatusUpdate{
		OrderStatus:   req.OrderStatus,
		PaymentStatus: req.PaymentStatus,
	})
	if err != nil {
		return domainError(h.log, c, err)
	}

	auth, _ := middleware.CurrentAuth(c)
	h.log.Info("order status updated",
		zap.String("order", order.OrderNumber),
		zap.String("order_status", order.OrderStatus),
		zap.String("payment_status", order.PaymentStatus),
		zap.String("by", auth.Email))

	return c.JSON(fiber.Map{"success": true, "data": renderOrder(*order)})
}

// ListAllUsers returns registered users with their order statistics.
func (h *AdminHandler) ListAllUsers(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)

	users, total, err := h.users.ListUsers(c.UserContext(), c.Query("search"), pg)
	if err != nil {
		return domainError(h.log, c, err)
	}

	type userResponse struct {
		userView
		OrderCount int64     `json:"orderCount"`
		TotalSpent moneyView `json:"totalSpent"`
		CreatedAt  string    `json:"createdAt"`
	}

	result := make([]userResponse, 0, len(users))
	for i := range users {
		result = append(result, userResponse{
			userView:   renderUser(&users[i].User),
			OrderCount: users[i].OrderCount,
			TotalSpent: money(users[i].TotalSpent, h.currency),
			CreatedAt:  users[i].CreatedAt.Format(timeLayout),
		})
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"data":       result,
		"pagination": pg.Meta(total),
	})
}
