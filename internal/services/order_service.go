package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/kabirclub/internal/models"
	"github.com/example/kabirclub/internal/pricing"
	"github.com/example/kabirclub/internal/utils"
)

// DefaultSize is recorded on an order line when checkout names no size.
const DefaultSize = "M"

// OrderService turns session carts into orders and serves them back.
type OrderService struct {
	db       *gorm.DB
	carts    *CartService
	telegram *TelegramService
	log      *zap.Logger
	upiID    string
	currency string
}

// NewOrderService constructs OrderService. telegram may be nil.
func NewOrderService(db *gorm.DB, carts *CartService, telegram *TelegramService, log *zap.Logger, merchantUPIID, currency string) *OrderService {
	if currency == "" {
		currency = models.DefaultCurrency
	}
	return &OrderService{
		db:       db,
		carts:    carts,
		telegram: telegram,
		log:      log.Named("order"),
		upiID:    merchantUPIID,
		currency: currency,
	}
}

// CheckoutRequest carries everything the shopper submits on the checkout page.
type CheckoutRequest struct {
	SessionID        string
	UserID           *uuid.UUID
	ShippingAddress  models.ShippingAddress
	PaymentMethod    string
	PaymentConfirmed bool
	// Sizes maps a cart line id to the size chosen for it.
	Sizes map[uuid.UUID]string
}

type requiredField struct {
	name  string
	words string
	value string
}

func validateAddress(addr models.ShippingAddress) error {
	fields := []requiredField{
		{"fullName", "full name", addr.FullName},
		{"phone", "phone", addr.Phone},
		{"addressLine1", "address line 1", addr.AddressLine1},
		{"city", "city", addr.City},
		{"state", "state", addr.State},
		{"postalCode", "postal code", addr.PostalCode},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return invalid(f.name, "please fill in "+f.words)
		}
	}
	return nil
}

// PlaceOrder snapshots the live session cart into an order. The order and
// its items are written in one transaction; clearing the cart and notifying
// the admin chat happen afterwards and never fail the checkout.
func (s *OrderService) PlaceOrder(ctx context.Context, req CheckoutRequest) (*models.Order, error) {
	cart, err := s.carts.LoadCart(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, &EmptyCartError{SessionID: req.SessionID}
	}

	if err := validateAddress(req.ShippingAddress); err != nil {
		return nil, err
	}
	if !models.ValidPaymentMethod(req.PaymentMethod) {
		return nil, invalid("paymentMethod", "please select a valid payment method")
	}
	if req.PaymentMethod == models.PaymentMethodUPI && !req.PaymentConfirmed {
		return nil, invalid("paymentConfirmed", "please confirm that you have completed the UPI payment")
	}

	order := models.Order{
		OrderNumber:     generateOrderNumber(),
		SessionID:       req.SessionID,
		UserID:          req.UserID,
		ShippingAddress: trimAddress(req.ShippingAddress),
		PaymentMethod:   req.PaymentMethod,
		PaymentStatus:   models.PaymentStatusPending,
		OrderStatus:     models.OrderStatusPending,
		Subtotal:        cart.Subtotal,
		ShippingCost:    pricing.ShippingCost,
		TotalAmount:     pricing.OrderTotal(cart.Subtotal, pricing.ShippingCost),
		Currency:        s.currency,
	}
	if order.PaymentMethod == models.PaymentMethodUPI {
		order.UPIID = s.upiID
	}

	for _, line := range cart.Lines {
		size := strings.TrimSpace(req.Sizes[line.ID])
		if size == "" {
			size = DefaultSize
		}
		order.Items = append(order.Items, models.OrderItem{
			ProductID:       line.ProductID,
			ProductTitle:    line.Product.Title,
			ProductHandle:   line.Product.Handle,
			ProductCategory: line.Product.Category,
			ProductImage:    line.Product.PrimaryImage(),
			Quantity:        line.Quantity,
			Size:            size,
			UnitPrice:       line.UnitPrice,
			TotalPrice:      line.LineTotal,
		})
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Items").Create(&order).Error; err != nil {
			return err
		}
		for i := range order.Items {
			order.Items[i].OrderID = order.ID
		}
		return tx.Create(&order.Items).Error
	})
	if err != nil {
		return nil, storeErr("create order", err)
	}

	if err := s.carts.Clear(ctx, req.SessionID); err != nil {
		s.log.Warn("cart clear after checkout failed",
			zap.String("order_number", order.OrderNumber),
			zap.String("session_id", req.SessionID),
			zap.Error(errors.Unwrap(err)))
	}

	s.log.Info("order placed",
		zap.String("order_number", order.OrderNumber),
		zap.String("payment_method", order.PaymentMethod),
		zap.String("total", pricing.Format(order.TotalAmount)))

	if s.telegram != nil {
		go s.notify(order)
	}

	return &order, nil
}

func (s *OrderService) notify(order models.Order) {
	if err := s.telegram.NotifyNewOrder(NewOrderNotification(order)); err != nil {
		s.log.Warn("telegram notification failed",
			zap.String("order_number", order.OrderNumber), zap.Error(err))
	}
}

func trimAddress(a models.ShippingAddress) models.ShippingAddress {
	return models.ShippingAddress{
		FullName:     strings.TrimSpace(a.FullName),
		Phone:        strings.TrimSpace(a.Phone),
		AddressLine1: strings.TrimSpace(a.AddressLine1),
		AddressLine2: strings.TrimSpace(a.AddressLine2),
		City:         strings.TrimSpace(a.City),
		State:        strings.TrimSpace(a.State),
		PostalCode:   strings.TrimSpace(a.PostalCode),
		Country:      strings.TrimSpace(a.Country),
	}
}

func generateOrderNumber() string {
	return fmt.Sprintf("KC%d", time.Now().UnixNano()%1000000000000)
}

// ListOrders returns the orders placed from a session or, when userID is set,
// by that user. Newest first.
func (s *OrderService) ListOrders(ctx context.Context, sessionID string, userID *uuid.UUID, pg utils.Pagination) ([]models.Order, int64, error) {
	if strings.TrimSpace(sessionID) == "" && userID == nil {
		return nil, 0, invalid("sessionId", "session is required")
	}

	query := s.ownedBy(s.db.WithContext(ctx).Model(&models.Order{}), sessionID, userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, storeErr("count orders", err)
	}

	orders := []models.Order{}
	if err := query.Preload("Items").
		Order("created_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&orders).Error; err != nil {
		return nil, 0, storeErr("list orders", err)
	}

	return orders, total, nil
}

// GetOrder returns one order if it belongs to the session or the user.
func (s *OrderService) GetOrder(ctx context.Context, id uuid.UUID, sessionID string, userID *uuid.UUID) (*models.Order, error) {
	query := s.ownedBy(s.db.WithContext(ctx).Preload("Items"), sessionID, userID)

	var order models.Order
	if err := query.First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "order"}
		}
		return nil, storeErr("get order", err)
	}
	return &order, nil
}

// FindOrder loads any order by id for the admin panel.
func (s *OrderService) FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := s.db.WithContext(ctx).Preload("Items").First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "order"}
		}
		return nil, storeErr("get order", err)
	}
	return &order, nil
}

func (s *OrderService) ownedBy(query *gorm.DB, sessionID string, userID *uuid.UUID) *gorm.DB {
	if userID != nil {
		return query.Where("(session_id = ? OR user_id = ?)", sessionID, *userID)
	}
	return query.Where("session_id = ?", sessionID)
}

// AdminOrderFilter narrows the admin order list.
type AdminOrderFilter struct {
	OrderStatus   string
	PaymentStatus string
	Search        string
}

// ListAll returns every order for the admin panel.
func (s *OrderService) ListAll(ctx context.Context, filter AdminOrderFilter, pg utils.Pagination) ([]models.Order, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Order{})

	if filter.OrderStatus != "" {
		query = query.Where("order_status = ?", filter.OrderStatus)
	}
	if filter.PaymentStatus != "" {
		query = query.Where("payment_status = ?", filter.PaymentStatus)
	}
	if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
		like := "%" + search + "%"
		query = query.Where("LOWER(order_number) LIKE ? OR LOWER(shipping_full_name) LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, storeErr("count orders", err)
	}

	orders := []models.Order{}
	if err := query.Preload("Items").
		Order("created_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&orders).Error; err != nil {
		return nil, 0, storeErr("list orders", err)
	}

	return orders, total, nil
}

// StatusUpdate changes the lifecycle columns of an order. Nil fields are kept.
type StatusUpdate struct {
	OrderStatus   *string
	PaymentStatus *string
}

// UpdateStatus applies an admin status change. Money fields are never touched
// and a delivered or cancelled order keeps its order status.
func (s *OrderService) UpdateStatus(ctx context.Context, id uuid.UUID, update StatusUpdate) (*models.Order, error) {
	if update.OrderStatus == nil && update.PaymentStatus == nil {
		return nil, invalid("orderStatus", "nothing to update")
	}
	if update.OrderStatus != nil && !models.ValidOrderStatus(*update.OrderStatus) {
		return nil, invalid("orderStatus", "invalid order status")
	}
	if update.PaymentStatus != nil && !models.ValidPaymentStatus(*update.PaymentStatus) {
		return nil, invalid("paymentStatus", "invalid payment status")
	}

	db := s.db.WithContext(ctx)

	var order models.Order
	if err := db.First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "order"}
		}
		return nil, storeErr("get order", err)
	}

	updates := map[string]any{}
	if update.OrderStatus != nil && *update.OrderStatus != order.OrderStatus {
		if order.IsFinal() {
			return nil, invalid("orderStatus", "order is already "+order.OrderStatus)
		}
		updates["order_status"] = *update.OrderStatus
	}
	if update.PaymentStatus != nil && *update.PaymentStatus != order.PaymentStatus {
		updates["payment_status"] = *update.PaymentStatus
	}

	if len(updates) > 0 {
		if err := db.Model(&order).Updates(updates).Error; err != nil {
			return nil, storeErr("update order status", err)
		}
		s.log.Info("order status updated",
			zap.String("order_number", order.OrderNumber), zap.Any("changes", updates))
	}

	return s.FindOrder(ctx, id)
}

// DashboardStats summarises the store for the admin home page.
type DashboardStats struct {
	TotalOrders    int64            `json:"total_orders"`
	PendingOrders  int64            `json:"pending_orders"`
	TotalProducts  int64            `json:"total_products"`
	TotalUsers     int64            `json:"total_users"`
	Revenue        decimal.Decimal  `json:"revenue"`
	OrdersByStatus map[string]int64 `json:"orders_by_status"`
	RecentOrders   []models.Order   `json:"recent_orders"`
}

// Dashboard computes DashboardStats. Cancelled orders do not count as revenue.
func (s *OrderService) Dashboard(ctx context.Context) (*DashboardStats, error) {
	db := s.db.WithContext(ctx)
	stats := DashboardStats{
		Revenue:        decimal.Zero,
		OrdersByStatus: map[string]int64{},
		RecentOrders:   []models.Order{},
	}

	counts := []struct {
		dest  *int64
		model any
		where string
		args  []any
	}{
		{&stats.TotalOrders, &models.Order{}, "", nil},
		{&stats.PendingOrders, &models.Order{}, "order_status = ?", []any{models.OrderStatusPending}},
		{&stats.TotalProducts, &models.Product{}, "", nil},
		{&stats.TotalUsers, &models.User{}, "", nil},
	}
	for _, c := range counts {
		q := db.Model(c.model)
		if c.where != "" {
			q = q.Where(c.where, c.args...)
		}
		if err := q.Count(c.dest).Error; err != nil {
			return nil, storeErr("dashboard counts", err)
		}
	}

	var statusCounts []struct {
		OrderStatus string
		Count       int64
	}
	if err := db.Model(&models.Order{}).
		Select("order_status, count(*) as count").
		Group("order_status").
		Scan(&statusCounts).Error; err != nil {
		return nil, storeErr("dashboard status counts", err)
	}
	for _, sc := range statusCounts {
		stats.OrdersByStatus[sc.OrderStatus] = sc.Count
	}

	var amounts []decimal.Decimal
	if err := db.Model(&models.Order{}).
		Where("order_status <> ?", models.OrderStatusCancelled).
		Pluck("total_amount", &amounts).Error; err != nil {
		return nil, storeErr("dashboard revenue", err)
	}
	for _, a := range amounts {
		stats.Revenue = stats.Revenue.Add(a)
	}

	if err := db.Order("created_at desc").Limit(5).Find(&stats.RecentOrders).Error; err != nil {
		return nil, storeErr("dashboard recent orders", err)
	}

	return &stats, nil
}
