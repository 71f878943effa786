package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/kabirclub/internal/models"
	"github.com/example/kabirclub/internal/pricing"
)

// CartService owns the session cart rows and derives priced carts from them.
type CartService struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewCartService constructs CartService.
func NewCartService(db *gorm.DB, log *zap.Logger) *CartService {
	return &CartService{db: db, log: log.Named("cart")}
}

// CartLine is a cart row joined with the live product price.
type CartLine struct {
	ID        uuid.UUID
	ProductID uuid.UUID
	Quantity  int
	UnitPrice decimal.Decimal
	LineTotal decimal.Decimal
	Product   models.Product
}

// Cart is derived from the session rows on every read and never stored.
type Cart struct {
	SessionID     string
	Lines         []CartLine
	TotalQuantity int
	Subtotal      decimal.Decimal
	TaxAmount     decimal.Decimal
	TotalAmount   decimal.Decimal
}

// IsEmpty reports whether the cart has no eligible lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

func newCart(sessionID string, lines []CartLine) *Cart {
	priced := make([]pricing.Line, 0, len(lines))
	for _, line := range lines {
		priced = append(priced, pricing.Line{UnitPrice: line.UnitPrice, Quantity: line.Quantity})
	}
	totals := pricing.Calculate(priced)

	if lines == nil {
		lines = []CartLine{}
	}

	return &Cart{
		SessionID:     sessionID,
		Lines:         lines,
		TotalQuantity: totals.TotalQuantity,
		Subtotal:      totals.Subtotal,
		TaxAmount:     totals.TaxAmount,
		TotalAmount:   totals.TotalAmount,
	}
}

// GetCart returns the priced cart for a session. A storage failure is logged
// and rendered as an empty cart so the storefront can always show one.
func (s *CartService) GetCart(ctx context.Context, sessionID string) (*Cart, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, invalid("sessionId", "session is required")
	}

	cart, err := s.LoadCart(ctx, sessionID)
	if err != nil {
		s.log.Warn("cart read failed, returning empty cart",
			zap.String("session_id", sessionID), zap.Error(errors.Unwrap(err)))
		return newCart(sessionID, nil), nil
	}
	return cart, nil
}

// LoadCart is GetCart without the empty-cart fallback: storage failures are
// returned as BackingStoreError.
func (s *CartService) LoadCart(ctx context.Context, sessionID string) (*Cart, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, invalid("sessionId", "session is required")
	}
	return loadCart(s.db.WithContext(ctx), sessionID)
}

func loadCart(tx *gorm.DB, sessionID string) (*Cart, error) {
	var rows []models.CartItem
	if err := tx.Where("session_id = ?", sessionID).
		Order("created_at asc, id asc").
		Find(&rows).Error; err != nil {
		return nil, storeErr("load cart rows", err)
	}

	if len(rows) == 0 {
		return newCart(sessionID, nil), nil
	}

	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ProductID)
	}

	var products []models.Product
	if err := tx.Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, storeErr("load cart products", err)
	}

	byID := make(map[uuid.UUID]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	lines := make([]CartLine, 0, len(rows))
	for _, row := range rows {
		product, ok := byID[row.ProductID]
		if !ok || row.Quantity < 1 {
			// Dangling row: the product was deleted after it was carted.
			continue
		}
		line := pricing.Line{UnitPrice: product.Price, Quantity: row.Quantity}
		lines = append(lines, CartLine{
			ID:        row.ID,
			ProductID: row.ProductID,
			Quantity:  row.Quantity,
			UnitPrice: product.Price,
			LineTotal: line.Total(),
			Product:   product,
		})
	}

	return newCart(sessionID, lines), nil
}

// AddItemInput is the canonical add-to-cart request.
type AddItemInput struct {
	SessionID string
	ProductID uuid.UUID
	Quantity  int
	UserID    *uuid.UUID
}

// Add puts quantity units of a product into the session cart. When the
// product is already present the quantities are summed in a single upsert,
// so concurrent adds never produce duplicate rows.
func (s *CartService) Add(ctx context.Context, in AddItemInput) (*models.CartItem, error) {
	if strings.TrimSpace(in.SessionID) == "" {
		return nil, invalid("sessionId", "session is required")
	}
	if in.ProductID == uuid.Nil {
		return nil, invalid("productId", "product is required")
	}
	if in.Quantity < 1 {
		return nil, invalid("quantity", "quantity must be at least 1")
	}

	db := s.db.WithContext(ctx)

	var product models.Product
	if err := db.Select("id").First(&product, "id = ?", in.ProductID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "product"}
		}
		return nil, storeErr("lookup product", err)
	}

	row := models.CartItem{
		ProductID: in.ProductID,
		SessionID: in.SessionID,
		UserID:    in.UserID,
		Quantity:  in.Quantity,
	}

	if err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "product_id"}, {Name: "session_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity":   gorm.Expr("cart_items.quantity + excluded.quantity"),
			"updated_at": gorm.Expr("excluded.updated_at"),
		}),
	}).Create(&row).Error; err != nil {
		return nil, storeErr("upsert cart item", err)
	}

	var stored models.CartItem
	if err := db.Where("product_id = ? AND session_id = ?", in.ProductID, in.SessionID).
		First(&stored).Error; err != nil {
		return nil, storeErr("reload cart item", err)
	}

	s.log.Debug("cart item added",
		zap.String("session_id", in.SessionID),
		zap.String("product_id", in.ProductID.String()),
		zap.Int("quantity", stored.Quantity))

	return &stored, nil
}

// UpdateQuantity sets the absolute quantity of a line. Zero removes the line
// and returns a nil row.
func (s *CartService) UpdateQuantity(ctx context.Context, sessionID string, lineID uuid.UUID, quantity int) (*models.CartItem, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, invalid("sessionId", "session is required")
	}
	if quantity < 0 {
		return nil, invalid("quantity", "quantity cannot be negative")
	}
	if quantity == 0 {
		return nil, s.Remove(ctx, sessionID, lineID)
	}

	db := s.db.WithContext(ctx)

	result := db.Model(&models.CartItem{}).
		Where("id = ? AND session_id = ?", lineID, sessionID).
		Update("quantity", quantity)
	if result.Error != nil {
		return nil, storeErr("update cart item", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, &NotFoundError{Resource: "cart item"}
	}

	var stored models.CartItem
	if err := db.First(&stored, "id = ?", lineID).Error; err != nil {
		return nil, storeErr("reload cart item", err)
	}
	return &stored, nil
}

// Remove deletes a line. Removing a line that is already gone succeeds.
func (s *CartService) Remove(ctx context.Context, sessionID string, lineID uuid.UUID) error {
	if strings.TrimSpace(sessionID) == "" {
		return invalid("sessionId", "session is required")
	}

	err := s.db.WithContext(ctx).
		Where("id = ? AND session_id = ?", lineID, sessionID).
		Delete(&models.CartItem{}).Error
	return storeErr("delete cart item", err)
}

// Clear deletes every row of the session cart.
func (s *CartService) Clear(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return invalid("sessionId", "session is required")
	}
	return clearCart(s.db.WithContext(ctx), sessionID)
}

func clearCart(tx *gorm.DB, sessionID string) error {
	err := tx.Where("session_id = ?", sessionID).Delete(&models.CartItem{}).Error
	return storeErr("clear cart", err)
}
