package models

import "github.com/google/uuid"

// CartItem is one product line of a session cart. A session holds at most
// one row per product; repeated adds increment Quantity.
type CartItem struct {
	BaseModel
	ProductID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_cart_items_product_session" json:"product_id"`
	SessionID string     `gorm:"not null;uniqueIndex:idx_cart_items_product_session;index" json:"session_id"`
	UserID    *uuid.UUID `gorm:"type:uuid;index" json:"user_id,omitempty"`
	Quantity  int        `gorm:"not null" json:"quantity"`
}
