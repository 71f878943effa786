package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	PaymentMethodCashOnDelivery = "cash_on_delivery"
	PaymentMethodUPI            = "upi"
)

const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
	PaymentStatusFailed  = "failed"
)

const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusShipped   = "shipped"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

// ShippingAddress is stored inline on the order row.
type ShippingAddress struct {
	FullName     string `json:"fullName"`
	Phone        string `json:"phone"`
	AddressLine1 string `json:"addressLine1"`
	AddressLine2 string `json:"addressLine2,omitempty"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postalCode"`
	Country      string `json:"country"`
}

// Order is an immutable snapshot of a checked-out cart. Only the two status
// columns change after creation.
type Order struct {
	BaseModel
	OrderNumber     string          `gorm:"uniqueIndex" json:"order_number"`
	SessionID       string          `gorm:"index;not null" json:"session_id"`
	UserID          *uuid.UUID      `gorm:"type:uuid;index" json:"user_id,omitempty"`
	ShippingAddress ShippingAddress `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping_address"`
	PaymentMethod   string          `gorm:"not null" json:"payment_method"`
	UPIID           string          `gorm:"column:upi_id" json:"upi_id,omitempty"`
	PaymentStatus   string          `gorm:"index;not null" json:"payment_status"`
	OrderStatus     string          `gorm:"index;not null" json:"order_status"`
	Subtotal        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	ShippingCost    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"shipping_cost"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_amount"`
	Currency        string          `json:"currency"`
	Items           []OrderItem     `json:"items,omitempty"`
}

// OrderItem copies the product at order time so later catalog edits never
// change a placed order.
type OrderItem struct {
	BaseModel
	OrderID         uuid.UUID       `gorm:"type:uuid;index" json:"order_id"`
	ProductID       uuid.UUID       `gorm:"type:uuid;index" json:"product_id"`
	ProductTitle    string          `json:"product_title"`
	ProductHandle   string          `json:"product_handle"`
	ProductCategory string          `json:"product_category"`
	ProductImage    string          `json:"product_image"`
	Quantity        int             `json:"quantity"`
	Size            string          `json:"size"`
	UnitPrice       decimal.Decimal `gorm:"type:decimal(12,2)" json:"unit_price"`
	TotalPrice      decimal.Decimal `gorm:"type:decimal(12,2)" json:"total_price"`
}

// ValidPaymentMethod reports whether m is an accepted checkout payment method.
func ValidPaymentMethod(m string) bool {
	return m == PaymentMethodCashOnDelivery || m == PaymentMethodUPI
}

// ValidPaymentStatus reports whether s is a known payment status.
func ValidPaymentStatus(s string) bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed:
		return true
	}
	return false
}

// ValidOrderStatus reports whether s is a known order status.
func ValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// IsFinal reports whether the order status can no longer change.
func (o Order) IsFinal() bool {
	return o.OrderStatus == OrderStatusDelivered || o.OrderStatus == OrderStatusCancelled
}
