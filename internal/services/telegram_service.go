package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/example/kabirclub/internal/models"
)

// TelegramService handles sending notifications to Telegram.
type TelegramService struct {
	botToken    string
	adminChatID string
	baseURL     string
	client      *http.Client
	log         *zap.Logger
}

// NewTelegramService creates a new TelegramService.
func NewTelegramService(botToken, adminChatID string, log *zap.Logger) *TelegramService {
	return &TelegramService{
		botToken:    botToken,
		adminChatID: adminChatID,
		baseURL:     "https://api.telegram.org",
		client:      &http.Client{Timeout: 10 * time.Second},
		log:         log.Named("telegram"),
	}
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// SendMessage sends a message to specified chat.
func (s *TelegramService) SendMessage(chatID, text string) error {
	if s.botToken == "" {
		s.log.Debug("bot token not configured, message dropped")
		return nil
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.baseURL, s.botToken)

	body, err := json.Marshal(telegramMessage{
		ChatID:    chatID,
		Text:      text,
		ParseMode: "HTML",
	})
	if err != nil {
		return err
	}

	resp, err := s.client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}

	return nil
}

// SendToAdmin sends a message to the admin chat.
func (s *TelegramService) SendToAdmin(text string) error {
	if s.adminChatID == "" {
		s.log.Debug("admin chat not configured, message dropped")
		return nil
	}
	return s.SendMessage(s.adminChatID, text)
}

// OrderNotification contains order data for Telegram notification.
type OrderNotification struct {
	OrderNumber   string
	Items         []OrderItemNotification
	TotalAmount   decimal.Decimal
	Currency      string
	CustomerName  string
	CustomerPhone string
	City          string
	PaymentMethod string
}

// OrderItemNotification contains order item data.
type OrderItemNotification struct {
	Name     string
	Size     string
	Quantity int
	Price    decimal.Decimal
}

// NewOrderNotification builds the notification payload from a placed order.
func NewOrderNotification(order models.Order) OrderNotification {
	items := make([]OrderItemNotification, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderItemNotification{
			Name:     item.ProductTitle,
			Size:     item.Size,
			Quantity: item.Quantity,
			Price:    item.UnitPrice,
		})
	}

	return OrderNotification{
		OrderNumber:   order.OrderNumber,
		Items:         items,
		TotalAmount:   order.TotalAmount,
		Currency:      order.Currency,
		CustomerName:  order.ShippingAddress.FullName,
		CustomerPhone: order.ShippingAddress.Phone,
		City:          order.ShippingAddress.City,
		PaymentMethod: order.PaymentMethod,
	}
}

// FormatPrice formats an amount with thousand separators, two decimals and
// the currency symbol.
func FormatPrice(amount decimal.Decimal, currency string) string {
	fixed := amount.Abs().StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")

	var result strings.Builder
	if amount.IsNegative() {
		result.WriteByte('-')
	}
	if currency == "" || currency == models.DefaultCurrency {
		result.WriteString("₹")
	}
	for i, digit := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			result.WriteByte(',')
		}
		result.WriteRune(digit)
	}
	result.WriteByte('.')
	result.WriteString(frac)

	if currency != "" && currency != models.DefaultCurrency {
		result.WriteString(" " + currency)
	}
	return result.String()
}

func paymentMethodLabel(method string) string {
	switch method {
	case models.PaymentMethodUPI:
		return "UPI"
	case models.PaymentMethodCashOnDelivery:
		return "Cash on delivery"
	}
	return method
}

// FormatOrderMessage renders the admin chat message for a new order.
func FormatOrderMessage(order OrderNotification) string {
	var itemsList strings.Builder
	for i, item := range order.Items {
		lineTotal := item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		fmt.Fprintf(&itemsList, "%d. <b>%s</b> (%s)\n   %d x %s = %s\n",
			i+1,
			html.EscapeString(item.Name),
			html.EscapeString(item.Size),
			item.Quantity,
			FormatPrice(item.Price, order.Currency),
			FormatPrice(lineTotal, order.Currency),
		)
	}

	message := fmt.Sprintf(`<b>🛒 NEW ORDER</b>
<b>📋 Order:</b> %s
<b>👤 Customer:</b> %s
<b>📞 Phone:</b> %s
<b>📍 City:</b> %s
<b>📦 Items:</b>
%s
<b>💰 Total:</b> %s
<b>💳 Payment:</b> %s
━━━━━━━━━━━━━━━━━━`,
		html.EscapeString(order.OrderNumber),
		html.EscapeString(order.CustomerName),
		html.EscapeString(order.CustomerPhone),
		html.EscapeString(order.City),
		itemsList.String(),
		FormatPrice(order.TotalAmount, order.Currency),
		paymentMethodLabel(order.PaymentMethod),
	)

	return strings.TrimSpace(message)
}

// NotifyNewOrder sends notification about new order to admin chat.
func (s *TelegramService) NotifyNewOrder(order OrderNotification) error {
	if s.adminChatID == "" {
		return nil
	}
	return s.SendToAdmin(FormatOrderMessage(order))
}
