package handlers

import (
	"github.com/shopspring/decimal"

	"github.com/example/kabirclub/internal/models"
	"github.com/example/kabirclub/internal/pricing"
	"github.com/example/kabirclub/internal/services"
)

type moneyView struct {
	Amount       string `json:"amount"`
	CurrencyCode string `json:"currencyCode"`
}

func money(amount decimal.Decimal, currency string) moneyView {
	return moneyView{Amount: pricing.Format(amount), CurrencyCode: currency}
}

type cartProductView struct {
	ID       string   `json:"id"`
	Handle   string   `json:"handle"`
	Title    string   `json:"title"`
	Category string   `json:"category"`
	Image    string   `json:"featuredImage"`
	Images   []string `json:"images"`
}

type cartLineView struct {
	ID          string `json:"id"`
	Quantity    int    `json:"quantity"`
	Merchandise struct {
		ID      string          `json:"id"`
		Title   string          `json:"title"`
		Price   moneyView       `json:"price"`
		Product cartProductView `json:"product"`
	} `json:"merchandise"`
	Cost struct {
		TotalAmount moneyView `json:"totalAmount"`
	} `json:"cost"`
}

type cartView struct {
	SessionID     string         `json:"sessionId"`
	Lines         []cartLineView `json:"lines"`
	TotalQuantity int            `json:"totalQuantity"`
	Cost          struct {
		SubtotalAmount moneyView `json:"subtotalAmount"`
		TotalTaxAmount moneyView `json:"totalTaxAmount"`
		TotalAmount    moneyView `json:"totalAmount"`
	} `json:"cost"`
}

func renderCart(cart *services.Cart, currency string) cartView {
	view := cartView{
		SessionID:     cart.SessionID,
		Lines:         make([]cartLineView, 0, len(cart.Lines)),
		TotalQuantity: cart.TotalQuantity,
	}
	view.Cost.SubtotalAmount = money(cart.Subtotal, currency)
	view.Cost.TotalTaxAmount = money(cart.TaxAmount, currency)
	view.Cost.TotalAmount = money(cart.TotalAmount, currency)

	for _, line := range cart.Lines {
		lv := cartLineView{ID: line.ID.String(), Quantity: line.Quantity}
		lv.Merchandise.ID = line.ProductID.String()
		lv.Merchandise.Title = line.Product.Title
		lv.Merchandise.Price = money(line.UnitPrice, currency)
		lv.Merchandise.Product = cartProductView{
			ID:       line.Product.ID.String(),
			Handle:   line.Product.Handle,
			Title:    line.Product.Title,
			Category: line.Product.Category,
			Image:    line.Product.PrimaryImage(),
			Images:   append([]string{}, line.Product.Images...),
		}
		lv.Cost.TotalAmount = money(line.LineTotal, currency)
		view.Lines = append(view.Lines, lv)
	}

	return view
}

type orderItemView struct {
	ID              string    `json:"id"`
	ProductID       string    `json:"productId"`
	ProductTitle    string    `json:"productTitle"`
	ProductHandle   string    `json:"productHandle"`
	ProductCategory string    `json:"productCategory"`
	ProductImage    string    `json:"productImage"`
	Quantity        int       `json:"quantity"`
	Size            string    `json:"size"`
	UnitPrice       moneyView `json:"unitPrice"`
	TotalPrice      moneyView `json:"totalPrice"`
}

type orderView struct {
	ID              string                 `json:"id"`
	OrderNumber     string                 `json:"orderNumber"`
	SessionID       string                 `json:"sessionId"`
	UserID          *string                `json:"userId,omitempty"`
	ShippingAddress models.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string                 `json:"paymentMethod"`
	UPIID           string                 `json:"upiId,omitempty"`
	PaymentStatus   string                 `json:"paymentStatus"`
	OrderStatus     string                 `json:"orderStatus"`
	Subtotal        moneyView              `json:"subtotal"`
	ShippingCost    moneyView              `json:"shippingCost"`
	TotalAmount     moneyView              `json:"totalAmount"`
	Items           []orderItemView        `json:"items"`
	CreatedAt       string                 `json:"createdAt"`
	UpdatedAt       string                 `json:"updatedAt"`
}

const timeLayout = "2006-01-02T15:04:05Z07:00"

func renderOrder(order models.Order) orderView {
	view := orderView{
		ID:              order.ID.String(),
		OrderNumber:     order.OrderNumber,
		SessionID:       order.SessionID,
		ShippingAddress: order.ShippingAddress,
		PaymentMethod:   order.PaymentMethod,
		UPIID:           order.UPIID,
		PaymentStatus:   order.PaymentStatus,
		OrderStatus:     order.OrderStatus,
		Subtotal:        money(order.Subtotal, order.Currency),
		ShippingCost:    money(order.ShippingCost, order.Currency),
		TotalAmount:     money(order.TotalAmount, order.Currency),
		Items:           make([]orderItemView, 0, len(order.Items)),
		CreatedAt:       order.CreatedAt.Format(timeLayout),
		UpdatedAt:       order.UpdatedAt.Format(timeLayout),
	}
	if order.UserID != nil {
		id := order.UserID.String()
		view.UserID = &id
	}

	for _, item := range order.Items {
		view.Items = append(view.Items, orderItemView{
			ID:              item.ID.String(),
			ProductID:       item.ProductID.String(),
			ProductTitle:    item.ProductTitle,
			ProductHandle:   item.ProductHandle,
			ProductCategory: item.ProductCategory,
			ProductImage:    item.ProductImage,
			Quantity:        item.Quantity,
			Size:            item.Size,
			UnitPrice:       money(item.UnitPrice, order.Currency),
			TotalPrice:      money(item.TotalPrice, order.Currency),
		})
	}

	return view
}

func renderOrders(orders []models.Order) []orderView {
	views := make([]orderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, renderOrder(o))
	}
	return views
}

type productView struct {
	ID          string    `json:"id"`
	Handle      string    `json:"handle"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Price       moneyView `json:"price"`
	Category    string    `json:"category"`
	Images      []string  `json:"images"`
	CreatedAt   string    `json:"createdAt"`
	UpdatedAt   string    `json:"updatedAt"`
}

func renderProduct(p models.Product, currency string) productView {
	images := []string(p.Images)
	if images == nil {
		images = []string{}
	}
	return productView{
		ID:          p.ID.String(),
		Handle:      p.Handle,
		Title:       p.Title,
		Description: p.Description,
		Price:       money(p.Price, currency),
		Category:    p.Category,
		Images:      images,
		CreatedAt:   p.CreatedAt.Format(timeLayout),
		UpdatedAt:   p.UpdatedAt.Format(timeLayout),
	}
}

func renderProducts(products []models.Product, currency string) []productView {
	views := make([]productView, 0, len(products))
	for _, p := range products {
		views = append(views, renderProduct(p, currency))
	}
	return views
}
