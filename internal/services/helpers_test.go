package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/kabirclub/internal/database/databasetest"
	"github.com/example/kabirclub/internal/models"
	"github.com/example/kabirclub/internal/utils"
)

type fixture struct {
	db      *gorm.DB
	carts   *CartService
	orders  *OrderService
	catalog *CatalogService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := databasetest.New(t)
	log := zap.NewNop()
	carts := NewCartService(db, log)

	return &fixture{
		db:      db,
		carts:   carts,
		orders:  NewOrderService(db, carts, NewTelegramService("", "", log), log, "kabirclub@upi", "INR"),
		catalog: NewCatalogService(db, log),
	}
}

func (f *fixture) product(t *testing.T, title, price, category string) models.Product {
	t.Helper()

	p := models.Product{
		Handle:   utils.Slugify(title),
		Title:    title,
		Price:    decimal.RequireFromString(price),
		Category: category,
		Images:   []string{"https://cdn.example.in/" + utils.Slugify(title) + ".jpg"},
	}
	require.NoError(t, f.db.Create(&p).Error)
	return p
}

func validAddress() models.ShippingAddress {
	return models.ShippingAddress{
		FullName:     "Kabir Mehta",
		Phone:        "+91 98765 43210",
		AddressLine1: "12 MG Road",
		City:         "Bengaluru",
		State:        "Karnataka",
		PostalCode:   "560001",
		Country:      "India",
	}
}
