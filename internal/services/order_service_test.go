package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/example/kabirclub/internal/models"
	"github.com/example/kabirclub/internal/utils"
)

func TestPlaceOrderSnapshotsCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p1 := f.product(t, "Oversized Tee", "999.00", "t-shirts")
	p2 := f.product(t, "Cargo Pants", "1499.00", "pants")

	teeLine, err := f.carts.Add(ctx, AddItemInput{SessionID: "abc123", ProductID: p1.ID, Quantity: 2})
	require.NoError(t, err)
	_, err = f.carts.Add(ctx, AddItemInput{SessionID: "abc123", ProductID: p2.ID, Quantity: 1})
	require.NoError(t, err)

	order, err := f.orders.PlaceOrder(ctx, CheckoutRequest{
		SessionID:       "abc123",
		ShippingAddress: validAddress(),
		PaymentMethod:   models.PaymentMethodCashOnDelivery,
		Sizes:           map[uuid.UUID]string{teeLine.ID: "L"},
	})
	require.NoError(t, err)

	assert.Equal(t, "3497.00", order.Subtotal.StringFixed(2))
	assert.True(t, order.ShippingCost.IsZero())
	assert.Equal(t, "3497.00", order.TotalAmount.StringFixed(2))
	assert.Equal(t, models.PaymentStatusPending, order.PaymentStatus)
	assert.Equal(t, models.OrderStatusPending, order.OrderStatus)
	assert.Equal(t, "INR", order.Currency)
	assert.Empty(t, order.UPIID)
	assert.NotEmpty(t, order.OrderNumber)

	stored, err := f.orders.GetOrder(ctx, order.ID, "abc123", nil)
	require.NoError(t, err)
	require.Len(t, stored.Items, 2)

	sizes := map[uuid.UUID]string{}
	for _, item := range stored.Items {
		sizes[item.ProductID] = item.Size
		if item.ProductID == p1.ID {
			assert.Equal(t, "Oversized Tee", item.ProductTitle)
			assert.Equal(t, 2, item.Quantity)
			assert.Equal(t, "1998.00", item.TotalPrice.StringFixed(2))
			assert.Equal(t, p1.Images[0], item.ProductImage)
		}
	}
	assert.Equal(t, "L", sizes[p1.ID])
	assert.Equal(t, DefaultSize, sizes[p2.ID])

	cart, err := f.carts.GetCart(ctx, "abc123")
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())
}

func TestPlaceOrderIsImmutableToPriceChanges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tee := f.product(t, "Oversized Tee", "999.00", "t-shirts")

	_, err := f.carts.Add(ctx, AddItemInput{SessionID: "s1", ProductID: tee.ID, Quantity: 3})
	require.NoError(t, err)

	order, err := f.orders.PlaceOrder(ctx, CheckoutRequest{
		SessionID:       "s1",
		ShippingAddress: validAddress(),
		PaymentMethod:   models.PaymentMethodCashOnDelivery,
	})
	require.NoError(t, err)

	require.NoError(t, f.db.Model(&models.Product{}).Where("id = ?", tee.ID).Update("price", "1.00").Error)

	stored, err := f.orders.GetOrder(ctx, order.ID, "s1", nil)
	require.NoError(t, err)
	require.Len(t, stored.Items, 1)
	assert.Equal(t, "999.00", stored.Items[0].UnitPrice.StringFixed(2))
	assert.Equal(t, "2997.00", stored.Items[0].TotalPrice.StringFixed(2))
	assert.Equal(t, "2997.00", stored.TotalAmount.StringFixed(2))
}

func TestPlaceOrderEmptyCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.orders.PlaceOrder(ctx, CheckoutRequest{
		SessionID:       "nobody",
		ShippingAddress: validAddress(),
		PaymentMethod:   models.PaymentMethodCashOnDelivery,
	})
	var emptyErr *EmptyCartError
	require.ErrorAs(t, err, &emptyErr)

	var count int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestPlaceOrderEmptyCartWinsOverValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.orders.PlaceOrder(context.Background(), CheckoutRequest{SessionID: "nobody"})
	var emptyErr *EmptyCartError
	assert.ErrorAs(t, err, &emptyErr)
}

func TestPlaceOrderValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tee := f.product(t, "Oversized Tee", "999.00", "t-shirts")

	_, err := f.carts.Add(ctx, AddItemInput{SessionID: "s1", ProductID: tee.ID, Quantity: 1})
	require.NoError(t, err)

	blank := func(mutate func(*models.ShippingAddress)) models.ShippingAddress {
		addr := validAddress()
		mutate(&addr)
		return addr
	}

	cases := []struct {
		name    string
		req     CheckoutRequest
		field   string
		message string
	}{
		{
			name:    "all address fields missing reports full name first",
			req:     CheckoutRequest{PaymentMethod: "bitcoin"},
			field:   "fullName",
			message: "please fill in full name",
		},
		{
			name: "whitespace city",
			req: CheckoutRequest{
				ShippingAddress: blank(func(a *models.ShippingAddress) { a.City = "   " }),
				PaymentMethod:   models.PaymentMethodCashOnDelivery,
			},
			field:   "city",
			message: "please fill in city",
		},
		{
			name: "missing postal code before payment method",
			req: CheckoutRequest{
				ShippingAddress: blank(func(a *models.ShippingAddress) { a.PostalCode = "" }),
				PaymentMethod:   "bitcoin",
			},
			field:   "postalCode",
			message: "please fill in postal code",
		},
		{
			name:    "unknown payment method",
			req:     CheckoutRequest{ShippingAddress: validAddress(), PaymentMethod: "bitcoin"},
			field:   "paymentMethod",
			message: "please select a valid payment method",
		},
		{
			name:    "unconfirmed upi",
			req:     CheckoutRequest{ShippingAddress: validAddress(), PaymentMethod: models.PaymentMethodUPI},
			field:   "paymentConfirmed",
			message: "please confirm that you have completed the UPI payment",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.req.SessionID = "s1"
			_, err := f.orders.PlaceOrder(ctx, tc.req)
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tc.field, vErr.Field)
			assert.Equal(t, tc.message, vErr.Message)
		})
	}

	cart, err := f.carts.GetCart(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, cart.Lines, 1)
}

func TestPlaceOrderUPI(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tee := f.product(t, "Oversized Tee", "999.00", "t-shirts")
	userID := uuid.New()

	_, err := f.carts.Add(ctx, AddItemInput{SessionID: "s1", ProductID: tee.ID, Quantity: 1})
	require.NoError(t, err)

	order, err := f.orders.PlaceOrder(ctx, CheckoutRequest{
		SessionID:        "s1",
		UserID:           &userID,
		ShippingAddress:  validAddress(),
		PaymentMethod:    models.PaymentMethodUPI,
		PaymentConfirmed: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "kabirclub@upi", order.UPIID)
	assert.Equal(t, models.PaymentStatusPending, order.PaymentStatus)

	orders, total, err := f.orders.ListOrders(ctx, "another-device", &userID, utils.NewPagination(1, 10))
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, orders, 1)
	assert.Equal(t, order.ID, orders[0].ID)
}

func TestOrderVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tee := f.product(t, "Oversized Tee", "999.00", "t-shirts")

	_, err := f.carts.Add(ctx, AddItemInput{SessionID: "s1", ProductID: tee.ID, Quantity: 1})
	require.NoError(t, err)
	order, err := f.orders.PlaceOrder(ctx, CheckoutRequest{
		SessionID:       "s1",
		ShippingAddress: validAddress(),
		PaymentMethod:   models.PaymentMethodCashOnDelivery,
	})
	require.NoError(t, err)

	_, err = f.orders.GetOrder(ctx, order.ID, "s2", nil)
	assert.True(t, IsNotFound(err))

	orders, total, err := f.orders.ListOrders(ctx, "s2", nil, utils.NewPagination(1, 10))
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, orders)

	orders, total, err = f.orders.ListOrders(ctx, "s1", nil, utils.NewPagination(1, 10))
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, orders, 1)
	assert.Len(t, orders[0].Items, 1)
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tee := f.product(t, "Oversized Tee", "999.00", "t-shirts")

	_, err := f.carts.Add(ctx, AddItemInput{SessionID: "s1", ProductID: tee.ID, Quantity: 1})
	require.NoError(t, err)
	order, err := f.orders.PlaceOrder(ctx, CheckoutRequest{
		SessionID:       "s1",
		ShippingAddress: validAddress(),
		PaymentMethod:   models.PaymentMethodCashOnDelivery,
	})
	require.NoError(t, err)

	status := func(s string) *string { return &s }

	updated, err := f.orders.UpdateStatus(ctx, order.ID, StatusUpdate{
		OrderStatus:   status(models.OrderStatusShipped),
		PaymentStatus: status(models.PaymentStatusPaid),
	})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusShipped, updated.OrderStatus)
	assert.Equal(t, models.PaymentStatusPaid, updated.PaymentStatus)
	assert.Equal(t, order.TotalAmount.StringFixed(2), updated.TotalAmount.StringFixed(2))

	_, err = f.orders.UpdateStatus(ctx, order.ID, StatusUpdate{OrderStatus: status("lost")})
	var vErr *ValidationError
	assert.ErrorAs(t, err, &vErr)

	_, err = f.orders.UpdateStatus(ctx, order.ID, StatusUpdate{OrderStatus: status(models.OrderStatusDelivered)})
	require.NoError(t, err)

	_, err = f.orders.UpdateStatus(ctx, order.ID, StatusUpdate{OrderStatus: status(models.OrderStatusPending)})
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "order is already delivered", vErr.Message)

	_, err = f.orders.UpdateStatus(ctx, uuid.New(), StatusUpdate{OrderStatus: status(models.OrderStatusShipped)})
	assert.True(t, IsNotFound(err))
}

func TestListAllAndDashboard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tee := f.product(t, "Oversized Tee", "1000.00", "t-shirts")

	place := func(session, name string) *models.Order {
		_, err := f.carts.Add(ctx, AddItemInput{SessionID: session, ProductID: tee.ID, Quantity: 1})
		require.NoError(t, err)
		addr := validAddress()
		addr.FullName = name
		order, err := f.orders.PlaceOrder(ctx, CheckoutRequest{
			SessionID:       session,
			ShippingAddress: addr,
			PaymentMethod:   models.PaymentMethodCashOnDelivery,
		})
		require.NoError(t, err)
		return order
	}

	place("s1", "Asha Rao")
	cancelled := place("s2", "Vikram Singh")
	cancel := models.OrderStatusCancelled
	_, err := f.orders.UpdateStatus(ctx, cancelled.ID, StatusUpdate{OrderStatus: &cancel})
	require.NoError(t, err)

	orders, total, err := f.orders.ListAll(ctx, AdminOrderFilter{Search: "asha"}, utils.NewPagination(1, 10))
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, orders, 1)
	assert.Equal(t, "Asha Rao", orders[0].ShippingAddress.FullName)

	_, total, err = f.orders.ListAll(ctx, AdminOrderFilter{OrderStatus: models.OrderStatusCancelled}, utils.NewPagination(1, 10))
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	stats, err := f.orders.Dashboard(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.TotalOrders)
	assert.EqualValues(t, 1, stats.PendingOrders)
	assert.EqualValues(t, 1, stats.TotalProducts)
	assert.Equal(t, "1000.00", stats.Revenue.StringFixed(2))
	assert.Len(t, stats.RecentOrders, 2)
	assert.Equal(t, map[string]int64{
		models.OrderStatusPending:   1,
		models.OrderStatusCancelled: 1,
	}, stats.OrdersByStatus)
}

// failTable returns a callback that fails every statement against table.
func failTable(table string) func(*gorm.DB) {
	return func(tx *gorm.DB) {
		if tx.Statement.Table == table {
			tx.AddError(errors.New(table + " unavailable"))
		}
	}
}

func TestPlaceOrderCartCleanupFailureIsNonFatal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tee := f.product(t, "Oversized Tee", "999.00", "t-shirts")

	_, err := f.carts.Add(ctx, AddItemInput{SessionID: "abc123", ProductID: tee.ID, Quantity: 1})
	require.NoError(t, err)

	require.NoError(t, f.db.Callback().Delete().Before("gorm:delete").
		Register("test:fail_cart_delete", failTable("cart_items")))

	order, err := f.orders.PlaceOrder(ctx, CheckoutRequest{
		SessionID:       "abc123",
		ShippingAddress: validAddress(),
		PaymentMethod:   models.PaymentMethodCashOnDelivery,
	})
	require.NoError(t, err)

	stored, err := f.orders.GetOrder(ctx, order.ID, "abc123", nil)
	require.NoError(t, err)
	assert.Len(t, stored.Items, 1)

	cart, err := f.carts.GetCart(ctx, "abc123")
	require.NoError(t, err)
	assert.Len(t, cart.Lines, 1)
}

func TestPlaceOrderRollsBackOnItemFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tee := f.product(t, "Oversized Tee", "999.00", "t-shirts")

	_, err := f.carts.Add(ctx, AddItemInput{SessionID: "abc123", ProductID: tee.ID, Quantity: 2})
	require.NoError(t, err)

	require.NoError(t, f.db.Callback().Create().Before("gorm:create").
		Register("test:fail_order_items", failTable("order_items")))

	_, err = f.orders.PlaceOrder(ctx, CheckoutRequest{
		SessionID:       "abc123",
		ShippingAddress: validAddress(),
		PaymentMethod:   models.PaymentMethodCashOnDelivery,
	})
	var backing *BackingStoreError
	require.ErrorAs(t, err, &backing)

	var orders int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&orders).Error)
	assert.Zero(t, orders)

	cart, err := f.carts.GetCart(ctx, "abc123")
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 2, cart.Lines[0].Quantity)
}
