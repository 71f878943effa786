package routes

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/example/kabirclub/internal/config"
	"github.com/example/kabirclub/internal/database/databasetest"
	"github.com/example/kabirclub/internal/handlers"
	"github.com/example/kabirclub/internal/middleware"
	"github.com/example/kabirclub/internal/models"
	"github.com/example/kabirclub/internal/utils"
)

func init() {
	utils.PasswordCost = bcrypt.MinCost
}

type testServer struct {
	app *fiber.App
	db  *gorm.DB
}

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:            "test",
		JWTSecret:         "test-secret",
		TokenExpires:      time.Hour,
		SessionCookieName: "sessionId",
		SessionTTL:        time.Hour,
		Currency:          "INR",
		MerchantUPIID:     "kabirclub@upi",
		AdminEmails:       []string{"owner@kabirclub.in"},
		CORSOrigins:       "*",
		RateLimitRPS:      1000,
		RateLimitBurst:    1000,
	}
}

func newServer(t *testing.T, cfg *config.Config) *testServer {
	t.Helper()

	log := zap.NewNop()
	db := databasetest.New(t)
	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler(log)})
	Register(app, db, cfg, log)

	return &testServer{app: app, db: db}
}

type response struct {
	Status int
	Header http.Header
	Body   map[string]any
}

func (s *testServer) do(t *testing.T, method, path string, body any, session, token string) response {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if session != "" {
		req.Header.Set(middleware.SessionHeader, session)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return s.send(t, req)
}

func (s *testServer) send(t *testing.T, req *http.Request) response {
	t.Helper()

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	out := response{Status: resp.StatusCode, Header: resp.Header}
	if len(raw) > 0 && bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{")) {
		require.NoError(t, json.Unmarshal(raw, &out.Body))
	}
	return out
}

func (s *testServer) product(t *testing.T, title, price, category string) models.Product {
	t.Helper()

	p := models.Product{
		Handle:   utils.Slugify(title),
		Title:    title,
		Price:    decimal.RequireFromString(price),
		Category: category,
	}
	require.NoError(t, s.db.Create(&p).Error)
	return p
}

func (s *testServer) register(t *testing.T, email string) string {
	t.Helper()

	res := s.do(t, http.MethodPost, "/api/auth/register", map[string]any{
		"email":    email,
		"password": "secret1",
		"fullName": "Kabir Mehta",
	}, "", "")
	require.Equal(t, http.StatusCreated, res.Status)
	return data(res)["token"].(string)
}

func data(res response) map[string]any {
	d, _ := res.Body["data"].(map[string]any)
	return d
}

func amount(v any, path ...string) string {
	m := v.(map[string]any)
	for _, key := range path {
		m = m[key].(map[string]any)
	}
	return m["amount"].(string)
}

var checkoutBody = map[string]any{
	"shippingAddress": map[string]any{
		"fullName":     "Kabir Mehta",
		"phone":        "+91 98765 43210",
		"addressLine1": "12 MG Road",
		"city":         "Bengaluru",
		"state":        "Karnataka",
		"postalCode":   "560001",
		"country":      "India",
	},
	"paymentMethod": "cash_on_delivery",
}

func TestCartToCheckoutFlow(t *testing.T) {
	s := newServer(t, testConfig())
	p1 := s.product(t, "Oversized Tee", "999.00", "t-shirts")
	p2 := s.product(t, "Cargo Pants", "1499.00", "pants")

	res := s.do(t, http.MethodPost, "/api/cart/items", map[string]any{"productId": p1.ID.String(), "quantity": 2}, "abc123", "")
	require.Equal(t, http.StatusCreated, res.Status)
	res = s.do(t, http.MethodPost, "/api/cart/items", map[string]any{"productId": p2.ID.String()}, "abc123", "")
	require.Equal(t, http.StatusCreated, res.Status)

	res = s.do(t, http.MethodGet, "/api/cart", nil, "abc123", "")
	require.Equal(t, http.StatusOK, res.Status)
	cart := data(res)
	assert.Len(t, cart["lines"], 2)
	assert.EqualValues(t, 3, cart["totalQuantity"])
	assert.Equal(t, "3497.00", amount(cart, "cost", "subtotalAmount"))
	assert.Equal(t, "629.46", amount(cart, "cost", "totalTaxAmount"))
	assert.Equal(t, "4126.46", amount(cart, "cost", "totalAmount"))

	// Another session never sees this cart.
	res = s.do(t, http.MethodGet, "/api/cart", nil, "someone-else", "")
	assert.Empty(t, data(res)["lines"])

	res = s.do(t, http.MethodPost, "/api/checkout", checkoutBody, "abc123", "")
	require.Equal(t, http.StatusCreated, res.Status)
	order := data(res)
	assert.Equal(t, "3497.00", amount(order, "totalAmount"))
	assert.Equal(t, "0.00", amount(order, "shippingCost"))
	assert.Equal(t, "pending", order["paymentStatus"])
	assert.Equal(t, "pending", order["orderStatus"])
	assert.Len(t, order["items"], 2)

	res = s.do(t, http.MethodGet, "/api/cart", nil, "abc123", "")
	assert.Empty(t, data(res)["lines"])

	res = s.do(t, http.MethodGet, "/api/orders", nil, "abc123", "")
	require.Equal(t, http.StatusOK, res.Status)
	assert.Len(t, res.Body["data"], 1)

	res = s.do(t, http.MethodGet, "/api/orders/"+order["id"].(string), nil, "someone-else", "")
	assert.Equal(t, http.StatusNotFound, res.Status)
}

func TestCartLineMutations(t *testing.T) {
	s := newServer(t, testConfig())
	tee := s.product(t, "Oversized Tee", "999.00", "t-shirts")

	s.do(t, http.MethodPost, "/api/cart/items", map[string]any{"productId": tee.ID.String()}, "s1", "")
	res := s.do(t, http.MethodPost, "/api/cart/items", map[string]any{"productId": tee.ID.String(), "quantity": 2}, "s1", "")
	lines := data(res)["lines"].([]any)
	require.Len(t, lines, 1)
	line := lines[0].(map[string]any)
	assert.EqualValues(t, 3, line["quantity"])
	lineID := line["id"].(string)

	res = s.do(t, http.MethodPatch, "/api/cart/items/"+lineID, map[string]any{"quantity": 5}, "s1", "")
	require.Equal(t, http.StatusOK, res.Status)
	assert.EqualValues(t, 5, data(res)["totalQuantity"])

	res = s.do(t, http.MethodPatch, "/api/cart/items/"+lineID, map[string]any{"quantity": 5}, "intruder", "")
	assert.Equal(t, http.StatusNotFound, res.Status)

	res = s.do(t, http.MethodPatch, "/api/cart/items/"+lineID, map[string]any{"quantity": -1}, "s1", "")
	assert.Equal(t, http.StatusBadRequest, res.Status)

	res = s.do(t, http.MethodPatch, "/api/cart/items/"+lineID, map[string]any{"quantity": 0}, "s1", "")
	require.Equal(t, http.StatusOK, res.Status)
	assert.Empty(t, data(res)["lines"])

	s.do(t, http.MethodPost, "/api/cart/items", map[string]any{"productId": tee.ID.String()}, "s1", "")
	res = s.do(t, http.MethodDelete, "/api/cart", nil, "s1", "")
	require.Equal(t, http.StatusOK, res.Status)
	assert.Empty(t, data(res)["lines"])
}

func TestRejectsLegacyAndMalformedPayloads(t *testing.T) {
	s := newServer(t, testConfig())
	tee := s.product(t, "Oversized Tee", "999.00", "t-shirts")

	res := s.do(t, http.MethodPost, "/api/cart/items", `"`+tee.ID.String()+`"`, "s1", "")
	assert.Equal(t, http.StatusBadRequest, res.Status)
	assert.Equal(t, false, res.Body["success"])

	res = s.do(t, http.MethodPost, "/api/cart/items", map[string]any{"productId": tee.ID.String(), "size": "L"}, "s1", "")
	assert.Equal(t, http.StatusBadRequest, res.Status)

	res = s.do(t, http.MethodPost, "/api/cart/items", map[string]any{"productId": "not-a-uuid"}, "s1", "")
	assert.Equal(t, http.StatusBadRequest, res.Status)

	res = s.do(t, http.MethodPost, "/api/cart/items", map[string]any{"productId": tee.ID.String(), "quantity": 0}, "s1", "")
	assert.Equal(t, http.StatusBadRequest, res.Status)
}

func TestCheckoutFailures(t *testing.T) {
	s := newServer(t, testConfig())
	tee := s.product(t, "Oversized Tee", "999.00", "t-shirts")

	res := s.do(t, http.MethodPost, "/api/checkout", map[string]any{}, "empty", "")
	assert.Equal(t, http.StatusUnprocessableEntity, res.Status)

	s.do(t, http.MethodPost, "/api/cart/items", map[string]any{"productId": tee.ID.String()}, "s1", "")

	res = s.do(t, http.MethodPost, "/api/checkout", map[string]any{"paymentMethod": "cash_on_delivery"}, "s1", "")
	assert.Equal(t, http.StatusBadRequest, res.Status)
	assert.Equal(t, "please fill in full name", res.Body["error"])

	upi := map[string]any{"shippingAddress": checkoutBody["shippingAddress"], "paymentMethod": "upi"}
	res = s.do(t, http.MethodPost, "/api/checkout", upi, "s1", "")
	assert.Equal(t, http.StatusBadRequest, res.Status)
	assert.Equal(t, "please confirm that you have completed the UPI payment", res.Body["error"])

	upi["paymentConfirmed"] = true
	res = s.do(t, http.MethodPost, "/api/checkout", upi, "s1", "")
	require.Equal(t, http.StatusCreated, res.Status)
	assert.Equal(t, "kabirclub@upi", data(res)["upiId"])
}

func TestBackingStoreFailure(t *testing.T) {
	s := newServer(t, testConfig())
	databasetest.Break(t, s.db)

	res := s.do(t, http.MethodGet, "/api/cart", nil, "s1", "")
	require.Equal(t, http.StatusOK, res.Status)
	assert.Empty(t, data(res)["lines"])
	assert.Equal(t, "0.00", amount(data(res), "cost", "totalAmount"))

	res = s.do(t, http.MethodPost, "/api/checkout", checkoutBody, "s1", "")
	assert.Equal(t, http.StatusServiceUnavailable, res.Status)
	assert.NotContains(t, res.Body["error"], "sql")
}

func TestSessionIssuedWhenMissing(t *testing.T) {
	s := newServer(t, testConfig())

	res := s.do(t, http.MethodGet, "/api/cart", nil, "", "")
	require.Equal(t, http.StatusOK, res.Status)
	issued := res.Header.Get(middleware.SessionHeader)
	assert.NotEmpty(t, issued)
	assert.Equal(t, issued, data(res)["sessionId"])
}

func TestAuthEndpoints(t *testing.T) {
	s := newServer(t, testConfig())
	token := s.register(t, "asha@example.in")

	res := s.do(t, http.MethodGet, "/api/auth/me", nil, "", token)
	require.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, "asha@example.in", data(res)["email"])
	assert.Equal(t, false, data(res)["isAdmin"])

	res = s.do(t, http.MethodGet, "/api/auth/me", nil, "", "")
	assert.Equal(t, http.StatusUnauthorized, res.Status)

	res = s.do(t, http.MethodPost, "/api/auth/login", map[string]any{"email": "asha@example.in", "password": "nope"}, "", "")
	assert.Equal(t, http.StatusUnauthorized, res.Status)

	res = s.do(t, http.MethodPost, "/api/auth/login", map[string]any{"email": "asha@example.in", "password": "secret1"}, "", "")
	require.Equal(t, http.StatusOK, res.Status)
	assert.NotEmpty(t, data(res)["token"])

	res = s.do(t, http.MethodPut, "/api/profile", map[string]any{"fullName": "Asha Rao"}, "", token)
	require.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, "Asha Rao", data(res)["fullName"])

	res = s.do(t, http.MethodPut, "/api/profile/password", map[string]any{"currentPassword": "secret1", "newPassword": "secret2"}, "", token)
	require.Equal(t, http.StatusOK, res.Status)

	res = s.do(t, http.MethodPost, "/api/auth/login", map[string]any{"email": "asha@example.in", "password": "secret2"}, "", "")
	assert.Equal(t, http.StatusOK, res.Status)
}

func TestSignedInOrdersFollowTheUser(t *testing.T) {
	s := newServer(t, testConfig())
	tee := s.product(t, "Oversized Tee", "999.00", "t-shirts")
	token := s.register(t, "asha@example.in")

	s.do(t, http.MethodPost, "/api/cart/items", map[string]any{"productId": tee.ID.String()}, "laptop", token)
	res := s.do(t, http.MethodPost, "/api/checkout", checkoutBody, "laptop", token)
	require.Equal(t, http.StatusCreated, res.Status)

	res = s.do(t, http.MethodGet, "/api/orders", nil, "phone", token)
	require.Equal(t, http.StatusOK, res.Status)
	assert.Len(t, res.Body["data"], 1)
}

func TestAdminRoutes(t *testing.T) {
	s := newServer(t, testConfig())
	shopper := s.register(t, "asha@example.in")
	admin := s.register(t, "owner@kabirclub.in")

	res := s.do(t, http.MethodGet, "/api/admin/dashboard", nil, "", "")
	assert.Equal(t, http.StatusUnauthorized, res.Status)

	res = s.do(t, http.MethodGet, "/api/admin/dashboard", nil, "", shopper)
	assert.Equal(t, http.StatusForbidden, res.Status)

	res = s.do(t, http.MethodPost, "/api/admin/products", map[string]any{
		"title":    "Linen Shirt",
		"price":    "1299.00",
		"category": "shirts",
		"images":   []string{"https://cdn.example.in/linen.jpg"},
	}, "", admin)
	require.Equal(t, http.StatusCreated, res.Status)
	created := data(res)
	assert.Equal(t, "linen-shirt", created["handle"])

	res = s.do(t, http.MethodGet, "/api/products/linen-shirt", nil, "s1", "")
	require.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, "1299.00", amount(data(res), "price"))

	s.do(t, http.MethodPost, "/api/cart/items", map[string]any{"productId": created["id"]}, "s1", "")
	res = s.do(t, http.MethodPost, "/api/checkout", checkoutBody, "s1", "")
	require.Equal(t, http.StatusCreated, res.Status)
	orderID := data(res)["id"].(string)

	res = s.do(t, http.MethodPatch, "/api/admin/orders/"+orderID+"/status", map[string]any{"orderStatus": "shipped"}, "", admin)
	require.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, "shipped", data(res)["orderStatus"])

	res = s.do(t, http.MethodPatch, "/api/admin/orders/"+orderID+"/status", map[string]any{"orderStatus": "lost"}, "", admin)
	assert.Equal(t, http.StatusBadRequest, res.Status)

	res = s.do(t, http.MethodGet, "/api/admin/dashboard", nil, "", admin)
	require.Equal(t, http.StatusOK, res.Status)
	assert.EqualValues(t, 1, data(res)["total_orders"])
	assert.EqualValues(t, 2, data(res)["total_users"])

	res = s.do(t, http.MethodGet, "/api/admin/orders?status=shipped", nil, "", admin)
	require.Equal(t, http.StatusOK, res.Status)
	assert.Len(t, res.Body["data"], 1)

	res = s.do(t, http.MethodGet, "/api/admin/users", nil, "", admin)
	require.Equal(t, http.StatusOK, res.Status)
	assert.Len(t, res.Body["data"], 2)
}

func TestAdminCatalogSpreadsheet(t *testing.T) {
	s := newServer(t, testConfig())
	admin := s.register(t, "owner@kabirclub.in")
	s.product(t, "Oversized Tee", "999.00", "t-shirts")

	req := httptest.NewRequest(http.MethodGet, "/api/admin/products/export", nil)
	req.Header.Set("Authorization", "Bearer "+admin)
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "products.xlsx")
	sheet, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	// Re-importing the export updates the product in place.
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("file", "products.xlsx")
	require.NoError(t, err)
	_, err = part.Write(sheet)
	require.NoError(t, err)
	require.NoError(t, form.Close())

	req = httptest.NewRequest(http.MethodPost, "/api/admin/products/import", &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+admin)
	res := s.send(t, req)
	require.Equal(t, http.StatusOK, res.Status)
	assert.EqualValues(t, 0, data(res)["created"])
	assert.EqualValues(t, 1, data(res)["updated"])
}

func TestCatalogBrowsing(t *testing.T) {
	s := newServer(t, testConfig())
	s.product(t, "Oversized Tee", "999.00", "t-shirts")
	s.product(t, "Graphic Tee", "799.00", "t-shirts")
	s.product(t, "Cargo Pants", "1499.00", "pants")
	require.NoError(t, s.db.Create(&models.Collection{Handle: "t-shirts", Title: "T-Shirts"}).Error)

	res := s.do(t, http.MethodGet, "/api/products?category=t-shirts&sort=price-asc", nil, "s1", "")
	require.Equal(t, http.StatusOK, res.Status)
	list := res.Body["data"].([]any)
	require.Len(t, list, 2)
	assert.Equal(t, "Graphic Tee", list[0].(map[string]any)["title"])

	res = s.do(t, http.MethodGet, "/api/products?q=cargo", nil, "s1", "")
	assert.Len(t, res.Body["data"], 1)

	res = s.do(t, http.MethodGet, "/api/products/missing", nil, "s1", "")
	assert.Equal(t, http.StatusNotFound, res.Status)

	res = s.do(t, http.MethodGet, "/api/products/oversized-tee/recommendations", nil, "s1", "")
	require.Equal(t, http.StatusOK, res.Status)
	assert.Len(t, res.Body["data"], 2)

	res = s.do(t, http.MethodGet, "/api/collections/t-shirts/products", nil, "s1", "")
	require.Equal(t, http.StatusOK, res.Status)
	assert.Len(t, data(res)["products"], 2)
}

func TestMutationsAreRateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitRPS = 0.001
	cfg.RateLimitBurst = 1
	s := newServer(t, cfg)

	body := map[string]any{"email": "asha@example.in", "password": "secret1"}
	first := s.do(t, http.MethodPost, "/api/auth/login", body, "", "")
	assert.Equal(t, http.StatusUnauthorized, first.Status)

	second := s.do(t, http.MethodPost, "/api/auth/login", body, "", "")
	assert.Equal(t, http.StatusTooManyRequests, second.Status)

	// Reads are never limited.
	res := s.do(t, http.MethodGet, "/api/cart", nil, "s1", "")
	assert.Equal(t, http.StatusOK, res.Status)
}
