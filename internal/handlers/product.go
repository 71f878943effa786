package handlers

import (
	"bytes"
	"io"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/example/kabirclub/internal/services"
	"github.com/example/kabirclub/internal/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ProductHandler manages the product catalog.
type ProductHandler struct {
	catalog  *services.CatalogService
	log      *zap.Logger
	currency string
}

// NewProductHandler constructs ProductHandler.
func NewProductHandler(catalog *services.CatalogService, log *zap.Logger, currency string) *ProductHandler {
	return &ProductHandler{catalog: catalog, log: log, currency: currency}
}

// ListProducts returns paginated products with optional filters.
func (h *ProductHandler) ListProducts(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)

	products, total, err := h.catalog.ListProducts(c.UserContext(), services.ProductQuery{
		Search:   c.Query("q", c.Query("search")),
		Category: c.Query("category"),
		Sort:     c.Query("sort"),
	}, pg)
	if err != nil {
		return domainError(h.log, c, err)
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"data":       renderProducts(products, h.currency),
		"pagination": pg.Meta(total),
	})
}

// GetProduct loads a product by its handle.
func (h *ProductHandler) GetProduct(c *fiber.Ctx) error {
	product, err := h.catalog.GetProductByHandle(c.UserContext(), c.Params("handle"))
	if err != nil {
		return domainError(h.log, c, err)
	}

	return c.JSON(fiber.Map{"success": true, "data": renderProduct(*product, h.currency)})
}

// Recommendations lists other products to show next to one.
func (h *ProductHandler) Recommendations(c *fiber.Ctx) error {
	product, err := h.catalog.GetProductByHandle(c.UserContext(), c.Params("handle"))
	if err != nil {
		return domainError(h.log, c, err)
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	products, err := h.catalog.Recommendations(c.UserContext(), product.ID, limit)
	if err != nil {
		return domainError(h.log, c, err)
	}

	return c.JSON(fiber.Map{"success": true, "data": renderProducts(products, h.currency)})
}

type productRequest struct {
	Handle      string          `json:"handle"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Images      []string        `json:"images"`
}

func (r productRequest) input() services.ProductInput {
	return services.ProductInput{
		Handle:      r.Handle,
		Title:       r.Title,
		Description: r.Description,
		Price:       r.Price,
		Category:    r.Category,
		Images:      r.Images,
	}
}

// CreateProduct inserts a product.
func (h *ProductHandler) CreateProduct(c *fiber.Ctx) error {
	var req productRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	product, err := h.catalog.CreateProduct(c.UserContext(), req.input())
	if err != nil {
		return domainError(h.log, c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": renderProduct(*product, h.currency)})
}

// UpdateProduct replaces a product's fields.
func (h *ProductHandler) UpdateProduct(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var req productRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	product, err := h.catalog.UpdateProduct(c.UserContext(), id, req.input())
	if err != nil {
		return domainError(h.log, c, err)
	}

	return c.JSON(fiber.Map{"success": true, "data": renderProduct(*product, h.currency)})
}

// DeleteProduct removes a product.
func (h *ProductHandler) DeleteProduct(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	if err := h.catalog.DeleteProduct(c.UserContext(), id); err != nil {
		return domainError(h.log, c, err)
	}

	return c.JSON(fiber.Map{"success": true})
}

// BulkCreateProducts inserts a batch of products or none of them.
func (h *ProductHandler) BulkCreateProducts(c *fiber.Ctx) error {
	var req []productRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "request body must be an array of products")
	}
	if len(req) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "no products provided")
	}

	inputs := make([]services.ProductInput, 0, len(req))
	for _, r := range req {
		inputs = append(inputs, r.input())
	}

	products, err := h.catalog.BulkCreateProducts(c.UserContext(), inputs)
	if err != nil {
		return domainError(h.log, c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    renderProducts(products, h.currency),
	})
}

// ExportProducts downloads the catalog as a spreadsheet.
func (h *ProductHandler) ExportProducts(c *fiber.Ctx) error {
	var buf bytes.Buffer
	if err := h.catalog.ExportProducts(c.UserContext(), &buf); err != nil {
		return domainError(h.log, c, err)
	}

	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="products.xlsx"`)
	return c.Send(buf.Bytes())
}

// ImportProducts reads an uploaded spreadsheet from the "file" form field.
func (h *ProductHandler) ImportProducts(c *fiber.Ctx) error {
	header, err := c.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "file is required")
	}

	file, err := header.Open()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "failed to read upload")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "failed to read upload")
	}

	result, err := h.catalog.ImportProducts(c.UserContext(), data)
	if err != nil {
		return domainError(h.log, c, err)
	}

	return c.JSON(fiber.Map{"success": true, "data": result})
}
