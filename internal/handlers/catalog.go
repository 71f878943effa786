package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/kabirclub/internal/models"
	"github.com/example/kabirclub/internal/services"
	"github.com/example/kabirclub/internal/utils"
)

// CatalogHandler manages collections.
type CatalogHandler struct {
	catalog  *services.CatalogService
	log      *zap.Logger
	currency string
}

// NewCatalogHandler constructs CatalogHandler.
func NewCatalogHandler(catalog *services.CatalogService, log *zap.Logger, currency string) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, log: log, currency: currency}
}

type collectionView struct {
	ID          string `json:"id"`
	Handle      string `json:"handle"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image,omitempty"`
	Path        string `json:"path"`
	UpdatedAt   string `json:"updatedAt"`
}

func renderCollection(col models.Collection) collectionView {
	return collectionView{
		ID:          col.ID.String(),
		Handle:      col.Handle,
		Title:       col.Title,
		Description: col.Description,
		Image:       col.Image,
		Path:        "/search/" + col.Handle,
		UpdatedAt:   col.UpdatedAt.Format(timeLayout),
	}
}

// ListCollections returns every collection.
func (h *CatalogHandler) ListCollections(c *fiber.Ctx) error {
	collections, err := h.catalog.ListCollections(c.UserContext())
	if err != nil {
		return domainError(h.log, c, err)
	}

	views := make([]collectionView, 0, len(collections))
	for _, col := range collections {
		views = append(views, renderCollection(col))
	}

	return c.JSON(fiber.Map{"success": true, "data": views})
}

// GetCollection returns a single collection by handle.
func (h *CatalogHandler) GetCollection(c *fiber.Ctx) error {
	collection, err := h.catalog.GetCollection(c.UserContext(), c.Params("handle"))
	if err != nil {
		return domainError(h.log, c, err)
	}

	return c.JSON(fiber.Map{"success": true, "data": renderCollection(*collection)})
}

// CollectionProducts returns the paginated products of a collection.
func (h *CatalogHandler) CollectionProducts(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)

	collection, products, total, err := h.catalog.CollectionProducts(c.UserContext(),
		c.Params("handle"), c.Query("sort"), pg)
	if err != nil {
		return domainError(h.log, c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"collection": renderCollection(*collection),
			"products":   renderProducts(products, h.currency),
		},
		"pagination": pg.Meta(total),
	})
}

type collectionRequest struct {
	Handle      string `json:"handle"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

func (r collectionRequest) input() services.CollectionInput {
	return services.CollectionInput{
		Handle:      r.Handle,
		Title:       r.Title,
		Description: r.Description,
		Image:       r.Image,
	}
}

// CreateCollection persists a new collection.
func (h *CatalogHandler) CreateCollection(c *fiber.Ctx) error {
	var req collectionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	collection, err := h.catalog.CreateCollection(c.UserContext(), req.input())
	if err != nil {
		return domainError(h.log, c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": renderCollection(*collection)})
}

// UpdateCollection updates an existing collection.
func (h *CatalogHandler) UpdateCollection(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var req collectionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	collection, err := h.catalog.UpdateCollection(c.UserContext(), id, req.input())
	if err != nil {
		return domainError(h.log, c, err)
	}

	return c.JSON(fiber.Map{"success": true, "data": renderCollection(*collection)})
}

// DeleteCollection removes a collection by ID.
func (h *CatalogHandler) DeleteCollection(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	if err := h.catalog.DeleteCollection(c.UserContext(), id); err != nil {
		return domainError(h.log, c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
