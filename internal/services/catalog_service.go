package services

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/kabirclub/internal/models"
	"github.com/example/kabirclub/internal/utils"
)

// CatalogService reads and maintains products and collections.
type CatalogService struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewCatalogService constructs CatalogService.
func NewCatalogService(db *gorm.DB, log *zap.Logger) *CatalogService {
	return &CatalogService{db: db, log: log.Named("catalog")}
}

// Accepted values for ProductQuery.Sort.
const (
	SortNewest    = "created_at-desc"
	SortOldest    = "created_at-asc"
	SortPriceAsc  = "price-asc"
	SortPriceDesc = "price-desc"
)

var productSorts = map[string]string{
	SortNewest:    "created_at desc",
	SortOldest:    "created_at asc",
	SortPriceAsc:  "price asc",
	SortPriceDesc: "price desc",
}

// ProductQuery filters the public product list.
type ProductQuery struct {
	Search   string
	Category string
	Sort     string
}

// ListProducts returns a page of products matching q.
func (s *CatalogService) ListProducts(ctx context.Context, q ProductQuery, pg utils.Pagination) ([]models.Product, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Product{})

	if search := strings.ToLower(strings.TrimSpace(q.Search)); search != "" {
		like := "%" + search + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}
	if category := strings.ToLower(strings.TrimSpace(q.Category)); category != "" {
		query = query.Where("LOWER(category) = ?", category)
	}

	order, ok := productSorts[q.Sort]
	if !ok {
		order = productSorts[SortNewest]
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, storeErr("count products", err)
	}

	products := []models.Product{}
	if err := query.Order(order).Order("id").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&products).Error; err != nil {
		return nil, 0, storeErr("list products", err)
	}

	return products, total, nil
}

// GetProductByHandle loads one product by its URL handle.
func (s *CatalogService) GetProductByHandle(ctx context.Context, handle string) (*models.Product, error) {
	return s.firstProduct(s.db.WithContext(ctx).Where("handle = ?", handle))
}

// GetProduct loads one product by id.
func (s *CatalogService) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return s.firstProduct(s.db.WithContext(ctx).Where("id = ?", id))
}

func (s *CatalogService) firstProduct(query *gorm.DB) (*models.Product, error) {
	var product models.Product
	if err := query.First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "product"}
		}
		return nil, storeErr("get product", err)
	}
	return &product, nil
}

// Recommendations returns the newest products other than productID.
func (s *CatalogService) Recommendations(ctx context.Context, productID uuid.UUID, limit int) ([]models.Product, error) {
	if limit <= 0 || limit > utils.MaxPageSize {
		limit = 3
	}

	products := []models.Product{}
	if err := s.db.WithContext(ctx).
		Where("id <> ?", productID).
		Order("created_at desc").
		Limit(limit).
		Find(&products).Error; err != nil {
		return nil, storeErr("recommendations", err)
	}
	return products, nil
}

// ProductInput is the admin payload for creating or replacing a product.
type ProductInput struct {
	Handle      string
	Title       string
	Description string
	Price       decimal.Decimal
	Category    string
	Images      []string
}

func (in ProductInput) build() (models.Product, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return models.Product{}, invalid("title", "title is required")
	}
	if in.Price.IsNegative() {
		return models.Product{}, invalid("price", "price cannot be negative")
	}

	handle := utils.Slugify(in.Handle)
	if handle == "" {
		handle = utils.Slugify(title)
	}
	if handle == "" {
		return models.Product{}, invalid("handle", "handle is required")
	}

	images := make(pq.StringArray, 0, len(in.Images))
	for _, img := range in.Images {
		if img = strings.TrimSpace(img); img != "" {
			images = append(images, img)
		}
	}

	return models.Product{
		Handle:      handle,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Price:       in.Price.Round(2),
		Category:    strings.TrimSpace(in.Category),
		Images:      images,
	}, nil
}

// CreateProduct validates and stores a new product.
func (s *CatalogService) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	product, err := in.build()
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	if err := s.ensureHandleFree(db, &models.Product{}, product.Handle, uuid.Nil); err != nil {
		return nil, err
	}
	if err := db.Create(&product).Error; err != nil {
		return nil, storeErr("create product", err)
	}
	return &product, nil
}

// UpdateProduct replaces the editable fields of a product.
func (s *CatalogService) UpdateProduct(ctx context.Context, id uuid.UUID, in ProductInput) (*models.Product, error) {
	existing, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	product, err := in.build()
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	if err := s.ensureHandleFree(db, &models.Product{}, product.Handle, id); err != nil {
		return nil, err
	}

	if err := db.Model(existing).Select("Handle", "Title", "Description", "Price", "Category", "Images").
		Updates(&product).Error; err != nil {
		return nil, storeErr("update product", err)
	}

	return s.GetProduct(ctx, id)
}

// DeleteProduct removes a product. Cart rows that reference it are left in
// place and skipped when carts are read; placed orders keep their snapshot.
func (s *CatalogService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	result := s.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", id)
	if result.Error != nil {
		return storeErr("delete product", result.Error)
	}
	if result.RowsAffected == 0 {
		return &NotFoundError{Resource: "product"}
	}
	return nil
}

// BulkCreateProducts stores every input or none of them.
func (s *CatalogService) BulkCreateProducts(ctx context.Context, inputs []ProductInput) ([]models.Product, error) {
	if len(inputs) == 0 {
		return nil, invalid("products", "no products provided")
	}

	products := make([]models.Product, 0, len(inputs))
	seen := make(map[string]bool, len(inputs))
	for i, in := range inputs {
		product, err := in.build()
		if err != nil {
			var vErr *ValidationError
			if errors.As(err, &vErr) {
				vErr.Message = "product " + strconv.Itoa(i+1) + ": " + vErr.Message
			}
			return nil, err
		}
		if seen[product.Handle] {
			return nil, invalid("handle", "product "+strconv.Itoa(i+1)+": duplicate handle "+product.Handle)
		}
		seen[product.Handle] = true
		products = append(products, product)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, p := range products {
			if err := s.ensureHandleFree(tx, &models.Product{}, p.Handle, uuid.Nil); err != nil {
				return err
			}
		}
		return tx.Create(&products).Error
	})
	if err != nil {
		var vErr *ValidationError
		if errors.As(err, &vErr) {
			return nil, vErr
		}
		return nil, storeErr("bulk create products", err)
	}

	s.log.Info("products bulk created", zap.Int("count", len(products)))
	return products, nil
}

func (s *CatalogService) ensureHandleFree(db *gorm.DB, model any, handle string, self uuid.UUID) error {
	var count int64
	if err := db.Model(model).Where("handle = ? AND id <> ?", handle, self).Count(&count).Error; err != nil {
		return storeErr("check handle", err)
	}
	if count > 0 {
		return invalid("handle", "handle "+handle+" is already taken")
	}
	return nil
}

// ListCollections returns every collection ordered by title.
func (s *CatalogService) ListCollections(ctx context.Context) ([]models.Collection, error) {
	collections := []models.Collection{}
	if err := s.db.WithContext(ctx).Order("title asc").Find(&collections).Error; err != nil {
		return nil, storeErr("list collections", err)
	}
	return collections, nil
}

// GetCollection loads a collection by handle.
func (s *CatalogService) GetCollection(ctx context.Context, handle string) (*models.Collection, error) {
	var collection models.Collection
	if err := s.db.WithContext(ctx).First(&collection, "handle = ?", handle).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "collection"}
		}
		return nil, storeErr("get collection", err)
	}
	return &collection, nil
}

// CollectionProducts lists products whose category matches the collection
// title or handle. A handle without a collection row is treated as a bare
// category.
func (s *CatalogService) CollectionProducts(ctx context.Context, handle, sort string, pg utils.Pagination) (*models.Collection, []models.Product, int64, error) {
	collection, err := s.GetCollection(ctx, handle)
	if IsNotFound(err) {
		handle = strings.ToLower(strings.TrimSpace(handle))
		collection, err = &models.Collection{Handle: handle, Title: handle}, nil
	}
	if err != nil {
		return nil, nil, 0, err
	}

	order, ok := productSorts[sort]
	if !ok {
		order = productSorts[SortNewest]
	}

	query := s.db.WithContext(ctx).Model(&models.Product{}).
		Where("LOWER(category) IN ?", []string{strings.ToLower(collection.Title), strings.ToLower(collection.Handle)})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, nil, 0, storeErr("count collection products", err)
	}

	products := []models.Product{}
	if err := query.Order(order).Order("id").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&products).Error; err != nil {
		return nil, nil, 0, storeErr("list collection products", err)
	}

	return collection, products, total, nil
}

// CollectionInput is the admin payload for a collection.
type CollectionInput struct {
	Handle      string
	Title       string
	Description string
	Image       string
}

func (in CollectionInput) build() (models.Collection, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return models.Collection{}, invalid("title", "title is required")
	}
	handle := utils.Slugify(in.Handle)
	if handle == "" {
		handle = utils.Slugify(title)
	}
	if handle == "" {
		return models.Collection{}, invalid("handle", "handle is required")
	}
	return models.Collection{
		Handle:      handle,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Image:       strings.TrimSpace(in.Image),
	}, nil
}

// CreateCollection validates and stores a collection.
func (s *CatalogService) CreateCollection(ctx context.Context, in CollectionInput) (*models.Collection, error) {
	collection, err := in.build()
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	if err := s.ensureHandleFree(db, &models.Collection{}, collection.Handle, uuid.Nil); err != nil {
		return nil, err
	}
	if err := db.Create(&collection).Error; err != nil {
		return nil, storeErr("create collection", err)
	}
	return &collection, nil
}

// UpdateCollection replaces the editable fields of a collection.
func (s *CatalogService) UpdateCollection(ctx context.Context, id uuid.UUID, in CollectionInput) (*models.Collection, error) {
	collection, err := in.build()
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)

	var existing models.Collection
	if err := db.First(&existing, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "collection"}
		}
		return nil, storeErr("get collection", err)
	}
	if err := s.ensureHandleFree(db, &models.Collection{}, collection.Handle, id); err != nil {
		return nil, err
	}

	if err := db.Model(&existing).Select("Handle", "Title", "Description", "Image").
		Updates(&collection).Error; err != nil {
		return nil, storeErr("update collection", err)
	}

	if err := db.First(&existing, "id = ?", id).Error; err != nil {
		return nil, storeErr("reload collection", err)
	}
	return &existing, nil
}

// DeleteCollection removes a collection. Products are not touched.
func (s *CatalogService) DeleteCollection(ctx context.Context, id uuid.UUID) error {
	result := s.db.WithContext(ctx).Delete(&models.Collection{}, "id = ?", id)
	if result.Error != nil {
		return storeErr("delete collection", result.Error)
	}
	if result.RowsAffected == 0 {
		return &NotFoundError{Resource: "collection"}
	}
	return nil
}
