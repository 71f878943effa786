package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/kabirclub/internal/models"
)

// CatalogColumns is the spreadsheet layout used by export and import.
var CatalogColumns = []string{"title", "description", "price", "category", "handle", "images"}

const imageSeparator = "|"

// ExportProducts writes every product as an xlsx workbook to w.
func (s *CatalogService) ExportProducts(ctx context.Context, w io.Writer) error {
	var products []models.Product
	if err := s.db.WithContext(ctx).Order("created_at asc").Find(&products).Error; err != nil {
		return storeErr("export products", err)
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Products")
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	header := sheet.AddRow()
	for _, col := range CatalogColumns {
		header.AddCell().SetString(col)
	}

	for _, p := range products {
		row := sheet.AddRow()
		row.AddCell().SetString(p.Title)
		row.AddCell().SetString(p.Description)
		row.AddCell().SetString(p.Price.StringFixed(2))
		row.AddCell().SetString(p.Category)
		row.AddCell().SetString(p.Handle)
		row.AddCell().SetString(strings.Join(p.Images, imageSeparator))
	}

	return file.Write(w)
}

// ImportRowError describes a spreadsheet row that was skipped.
type ImportRowError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// ImportResult summarises an import run.
type ImportResult struct {
	Created int              `json:"created"`
	Updated int              `json:"updated"`
	Skipped []ImportRowError `json:"skipped"`
}

// ImportProducts reads an xlsx workbook laid out as CatalogColumns. Rows that
// fail validation are skipped and reported; a row whose handle already
// exists updates that product.
func (s *CatalogService) ImportProducts(ctx context.Context, data []byte) (*ImportResult, error) {
	book, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, invalid("file", "failed to parse spreadsheet")
	}
	if len(book.Sheets) == 0 || book.Sheets[0].MaxRow < 2 {
		return nil, invalid("file", "spreadsheet is empty or missing header row")
	}

	sheet := book.Sheets[0]
	result := &ImportResult{Skipped: []ImportRowError{}}
	db := s.db.WithContext(ctx)

	for i := 1; i < len(sheet.Rows); i++ {
		rowNumber := i + 1
		row := sheet.Rows[i]

		get := func(index int) string {
			if row != nil && index < len(row.Cells) {
				return strings.TrimSpace(row.Cells[index].String())
			}
			return ""
		}

		if isBlankRow(get) {
			continue
		}

		price, err := decimal.NewFromString(get(2))
		if err != nil {
			result.Skipped = append(result.Skipped, ImportRowError{Row: rowNumber, Reason: "invalid price"})
			continue
		}

		product, err := ProductInput{
			Title:       get(0),
			Description: get(1),
			Price:       price,
			Category:    get(3),
			Handle:      get(4),
			Images:      strings.Split(get(5), imageSeparator),
		}.build()
		if err != nil {
			result.Skipped = append(result.Skipped, ImportRowError{Row: rowNumber, Reason: err.Error()})
			continue
		}

		created, err := upsertProductByHandle(db, &product)
		if err != nil {
			s.log.Warn("catalog import row failed", zap.Int("row", rowNumber), zap.Error(err))
			result.Skipped = append(result.Skipped, ImportRowError{Row: rowNumber, Reason: "could not be saved"})
			continue
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
	}

	s.log.Info("catalog import finished",
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("skipped", len(result.Skipped)))

	return result, nil
}

func isBlankRow(get func(int) string) bool {
	for i := range CatalogColumns {
		if get(i) != "" {
			return false
		}
	}
	return true
}

func upsertProductByHandle(db *gorm.DB, product *models.Product) (bool, error) {
	var existing models.Product
	err := db.First(&existing, "handle = ?", product.Handle).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		product.ID = uuid.Nil
		return true, db.Create(product).Error
	}
	if err != nil {
		return false, err
	}

	return false, db.Model(&existing).
		Select("Title", "Description", "Price", "Category", "Images").
		Updates(product).Error
}
