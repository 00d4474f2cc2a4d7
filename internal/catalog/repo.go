package catalog

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/mirabelleshop/cart-backend/internal/lineitem"
	"github.com/mirabelleshop/cart-backend/pkg/db/models"
	pkgerrors "github.com/mirabelleshop/cart-backend/pkg/errors"
	"github.com/mirabelleshop/cart-backend/pkg/types"
)

// Repository resolves catalog data for cart lines.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// RowsForLines joins cart lines with their products and variants into mapper
// rows, preserving line order. A line whose product has disappeared from the
// catalog fails the whole read.
func (r *Repository) RowsForLines(ctx context.Context, lines []models.CartLine) ([]lineitem.RawRow, error) {
	if len(lines) == 0 {
		return nil, nil
	}

	productIDs := make([]string, 0, len(lines))
	variantIDs := make([]string, 0, len(lines))
	for _, line := range lines {
		productIDs = append(productIDs, line.ProductID)
		if line.VariantID != nil {
			variantIDs = append(variantIDs, *line.VariantID)
		}
	}

	var products []models.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", productIDs).Find(&products).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}
	productsByID := make(map[string]models.Product, len(products))
	for _, p := range products {
		productsByID[p.ID] = p
	}

	variantsByID := map[string]models.ProductVariant{}
	if len(variantIDs) > 0 {
		var variants []models.ProductVariant
		if err := r.db.WithContext(ctx).Where("id IN ?", variantIDs).Find(&variants).Error; err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product variants")
		}
		for _, v := range variants {
			variantsByID[v.ID] = v
		}
	}

	rows := make([]lineitem.RawRow, 0, len(lines))
	for _, line := range lines {
		product, ok := productsByID[line.ProductID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart references a product no longer in the catalog")
		}

		row := lineitem.RawRow{
			ID:       line.ID,
			Quantity: line.Quantity,
			Metadata: types.Metadata(line.Metadata),
			Product:  toMapperProduct(product),
		}
		if line.VariantID != nil {
			variant, ok := variantsByID[*line.VariantID]
			if !ok {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart references a variant no longer in the catalog")
			}
			row.Variant = &lineitem.Variant{
				ID:         variant.ID,
				Title:      variant.Title,
				PriceCents: variant.PriceCents,
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ValidateSellable checks the product exists and, when set, that the variant
// belongs to it.
func (r *Repository) ValidateSellable(ctx context.Context, productID string, variantID *string) error {
	var product models.Product
	if err := r.db.WithContext(ctx).Where("id = ?", productID).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if variantID == nil {
		return nil
	}

	var variant models.ProductVariant
	if err := r.db.WithContext(ctx).Where("id = ?", *variantID).First(&variant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variant")
	}
	if variant.ProductID != productID {
		return pkgerrors.New(pkgerrors.CodeValidation, "variant does not belong to product")
	}
	return nil
}

func toMapperProduct(p models.Product) lineitem.Product {
	images := make([]lineitem.ImageRef, 0, len(p.Images))
	for _, url := range p.Images {
		images = append(images, lineitem.ImageRef{URL: url})
	}
	return lineitem.Product{
		ID:         p.ID,
		Title:      p.Title,
		Handle:     p.Handle,
		Thumbnail:  p.Thumbnail,
		Images:     images,
		PriceCents: p.PriceCents,
	}
}
