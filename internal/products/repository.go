package products

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// SaleResult is the product state observed right after a sale was applied.
type SaleResult struct {
	ProductID        uuid.UUID
	Name             string
	Stock            int
	SoldQuantity     int
	RestockThreshold int
}

// Repository persists products and applies stock movements.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// FindByID loads the product without associations.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// ApplySale decrements stock and increments sold quantity by qty in a single
// guarded statement. The row is only touched when enough stock remains, so
// concurrent sales can never drive stock negative.
func (r *Repository) ApplySale(ctx context.Context, productID uuid.UUID, qty int) (SaleResult, error) {
	if qty <= 0 {
		return SaleResult{}, pkgerrors.New(pkgerrors.CodeValidation, "sale quantity must be positive")
	}

	var result SaleResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Product{}).
			Where("id = ? AND stock >= ?", productID, qty).
			Updates(map[string]any{
				"stock":         gorm.Expr("stock - ?", qty),
				"sold_quantity": gorm.Expr("sold_quantity + ?", qty),
			})
		if res.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "apply sale")
		}

		var product models.Product
		if err := tx.Where("id = ?", productID).First(&product).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product after sale")
		}

		if res.RowsAffected == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("insufficient stock: requested %d, available %d", qty, product.Stock)).
				WithDetails(map[string]any{"productId": productID.String(), "stock": product.Stock, "requested": qty})
		}

		result = SaleResult{
			ProductID:        product.ID,
			Name:             product.Name,
			Stock:            product.Stock,
			SoldQuantity:     product.SoldQuantity,
			RestockThreshold: product.RestockThreshold,
		}
		return nil
	})
	if err != nil {
		return SaleResult{}, err
	}
	return result, nil
}
