package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// Repository defines persistence operations for orders and their items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListAll(ctx context.Context) ([]models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error)
	MarkPaid(ctx context.Context, orderID uuid.UUID, paidAt time.Time, method string) (bool, error)
	Cancel(ctx context.Context, orderID uuid.UUID) (bool, error)
}

// CartClearer empties a customer's cart once checkout completes.
type CartClearer interface {
	Clear(ctx context.Context, userID uuid.UUID) error
}
