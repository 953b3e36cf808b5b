package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Create inserts the order and its items atomically. Item positions follow
// the slice order.
func (r *repository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	for i := range order.Items {
		order.Items[i].Position = i
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(order).Error
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.withItems(ctx).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListAll(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	err := r.withItems(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	err := r.withItems(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// MarkPaid moves a pending order to paid. It reports false when the order is
// missing or no longer pending; paid and cancelled orders are never touched.
// An empty method keeps the method chosen at checkout.
func (r *repository) MarkPaid(ctx context.Context, orderID uuid.UUID, paidAt time.Time, method string) (bool, error) {
	updates := map[string]any{
		"status":     enums.OrderStatusPaid,
		"paid_at":    paidAt.UTC(),
		"updated_at": time.Now().UTC(),
	}
	if method != "" {
		updates["payment_method"] = method
	}
	return r.transitionFromPending(ctx, orderID, updates)
}

// Cancel moves a pending order to cancelled under the same guard as MarkPaid.
func (r *repository) Cancel(ctx context.Context, orderID uuid.UUID) (bool, error) {
	return r.transitionFromPending(ctx, orderID, map[string]any{
		"status":     enums.OrderStatusCancelled,
		"updated_at": time.Now().UTC(),
	})
}

func (r *repository) transitionFromPending(ctx context.Context, orderID uuid.UUID, updates map[string]any) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, enums.OrderStatusPending).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) withItems(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	})
}
