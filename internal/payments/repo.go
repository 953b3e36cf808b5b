package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

const providerPaymentIDConstraint = "payments_provider_payment_id_key"

// Transition describes the terminal state a provider callback moves a payment
// into.
type Transition struct {
	Status enums.PaymentStatus
	Method string
	PaidAt *time.Time
}

// Repository defines persistence operations for provider payments.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, payment *models.Payment) (*models.Payment, error)
	FindByProviderID(ctx context.Context, providerPaymentID string) (*models.Payment, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Payment, error)
	Transition(ctx context.Context, providerPaymentID string, t Transition) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a payments repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	if err := r.db.WithContext(ctx).Create(payment).Error; err != nil {
		if db.IsUniqueViolation(err, providerPaymentIDConstraint) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "provider payment id already registered")
		}
		return nil, err
	}
	return payment, nil
}

func (r *repository) FindByProviderID(ctx context.Context, providerPaymentID string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Where("provider_payment_id = ?", providerPaymentID).
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

// Transition moves a pending payment into a terminal status. The write is
// guarded on status = 'pending', so of any number of concurrent callbacks for
// the same provider id exactly one observes changed == true.
func (r *repository) Transition(ctx context.Context, providerPaymentID string, t Transition) (bool, error) {
	if !t.Status.IsTerminal() {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "payment transition target must be terminal")
	}

	updates := map[string]any{
		"status":     t.Status,
		"updated_at": time.Now().UTC(),
	}
	if t.Method != "" {
		updates["method"] = t.Method
	}
	if t.PaidAt != nil {
		updates["paid_at"] = t.PaidAt.UTC()
	}

	res := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("provider_payment_id = ? AND status = ?", providerPaymentID, enums.PaymentStatusPending).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
