package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Payment mirrors a provider invoice. ProviderPaymentID is the webhook
// idempotency key.
type Payment struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	OrderID           uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index" json:"orderId"`
	ProviderPaymentID string              `gorm:"column:provider_payment_id;not null;uniqueIndex:payments_provider_payment_id_key" json:"providerPaymentId"`
	Status            enums.PaymentStatus `gorm:"column:status;not null;default:'pending'" json:"status"`
	Method            string              `gorm:"column:method" json:"method,omitempty"`
	Amount            decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null" json:"amount"`
	PaidAt            *time.Time          `gorm:"column:paid_at" json:"paidAt,omitempty"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (p *Payment) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
