package orders

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/payments"
)

type registerPaymentRequest struct {
	ProviderPaymentID string          `json:"providerPaymentId" validate:"required,max=255"`
	Amount            decimal.Decimal `json:"amount"`
	Method            string          `json:"method" validate:"omitempty,max=64"`
}

func (r registerPaymentRequest) toInput(orderID uuid.UUID) payments.RegisterInput {
	return payments.RegisterInput{
		OrderID:           orderID,
		ProviderPaymentID: validators.SanitizeString(r.ProviderPaymentID, 255),
		Amount:            r.Amount,
		Method:            validators.SanitizeString(r.Method, 64),
	}
}
