package orders

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// DefaultPaymentMethod applies when checkout omits a payment method.
const DefaultPaymentMethod = "cod"

// CreateItemInput is one requested line. Name and price are snapshotted as
// sent by the storefront.
type CreateItemInput struct {
	ProductID uuid.UUID       `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

// CreateInput is the checkout payload for POST /order. Status is accepted for
// compatibility and ignored; new orders always start pending.
type CreateInput struct {
	Items            []CreateItemInput `json:"items"`
	TotalAmount      *decimal.Decimal  `json:"totalAmount"`
	PaymentMethod    string            `json:"paymentMethod,omitempty"`
	Status           string            `json:"status,omitempty"`
	Address          types.Address     `json:"address"`
	DeliveryLocation *types.Location   `json:"deliveryLocation,omitempty"`
}
