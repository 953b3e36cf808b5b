package paymentwebhook

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// Event is the invoice callback body. Unknown fields are ignored; amounts are
// kept raw so a value in an unexpected shape never rejects the callback.
type Event struct {
	ID             string          `json:"id"`
	ExternalID     string          `json:"external_id,omitempty"`
	Status         string          `json:"status"`
	PaymentMethod  string          `json:"payment_method,omitempty"`
	PaymentChannel string          `json:"payment_channel,omitempty"`
	Amount         json.RawMessage `json:"amount,omitempty"`
	PaidAmount     json.RawMessage `json:"paid_amount,omitempty"`
}

// ParseEvent decodes a callback body.
func ParseEvent(body []byte) (Event, error) {
	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		return Event{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed webhook payload")
	}
	return event, nil
}

// Validate checks the fields every callback must carry.
func (e Event) Validate() error {
	fields := map[string]string{}
	if strings.TrimSpace(e.ID) == "" {
		fields["id"] = "is required"
	}
	if strings.TrimSpace(e.Status) == "" {
		fields["status"] = "is required"
	}
	if len(fields) > 0 {
		return pkgerrors.Validation("invalid webhook payload", fields)
	}
	return nil
}

// SettledAmount prefers the paid amount over the invoice amount. It returns nil
// when neither is present and an error when the reported value is not a number.
func (e Event) SettledAmount() (*decimal.Decimal, error) {
	if amount, err := parseAmount(e.PaidAmount); amount != nil || err != nil {
		return amount, err
	}
	return parseAmount(e.Amount)
}

// parseAmount accepts JSON numbers and numeric strings. Empty strings and null
// count as absent.
func parseAmount(raw json.RawMessage) (*decimal.Decimal, error) {
	value := strings.TrimSpace(string(raw))
	if value == "" || value == "null" {
		return nil, nil
	}
	if strings.HasPrefix(value, `"`) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("decode amount: %w", err)
		}
		value = strings.TrimSpace(s)
		if value == "" {
			return nil, nil
		}
	}
	amount, err := decimal.NewFromString(value)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", value, err)
	}
	return &amount, nil
}

// Normalize maps provider vocabulary onto payment statuses. ok is false for
// statuses that carry no state change.
func Normalize(raw string) (status enums.PaymentStatus, ok bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "paid":
		return enums.PaymentStatusSucceeded, true
	case "expired", "failed":
		return enums.PaymentStatusFailed, true
	default:
		return "", false
	}
}
