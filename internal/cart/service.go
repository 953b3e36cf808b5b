package cart

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// SetItemInput is the body of PUT /cart/items. A zero quantity removes the
// line.
type SetItemInput struct {
	ProductID uuid.UUID       `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

// View is the cart as returned to the storefront.
type View struct {
	Items    []models.CartItem `json:"items"`
	Subtotal decimal.Decimal   `json:"subtotal"`
}

type store interface {
	ListItems(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error)
	UpsertItem(ctx context.Context, item *models.CartItem) error
	DeleteItem(ctx context.Context, userID, productID uuid.UUID) error
	Clear(ctx context.Context, userID uuid.UUID) error
}

// Service manages a customer's cart.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*View, error)
	SetItem(ctx context.Context, userID uuid.UUID, input SetItemInput) (*View, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

type service struct {
	repo store
}

func NewService(repo store) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*View, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	items, err := s.repo.ListItems(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list cart items")
	}
	if items == nil {
		items = []models.CartItem{}
	}
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return &View{Items: items, Subtotal: subtotal}, nil
}

func (s *service) SetItem(ctx context.Context, userID uuid.UUID, input SetItemInput) (*View, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	fields := map[string]string{}
	name := strings.TrimSpace(input.Name)
	if input.ProductID == uuid.Nil {
		fields["productId"] = "is required"
	}
	if input.Quantity < 0 {
		fields["quantity"] = "must be at least 0"
	}
	if input.Quantity > 0 {
		if name == "" {
			fields["name"] = "is required"
		}
		if input.Price.IsNegative() {
			fields["price"] = "must be at least 0"
		}
	}
	if len(fields) > 0 {
		return nil, pkgerrors.Validation("invalid cart item", fields)
	}

	var err error
	if input.Quantity == 0 {
		err = s.repo.DeleteItem(ctx, userID, input.ProductID)
	} else {
		err = s.repo.UpsertItem(ctx, &models.CartItem{
			UserID:    userID,
			ProductID: input.ProductID,
			Name:      name,
			Price:     input.Price,
			Quantity:  input.Quantity,
		})
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update cart item")
	}
	return s.Get(ctx, userID)
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	if err := s.repo.Clear(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart")
	}
	return nil
}
