package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// Service defines the customer-facing order operations.
type Service interface {
	Create(ctx context.Context, caller auth.Caller, input CreateInput) (*models.Order, error)
	List(ctx context.Context, caller auth.Caller) ([]models.Order, error)
	Get(ctx context.Context, caller auth.Caller, orderID uuid.UUID) (*models.Order, error)
	Cancel(ctx context.Context, caller auth.Caller, orderID uuid.UUID) (*models.Order, error)
}

type service struct {
	repo Repository
	cart CartClearer
	logg *logger.Logger
}

// NewService builds an order service. The cart clearer runs after an order is
// persisted and its failure never undoes the order.
func NewService(repo Repository, cart CartClearer, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if cart == nil {
		return nil, fmt.Errorf("cart clearer required")
	}
	return &service{repo: repo, cart: cart, logg: logg}, nil
}

func (s *service) Create(ctx context.Context, caller auth.Caller, input CreateInput) (*models.Order, error) {
	if caller.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	order, err := buildOrder(caller.UserID, input)
	if err != nil {
		return nil, err
	}

	if sum := order.ItemsSubtotal(); !sum.Equal(order.TotalAmount) && s.logg != nil {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"user_id":        caller.UserID.String(),
			"total_amount":   order.TotalAmount.StringFixed(2),
			"items_subtotal": sum.StringFixed(2),
		}), "order total differs from item subtotal")
	}

	created, err := s.repo.Create(ctx, order)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
	}

	if err := s.cart.Clear(ctx, caller.UserID); err != nil && s.logg != nil {
		s.logg.WarnErr(s.logg.WithOrderID(ctx, created.ID.String()), "cart clear after checkout failed", err)
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithOrderID(ctx, created.ID.String()), "order created")
	}
	return created, nil
}

func buildOrder(userID uuid.UUID, input CreateInput) (*models.Order, error) {
	fields := map[string]string{}

	if len(input.Items) == 0 {
		fields["items"] = "must contain at least one item"
	}
	items := make([]models.OrderItem, 0, len(input.Items))
	for i, item := range input.Items {
		prefix := fmt.Sprintf("items[%d].", i)
		name := strings.TrimSpace(item.Name)
		if item.ProductID == uuid.Nil {
			fields[prefix+"productId"] = "is required"
		}
		if name == "" {
			fields[prefix+"name"] = "is required"
		}
		if item.Price.IsNegative() {
			fields[prefix+"price"] = "must be at least 0"
		}
		if item.Quantity < 1 {
			fields[prefix+"quantity"] = "must be at least 1"
		}
		items = append(items, models.OrderItem{
			ProductID: item.ProductID,
			Name:      name,
			Price:     item.Price,
			Quantity:  item.Quantity,
		})
	}

	address := input.Address.Normalized()
	for _, missing := range address.MissingFields() {
		fields["address."+missing] = "is required"
	}

	total := decimal.Zero
	switch {
	case input.TotalAmount == nil:
		fields["totalAmount"] = "is required"
	case input.TotalAmount.IsNegative():
		fields["totalAmount"] = "must be at least 0"
	default:
		total = *input.TotalAmount
	}

	if input.DeliveryLocation != nil {
		if err := input.DeliveryLocation.Validate(); err != nil {
			fields["deliveryLocation"] = err.Error()
		}
	}

	if len(fields) > 0 {
		return nil, pkgerrors.Validation("invalid order", fields)
	}

	method := strings.TrimSpace(input.PaymentMethod)
	if method == "" {
		method = DefaultPaymentMethod
	}

	return &models.Order{
		UserID:           userID,
		Items:            items,
		TotalAmount:      total,
		PaymentMethod:    method,
		Status:           enums.OrderStatusPending,
		Address:          address,
		DeliveryLocation: input.DeliveryLocation,
	}, nil
}

func (s *service) List(ctx context.Context, caller auth.Caller) ([]models.Order, error) {
	var (
		orders []models.Order
		err    error
	)
	switch {
	case caller.IsAdmin():
		orders, err = s.repo.ListAll(ctx)
	case caller.UserID != uuid.Nil:
		orders, err = s.repo.ListByUser(ctx, caller.UserID)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, nil
}

func (s *service) Get(ctx context.Context, caller auth.Caller, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	if !caller.CanAccess(order.UserID) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

// Cancel moves a pending order to cancelled. Cancelling an already cancelled
// order succeeds without change; paid orders cannot be cancelled.
func (s *service) Cancel(ctx context.Context, caller auth.Caller, orderID uuid.UUID) (*models.Order, error) {
	if _, err := s.Get(ctx, caller, orderID); err != nil {
		return nil, err
	}

	changed, err := s.repo.Cancel(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cancel order")
	}

	order, err := s.Get(ctx, caller, orderID)
	if err != nil {
		return nil, err
	}
	if changed {
		if s.logg != nil {
			s.logg.Info(s.logg.WithOrderID(ctx, orderID.String()), "order cancelled")
		}
		return order, nil
	}

	switch order.Status {
	case enums.OrderStatusCancelled:
		return order, nil
	default:
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order can no longer be cancelled").
			WithDetails(map[string]any{"status": order.Status})
	}
}
