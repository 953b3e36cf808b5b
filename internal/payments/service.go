package payments

import (
	"context"
	"errors"
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

type orderFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

// RegisterInput records a provider invoice created for an order.
type RegisterInput struct {
	OrderID           uuid.UUID
	ProviderPaymentID string
	Amount            decimal.Decimal
	Method            string
}

// Service registers provider payments against pending orders.
type Service interface {
	Register(ctx context.Context, caller auth.Caller, input RegisterInput) (*models.Payment, error)
}

type service struct {
	repo   Repository
	orders orderFinder
	logg   *logger.Logger
}

func NewService(repo Repository, orders orderFinder, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, errors.New("payments repository required")
	}
	if orders == nil {
		return nil, errors.New("order finder required")
	}
	return &service{repo: repo, orders: orders, logg: logg}, nil
}

func (s *service) Register(ctx context.Context, caller auth.Caller, input RegisterInput) (*models.Payment, error) {
	providerID := strings.TrimSpace(input.ProviderPaymentID)
	fields := map[string]string{}
	if input.OrderID == uuid.Nil {
		fields["orderId"] = "required"
	}
	if providerID == "" {
		fields["providerPaymentId"] = "required"
	}
	if input.Amount.IsNegative() {
		fields["amount"] = "must be greater than or equal to 0"
	}
	if len(fields) > 0 {
		return nil, pkgerrors.Validation("invalid payment registration", fields)
	}

	order, err := s.orders.FindByID(ctx, input.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	if !caller.CanAccess(order.UserID) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if order.Status != enums.OrderStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payments can only be registered for pending orders").
			WithDetails(map[string]any{"status": order.Status})
	}

	method := strings.TrimSpace(input.Method)
	if method == "" {
		method = order.PaymentMethod
	}

	payment, err := s.repo.Create(ctx, &models.Payment{
		OrderID:           order.ID,
		ProviderPaymentID: providerID,
		Status:            enums.PaymentStatusPending,
		Method:            method,
		Amount:            input.Amount,
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create payment")
	}

	if s.logg != nil {
		logCtx := s.logg.WithOrderID(ctx, order.ID.String())
		logCtx = s.logg.WithPaymentID(logCtx, providerID)
		s.logg.Info(logCtx, "payment registered")
	}
	return payment, nil
}
