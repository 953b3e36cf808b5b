package paymentwebhook

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/inventory"
	"github.com/angelmondragon/storefront-backend/internal/notifications"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/payments"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
)

const tracerName = "storefront/webhooks/payment"

// Outcome values reported for every handled callback.
const (
	OutcomeApplied         = "applied"
	OutcomePaymentFailed   = "payment_failed"
	OutcomeIgnored         = "ignored"
	OutcomeDuplicate       = "duplicate"
	OutcomeConflict        = "conflict"
	OutcomeOrderNotPending = "order_not_pending"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type inventoryApplier interface {
	ApplyOrder(ctx context.Context, order *models.Order) inventory.Summary
}

// Result is returned to the provider with a 200.
type Result struct {
	Outcome           string `json:"outcome"`
	ProviderPaymentID string `json:"providerPaymentId,omitempty"`
	OrderID           string `json:"orderId,omitempty"`
}

type ProcessorParams struct {
	Authenticator     Authenticator
	Payments          payments.Repository
	Orders            orders.Repository
	TransactionRunner txRunner
	Inventory         inventoryApplier
	Sink              notifications.Sink
	Metrics           *metrics.WebhookMetrics
	Logger            *logger.Logger
	Tracer            trace.Tracer
	Now               func() time.Time
}

// Processor reconciles provider payment callbacks with payments, orders, and
// stock. The conditional payment transition is the only idempotency gate:
// side effects run only for the invocation that moved the order.
type Processor struct {
	auth      Authenticator
	payments  payments.Repository
	orders    orders.Repository
	tx        txRunner
	inventory inventoryApplier
	sink      notifications.Sink
	metrics   *metrics.WebhookMetrics
	logg      *logger.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

func NewProcessor(params ProcessorParams) (*Processor, error) {
	if params.Payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payments repo required")
	}
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repo required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Inventory == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "inventory adjuster required")
	}
	if params.Sink == nil {
		params.Sink = notifications.Discard{}
	}
	if params.Tracer == nil {
		params.Tracer = otel.Tracer(tracerName)
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &Processor{
		auth:      params.Authenticator,
		payments:  params.Payments,
		orders:    params.Orders,
		tx:        params.TransactionRunner,
		inventory: params.Inventory,
		sink:      params.Sink,
		metrics:   params.Metrics,
		logg:      params.Logger,
		tracer:    params.Tracer,
		now:       params.Now,
	}, nil
}

// Authenticate checks the shared-secret token without touching state.
func (p *Processor) Authenticate(token string) error {
	return p.auth.Verify(token)
}

// Handle authenticates and applies one callback. Errors carry typed codes:
// UNAUTHORIZED, VALIDATION_ERROR, NOT_FOUND, or INTERNAL_ERROR.
func (p *Processor) Handle(ctx context.Context, token string, event Event) (Result, error) {
	start := p.now()
	ctx, span := p.tracer.Start(ctx, "payment.webhook.handle", trace.WithAttributes(
		attribute.String("payment.provider_id", event.ID),
		attribute.String("payment.raw_status", event.Status),
	))
	defer span.End()

	if p.logg != nil {
		ctx = p.logg.WithPaymentID(ctx, event.ID)
	}

	result, err := p.handle(ctx, token, event)
	outcome := result.Outcome
	if err != nil {
		outcome = errorOutcome(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	span.SetAttributes(attribute.String("payment.webhook.outcome", outcome))
	p.metrics.Observe(outcome, p.now().Sub(start))

	if p.logg != nil {
		logCtx := p.logg.WithField(ctx, "outcome", outcome)
		if err != nil && pkgerrors.IsCode(err, pkgerrors.CodeInternal) {
			p.logg.Error(logCtx, "payment webhook failed", err)
		} else {
			p.logg.Info(logCtx, "payment webhook handled")
		}
	}
	return result, err
}

func (p *Processor) handle(ctx context.Context, token string, event Event) (Result, error) {
	if err := p.auth.Verify(token); err != nil {
		return Result{}, err
	}
	if err := event.Validate(); err != nil {
		return Result{}, err
	}

	providerID := strings.TrimSpace(event.ID)
	result := Result{ProviderPaymentID: providerID}

	target, ok := Normalize(event.Status)
	if !ok {
		result.Outcome = OutcomeIgnored
		return result, nil
	}

	now := p.now().UTC()
	transition := payments.Transition{Status: target, Method: paymentMethod(event)}
	paidAt := now
	if target == enums.PaymentStatusSucceeded {
		transition.PaidAt = &paidAt
	}

	var (
		payment        *models.Payment
		paymentChanged bool
		orderChanged   bool
	)
	err := p.tx.WithTx(ctx, func(tx *gorm.DB) error {
		payRepo := p.payments.WithTx(tx)

		found, err := payRepo.FindByProviderID(ctx, providerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load payment")
		}
		payment = found

		changed, err := payRepo.Transition(ctx, providerID, transition)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "transition payment")
		}
		if !changed {
			return nil
		}
		paymentChanged = true

		if target != enums.PaymentStatusSucceeded {
			return nil
		}
		orderChanged, err = p.orders.WithTx(tx).MarkPaid(ctx, payment.OrderID, paidAt, strings.TrimSpace(event.PaymentChannel))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark order paid")
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	result.OrderID = payment.OrderID.String()
	if p.logg != nil {
		ctx = p.logg.WithOrderID(ctx, result.OrderID)
	}
	p.checkAmount(ctx, payment, event)

	if !paymentChanged {
		return p.resolveNoChange(ctx, result, target)
	}

	// Committed; everything below is best-effort and must not trigger a
	// provider retry.
	sideCtx := context.WithoutCancel(ctx)

	switch {
	case target == enums.PaymentStatusFailed:
		p.sink.Notify(sideCtx, notifications.Event{
			Type:    enums.NotificationTypePaymentFailed,
			Message: fmt.Sprintf("Payment %s for order %s did not go through", providerID, result.OrderID),
			Meta: map[string]any{
				"orderId":           result.OrderID,
				"providerPaymentId": providerID,
				"providerStatus":    event.Status,
			},
		})
		result.Outcome = OutcomePaymentFailed
	case orderChanged:
		p.applyPaidOrder(sideCtx, payment)
		result.Outcome = OutcomeApplied
	default:
		p.flagOrderNotPending(sideCtx, payment, providerID)
		result.Outcome = OutcomeOrderNotPending
	}
	return result, nil
}

// resolveNoChange classifies a callback whose conditional write matched no
// row: a replay of the stored status or a contradicting terminal status.
func (p *Processor) resolveNoChange(ctx context.Context, result Result, target enums.PaymentStatus) (Result, error) {
	current, err := p.payments.FindByProviderID(ctx, result.ProviderPaymentID)
	if err != nil {
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload payment")
	}

	switch {
	case current.Status == target:
		result.Outcome = OutcomeDuplicate
		return result, nil
	case current.Status.IsTerminal():
		p.sink.Notify(context.WithoutCancel(ctx), notifications.Event{
			Type: enums.NotificationTypeReconciliationRequired,
			Message: fmt.Sprintf("Payment %s reported %s but is already %s",
				result.ProviderPaymentID, target, current.Status),
			Meta: map[string]any{
				"orderId":           result.OrderID,
				"providerPaymentId": result.ProviderPaymentID,
				"storedStatus":      string(current.Status),
				"reportedStatus":    string(target),
			},
		})
		result.Outcome = OutcomeConflict
		return result, nil
	default:
		return Result{}, pkgerrors.New(pkgerrors.CodeInternal, "payment transition was not applied")
	}
}

func (p *Processor) applyPaidOrder(ctx context.Context, payment *models.Payment) {
	order, err := p.orders.FindByID(ctx, payment.OrderID)
	if err != nil {
		if p.logg != nil {
			p.logg.Error(ctx, "load paid order for side effects", err)
		}
		p.sink.Notify(ctx, notifications.Event{
			Type:    enums.NotificationTypeReconciliationRequired,
			Message: fmt.Sprintf("Order %s was paid but stock was not adjusted", payment.OrderID),
			Meta: map[string]any{
				"orderId":           payment.OrderID.String(),
				"providerPaymentId": payment.ProviderPaymentID,
			},
		})
		return
	}

	p.sink.Notify(ctx, notifications.Event{
		Type:    enums.NotificationTypeOrderPaid,
		Message: fmt.Sprintf("Order %s has been paid", order.ID),
		Meta: map[string]any{
			"orderId":       order.ID.String(),
			"userId":        order.UserID.String(),
			"totalAmount":   order.TotalAmount.StringFixed(2),
			"paymentMethod": order.PaymentMethod,
		},
	})

	summary := p.inventory.ApplyOrder(ctx, order)
	if p.logg != nil && len(summary.Failures) > 0 {
		p.logg.Warn(p.logg.WithFields(ctx, map[string]any{
			"applied":  summary.Applied,
			"failures": len(summary.Failures),
		}), "inventory partially adjusted")
	}
}

func (p *Processor) flagOrderNotPending(ctx context.Context, payment *models.Payment, providerID string) {
	meta := map[string]any{
		"orderId":           payment.OrderID.String(),
		"providerPaymentId": providerID,
	}
	if order, err := p.orders.FindByID(ctx, payment.OrderID); err == nil {
		meta["orderStatus"] = string(order.Status)
		meta["userId"] = order.UserID.String()
	} else {
		meta["orderStatus"] = "missing"
	}

	if p.logg != nil {
		p.logg.Warn(p.logg.WithFields(ctx, meta), "payment succeeded for an order that is not pending")
	}
	p.sink.Notify(ctx, notifications.Event{
		Type:    enums.NotificationTypeReconciliationRequired,
		Message: fmt.Sprintf("Payment %s succeeded but order %s is no longer pending", providerID, payment.OrderID),
		Meta:    meta,
	})
}

func (p *Processor) checkAmount(ctx context.Context, payment *models.Payment, event Event) {
	if p.logg == nil {
		return
	}
	settled, err := event.SettledAmount()
	if err != nil {
		p.logg.WarnErr(ctx, "webhook amount unreadable, skipping amount check", err)
		return
	}
	if settled == nil || settled.Equal(payment.Amount) {
		return
	}
	p.logg.Warn(p.logg.WithFields(ctx, map[string]any{
		"expected_amount": payment.Amount.StringFixed(2),
		"reported_amount": settled.StringFixed(2),
	}), "webhook amount differs from registered payment")
}

func paymentMethod(event Event) string {
	if m := strings.TrimSpace(event.PaymentMethod); m != "" {
		return m
	}
	return strings.TrimSpace(event.PaymentChannel)
}

func errorOutcome(err error) string {
	typed := pkgerrors.As(err)
	if typed == nil {
		return "error"
	}
	switch typed.Code() {
	case pkgerrors.CodeUnauthorized:
		return "unauthorized"
	case pkgerrors.CodeValidation:
		return "invalid"
	case pkgerrors.CodeNotFound:
		return "not_found"
	default:
		return "error"
	}
}
