// Package inventory applies paid orders to product stock and raises stock
// alerts.
package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/internal/notifications"
	"github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
)

const (
	resultApplied           = "applied"
	resultProductMissing    = "product_missing"
	resultInsufficientStock = "insufficient_stock"
	resultError             = "error"
)

type saleApplier interface {
	ApplySale(ctx context.Context, productID uuid.UUID, qty int) (products.SaleResult, error)
}

// ItemFailure describes an order line whose stock could not be adjusted.
type ItemFailure struct {
	ProductID uuid.UUID
	Quantity  int
	Reason    string
	Err       error
}

// Summary reports what ApplyOrder did for each line.
type Summary struct {
	Applied    int
	OutOfStock []uuid.UUID
	LowStock   []uuid.UUID
	Failures   []ItemFailure
}

// Adjuster decrements stock for every line of a paid order. Each line is
// applied on its own; one failing line does not stop the rest.
type Adjuster struct {
	products         saleApplier
	sink             notifications.Sink
	defaultThreshold int
	metrics          *metrics.InventoryMetrics
	logg             *logger.Logger
}

func NewAdjuster(products saleApplier, sink notifications.Sink, defaultThreshold int, m *metrics.InventoryMetrics, logg *logger.Logger) (*Adjuster, error) {
	if products == nil {
		return nil, errors.New("product repository required")
	}
	if sink == nil {
		sink = notifications.Discard{}
	}
	if defaultThreshold <= 0 {
		defaultThreshold = models.DefaultRestockThreshold
	}
	return &Adjuster{
		products:         products,
		sink:             sink,
		defaultThreshold: defaultThreshold,
		metrics:          m,
		logg:             logg,
	}, nil
}

func (a *Adjuster) ApplyOrder(ctx context.Context, order *models.Order) Summary {
	var summary Summary
	if order == nil {
		return summary
	}

	for _, item := range order.Items {
		result, err := a.products.ApplySale(ctx, item.ProductID, item.Quantity)
		if err != nil {
			failure := a.recordFailure(ctx, order, item, err)
			summary.Failures = append(summary.Failures, failure)
			continue
		}

		summary.Applied++
		a.metrics.IncAdjustment(resultApplied)

		switch {
		case result.Stock == 0:
			summary.OutOfStock = append(summary.OutOfStock, result.ProductID)
			a.sink.Notify(ctx, notifications.Event{
				Type:    enums.NotificationTypeOutOfStock,
				Message: fmt.Sprintf("%s is out of stock", result.Name),
				Meta:    stockMeta(result),
			})
		case result.Stock <= a.threshold(result):
			summary.LowStock = append(summary.LowStock, result.ProductID)
			a.sink.Notify(ctx, notifications.Event{
				Type:    enums.NotificationTypeLowStock,
				Message: fmt.Sprintf("%s is running low (%d left)", result.Name, result.Stock),
				Meta:    stockMeta(result),
			})
		}
	}
	return summary
}

func (a *Adjuster) threshold(result products.SaleResult) int {
	if result.RestockThreshold > 0 {
		return result.RestockThreshold
	}
	return a.defaultThreshold
}

func (a *Adjuster) recordFailure(ctx context.Context, order *models.Order, item models.OrderItem, err error) ItemFailure {
	reason := resultError
	switch {
	case pkgerrors.IsCode(err, pkgerrors.CodeNotFound):
		reason = resultProductMissing
	case pkgerrors.IsCode(err, pkgerrors.CodeStateConflict):
		reason = resultInsufficientStock
	}
	a.metrics.IncAdjustment(reason)

	if a.logg != nil {
		logCtx := a.logg.WithOrderID(ctx, order.ID.String())
		logCtx = a.logg.WithFields(logCtx, map[string]any{
			"product_id": item.ProductID.String(),
			"quantity":   item.Quantity,
			"reason":     reason,
		})
		a.logg.WarnErr(logCtx, "inventory adjustment failed", err)
	}

	a.sink.Notify(ctx, notifications.Event{
		Type:    enums.NotificationTypeReconciliationRequired,
		Message: fmt.Sprintf("Stock for %s was not adjusted after payment", item.Name),
		Meta: map[string]any{
			"orderId":   order.ID.String(),
			"productId": item.ProductID.String(),
			"quantity":  item.Quantity,
			"reason":    reason,
		},
	})

	return ItemFailure{ProductID: item.ProductID, Quantity: item.Quantity, Reason: reason, Err: err}
}

func stockMeta(result products.SaleResult) map[string]any {
	return map[string]any{
		"productId": result.ProductID.String(),
		"name":      result.Name,
		"stock":     result.Stock,
	}
}
