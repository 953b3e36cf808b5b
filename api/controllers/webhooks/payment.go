package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/angelmondragon/storefront-backend/api/responses"
	paymentwebhook "github.com/angelmondragon/storefront-backend/internal/webhooks/payment"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const maxWebhookBodyBytes = 1 << 20

type PaymentWebhookProcessor interface {
	Authenticate(token string) error
	Handle(ctx context.Context, token string, event paymentwebhook.Event) (paymentwebhook.Result, error)
}

// PaymentWebhook reconciles provider invoice callbacks. Every non-error
// outcome, including duplicates and ignored statuses, answers 200.
func PaymentWebhook(svc PaymentWebhookProcessor, tokenHeader string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment webhook processor unavailable"))
			return
		}

		token := r.Header.Get(tokenHeader)

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodyBytes))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		event, err := paymentwebhook.ParseEvent(payload)
		if err != nil {
			if authErr := svc.Authenticate(token); authErr != nil {
				responses.WriteError(ctx, logg, w, authErr)
				return
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.Handle(ctx, token, event)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
