package webhooks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	paymentwebhook "github.com/angelmondragon/storefront-backend/internal/webhooks/payment"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const tokenHeader = "X-Callback-Token"

type stubProcessor struct {
	secret   string
	calls    int
	lastTok  string
	lastEvt  paymentwebhook.Event
	result   paymentwebhook.Result
	handleFn func(event paymentwebhook.Event) error
}

func (s *stubProcessor) Authenticate(token string) error {
	if token == "" || token != s.secret {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid callback token")
	}
	return nil
}

func (s *stubProcessor) Handle(_ context.Context, token string, event paymentwebhook.Event) (paymentwebhook.Result, error) {
	s.calls++
	s.lastTok = token
	s.lastEvt = event
	if err := s.Authenticate(token); err != nil {
		return paymentwebhook.Result{}, err
	}
	if s.handleFn != nil {
		if err := s.handleFn(event); err != nil {
			return paymentwebhook.Result{}, err
		}
	}
	return s.result, nil
}

func serve(t *testing.T, svc PaymentWebhookProcessor, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", strings.NewReader(body))
	if token != "" {
		req.Header.Set(tokenHeader, token)
	}
	rec := httptest.NewRecorder()
	PaymentWebhook(svc, tokenHeader, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))(rec, req)
	return rec
}

func TestPaymentWebhookReturnsOutcome(t *testing.T) {
	svc := &stubProcessor{secret: "s3cret", result: paymentwebhook.Result{Outcome: paymentwebhook.OutcomeApplied, ProviderPaymentID: "inv_1"}}

	rec := serve(t, svc, "s3cret", `{"id":"inv_1","status":"PAID","paid_amount":240,"unknown_field":true}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var env struct {
		Data paymentwebhook.Result `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, paymentwebhook.OutcomeApplied, env.Data.Outcome)
	assert.Equal(t, "s3cret", svc.lastTok)
	assert.Equal(t, "PAID", svc.lastEvt.Status)
	assert.JSONEq(t, "240", string(svc.lastEvt.PaidAmount))
}

func TestPaymentWebhookAcceptsOddOptionalFields(t *testing.T) {
	bodies := map[string]string{
		"empty paid_at":      `{"id":"inv_1","status":"PAID","paid_at":""}`,
		"empty amount":       `{"id":"inv_1","status":"PAID","amount":""}`,
		"non rfc3339 paidAt": `{"id":"inv_1","status":"PAID","paid_at":"2026-03-05 14:00:00"}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			svc := &stubProcessor{secret: "s3cret", result: paymentwebhook.Result{Outcome: paymentwebhook.OutcomeApplied}}
			rec := serve(t, svc, "s3cret", body)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, 1, svc.calls)
			assert.Equal(t, "inv_1", svc.lastEvt.ID)
		})
	}
}

func TestPaymentWebhookPassesTokenVerbatim(t *testing.T) {
	secret := strings.Repeat("k", 600)
	svc := &stubProcessor{secret: secret, result: paymentwebhook.Result{Outcome: paymentwebhook.OutcomeApplied}}

	rec := serve(t, svc, secret+"suffix", `{"id":"inv_1","status":"PAID"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, secret+"suffix", svc.lastTok)

	rec = serve(t, svc, secret, `{"id":"inv_1","status":"PAID"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, secret, svc.lastTok)
}

func TestPaymentWebhookDuplicateStill200(t *testing.T) {
	svc := &stubProcessor{secret: "s3cret", result: paymentwebhook.Result{Outcome: paymentwebhook.OutcomeDuplicate}}
	rec := serve(t, svc, "s3cret", `{"id":"inv_1","status":"PAID"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPaymentWebhookRejectsBadToken(t *testing.T) {
	svc := &stubProcessor{secret: "s3cret"}
	rec := serve(t, svc, "wrong", `{"id":"inv_1","status":"PAID"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPaymentWebhookMalformedBody(t *testing.T) {
	svc := &stubProcessor{secret: "s3cret"}

	rec := serve(t, svc, "s3cret", `{"id":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, svc.calls)

	rec = serve(t, svc, "", `{"id":`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPaymentWebhookMapsProcessorErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", pkgerrors.New(pkgerrors.CodeNotFound, "payment not found"), http.StatusNotFound},
		{"validation", pkgerrors.Validation("invalid webhook payload", map[string]string{"id": "is required"}), http.StatusBadRequest},
		{"internal", pkgerrors.New(pkgerrors.CodeInternal, "apply payment"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.err
			svc := &stubProcessor{secret: "s3cret", handleFn: func(paymentwebhook.Event) error { return err }}
			rec := serve(t, svc, "s3cret", `{"id":"inv_9","status":"PAID"}`)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
