package routes

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/inventory"
	"github.com/angelmondragon/storefront-backend/internal/notifications"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/payments"
	"github.com/angelmondragon/storefront-backend/internal/products"
	paymentwebhook "github.com/angelmondragon/storefront-backend/internal/webhooks/payment"
	pkgAuth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
)

const callbackToken = "cb-token"

type testApp struct {
	handler    http.Handler
	cfg        *config.Config
	dispatcher *notifications.Dispatcher
	products   *products.Repository
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	cfg := &config.Config{
		App:     config.AppConfig{Env: "test"},
		JWT:     config.JWTConfig{Secret: "jwt-secret", Issuer: "storefront-test", ExpirationMinutes: 30},
		Webhook: config.WebhookConfig{PaymentCallbackToken: callbackToken, PaymentTokenHeader: "X-Callback-Token"},
		Redis:   config.RedisConfig{IdempotencyTTL: time.Hour},
	}
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	reg := prometheus.NewRegistry()

	client := dbtest.Client(t)
	conn := client.DB()

	notificationRepo := notifications.NewRepository(conn)
	dispatcher, err := notifications.NewDispatcher(notifications.DispatcherParams{
		Store:   notificationRepo,
		Metrics: metrics.NewNotificationMetrics(reg),
		Logger:  logg,
	})
	require.NoError(t, err)

	productRepo := products.NewRepository(conn)
	ordersRepo := orders.NewRepository(conn)
	paymentsRepo := payments.NewRepository(conn)

	cartSvc, err := cart.NewService(cart.NewRepository(conn))
	require.NoError(t, err)
	ordersSvc, err := orders.NewService(ordersRepo, cartSvc, logg)
	require.NoError(t, err)
	paymentsSvc, err := payments.NewService(paymentsRepo, ordersRepo, logg)
	require.NoError(t, err)
	notificationsSvc, err := notifications.NewService(notificationRepo)
	require.NoError(t, err)

	adjuster, err := inventory.NewAdjuster(productRepo, dispatcher, models.DefaultRestockThreshold, metrics.NewInventoryMetrics(reg), logg)
	require.NoError(t, err)
	processor, err := paymentwebhook.NewProcessor(paymentwebhook.ProcessorParams{
		Authenticator:     paymentwebhook.NewAuthenticator(cfg.Webhook.PaymentCallbackToken),
		Payments:          paymentsRepo,
		Orders:            ordersRepo,
		TransactionRunner: client,
		Inventory:         adjuster,
		Sink:              dispatcher,
		Metrics:           metrics.NewWebhookMetrics(reg),
		Logger:            logg,
	})
	require.NoError(t, err)

	handler := NewRouter(cfg, logg, client, nil, reg, ordersSvc, paymentsSvc, cartSvc, notificationsSvc, processor)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = dispatcher.Close(ctx)
	})
	return &testApp{handler: handler, cfg: cfg, dispatcher: dispatcher, products: productRepo}
}

func (a *testApp) token(t *testing.T, userID uuid.UUID, role enums.Role) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(a.cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{UserID: userID, Role: role})
	require.NoError(t, err)
	return token
}

func (a *testApp) do(t *testing.T, method, target, token, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.NoError(t, json.Unmarshal(env.Data, dest))
}

func TestCheckoutPaymentAndReconciliationFlow(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	product, err := app.products.Create(ctx, &models.Product{Name: "Ensaymada box", Price: decimal.NewFromInt(180), Stock: 6})
	require.NoError(t, err)

	customerID := uuid.New()
	customer := app.token(t, customerID, enums.RoleCustomer)
	admin := app.token(t, uuid.New(), enums.RoleAdmin)

	orderBody := `{
		"items": [{"productId": "` + product.ID.String() + `", "name": "Ensaymada box", "price": "180.00", "quantity": 2}],
		"totalAmount": "360.00",
		"paymentMethod": "gcash",
		"address": {"street": "7 Luna St", "brgy": "Malate", "city": "Manila", "province": "Metro Manila", "postalCode": "1004"}
	}`
	rec := app.do(t, http.MethodPost, "/order", customer, orderBody, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var order models.Order
	decodeData(t, rec, &order)
	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.Equal(t, "Philippines", order.Address.Country)

	rec = app.do(t, http.MethodPost, "/order/"+order.ID.String()+"/payments", customer, `{"providerPaymentId":"inv_77","amount":"360.00"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	webhook := `{"id":"inv_77","status":"PAID","paid_amount":360,"payment_method":"EWALLET"}`
	headers := map[string]string{"X-Callback-Token": callbackToken}

	rec = app.do(t, http.MethodPost, "/webhooks/payment", "", webhook, headers)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result paymentwebhook.Result
	decodeData(t, rec, &result)
	assert.Equal(t, paymentwebhook.OutcomeApplied, result.Outcome)

	rec = app.do(t, http.MethodPost, "/webhooks/payment", "", webhook, headers)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeData(t, rec, &result)
	assert.Equal(t, paymentwebhook.OutcomeDuplicate, result.Outcome)

	rec = app.do(t, http.MethodGet, "/order/"+order.ID.String(), customer, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeData(t, rec, &order)
	assert.Equal(t, enums.OrderStatusPaid, order.Status)
	require.NotNil(t, order.PaidAt)

	stored, err := app.products.FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, stored.Stock)
	assert.Equal(t, 2, stored.SoldQuantity)

	drainCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	require.NoError(t, app.dispatcher.Close(drainCtx))

	rec = app.do(t, http.MethodGet, "/admin/notifications", admin, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var feed notifications.ListResult
	decodeData(t, rec, &feed)
	types := map[enums.NotificationType]int{}
	for _, n := range feed.Items {
		types[n.Type]++
	}
	assert.Equal(t, 1, types[enums.NotificationTypeOrderPaid])
	assert.Equal(t, 1, types[enums.NotificationTypeLowStock])
	assert.Zero(t, types[enums.NotificationTypeOutOfStock])

	rec = app.do(t, http.MethodGet, "/admin/notifications", customer, "", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestWebhookRejectsWrongToken(t *testing.T) {
	app := newTestApp(t)
	rec := app.do(t, http.MethodPost, "/webhooks/payment", "", `{"id":"inv_1","status":"PAID"}`, map[string]string{"X-Callback-Token": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = app.do(t, http.MethodPost, "/webhooks/payment", "", `{"id":"inv_1","status":"PAID"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWebhookUnknownPaymentIsNotFound(t *testing.T) {
	app := newTestApp(t)
	rec := app.do(t, http.MethodPost, "/webhooks/payment", "", `{"id":"inv_missing","status":"PAID"}`, map[string]string{"X-Callback-Token": callbackToken})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOrderRoutesRequireBearerToken(t *testing.T) {
	app := newTestApp(t)
	for _, tc := range []struct{ method, target string }{
		{http.MethodPost, "/order"},
		{http.MethodGet, "/order"},
		{http.MethodGet, "/cart"},
		{http.MethodGet, "/admin/notifications"},
	} {
		rec := app.do(t, tc.method, tc.target, "", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, tc.target)
	}
}

func TestCustomersOnlySeeTheirOwnOrders(t *testing.T) {
	app := newTestApp(t)
	alice := app.token(t, uuid.New(), enums.RoleCustomer)
	bob := app.token(t, uuid.New(), enums.RoleCustomer)

	body := `{"items":[{"productId":"` + uuid.NewString() + `","name":"Puto","price":"15","quantity":4}],"totalAmount":"60","address":{"street":"1 A St","brgy":"B","city":"C","province":"D","postalCode":"1000"}}`
	rec := app.do(t, http.MethodPost, "/order", alice, body, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var order models.Order
	decodeData(t, rec, &order)

	rec = app.do(t, http.MethodGet, "/order", bob, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []models.Order
	decodeData(t, rec, &list)
	assert.Empty(t, list)

	rec = app.do(t, http.MethodGet, "/order/"+order.ID.String(), bob, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = app.do(t, http.MethodPost, "/order/"+order.ID.String()+"/cancel", alice, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeData(t, rec, &order)
	assert.Equal(t, enums.OrderStatusCancelled, order.Status)
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodGet, "/health/live", "", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = app.do(t, http.MethodGet, "/health/ready", "", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	app.do(t, http.MethodPost, "/webhooks/payment", "", `{"id":"inv_1","status":"PAID"}`, map[string]string{"X-Callback-Token": "nope"})
	rec = app.do(t, http.MethodGet, "/metrics", "", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `payment_webhook_events_total{outcome="unauthorized"} 1`)
}
