package orders

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	internalorders "github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/payments"
	"github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type stubOrderService struct {
	createFn func(ctx context.Context, caller auth.Caller, input internalorders.CreateInput) (*models.Order, error)
	listFn   func(ctx context.Context, caller auth.Caller) ([]models.Order, error)
	getFn    func(ctx context.Context, caller auth.Caller, id uuid.UUID) (*models.Order, error)
	cancelFn func(ctx context.Context, caller auth.Caller, id uuid.UUID) (*models.Order, error)
}

func (s *stubOrderService) Create(ctx context.Context, caller auth.Caller, input internalorders.CreateInput) (*models.Order, error) {
	return s.createFn(ctx, caller, input)
}

func (s *stubOrderService) List(ctx context.Context, caller auth.Caller) ([]models.Order, error) {
	return s.listFn(ctx, caller)
}

func (s *stubOrderService) Get(ctx context.Context, caller auth.Caller, id uuid.UUID) (*models.Order, error) {
	return s.getFn(ctx, caller, id)
}

func (s *stubOrderService) Cancel(ctx context.Context, caller auth.Caller, id uuid.UUID) (*models.Order, error) {
	return s.cancelFn(ctx, caller, id)
}

type stubPaymentService struct {
	registerFn func(ctx context.Context, caller auth.Caller, input payments.RegisterInput) (*models.Payment, error)
}

func (s *stubPaymentService) Register(ctx context.Context, caller auth.Caller, input payments.RegisterInput) (*models.Payment, error) {
	return s.registerFn(ctx, caller, input)
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func withCaller(req *http.Request, caller auth.Caller) *http.Request {
	ctx := middleware.WithUserID(req.Context(), caller.UserID.String())
	ctx = middleware.WithRole(ctx, string(caller.Role))
	return req.WithContext(ctx)
}

func withOrderID(req *http.Request, id uuid.UUID) *http.Request {
	rc := chi.NewRouteContext()
	rc.URLParams.Add("orderId", id.String())
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

const createBody = `{
	"items": [{"productId": "6b0a3c5e-1f4e-4b55-9a57-1f2a3b4c5d6e", "name": "Ube jam", "price": 120, "quantity": 2}],
	"totalAmount": 240,
	"paymentMethod": "gcash",
	"status": "paid",
	"address": {"street": "12 Mabini St", "brgy": "Poblacion", "city": "Makati", "province": "Metro Manila", "postalCode": "1210"}
}`

func TestCreateReturns201WithOrder(t *testing.T) {
	caller := auth.Caller{UserID: uuid.New(), Role: enums.RoleCustomer}
	var got internalorders.CreateInput
	svc := &stubOrderService{
		createFn: func(ctx context.Context, c auth.Caller, input internalorders.CreateInput) (*models.Order, error) {
			assert.Equal(t, caller, c)
			got = input
			return &models.Order{ID: uuid.New(), UserID: c.UserID, Status: enums.OrderStatusPending, TotalAmount: *input.TotalAmount}, nil
		},
	}

	req := withCaller(httptest.NewRequest(http.MethodPost, "/order", strings.NewReader(createBody)), caller)
	rec := httptest.NewRecorder()
	Create(svc, testLogger())(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, got.Items, 1)
	assert.Equal(t, 2, got.Items[0].Quantity)
	assert.Equal(t, "Poblacion", got.Address.Barangay)
	require.NotNil(t, got.TotalAmount)
	assert.True(t, got.TotalAmount.Equal(decimal.NewFromInt(240)))

	var order models.Order
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &order))
	assert.Equal(t, enums.OrderStatusPending, order.Status)
}

func TestCreateRejectsMissingCaller(t *testing.T) {
	svc := &stubOrderService{}
	req := httptest.NewRequest(http.MethodPost, "/order", strings.NewReader(createBody))
	rec := httptest.NewRecorder()
	Create(svc, testLogger())(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateSurfacesValidationDetails(t *testing.T) {
	caller := auth.Caller{UserID: uuid.New(), Role: enums.RoleCustomer}
	svc := &stubOrderService{
		createFn: func(context.Context, auth.Caller, internalorders.CreateInput) (*models.Order, error) {
			return nil, pkgerrors.Validation("invalid order", map[string]string{"items": "must contain at least one item"})
		},
	}

	req := withCaller(httptest.NewRequest(http.MethodPost, "/order", strings.NewReader(`{"items":[],"totalAmount":0,"address":{}}`)), caller)
	rec := httptest.NewRecorder()
	Create(svc, testLogger())(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, string(pkgerrors.CodeValidation), env.Error.Code)
	assert.Equal(t, "must contain at least one item", env.Error.Details["items"])
}

func TestCreateRejectsMalformedJSON(t *testing.T) {
	caller := auth.Caller{UserID: uuid.New(), Role: enums.RoleCustomer}
	req := withCaller(httptest.NewRequest(http.MethodPost, "/order", strings.NewReader(`{"items":`)), caller)
	rec := httptest.NewRecorder()
	Create(&stubOrderService{}, testLogger())(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListReturnsOrders(t *testing.T) {
	caller := auth.Caller{UserID: uuid.New(), Role: enums.RoleAdmin}
	svc := &stubOrderService{
		listFn: func(ctx context.Context, c auth.Caller) ([]models.Order, error) {
			assert.True(t, c.IsAdmin())
			return []models.Order{{ID: uuid.New()}, {ID: uuid.New()}}, nil
		},
	}

	req := withCaller(httptest.NewRequest(http.MethodGet, "/order", nil), caller)
	rec := httptest.NewRecorder()
	List(svc, testLogger())(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var orders []models.Order
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &orders))
	assert.Len(t, orders, 2)
}

func TestDetailRejectsInvalidOrderID(t *testing.T) {
	caller := auth.Caller{UserID: uuid.New(), Role: enums.RoleCustomer}
	req := withCaller(httptest.NewRequest(http.MethodGet, "/order/nope", nil), caller)
	rc := chi.NewRouteContext()
	rc.URLParams.Add("orderId", "nope")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
	rec := httptest.NewRecorder()
	Detail(&stubOrderService{}, testLogger())(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDetailNotFound(t *testing.T) {
	caller := auth.Caller{UserID: uuid.New(), Role: enums.RoleCustomer}
	svc := &stubOrderService{
		getFn: func(context.Context, auth.Caller, uuid.UUID) (*models.Order, error) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		},
	}
	req := withOrderID(withCaller(httptest.NewRequest(http.MethodGet, "/order/x", nil), caller), uuid.New())
	rec := httptest.NewRecorder()
	Detail(svc, testLogger())(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancelPaidOrderConflicts(t *testing.T) {
	caller := auth.Caller{UserID: uuid.New(), Role: enums.RoleCustomer}
	orderID := uuid.New()
	svc := &stubOrderService{
		cancelFn: func(_ context.Context, _ auth.Caller, id uuid.UUID) (*models.Order, error) {
			assert.Equal(t, orderID, id)
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order can no longer be cancelled")
		},
	}
	req := withOrderID(withCaller(httptest.NewRequest(http.MethodPost, "/order/x/cancel", nil), caller), orderID)
	rec := httptest.NewRecorder()
	Cancel(svc, testLogger())(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeStateConflict), decodeEnvelope(t, rec).Error.Code)
}

func TestRegisterPaymentReturns201(t *testing.T) {
	caller := auth.Caller{UserID: uuid.New(), Role: enums.RoleCustomer}
	orderID := uuid.New()
	svc := &stubPaymentService{
		registerFn: func(_ context.Context, _ auth.Caller, input payments.RegisterInput) (*models.Payment, error) {
			assert.Equal(t, orderID, input.OrderID)
			assert.Equal(t, "inv_123", input.ProviderPaymentID)
			assert.True(t, input.Amount.Equal(decimal.NewFromInt(240)))
			return &models.Payment{ID: uuid.New(), OrderID: orderID, ProviderPaymentID: input.ProviderPaymentID, Status: enums.PaymentStatusPending}, nil
		},
	}

	body := `{"providerPaymentId":" inv_123 ","amount":"240.00"}`
	req := withOrderID(withCaller(httptest.NewRequest(http.MethodPost, "/order/x/payments", strings.NewReader(body)), caller), orderID)
	rec := httptest.NewRecorder()
	RegisterPayment(svc, testLogger())(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var payment models.Payment
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &payment))
	assert.Equal(t, "inv_123", payment.ProviderPaymentID)
}

func TestRegisterPaymentRequiresProviderID(t *testing.T) {
	caller := auth.Caller{UserID: uuid.New(), Role: enums.RoleCustomer}
	req := withOrderID(withCaller(httptest.NewRequest(http.MethodPost, "/order/x/payments", strings.NewReader(`{"amount":1}`)), caller), uuid.New())
	rec := httptest.NewRecorder()
	RegisterPayment(&stubPaymentService{}, testLogger())(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "is required", decodeEnvelope(t, rec).Error.Details["providerPaymentId"])
}
