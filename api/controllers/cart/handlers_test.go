package cart

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	cartsvc "github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

func newService(t *testing.T) cartsvc.Service {
	t.Helper()
	svc, err := cartsvc.NewService(cartsvc.NewRepository(dbtest.Open(t)))
	require.NoError(t, err)
	return svc
}

func authed(req *http.Request, userID uuid.UUID) *http.Request {
	ctx := middleware.WithUserID(req.Context(), userID.String())
	ctx = middleware.WithRole(ctx, string(enums.RoleCustomer))
	return req.WithContext(ctx)
}

func decodeView(t *testing.T, rec *httptest.ResponseRecorder) cartsvc.View {
	t.Helper()
	var env struct {
		Data cartsvc.View `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env.Data
}

func TestCartSetItemFetchAndClear(t *testing.T) {
	svc := newService(t)
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	userID := uuid.New()
	productID := uuid.New()

	body := `{"productId":"` + productID.String() + `","name":"Calamansi juice","price":"45.50","quantity":2}`
	rec := httptest.NewRecorder()
	CartSetItem(svc, logg)(rec, authed(httptest.NewRequest(http.MethodPut, "/cart/items", strings.NewReader(body)), userID))
	require.Equal(t, http.StatusOK, rec.Code)
	view := decodeView(t, rec)
	require.Len(t, view.Items, 1)
	assert.True(t, view.Subtotal.Equal(decimal.RequireFromString("91")))

	rec = httptest.NewRecorder()
	CartFetch(svc, logg)(rec, authed(httptest.NewRequest(http.MethodGet, "/cart", nil), userID))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeView(t, rec).Items, 1)

	rec = httptest.NewRecorder()
	CartClear(svc, logg)(rec, authed(httptest.NewRequest(http.MethodDelete, "/cart", nil), userID))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	CartFetch(svc, logg)(rec, authed(httptest.NewRequest(http.MethodGet, "/cart", nil), userID))
	assert.Empty(t, decodeView(t, rec).Items)
}

func TestCartSetItemZeroQuantityRemoves(t *testing.T) {
	svc := newService(t)
	userID := uuid.New()
	productID := uuid.New()

	add := `{"productId":"` + productID.String() + `","name":"Turon","price":"20","quantity":3}`
	CartSetItem(svc, nil)(httptest.NewRecorder(), authed(httptest.NewRequest(http.MethodPut, "/cart/items", strings.NewReader(add)), userID))

	remove := `{"productId":"` + productID.String() + `","quantity":0}`
	rec := httptest.NewRecorder()
	CartSetItem(svc, nil)(rec, authed(httptest.NewRequest(http.MethodPut, "/cart/items", strings.NewReader(remove)), userID))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeView(t, rec).Items)
}

func TestCartSetItemRejectsNegativeQuantity(t *testing.T) {
	svc := newService(t)
	body := `{"productId":"` + uuid.NewString() + `","name":"Turon","price":"20","quantity":-1}`
	rec := httptest.NewRecorder()
	CartSetItem(svc, nil)(rec, authed(httptest.NewRequest(http.MethodPut, "/cart/items", strings.NewReader(body)), uuid.New()))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCartFetchRequiresCaller(t *testing.T) {
	rec := httptest.NewRecorder()
	CartFetch(newService(t), nil)(rec, httptest.NewRequest(http.MethodGet, "/cart", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
