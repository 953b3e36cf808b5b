package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/internal/notifications"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type testNotificationsService struct {
	listFn func(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error)
}

func (s *testNotificationsService) List(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
	if s.listFn != nil {
		return s.listFn(ctx, params)
	}
	return &notifications.ListResult{}, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func TestListNotificationsPassesQuery(t *testing.T) {
	var got notifications.ListParams
	svc := &testNotificationsService{
		listFn: func(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
			got = params
			return &notifications.ListResult{
				Items:  []models.Notification{{ID: uuid.New(), Type: enums.NotificationTypeLowStock, Message: "Low stock"}},
				Cursor: "next",
			}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/admin/notifications?limit=10&cursor=abc&unreadOnly=true", nil)
	resp := httptest.NewRecorder()
	ListNotifications(svc, testLogger())(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 10, got.Limit)
	assert.Equal(t, "abc", got.Cursor)
	assert.True(t, got.UnreadOnly)

	var envelope struct {
		Data notifications.ListResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data.Items, 1)
	assert.Equal(t, "next", envelope.Data.Cursor)
}

func TestListNotificationsDefaultsLimit(t *testing.T) {
	var got notifications.ListParams
	svc := &testNotificationsService{
		listFn: func(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
			got = params
			return &notifications.ListResult{}, nil
		},
	}

	resp := httptest.NewRecorder()
	ListNotifications(svc, testLogger())(resp, httptest.NewRequest(http.MethodGet, "/admin/notifications", nil))

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 25, got.Limit)
	assert.False(t, got.UnreadOnly)
}

func TestListNotificationsRejectsBadQuery(t *testing.T) {
	svc := &testNotificationsService{}
	for _, target := range []string{"/admin/notifications?limit=0", "/admin/notifications?limit=abc", "/admin/notifications?unreadOnly=maybe"} {
		resp := httptest.NewRecorder()
		ListNotifications(svc, testLogger())(resp, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusBadRequest, resp.Code, target)
	}
}

func TestListNotificationsSurfacesServiceError(t *testing.T) {
	svc := &testNotificationsService{
		listFn: func(context.Context, notifications.ListParams) (*notifications.ListResult, error) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
		},
	}
	resp := httptest.NewRecorder()
	ListNotifications(svc, testLogger())(resp, httptest.NewRequest(http.MethodGet, "/admin/notifications?cursor=bad", nil))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "test"}}

	resp := httptest.NewRecorder()
	HealthReady(cfg, map[string]Pinger{"database": stubPinger{}}, testLogger())(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "test", resp.Header().Get("X-Storefront-Env"))

	resp = httptest.NewRecorder()
	HealthReady(cfg, map[string]Pinger{"database": stubPinger{err: errors.New("down")}}, testLogger())(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
}

func TestHealthLive(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "test"}}
	resp := httptest.NewRecorder()
	HealthLive(cfg)(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, resp.Code)
}
