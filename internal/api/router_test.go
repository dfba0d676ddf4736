package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/athebyme/gomarket-platform/catalog-sync/internal/adapters/logger"
	"github.com/athebyme/gomarket-platform/catalog-sync/internal/domain/models"
	"github.com/athebyme/gomarket-platform/catalog-sync/pkg/interfaces"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

type recordingService struct {
	synced   []int64
	indexRef map[int64]string
}

func (s *recordingService) SyncProduct(_ context.Context, productID int64, _ string) error {
	s.synced = append(s.synced, productID)
	return nil
}

func (s *recordingService) SyncAllProducts(context.Context, string) (*models.BulkSyncOutcome, error) {
	outcome := models.NewBulkSyncOutcome(0)
	outcome.Summarize()
	return outcome, nil
}

func (s *recordingService) ApplyIndexRef(_ context.Context, productID int64, indexRef string) error {
	s.indexRef[productID] = indexRef
	return nil
}

type tokenVerifier map[string][]string

func (v tokenVerifier) VerifyToken(_ context.Context, token string) (*interfaces.Principal, error) {
	roles, ok := v[token]
	if !ok {
		return nil, errors.New("invalid token")
	}
	return &interfaces.Principal{Subject: token, Roles: roles}, nil
}

func newTestAPI(t *testing.T, healthErr error) (http.Handler, *recordingService) {
	svc := &recordingService{indexRef: map[int64]string{}}
	verifier := tokenVerifier{
		"crud":    {RoleSync},
		"indexer": {RoleIndexer},
	}
	log := logger.NewFromZap(zaptest.NewLogger(t), zap.NewAtomicLevel())

	router := SetupRouter(svc, verifier, log, RouterOptions{
		RateLimitPerMinute: 100,
		HealthCheck:        func(*http.Request) error { return healthErr },
	})
	return router, svc
}

func call(router http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRouter_RolesPerRoute(t *testing.T) {
	router, svc := newTestAPI(t, nil)

	assert.Equal(t, http.StatusUnauthorized, call(router, http.MethodPost, "/api/v1/products/1/sync", "", `{"action":"upsert"}`).Code)
	assert.Equal(t, http.StatusForbidden, call(router, http.MethodPost, "/api/v1/products/1/sync", "indexer", `{"action":"upsert"}`).Code)
	assert.Equal(t, http.StatusAccepted, call(router, http.MethodPost, "/api/v1/products/1/sync", "crud", `{"action":"upsert"}`).Code)
	assert.Equal(t, []int64{1}, svc.synced)

	assert.Equal(t, http.StatusOK, call(router, http.MethodPost, "/api/v1/products/sync", "crud", `{"action":"upsert"}`).Code)

	assert.Equal(t, http.StatusForbidden, call(router, http.MethodPut, "/api/v1/products/1/index-ref", "crud", `{"index_ref":"es-1"}`).Code)
	assert.Equal(t, http.StatusOK, call(router, http.MethodPut, "/api/v1/products/1/index-ref", "indexer", `{"index_ref":"es-1"}`).Code)
	assert.Equal(t, "es-1", svc.indexRef[1])
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	router, _ := newTestAPI(t, nil)

	rec := call(router, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = call(router, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_durations_seconds")

	unhealthy, _ := newTestAPI(t, errors.New("postgres down"))
	assert.Equal(t, http.StatusServiceUnavailable, call(unhealthy, http.MethodGet, "/health", "", "").Code)
}
