package creditledger

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/credit-ledger/internal/http/handlers/health"
	"github.com/magabrotheeeer/credit-ledger/internal/http/middlewarectx"
	"github.com/magabrotheeeer/credit-ledger/internal/lib/jwt"
)

func newTestRouter(limiter *middlewarectx.RateLimiter) (chi.Router, *jwt.MakerImpl) {
	maker := jwt.NewJWTMaker("test-secret", time.Hour)
	r := chi.NewRouter()
	RegisterRoutes(r, slog.New(slog.NewTextHandler(io.Discard, nil)), Services{
		Tokens:        maker,
		Limiter:       limiter,
		Health:        map[string]health.Pinger{},
		WebhookSecret: "whsec",
	})
	return r, maker
}

func TestRoutes_PublicEndpoints(t *testing.T) {
	r, _ := newTestRouter(nil)

	tests := []struct {
		name           string
		method         string
		path           string
		body           string
		expectedStatus int
	}{
		{name: "health", method: http.MethodGet, path: "/health", expectedStatus: http.StatusOK},
		{name: "metrics", method: http.MethodGet, path: "/metrics", expectedStatus: http.StatusOK},
		{
			name:           "webhook ignores non payment events",
			method:         http.MethodPost,
			path:           "/api/v1/payments/webhook",
			body:           `{"type":"plan","data":{"id":"1"}}`,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "webhook without signature",
			method:         http.MethodPost,
			path:           "/api/v1/payments/webhook",
			body:           `{"type":"payment","data":{"id":"123"}}`,
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)
			assert.Equal(t, tt.expectedStatus, rr.Code)
		})
	}
}

func TestRoutes_ProtectedEndpointsRequireToken(t *testing.T) {
	r, _ := newTestRouter(nil)

	paths := []struct{ method, path string }{
		{http.MethodGet, "/api/v1/credits/available"},
		{http.MethodGet, "/api/v1/credits/active-plan"},
		{http.MethodGet, "/api/v1/credits/transactions"},
		{http.MethodPost, "/api/v1/credits/consume"},
		{http.MethodPost, "/api/v1/credits/refund"},
		{http.MethodPost, "/api/v1/credits/free-tier"},
		{http.MethodPost, "/api/v1/payments/checkout"},
		{http.MethodPost, "/api/v1/images"},
		{http.MethodPost, "/api/v1/analysis"},
		{http.MethodGet, "/api/v1/analysis/1"},
		{http.MethodGet, "/api/v1/analysis/history"},
	}
	for _, p := range paths {
		t.Run(p.method+" "+p.path, func(t *testing.T) {
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, httptest.NewRequest(p.method, p.path, nil))
			assert.Equal(t, http.StatusUnauthorized, rr.Code)
		})
	}
}

func TestRoutes_TokenPassesAndLimiterApplies(t *testing.T) {
	r, maker := newTestRouter(middlewarectx.NewRateLimiter(0.001, 1))
	token, err := maker.GenerateToken(7, "user@example.com")
	require.NoError(t, err)

	send := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/credits/refund", strings.NewReader(`{}`))
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		return rr.Code
	}

	// Тело без analysis_id отклоняется валидацией до обращения к сервису.
	assert.Equal(t, http.StatusUnprocessableEntity, send())
	assert.Equal(t, http.StatusTooManyRequests, send())
}
