package analyze

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/credit-ledger/internal/http/middlewarectx"
	"github.com/magabrotheeeer/credit-ledger/internal/models"
	"github.com/magabrotheeeer/credit-ledger/internal/services/analysis"
	"github.com/magabrotheeeer/credit-ledger/internal/services/credits"
	"github.com/magabrotheeeer/credit-ledger/internal/storage"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Run(ctx context.Context, userID, imageID int64) (*analysis.Result, error) {
	args := m.Called(ctx, userID, imageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*analysis.Result), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestAnalyzeHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		mockRes        *analysis.Result
		mockErr        error
		callsService   bool
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "success",
			body: `{"image_id": 3}`,
			mockRes: &analysis.Result{
				AnalysisID:       11,
				Diagnosis:        &models.Diagnosis{OverallAssessment: "Buena vidriera"},
				RemainingCredits: 4,
			},
			callsService:   true,
			expectedStatus: http.StatusOK,
			expectedBody:   `"remaining_credits":4`,
		},
		{
			name:           "no credits",
			body:           `{"image_id": 3}`,
			mockErr:        credits.ErrInsufficientCredits,
			callsService:   true,
			expectedStatus: http.StatusPaymentRequired,
		},
		{
			name:           "foreign image",
			body:           `{"image_id": 3}`,
			mockErr:        storage.ErrNotFound,
			callsService:   true,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "analyzer failed",
			body:           `{"image_id": 3}`,
			mockErr:        errors.New("upstream timeout"),
			callsService:   true,
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   "internal error",
		},
		{
			name:           "missing image id",
			body:           `{}`,
			expectedStatus: http.StatusUnprocessableEntity,
		},
		{
			name:           "broken json",
			body:           `{"image_id":`,
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			if tt.callsService {
				svc.On("Run", mock.Anything, int64(7), int64(3)).Return(tt.mockRes, tt.mockErr).Once()
			}
			h := New(newNoopLogger(), svc)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/analysis", strings.NewReader(tt.body))
			req = req.WithContext(middlewarectx.WithUserID(req.Context(), 7))
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			if tt.expectedBody != "" {
				assert.Contains(t, rr.Body.String(), tt.expectedBody)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestAnalyzeHandler_Unauthorized(t *testing.T) {
	svc := new(MockService)
	h := New(newNoopLogger(), svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analysis", strings.NewReader(`{"image_id":3}`))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	svc.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything)
}
