package refund

import (
	"context"
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
	"github.com/magabrotheeeer/credit-ledger/internal/services/credits"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Refund(ctx context.Context, userID, operationID int64) (*models.RefundResult, error) {
	args := m.Called(ctx, userID, operationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RefundResult), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestRefundHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		mockErr        error
		mockRes        *models.RefundResult
		callsService   bool
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "success",
			body:           `{"analysis_id": 42}`,
			mockRes:        &models.RefundResult{RefundedTo: models.SourceAddon, SourceID: 5},
			callsService:   true,
			expectedStatus: http.StatusOK,
			expectedBody:   `"refunded_to":"addon"`,
		},
		{
			name:           "no consumption",
			body:           `{"analysis_id": 42}`,
			mockErr:        credits.ErrConsumptionNotFound,
			callsService:   true,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "source deleted",
			body:           `{"analysis_id": 42}`,
			mockErr:        credits.ErrSourceNotFound,
			callsService:   true,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "already refunded",
			body:           `{"analysis_id": 42}`,
			mockErr:        credits.ErrAlreadyRefunded,
			callsService:   true,
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "malformed consumption",
			body:           `{"analysis_id": 42}`,
			mockErr:        credits.ErrConsumptionMalformed,
			callsService:   true,
			expectedStatus: http.StatusUnprocessableEntity,
		},
		{
			name:           "missing analysis id",
			body:           `{}`,
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   "field AnalysisID is a required field",
		},
		{
			name:           "empty body",
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			if tt.callsService {
				svc.On("Refund", mock.Anything, int64(7), int64(42)).Return(tt.mockRes, tt.mockErr).Once()
			}
			h := New(newNoopLogger(), svc)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/credits/refund", strings.NewReader(tt.body))
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
