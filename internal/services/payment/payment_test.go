package payment

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/credit-ledger/internal/models"
	"github.com/magabrotheeeer/credit-ledger/internal/paymentprovider"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) AllocatePlan(ctx context.Context, p models.Payment, plan models.Plan) (*models.Allocation, error) {
	args := m.Called(ctx, p, plan)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Allocation), args.Error(1)
}

func (m *MockRepository) AllocateAddon(ctx context.Context, p models.Payment, addon models.Addon) (*models.Allocation, error) {
	args := m.Called(ctx, p, addon)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Allocation), args.Error(1)
}

func (m *MockRepository) GrantFreeTier(ctx context.Context, userID int64, credits int, now time.Time) (*models.Plan, bool, error) {
	args := m.Called(ctx, userID, credits, now)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.Plan), args.Bool(1), args.Error(2)
}

type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) CreatePreference(ctx context.Context, req paymentprovider.PreferenceRequest) (*paymentprovider.Preference, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paymentprovider.Preference), args.Error(1)
}

func (m *MockProvider) GetPayment(ctx context.Context, id string) (*paymentprovider.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paymentprovider.Payment), args.Error(1)
}

type MockCredits struct {
	mock.Mock
}

func (m *MockCredits) HasActiveSubscription(ctx context.Context, userID int64) bool {
	return m.Called(ctx, userID).Bool(0)
}

func (m *MockCredits) Invalidate(userID int64) {
	m.Called(userID)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(routingKey string, msg any) error {
	return m.Called(routingKey, msg).Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

var testNow = time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	repo      *MockRepository
	provider  *MockProvider
	credits   *MockCredits
	publisher *MockPublisher
	svc       *Service
}

func newFixture() *fixture {
	f := &fixture{
		repo:      new(MockRepository),
		provider:  new(MockProvider),
		credits:   new(MockCredits),
		publisher: new(MockPublisher),
	}
	f.svc = New(f.repo, f.provider, f.credits, f.publisher, nil,
		URLs{NotificationURL: "https://api.example.com/api/v1/payments/webhook", SuccessURL: "https://app.example.com/ok"},
		newNoopLogger())
	f.svc.now = func() time.Time { return testNow }
	return f
}

func TestService_Checkout(t *testing.T) {
	tests := []struct {
		name       string
		product    models.Product
		setupMocks func(*fixture)
		wantErr    error
	}{
		{
			name:    "monthly plan without subscription",
			product: models.Product(models.PlanMonthly3),
			setupMocks: func(f *fixture) {
				f.credits.On("HasActiveSubscription", mock.Anything, int64(7)).Return(false).Once()
				f.provider.On("CreatePreference", mock.Anything, mock.MatchedBy(func(r paymentprovider.PreferenceRequest) bool {
					return len(r.Items) == 1 &&
						r.Items[0].ID == "monthly_3" &&
						r.Items[0].UnitPrice == 9000 &&
						r.Items[0].CurrencyID == "ARS" &&
						r.Metadata["user_id"] == "7" &&
						r.Metadata["plan_type"] == "monthly_3" &&
						r.ExternalReference == "7" &&
						r.BackURLs != nil
				})).Return(&paymentprovider.Preference{ID: "pref-1"}, nil).Once()
			},
		},
		{
			name:    "single plan rejected with active subscription",
			product: models.Product(models.PlanSingle),
			setupMocks: func(f *fixture) {
				f.credits.On("HasActiveSubscription", mock.Anything, int64(7)).Return(true).Once()
			},
			wantErr: ErrActiveSubscription,
		},
		{
			name:    "addon allowed with active subscription",
			product: models.ProductAddon,
			setupMocks: func(f *fixture) {
				f.provider.On("CreatePreference", mock.Anything, mock.Anything).
					Return(&paymentprovider.Preference{ID: "pref-2"}, nil).Once()
			},
		},
		{
			name:       "unknown product",
			product:    models.Product("yearly"),
			setupMocks: func(*fixture) {},
			wantErr:    ErrUnknownProduct,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			tt.setupMocks(f)

			pref, err := f.svc.Checkout(context.Background(), 7, tt.product)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, pref)
				f.provider.AssertNotCalled(t, "CreatePreference", mock.Anything, mock.Anything)
			} else {
				require.NoError(t, err)
				assert.NotEmpty(t, pref.ID)
			}
			f.credits.AssertExpectations(t)
			f.provider.AssertExpectations(t)
		})
	}
}

func TestService_Checkout_ProviderError(t *testing.T) {
	f := newFixture()
	f.credits.On("HasActiveSubscription", mock.Anything, int64(7)).Return(false)
	f.provider.On("CreatePreference", mock.Anything, mock.Anything).Return(nil, errors.New("timeout"))

	_, err := f.svc.Checkout(context.Background(), 7, models.Product(models.PlanMonthly10))
	assert.ErrorContains(t, err, "payment.Checkout")
}

func TestService_ProcessNotification_Plan(t *testing.T) {
	f := newFixture()
	f.provider.On("GetPayment", mock.Anything, "123").Return(&paymentprovider.Payment{
		ID: 123, Status: "approved", TransactionAmount: 9000, CurrencyID: "ARS",
		Metadata: map[string]any{"user_id": "7", "plan_type": "monthly_3"},
	}, nil)
	end := testNow.AddDate(0, 1, 0)
	f.repo.On("AllocatePlan", mock.Anything,
		mock.MatchedBy(func(p models.Payment) bool {
			return p.UserID == 7 && p.ProviderPaymentID == "123" && p.Amount == 9000 && p.Product == "monthly_3"
		}),
		mock.MatchedBy(func(p models.Plan) bool {
			return p.Kind == models.PlanMonthly3 && p.Credits == 3 && p.EndDate.Equal(end) && p.ResetDate.Equal(end)
		}),
	).Return(&models.Allocation{PaymentID: 1, SourceKind: models.SourcePlan, SourceID: 10, Credits: 3}, nil)
	f.credits.On("Invalidate", int64(7)).Once()
	f.publisher.On("Publish", models.EventAllocated, mock.MatchedBy(func(e models.CreditEvent) bool {
		return e.UserID == 7 && e.Amount == 3 && e.Type == models.TxAllocate
	})).Return(nil).Once()

	alloc, err := f.svc.ProcessNotification(context.Background(), "123")
	require.NoError(t, err)
	assert.Equal(t, 3, alloc.Credits)
	assert.False(t, alloc.Duplicate)
	f.credits.AssertExpectations(t)
	f.publisher.AssertExpectations(t)
}

func TestService_ProcessNotification_AddonExpiresEndOfMonth(t *testing.T) {
	f := newFixture()
	f.provider.On("GetPayment", mock.Anything, "124").Return(&paymentprovider.Payment{
		ID: 124, Status: "approved", TransactionAmount: 3000, CurrencyID: "ARS",
		Metadata: map[string]any{"user_id": float64(7), "plan_type": "addon"},
	}, nil)
	wantExp := time.Date(2025, time.March, 31, 23, 59, 59, 0, time.UTC)
	f.repo.On("AllocateAddon", mock.Anything, mock.Anything, mock.MatchedBy(func(a models.Addon) bool {
		return a.Credits == 1 && a.ExpirationDate.Equal(wantExp)
	})).Return(&models.Allocation{SourceKind: models.SourceAddon, SourceID: 5, Credits: 1}, nil)
	f.credits.On("Invalidate", int64(7))
	f.publisher.On("Publish", models.EventAllocated, mock.Anything).Return(errors.New("broker down"))

	alloc, err := f.svc.ProcessNotification(context.Background(), "124")
	require.NoError(t, err)
	assert.Equal(t, models.SourceAddon, alloc.SourceKind)
}

func TestService_ProcessNotification_Duplicate(t *testing.T) {
	f := newFixture()
	f.provider.On("GetPayment", mock.Anything, "123").Return(&paymentprovider.Payment{
		Status: "approved", Metadata: map[string]any{"user_id": "7", "plan_type": "single"},
	}, nil)
	f.repo.On("AllocatePlan", mock.Anything, mock.Anything, mock.Anything).
		Return(&models.Allocation{Duplicate: true}, nil)

	alloc, err := f.svc.ProcessNotification(context.Background(), "123")
	require.NoError(t, err)
	assert.True(t, alloc.Duplicate)
	f.credits.AssertNotCalled(t, "Invalidate", mock.Anything)
	f.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestService_ProcessNotification_Rejected(t *testing.T) {
	tests := []struct {
		name    string
		payment *paymentprovider.Payment
		getErr  error
		wantErr error
	}{
		{
			name:    "pending payment is skipped",
			payment: &paymentprovider.Payment{Status: "pending"},
		},
		{
			name:    "missing metadata",
			payment: &paymentprovider.Payment{Status: "approved", Metadata: map[string]any{"plan_type": "addon"}},
			wantErr: ErrInvalidMetadata,
		},
		{
			name:    "unknown plan type",
			payment: &paymentprovider.Payment{Status: "approved", Metadata: map[string]any{"user_id": "7", "plan_type": "yearly"}},
			wantErr: ErrUnknownProduct,
		},
		{
			name:   "provider error",
			getErr: errors.New("unexpected status: 500"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			if tt.getErr != nil {
				f.provider.On("GetPayment", mock.Anything, "9").Return(nil, tt.getErr)
			} else {
				f.provider.On("GetPayment", mock.Anything, "9").Return(tt.payment, nil)
			}

			alloc, err := f.svc.ProcessNotification(context.Background(), "9")

			assert.Nil(t, alloc)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.getErr != nil:
				assert.Error(t, err)
			default:
				assert.NoError(t, err)
			}
			f.repo.AssertNotCalled(t, "AllocatePlan", mock.Anything, mock.Anything, mock.Anything)
			f.repo.AssertNotCalled(t, "AllocateAddon", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestService_GrantFreeTier(t *testing.T) {
	f := newFixture()
	plan := &models.Plan{ID: 3, UserID: 7, Kind: models.PlanFreeTier, Credits: 1, CreditsRemaining: 1}
	f.repo.On("GrantFreeTier", mock.Anything, int64(7), 1, testNow).Return(plan, true, nil).Once()
	f.repo.On("GrantFreeTier", mock.Anything, int64(7), 1, testNow).Return(plan, false, nil).Once()
	f.credits.On("Invalidate", int64(7)).Once()
	f.publisher.On("Publish", models.EventAllocated, mock.Anything).Return(nil).Once()

	got, created, err := f.svc.GrantFreeTier(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(3), got.ID)

	_, created, err = f.svc.GrantFreeTier(context.Background(), 7)
	require.NoError(t, err)
	assert.False(t, created)

	f.credits.AssertExpectations(t)
	f.publisher.AssertExpectations(t)
}
