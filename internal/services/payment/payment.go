// Package payment содержит покупку кредитов: создание платёжной preference
// с проверкой активной подписки, начисление кредитов по подтверждённому
// платежу провайдера и выдачу бесплатного плана.
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/magabrotheeeer/credit-ledger/internal/lib/metrics"
	"github.com/magabrotheeeer/credit-ledger/internal/lib/month"
	"github.com/magabrotheeeer/credit-ledger/internal/lib/sl"
	"github.com/magabrotheeeer/credit-ledger/internal/models"
	"github.com/magabrotheeeer/credit-ledger/internal/paymentprovider"
)

var (
	// ErrActiveSubscription пользователь пытается купить план при активной подписке.
	ErrActiveSubscription = errors.New("monthly plan already active")
	// ErrUnknownProduct позиции нет в каталоге.
	ErrUnknownProduct = errors.New("unknown plan type")
	// ErrInvalidMetadata в платеже нет user_id или plan_type.
	ErrInvalidMetadata = errors.New("payment metadata is invalid")
)

// Repository операции хранилища для начисления кредитов.
type Repository interface {
	AllocatePlan(ctx context.Context, p models.Payment, plan models.Plan) (*models.Allocation, error)
	AllocateAddon(ctx context.Context, p models.Payment, addon models.Addon) (*models.Allocation, error)
	GrantFreeTier(ctx context.Context, userID int64, credits int, now time.Time) (*models.Plan, bool, error)
}

// Provider платёжный провайдер.
type Provider interface {
	CreatePreference(ctx context.Context, req paymentprovider.PreferenceRequest) (*paymentprovider.Preference, error)
	GetPayment(ctx context.Context, id string) (*paymentprovider.Payment, error)
}

// Credits часть движка кредитов, нужная для покупки.
type Credits interface {
	HasActiveSubscription(ctx context.Context, userID int64) bool
	Invalidate(userID int64)
}

// Publisher отправляет событие в брокер.
type Publisher interface {
	Publish(routingKey string, msg any) error
}

// URLs адреса, передаваемые провайдеру в preference.
type URLs struct {
	NotificationURL string
	SuccessURL      string
}

// Service сервис оплаты.
type Service struct {
	repo      Repository
	provider  Provider
	credits   Credits
	publisher Publisher
	metrics   *metrics.Metrics
	urls      URLs
	log       *slog.Logger
	now       func() time.Time
}

// New создает сервис. publisher и m могут быть nil.
func New(repo Repository, provider Provider, credits Credits, publisher Publisher,
	m *metrics.Metrics, urls URLs, log *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		provider:  provider,
		credits:   credits,
		publisher: publisher,
		metrics:   m,
		urls:      urls,
		log:       log,
		now:       time.Now,
	}
}

// Checkout создаёт preference на покупку позиции каталога.
// Планы нельзя купить при активной ежемесячной подписке, add-on можно всегда.
func (s *Service) Checkout(ctx context.Context, userID int64, product models.Product) (*paymentprovider.Preference, error) {
	const op = "payment.Checkout"

	price, ok := models.Pricing[product]
	if !ok {
		return nil, ErrUnknownProduct
	}
	if !product.IsAddon() && s.credits.HasActiveSubscription(ctx, userID) {
		return nil, ErrActiveSubscription
	}

	uid := strconv.FormatInt(userID, 10)
	req := paymentprovider.PreferenceRequest{
		Items: []paymentprovider.Item{{
			ID:          string(product),
			Title:       price.Title,
			Description: fmt.Sprintf("%d crédito(s) de análisis", price.Credits),
			Quantity:    1,
			UnitPrice:   float64(price.Price),
			CurrencyID:  models.Currency,
		}},
		NotificationURL:     s.urls.NotificationURL,
		ExternalReference:   uid,
		StatementDescriptor: "CREDITS",
		Metadata: map[string]string{
			"user_id":   uid,
			"plan_type": string(product),
		},
	}
	if s.urls.SuccessURL != "" {
		req.BackURLs = &paymentprovider.BackURLs{
			Success: s.urls.SuccessURL,
			Failure: s.urls.SuccessURL,
			Pending: s.urls.SuccessURL,
		}
		req.AutoReturn = "approved"
	}

	pref, err := s.provider.CreatePreference(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("checkout preference created", sl.UserID(userID),
		slog.String("plan_type", string(product)), slog.String("preference_id", pref.ID))
	return pref, nil
}

// ProcessNotification обрабатывает уведомление о платеже. Платёж запрашивается
// у провайдера, кредиты начисляются только для approved. Повторное уведомление
// о том же платеже не начисляет кредиты второй раз.
// Возвращает nil без ошибки, если платёж ещё не подтверждён.
func (s *Service) ProcessNotification(ctx context.Context, providerPaymentID string) (*models.Allocation, error) {
	const op = "payment.ProcessNotification"
	log := s.log.With(sl.Op(op), slog.String("payment_id", providerPaymentID))

	p, err := s.provider.GetPayment(ctx, providerPaymentID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if p.Status != paymentprovider.StatusApproved {
		log.Info("payment not approved, skipping", slog.String("status", p.Status))
		return nil, nil
	}

	userID, product, err := parseMetadata(p.Metadata)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	price, ok := models.Pricing[product]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, ErrUnknownProduct)
	}

	meta, _ := json.Marshal(p.Metadata)
	payment := models.Payment{
		UserID:            userID,
		ProviderPaymentID: providerPaymentID,
		Amount:            int64(math.Round(p.TransactionAmount)),
		Currency:          p.CurrencyID,
		Status:            p.Status,
		Product:           product,
		Metadata:          string(meta),
	}

	now := s.now()
	var alloc *models.Allocation
	if product.IsAddon() {
		alloc, err = s.repo.AllocateAddon(ctx, payment, models.Addon{
			UserID:         userID,
			Credits:        price.Credits,
			PurchaseDate:   now,
			ExpirationDate: month.End(now),
		})
	} else {
		end := month.Next(now)
		alloc, err = s.repo.AllocatePlan(ctx, payment, models.Plan{
			UserID:    userID,
			Kind:      product.PlanKind(),
			Credits:   price.Credits,
			StartDate: now,
			EndDate:   &end,
			ResetDate: &end,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if alloc.Duplicate {
		log.Info("payment already processed")
		return alloc, nil
	}

	log.Info("credits allocated", sl.UserID(userID),
		slog.String("plan_type", string(product)), slog.Int("credits", alloc.Credits))
	s.metrics.Allocated(string(product), alloc.Credits)
	s.credits.Invalidate(userID)
	s.publish(models.CreditEvent{
		Type:       models.TxAllocate,
		UserID:     userID,
		Amount:     alloc.Credits,
		SourceKind: alloc.SourceKind,
		SourceID:   alloc.SourceID,
		OccurredAt: now,
	})
	return alloc, nil
}

// GrantFreeTier выдаёт бесплатный план. Второй вызов возвращает существующий план и false.
func (s *Service) GrantFreeTier(ctx context.Context, userID int64) (*models.Plan, bool, error) {
	const op = "payment.GrantFreeTier"

	now := s.now()
	plan, created, err := s.repo.GrantFreeTier(ctx, userID, models.FreeTierCredits, now)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	if !created {
		return plan, false, nil
	}

	s.metrics.Allocated(string(models.PlanFreeTier), plan.Credits)
	s.credits.Invalidate(userID)
	s.publish(models.CreditEvent{
		Type:       models.TxAllocate,
		UserID:     userID,
		Amount:     plan.Credits,
		SourceKind: models.SourcePlan,
		SourceID:   plan.ID,
		OccurredAt: now,
	})
	return plan, true, nil
}

func (s *Service) publish(event models.CreditEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(models.EventAllocated, event); err != nil {
		s.log.Warn("failed to publish credit event", sl.Err(err))
	}
}

// parseMetadata достаёт пользователя и позицию из metadata платежа.
// Провайдер может вернуть user_id как строкой, так и числом.
func parseMetadata(meta map[string]any) (int64, models.Product, error) {
	var userID int64
	switch v := meta["user_id"].(type) {
	case string:
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, "", ErrInvalidMetadata
		}
		userID = id
	case float64:
		userID = int64(v)
	}
	product, _ := meta["plan_type"].(string)
	if userID <= 0 || product == "" {
		return 0, "", ErrInvalidMetadata
	}
	return userID, models.Product(product), nil
}
