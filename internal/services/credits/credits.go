// Package credits содержит движок кредитного учёта: подсчёт доступных кредитов,
// проверку активной подписки, списание и возврат кредита по операции.
//
// Движок не хранит состояния. Каждая изменяющая операция выполняется
// в одной транзакции хранилища и оставляет ровно одну запись в журнале.
package credits

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/credit-ledger/internal/lib/metrics"
	"github.com/magabrotheeeer/credit-ledger/internal/lib/sl"
	"github.com/magabrotheeeer/credit-ledger/internal/models"
)

// Repository определяет методы чтения баланса и запуска транзакции.
type Repository interface {
	// SumPlanCredits суммирует остаток по активным планам без фильтра по дате.
	SumPlanCredits(ctx context.Context, userID int64) (int, error)
	// SumAddonCredits суммирует остаток по активным неистёкшим add-on
	// и возвращает ближайшую дату истечения среди них.
	SumAddonCredits(ctx context.Context, userID int64, now time.Time) (int, *time.Time, error)
	// HasActivePlanOfKind проверяет наличие активного плана одного из видов.
	HasActivePlanOfKind(ctx context.Context, userID int64, kinds []models.PlanKind) (bool, error)
	// ActivePlan возвращает самый новый активный план или nil.
	ActivePlan(ctx context.Context, userID int64) (*models.Plan, error)
	// ListTransactions возвращает журнал пользователя, новые записи первыми.
	ListTransactions(ctx context.Context, userID int64, limit, offset int) ([]*models.Transaction, error)
	// InTx выполняет fn в одной транзакции. Ошибка fn откатывает транзакцию.
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx операции хранилища, доступные внутри транзакции.
type Tx interface {
	// OldestSpendablePlan возвращает самый старый план, с которого можно списать, или nil.
	OldestSpendablePlan(ctx context.Context, userID int64, now time.Time) (*models.Plan, error)
	// OldestSpendableAddon возвращает самый старый add-on, с которого можно списать, или nil.
	OldestSpendableAddon(ctx context.Context, userID int64, now time.Time) (*models.Addon, error)
	// DecrementPlan уменьшает остаток плана на 1, только если он ещё пригоден к списанию.
	// false означает, что строку опустошил конкурентный запрос.
	DecrementPlan(ctx context.Context, id int64, now time.Time) (int, bool, error)
	// DecrementAddon то же для add-on.
	DecrementAddon(ctx context.Context, id int64, now time.Time) (int, bool, error)
	// IncrementPlan увеличивает остаток плана пользователя на 1. false, если плана нет.
	IncrementPlan(ctx context.Context, userID, id int64) (int, bool, error)
	// IncrementAddon то же для add-on.
	IncrementAddon(ctx context.Context, userID, id int64) (int, bool, error)
	// LatestConsume возвращает последнее списание по операции или nil.
	LatestConsume(ctx context.Context, userID, operationID int64) (*models.Transaction, error)
	// RefundExists проверяет, был ли уже возврат по операции.
	RefundExists(ctx context.Context, userID, operationID int64) (bool, error)
	// AppendTransaction добавляет запись в журнал.
	AppendTransaction(ctx context.Context, t models.Transaction) (int64, error)
}

// Cache описывает методы для кэширования данных.
// Invalidate обязан менять версию ключа, иначе SetIfVersion не отличит устаревшую запись.
type Cache interface {
	Get(key string, result any) (bool, error)
	Version(key string) (int64, error)
	SetIfVersion(key string, value any, expiration time.Duration, version int64) (bool, error)
	Invalidate(key string) error
}

// Publisher отправляет событие в брокер.
type Publisher interface {
	Publish(routingKey string, msg any) error
}

const (
	defaultCacheTTL    = time.Minute
	defaultMaxAttempts = 5
)

// Service движок кредитов.
type Service struct {
	repo        Repository
	cache       Cache
	publisher   Publisher
	log         *slog.Logger
	metrics     *metrics.Metrics
	now         func() time.Time
	cacheTTL    time.Duration
	maxAttempts int
}

// Option настраивает Service.
type Option func(*Service)

// WithMetrics подключает счётчики Prometheus.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock подменяет источник текущего времени.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithCacheTTL задаёт верхнюю границу времени жизни кэша баланса.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithMaxAttempts задаёт число попыток выбора источника при конкурентных списаниях.
func WithMaxAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// New создает движок. cache и publisher могут быть nil.
func New(repo Repository, cache Cache, publisher Publisher, log *slog.Logger, opts ...Option) *Service {
	s := &Service{
		repo:        repo,
		cache:       cache,
		publisher:   publisher,
		log:         log,
		now:         time.Now,
		cacheTTL:    defaultCacheTTL,
		maxAttempts: defaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func availableKey(userID int64) string {
	return fmt.Sprintf("credits:available:%d", userID)
}

// ComputeAvailable возвращает доступные пользователю кредиты.
// Планы учитываются без проверки даты окончания, add-on только неистёкшие.
func (s *Service) ComputeAvailable(ctx context.Context, userID int64) (models.AvailableCredits, error) {
	key := availableKey(userID)
	var (
		version   int64
		cacheable bool
	)
	if s.cache != nil {
		var cached models.AvailableCredits
		found, err := s.cache.Get(key, &cached)
		if err != nil {
			s.log.Warn("failed to read cache", slog.String("key", key), sl.Err(err))
		} else if found {
			return cached, nil
		}
		// версия читается до обращения к хранилищу
		version, err = s.cache.Version(key)
		if err != nil {
			s.log.Warn("failed to read cache version", slog.String("key", key), sl.Err(err))
		} else {
			cacheable = true
		}
	}

	now := s.now()
	planCredits, err := s.repo.SumPlanCredits(ctx, userID)
	if err != nil {
		return models.AvailableCredits{}, err
	}
	addonCredits, nextExpiry, err := s.repo.SumAddonCredits(ctx, userID, now)
	if err != nil {
		return models.AvailableCredits{}, err
	}

	res := models.AvailableCredits{
		PlanCredits:  planCredits,
		AddonCredits: addonCredits,
		Total:        planCredits + addonCredits,
	}

	if cacheable {
		ttl := s.cacheTTL
		if nextExpiry != nil {
			if left := nextExpiry.Sub(now); left < ttl {
				ttl = left
			}
		}
		if ttl > 0 {
			stored, err := s.cache.SetIfVersion(key, res, ttl, version)
			switch {
			case err != nil:
				s.log.Warn("failed to cache available credits", slog.String("key", key), sl.Err(err))
			case !stored:
				s.log.Debug("balance changed during read, not cached", sl.UserID(userID))
			}
		}
	}
	return res, nil
}

// HasActiveSubscription сообщает, есть ли у пользователя активная ежемесячная подписка.
// При ошибке хранилища возвращает false, чтобы не блокировать покупку.
func (s *Service) HasActiveSubscription(ctx context.Context, userID int64) bool {
	ok, err := s.repo.HasActivePlanOfKind(ctx, userID, models.RecurringPlanKinds)
	if err != nil {
		s.log.Error("failed to check active subscription, allowing purchase",
			sl.UserID(userID), sl.Err(err))
		return false
	}
	return ok
}

// Consume списывает один кредит: сначала с самого старого пригодного плана,
// затем с самого старого неистёкшего add-on.
// Если источников нет, возвращает ErrInsufficientCredits и ничего не меняет.
func (s *Service) Consume(ctx context.Context, userID int64, operationID *int64) (*models.ConsumeResult, error) {
	var res *models.ConsumeResult
	now := s.now()

	err := s.repo.InTx(ctx, func(tx Tx) error {
		for attempt := 0; attempt < s.maxAttempts; attempt++ {
			r, err := s.consumeOnce(ctx, tx, userID, now)
			if errors.Is(err, errNoSource) {
				continue
			}
			if err != nil {
				return err
			}
			if r == nil {
				return ErrInsufficientCredits
			}

			kind := r.SourceKind
			sourceID := r.SourceID
			if _, err := tx.AppendTransaction(ctx, models.Transaction{
				UserID:      userID,
				Type:        models.TxConsume,
				Amount:      -1,
				SourceKind:  &kind,
				SourceID:    &sourceID,
				OperationID: operationID,
			}); err != nil {
				return err
			}
			res = r
			return nil
		}
		return ErrContention
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientCredits) {
			s.metrics.Insufficient()
			s.log.Info("insufficient credits", sl.UserID(userID))
		}
		return nil, err
	}

	s.metrics.Consumed(string(res.SourceKind))
	s.log.Info("credit consumed",
		sl.UserID(userID),
		slog.String("source", string(res.SourceKind)),
		slog.Int64("source_id", res.SourceID),
		slog.Int("remaining", res.RemainingCredits))
	s.afterMutation(userID, models.EventConsumed, models.CreditEvent{
		Type:        models.TxConsume,
		UserID:      userID,
		Amount:      -1,
		SourceKind:  res.SourceKind,
		SourceID:    res.SourceID,
		OperationID: operationID,
		OccurredAt:  now,
	})
	return res, nil
}

// consumeOnce делает одну попытку выбора и списания.
// Возвращает nil без ошибки, если пригодных источников нет,
// и errNoSource, если выбранный источник опустошили между выбором и списанием.
func (s *Service) consumeOnce(ctx context.Context, tx Tx, userID int64, now time.Time) (*models.ConsumeResult, error) {
	plan, err := tx.OldestSpendablePlan(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	if plan != nil {
		remaining, ok, err := tx.DecrementPlan(ctx, plan.ID, now)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errNoSource
		}
		return &models.ConsumeResult{
			RemainingCredits: remaining,
			SourceKind:       models.SourcePlan,
			SourceID:         plan.ID,
			IsFreeTier:       plan.Kind == models.PlanFreeTier,
		}, nil
	}

	addon, err := tx.OldestSpendableAddon(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	if addon == nil {
		return nil, nil
	}
	remaining, ok, err := tx.DecrementAddon(ctx, addon.ID, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errNoSource
	}
	return &models.ConsumeResult{
		RemainingCredits: remaining,
		SourceKind:       models.SourceAddon,
		SourceID:         addon.ID,
	}, nil
}

// Refund возвращает кредит, списанный по операции, в тот же источник.
// Возврат по одной операции возможен не более одного раза.
func (s *Service) Refund(ctx context.Context, userID, operationID int64) (*models.RefundResult, error) {
	var res *models.RefundResult

	err := s.repo.InTx(ctx, func(tx Tx) error {
		consume, err := tx.LatestConsume(ctx, userID, operationID)
		if err != nil {
			return err
		}
		if consume == nil {
			return ErrConsumptionNotFound
		}
		if !consume.HasSource() {
			return ErrConsumptionMalformed
		}

		refunded, err := tx.RefundExists(ctx, userID, operationID)
		if err != nil {
			return err
		}
		if refunded {
			return ErrAlreadyRefunded
		}

		kind, sourceID := *consume.SourceKind, *consume.SourceID
		var ok bool
		switch kind {
		case models.SourcePlan:
			_, ok, err = tx.IncrementPlan(ctx, userID, sourceID)
		case models.SourceAddon:
			_, ok, err = tx.IncrementAddon(ctx, userID, sourceID)
		default:
			return ErrConsumptionMalformed
		}
		if err != nil {
			return err
		}
		if !ok {
			return ErrSourceNotFound
		}

		if _, err := tx.AppendTransaction(ctx, models.Transaction{
			UserID:      userID,
			Type:        models.TxRefund,
			Amount:      1,
			SourceKind:  &kind,
			SourceID:    &sourceID,
			OperationID: &operationID,
		}); err != nil {
			return err
		}
		res = &models.RefundResult{RefundedTo: kind, SourceID: sourceID}
		return nil
	})
	if err != nil {
		if IsBusinessOutcome(err) {
			s.metrics.RefundRejected(rejectReason(err))
			s.log.Warn("refund rejected",
				sl.UserID(userID),
				slog.Int64("analysis_id", operationID),
				sl.Err(err))
		}
		return nil, err
	}

	s.metrics.Refunded(string(res.RefundedTo))
	s.log.Info("credit refunded",
		sl.UserID(userID),
		slog.Int64("analysis_id", operationID),
		slog.String("source", string(res.RefundedTo)),
		slog.Int64("source_id", res.SourceID))
	s.afterMutation(userID, models.EventRefunded, models.CreditEvent{
		Type:        models.TxRefund,
		UserID:      userID,
		Amount:      1,
		SourceKind:  res.RefundedTo,
		SourceID:    res.SourceID,
		OperationID: &operationID,
		OccurredAt:  s.now(),
	})
	return res, nil
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrConsumptionNotFound):
		return "not_found"
	case errors.Is(err, ErrConsumptionMalformed):
		return "malformed"
	case errors.Is(err, ErrSourceNotFound):
		return "source_not_found"
	case errors.Is(err, ErrAlreadyRefunded):
		return "already_refunded"
	}
	return "other"
}

// ActivePlan возвращает самый новый активный план пользователя или nil.
func (s *Service) ActivePlan(ctx context.Context, userID int64) (*models.Plan, error) {
	return s.repo.ActivePlan(ctx, userID)
}

// History возвращает страницу журнала кредитов пользователя.
func (s *Service) History(ctx context.Context, userID int64, limit, offset int) ([]*models.Transaction, error) {
	return s.repo.ListTransactions(ctx, userID, limit, offset)
}

// Invalidate сбрасывает кэш баланса пользователя после изменения вне движка.
func (s *Service) Invalidate(userID int64) {
	if s.cache == nil {
		return
	}
	key := availableKey(userID)
	if err := s.cache.Invalidate(key); err != nil {
		s.log.Warn("failed to invalidate cache", slog.String("key", key), sl.Err(err))
	}
}

// afterMutation сбрасывает кэш и публикует событие. Ошибки только логируются:
// транзакция к этому моменту уже зафиксирована.
func (s *Service) afterMutation(userID int64, routingKey string, event models.CreditEvent) {
	s.Invalidate(userID)
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(routingKey, event); err != nil {
		s.log.Warn("failed to publish credit event", slog.String("routing_key", routingKey), sl.Err(err))
	}
}
