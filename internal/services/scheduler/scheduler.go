// Package scheduler выводит из оборота истёкшие планы и add-on по расписанию cron.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/magabrotheeeer/credit-ledger/internal/lib/metrics"
	"github.com/magabrotheeeer/credit-ledger/internal/lib/sl"
	"github.com/magabrotheeeer/credit-ledger/internal/models"
)

// ExpiryRepository помечает истёкшие источники и пишет записи expire.
type ExpiryRepository interface {
	ExpireSources(ctx context.Context, now time.Time) ([]models.ExpiredSource, error)
}

// Invalidator сбрасывает кэш баланса пользователя.
type Invalidator interface {
	Invalidate(userID int64)
}

// Publisher отправляет событие в брокер.
type Publisher interface {
	Publish(routingKey string, msg any) error
}

// SchedulerService планировщик истечения кредитов.
type SchedulerService struct {
	repo        ExpiryRepository
	invalidator Invalidator
	publisher   Publisher
	metrics     *metrics.Metrics
	log         *slog.Logger
	now         func() time.Time
}

// NewSchedulerService создает новый экземпляр SchedulerService.
// invalidator, publisher и m могут быть nil.
func NewSchedulerService(repo ExpiryRepository, invalidator Invalidator, publisher Publisher,
	m *metrics.Metrics, log *slog.Logger) *SchedulerService {
	return &SchedulerService{
		repo:        repo,
		invalidator: invalidator,
		publisher:   publisher,
		metrics:     m,
		log:         log,
		now:         time.Now,
	}
}

// RunExpiry выполняет один проход и возвращает число выведенных источников.
func (s *SchedulerService) RunExpiry(ctx context.Context) (int, error) {
	const op = "scheduler.RunExpiry"

	now := s.now()
	expired, err := s.repo.ExpireSources(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if len(expired) == 0 {
		s.log.Debug("no expired credit sources")
		return 0, nil
	}

	users := make(map[int64]struct{})
	for _, e := range expired {
		s.metrics.Expired(string(e.SourceKind), e.Forfeited)
		users[e.UserID] = struct{}{}
		if e.Forfeited > 0 {
			s.publish(models.CreditEvent{
				Type:       models.TxExpire,
				UserID:     e.UserID,
				Amount:     -e.Forfeited,
				SourceKind: e.SourceKind,
				SourceID:   e.SourceID,
				OccurredAt: now,
			})
		}
	}
	if s.invalidator != nil {
		for userID := range users {
			s.invalidator.Invalidate(userID)
		}
	}

	s.log.Info("expired credit sources", slog.Int("count", len(expired)), slog.Int("users", len(users)))
	return len(expired), nil
}

func (s *SchedulerService) publish(event models.CreditEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(models.EventExpired, event); err != nil {
		s.log.Error("failed to publish message", sl.Err(err))
	}
}

// Start выполняет проход сразу и затем по расписанию schedule (cron с секундами)
// до отмены ctx. Проход не запускается, пока не завершился предыдущий.
func (s *SchedulerService) Start(ctx context.Context, schedule string) error {
	logger := cronLogger{log: s.log}
	c := cron.New(
		cron.WithSeconds(),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	job := func() {
		if _, err := s.RunExpiry(ctx); err != nil {
			s.log.Error("expiry run failed", sl.Err(err))
		}
	}
	if _, err := c.AddFunc(schedule, job); err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	job()
	c.Start()
	s.log.Info("expiry scheduler started", slog.String("schedule", schedule))

	<-ctx.Done()
	<-c.Stop().Done()
	s.log.Info("expiry scheduler stopped")
	return nil
}

// cronLogger передаёт сообщения cron в slog.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error(msg, append([]any{sl.Err(err)}, keysAndValues...)...)
}
