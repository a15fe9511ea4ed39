package creditledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/credit-ledger/internal/analyzer"
	"github.com/magabrotheeeer/credit-ledger/internal/cache"
	"github.com/magabrotheeeer/credit-ledger/internal/config"
	"github.com/magabrotheeeer/credit-ledger/internal/http/handlers/health"
	"github.com/magabrotheeeer/credit-ledger/internal/http/middlewarectx"
	"github.com/magabrotheeeer/credit-ledger/internal/lib/jwt"
	"github.com/magabrotheeeer/credit-ledger/internal/lib/metrics"
	"github.com/magabrotheeeer/credit-ledger/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/credit-ledger/internal/lib/sl"
	"github.com/magabrotheeeer/credit-ledger/internal/migrations"
	"github.com/magabrotheeeer/credit-ledger/internal/objectstore"
	"github.com/magabrotheeeer/credit-ledger/internal/paymentprovider"
	analysisservice "github.com/magabrotheeeer/credit-ledger/internal/services/analysis"
	creditsservice "github.com/magabrotheeeer/credit-ledger/internal/services/credits"
	paymentservice "github.com/magabrotheeeer/credit-ledger/internal/services/payment"
	"github.com/magabrotheeeer/credit-ledger/internal/storage"
)

// App HTTP-приложение кредитного журнала.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *storage.Storage
	cache  *cache.Cache
	conn   *amqp.Connection
	ch     *amqp.Channel
}

// New подключает зависимости, применяет миграции и собирает маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := storage.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("cache not initialized: %w", err)
	}

	app := &App{
		logger: logger,
		db:     db,
		cache:  cacheRedis,
	}

	// События кредитов не обязательны для работы API.
	var publisher creditsservice.Publisher
	if cfg.RabbitMQ.URL != "" {
		app.conn, err = rabbitmq.Connect(cfg.RabbitMQ.URL, cfg.RabbitMQ.Retries, cfg.RabbitMQ.Delay)
		if err != nil {
			app.close()
			return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
		}
		app.ch, err = rabbitmq.SetupChannel(app.conn, rabbitmq.ExchangeCredits, rabbitmq.CreditQueues())
		if err != nil {
			app.close()
			return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
		}
		publisher = rabbitmq.NewPublisher(app.ch, rabbitmq.ExchangeCredits)
	} else {
		logger.Warn("rabbitmq url is empty, credit events are disabled")
	}

	images, err := objectstore.New(ctx, cfg.ObjectStorage)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("failed to init object storage: %w", err)
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	creditsService := creditsservice.New(db, cacheRedis, publisher, logger,
		creditsservice.WithMetrics(m),
		creditsservice.WithCacheTTL(cfg.CacheTTL),
		creditsservice.WithMaxAttempts(cfg.ConsumeRetries),
	)

	provider := paymentprovider.NewClient(cfg.PaymentProvider.BaseURL, cfg.AccessToken, cfg.PaymentProvider.Timeout)
	paymentService := paymentservice.New(db, provider, creditsService, publisher, m,
		paymentservice.URLs{NotificationURL: cfg.NotifyURL, SuccessURL: cfg.SuccessURL}, logger)

	analysisService := analysisservice.New(db, creditsService, images, analyzer.New(cfg.Analyzer, logger), logger)

	if cfg.WebhookSecret == "" {
		logger.Warn("payment webhook secret is empty, signature check is disabled")
	}

	router := chi.NewRouter()
	RegisterRoutes(router, logger, Services{
		Credits:       creditsService,
		Payment:       paymentService,
		Analysis:      analysisService,
		Tokens:        jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL),
		Limiter:       middlewarectx.NewRateLimiter(cfg.RateLimit, cfg.Burst),
		Health:        map[string]health.Pinger{"postgres": db, "redis": cacheRedis},
		WebhookSecret: cfg.WebhookSecret,
	})

	app.server = &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.Analyzer.Timeout + cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return app, nil
}

// Run запускает HTTP-сервер и останавливает его при отмене ctx.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.close()
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.close()
		return err
	}
}

func (a *App) close() {
	if a.ch != nil {
		if err := a.ch.Close(); err != nil {
			a.logger.Error("failed to close channel", sl.Err(err))
		}
	}
	if a.conn != nil {
		if err := a.conn.Close(); err != nil {
			a.logger.Error("failed to close connection", sl.Err(err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Error("failed to close redis", sl.Err(err))
		}
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close storage", sl.Err(err))
	}
}
