// Package creditledger собирает HTTP-приложение кредитного журнала.
package creditledger

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	// Регистрация swagger-спецификации.
	_ "github.com/magabrotheeeer/credit-ledger/docs"
	"github.com/magabrotheeeer/credit-ledger/internal/http/handlers/analysis/analyze"
	"github.com/magabrotheeeer/credit-ledger/internal/http/handlers/analysis/get"
	analysishistory "github.com/magabrotheeeer/credit-ledger/internal/http/handlers/analysis/history"
	"github.com/magabrotheeeer/credit-ledger/internal/http/handlers/credits/activeplan"
	"github.com/magabrotheeeer/credit-ledger/internal/http/handlers/credits/available"
	"github.com/magabrotheeeer/credit-ledger/internal/http/handlers/credits/consume"
	"github.com/magabrotheeeer/credit-ledger/internal/http/handlers/credits/freetier"
	"github.com/magabrotheeeer/credit-ledger/internal/http/handlers/credits/history"
	"github.com/magabrotheeeer/credit-ledger/internal/http/handlers/credits/refund"
	"github.com/magabrotheeeer/credit-ledger/internal/http/handlers/health"
	"github.com/magabrotheeeer/credit-ledger/internal/http/handlers/images/upload"
	"github.com/magabrotheeeer/credit-ledger/internal/http/handlers/payment/paymentcheckout"
	"github.com/magabrotheeeer/credit-ledger/internal/http/handlers/payment/paymentwebhook"
	"github.com/magabrotheeeer/credit-ledger/internal/http/middlewarectx"
	analysisservice "github.com/magabrotheeeer/credit-ledger/internal/services/analysis"
	creditsservice "github.com/magabrotheeeer/credit-ledger/internal/services/credits"
	paymentservice "github.com/magabrotheeeer/credit-ledger/internal/services/payment"
)

// Services зависимости, которые обслуживают маршруты.
type Services struct {
	Credits       *creditsservice.Service
	Payment       *paymentservice.Service
	Analysis      *analysisservice.Service
	Tokens        middlewarectx.TokenParser
	Limiter       *middlewarectx.RateLimiter
	Health        map[string]health.Pinger
	WebhookSecret string
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, s Services) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Webhook провайдера (без аутентификации, проверяется подпись)
		r.Post("/payments/webhook", paymentwebhook.New(logger, s.Payment, s.WebhookSecret).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(s.Tokens, logger))
			if s.Limiter != nil {
				r.Use(s.Limiter.Middleware(logger))
			}

			r.Get("/credits/available", available.New(logger, s.Credits).ServeHTTP)
			r.Get("/credits/active-plan", activeplan.New(logger, s.Credits).ServeHTTP)
			r.Get("/credits/transactions", history.New(logger, s.Credits).ServeHTTP)
			r.Post("/credits/consume", consume.New(logger, s.Credits).ServeHTTP)
			r.Post("/credits/refund", refund.New(logger, s.Credits).ServeHTTP)
			r.Post("/credits/free-tier", freetier.New(logger, s.Payment).ServeHTTP)

			r.Post("/payments/checkout", paymentcheckout.New(logger, s.Payment).ServeHTTP)

			r.Post("/images", upload.New(logger, s.Analysis).ServeHTTP)
			r.Post("/analysis", analyze.New(logger, s.Analysis).ServeHTTP)
			r.Get("/analysis/history", analysishistory.New(logger, s.Analysis).ServeHTTP)
			r.Get("/analysis/{id}", get.New(logger, s.Analysis).ServeHTTP)
		})
	})

	r.Get("/health", health.New(logger, s.Health).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
