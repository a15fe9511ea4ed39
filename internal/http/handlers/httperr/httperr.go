// Package httperr сопоставляет доменные ошибки с HTTP-статусами.
package httperr

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/credit-ledger/internal/http/response"
	"github.com/magabrotheeeer/credit-ledger/internal/lib/sl"
	"github.com/magabrotheeeer/credit-ledger/internal/services/analysis"
	"github.com/magabrotheeeer/credit-ledger/internal/services/credits"
	"github.com/magabrotheeeer/credit-ledger/internal/services/payment"
	"github.com/magabrotheeeer/credit-ledger/internal/storage"
)

// Сообщения, которые клиентское приложение показывает пользователю как есть.
const (
	msgInsufficientCredits = "No tienes créditos suficientes para realizar este análisis"
	msgActiveSubscription  = "Ya tienes un plan mensual activo. No puedes tener más de un plan mensual al mismo tiempo"
)

// Status возвращает HTTP-статус и сообщение для клиента.
// Неизвестные ошибки скрываются за 500 internal error.
func Status(err error) (int, string) {
	switch {
	case errors.Is(err, credits.ErrInsufficientCredits):
		return http.StatusPaymentRequired, msgInsufficientCredits
	case errors.Is(err, credits.ErrConsumptionNotFound):
		return http.StatusNotFound, credits.ErrConsumptionNotFound.Error()
	case errors.Is(err, credits.ErrSourceNotFound):
		return http.StatusNotFound, credits.ErrSourceNotFound.Error()
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, credits.ErrAlreadyRefunded):
		return http.StatusConflict, credits.ErrAlreadyRefunded.Error()
	case errors.Is(err, payment.ErrActiveSubscription):
		return http.StatusConflict, msgActiveSubscription
	case errors.Is(err, credits.ErrConsumptionMalformed):
		return http.StatusUnprocessableEntity, credits.ErrConsumptionMalformed.Error()
	case errors.Is(err, payment.ErrUnknownProduct):
		return http.StatusUnprocessableEntity, payment.ErrUnknownProduct.Error()
	case errors.Is(err, analysis.ErrUnsupportedImage):
		return http.StatusUnsupportedMediaType, analysis.ErrUnsupportedImage.Error()
	case errors.Is(err, credits.ErrContention):
		return http.StatusServiceUnavailable, credits.ErrContention.Error()
	}
	return http.StatusInternalServerError, "internal error"
}

// Render пишет ответ с ошибкой. 5xx логируются как Error, остальные как Info.
func Render(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	code, msg := Status(err)
	if code >= http.StatusInternalServerError {
		log.Error("request failed", sl.Err(err))
	} else {
		log.Info("request rejected", slog.Int("status", code), sl.Err(err))
	}
	render.Status(r, code)
	render.JSON(w, r, response.Error(msg))
}
