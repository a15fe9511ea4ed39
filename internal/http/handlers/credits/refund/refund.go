// Package refund возвращает кредит за операцию в исходный источник.
package refund

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/credit-ledger/internal/http/handlers/httperr"
	"github.com/magabrotheeeer/credit-ledger/internal/http/middlewarectx"
	"github.com/magabrotheeeer/credit-ledger/internal/http/response"
	"github.com/magabrotheeeer/credit-ledger/internal/lib/sl"
	"github.com/magabrotheeeer/credit-ledger/internal/models"
)

// Service возврат кредита.
type Service interface {
	Refund(ctx context.Context, userID, operationID int64) (*models.RefundResult, error)
}

// Handler обработчик POST /credits/refund.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service, validate: validator.New()}
}

// ServeHTTP godoc
// @Summary Вернуть кредит
// @Description Возвращает кредит, списанный за операцию, не более одного раза
// @Tags Credits
// @Accept json
// @Produce json
// @Param request body models.DummyRefund true "Операция"
// @Success 200 {object} response.Response{data=models.RefundResult}
// @Failure 404 {object} response.ErrorResponse "Списание или источник не найдены"
// @Failure 409 {object} response.ErrorResponse "Возврат уже был"
// @Failure 422 {object} response.ErrorResponse
// @Router /credits/refund [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.credits.refund"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID, ok := middlewarectx.UserIDFromContext(r.Context())
	if !ok {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	var req models.DummyRefund
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("failed to decode request", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	res, err := h.service.Refund(r.Context(), userID, req.AnalysisID)
	if err != nil {
		httperr.Render(w, r, log, err)
		return
	}
	log.Info("credit refunded", slog.Int64("analysis_id", req.AnalysisID))
	render.JSON(w, r, response.StatusOKWithData(res))
}
