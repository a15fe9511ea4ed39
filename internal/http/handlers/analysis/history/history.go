// Package history отдаёт историю анализов пользователя постранично.
package history

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/credit-ledger/internal/http/handlers/httperr"
	"github.com/magabrotheeeer/credit-ledger/internal/http/middlewarectx"
	"github.com/magabrotheeeer/credit-ledger/internal/http/response"
	"github.com/magabrotheeeer/credit-ledger/internal/models"
)

const (
	defaultLimit = 10
	maxLimit     = 50
)

// Service чтение истории анализов.
type Service interface {
	History(ctx context.Context, userID int64, limit, offset int) ([]*models.Analysis, error)
}

// Handler обработчик GET /analysis/history.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary История анализов
// @Description Анализы пользователя с изображениями, новые первыми
// @Tags Analysis
// @Produce json
// @Param page query int false "Номер страницы, с 1"
// @Param limit query int false "Размер страницы, до 50"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.ErrorResponse
// @Router /analysis/history [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.analysis.history"
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

	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = defaultLimit
	}
	limit = min(limit, maxLimit)

	res, err := h.service.History(r.Context(), userID, limit, (page-1)*limit)
	if err != nil {
		httperr.Render(w, r, log, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"history": res,
		"page":    page,
		"limit":   limit,
	}))
}
