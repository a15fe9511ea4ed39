// Package freetier выдаёт пользователю бесплатный план.
package freetier

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/credit-ledger/internal/http/handlers/httperr"
	"github.com/magabrotheeeer/credit-ledger/internal/http/middlewarectx"
	"github.com/magabrotheeeer/credit-ledger/internal/http/response"
	"github.com/magabrotheeeer/credit-ledger/internal/models"
)

type Service interface {
	GrantFreeTier(ctx context.Context, userID int64) (*models.Plan, bool, error)
}

type Handler struct {
	log     *slog.Logger
	service Service
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Бесплатный план
// @Description Выдаёт бесплатный план один раз. Повторный вызов возвращает существующий план с 200
// @Tags Credits
// @Produce json
// @Success 201 {object} response.Response{data=models.Plan}
// @Success 200 {object} response.Response{data=models.Plan}
// @Router /credits/free-tier [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.credits.freetier"
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

	plan, created, err := h.service.GrantFreeTier(r.Context(), userID)
	if err != nil {
		httperr.Render(w, r, log, err)
		return
	}
	if created {
		render.Status(r, http.StatusCreated)
	}
	render.JSON(w, r, response.StatusOKWithData(plan))
}
