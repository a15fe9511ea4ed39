// Package upload принимает изображение для последующего анализа.
package upload

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/credit-ledger/internal/http/handlers/httperr"
	"github.com/magabrotheeeer/credit-ledger/internal/http/middlewarectx"
	"github.com/magabrotheeeer/credit-ledger/internal/http/response"
	"github.com/magabrotheeeer/credit-ledger/internal/lib/sl"
	"github.com/magabrotheeeer/credit-ledger/internal/models"
	"github.com/magabrotheeeer/credit-ledger/internal/objectstore"
)

type Service interface {
	Upload(ctx context.Context, userID int64, data []byte, mimeType string) (*models.Image, error)
}

type Handler struct {
	log     *slog.Logger
	service Service
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Загрузить изображение
// @Tags Analysis
// @Accept multipart/form-data
// @Produce json
// @Param image formData file true "JPEG, PNG или WebP до 10 МБ"
// @Success 201 {object} response.Response{data=models.Image}
// @Failure 400 {object} response.ErrorResponse
// @Failure 415 {object} response.ErrorResponse
// @Router /images [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.images.upload"
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

	r.Body = http.MaxBytesReader(w, r.Body, objectstore.MaxObjectSize+1<<20)
	file, _, err := r.FormFile("image")
	if err != nil {
		log.Warn("failed to read image", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("image file is required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, objectstore.MaxObjectSize+1))
	if err != nil || len(data) == 0 || len(data) > objectstore.MaxObjectSize {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("image is empty or too large"))
		return
	}

	img, err := h.service.Upload(r.Context(), userID, data, http.DetectContentType(data))
	if err != nil {
		httperr.Render(w, r, log, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.StatusOKWithData(img))
}
