// Package paymentwebhook принимает уведомления платёжного провайдера о платежах.
package paymentwebhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/credit-ledger/internal/lib/sl"
	"github.com/magabrotheeeer/credit-ledger/internal/models"
	"github.com/magabrotheeeer/credit-ledger/internal/services/payment"
)

const maxBodySize = 64 << 10

// Service обработка подтверждённого платежа.
type Service interface {
	ProcessNotification(ctx context.Context, providerPaymentID string) (*models.Allocation, error)
}

// Handler обработчик POST /payments/webhook.
type Handler struct {
	log           *slog.Logger
	service       Service
	webhookSecret string // Секрет для проверки подписи, пустой отключает проверку
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service, secret string) *Handler {
	return &Handler{
		log:           log,
		service:       service,
		webhookSecret: secret,
	}
}

// Payload тело уведомления. Провайдер присылает либо type+data.id,
// либо устаревший формат topic+resource.
type Payload struct {
	Type   string `json:"type"`
	Action string `json:"action"`
	Data   struct {
		ID json.Number `json:"id"`
	} `json:"data"`
	Topic    string `json:"topic"`
	Resource string `json:"resource"`
}

// paymentID возвращает ID платежа из уведомления или пустую строку,
// если уведомление не о платеже.
func (p *Payload) paymentID(r *http.Request) string {
	q := r.URL.Query()
	typ := firstNonEmpty(p.Type, p.Topic, q.Get("type"), q.Get("topic"))
	if typ != "payment" {
		return ""
	}
	if id := firstNonEmpty(p.Data.ID.String(), q.Get("data.id"), q.Get("id")); id != "" {
		return id
	}
	// resource бывает ID или URL вида .../v1/payments/{id}
	if p.Resource != "" {
		return p.Resource[strings.LastIndex(p.Resource, "/")+1:]
	}
	return ""
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// verifySignature проверяет заголовок x-signature вида "ts=...,v1=...".
// Подписывается строка "id:<data.id>;request-id:<x-request-id>;ts:<ts>;" по HMAC-SHA256.
func (h *Handler) verifySignature(r *http.Request, dataID string) bool {
	var ts, v1 string
	for _, part := range strings.Split(r.Header.Get("X-Signature"), ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "ts":
			ts = v
		case "v1":
			v1 = v
		}
	}
	if ts == "" || v1 == "" {
		return false
	}

	manifest := fmt.Sprintf("id:%s;request-id:%s;ts:%s;",
		strings.ToLower(dataID), r.Header.Get("X-Request-Id"), ts)
	mac := hmac.New(sha256.New, []byte(h.webhookSecret))
	mac.Write([]byte(manifest))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(v1))
}

// ServeHTTP godoc
// @Summary Уведомление о платеже
// @Description Принимает уведомление провайдера и начисляет кредиты по подтверждённому платежу
// @Tags Payments
// @Accept json
// @Success 200
// @Failure 400 "Некорректное тело или metadata платежа"
// @Failure 401 "Неверная подпись"
// @Failure 500 "Ошибка обработки, провайдер повторит уведомление"
// @Router /payments/webhook [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.webhook"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var payload Payload
	if len(body) > 0 {
		if err := json.Unmarshal(body, &payload); err != nil {
			log.Warn("failed to unmarshal webhook payload", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			return
		}
	}

	paymentID := payload.paymentID(r)
	if paymentID == "" {
		log.Info("ignored webhook event", slog.String("type", firstNonEmpty(payload.Type, payload.Topic)))
		w.WriteHeader(http.StatusOK)
		return
	}

	if h.webhookSecret != "" && !h.verifySignature(r, paymentID) {
		log.Warn("invalid or missing webhook signature", slog.String("payment_id", paymentID))
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	alloc, err := h.service.ProcessNotification(r.Context(), paymentID)
	// повтор уведомления такой платёж не исправит
	if errors.Is(err, payment.ErrInvalidMetadata) || errors.Is(err, payment.ErrUnknownProduct) {
		log.Error("payment cannot be allocated", slog.String("payment_id", paymentID), sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if err != nil {
		log.Error("failed to process webhook event", slog.String("payment_id", paymentID), sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	if alloc != nil {
		log.Info("webhook processed successfully",
			slog.String("payment_id", paymentID), slog.Bool("duplicate", alloc.Duplicate))
	}
	w.WriteHeader(http.StatusOK)
}
