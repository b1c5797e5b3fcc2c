// Package webhook реализует прием уведомлений платежного провайдера.
package webhook

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

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/tudomais/tudomais-backend/internal/http/response"
	"github.com/tudomais/tudomais-backend/internal/lib/sl"
	"github.com/tudomais/tudomais-backend/internal/models"
	"github.com/tudomais/tudomais-backend/internal/subscription"
)

// Service описывает обработку уведомления после проверки подписи.
type Service interface {
	ProcessWebhookEvent(ctx context.Context, n models.WebhookNotification) error
}

type Handler struct {
	log           *slog.Logger
	service       Service
	webhookSecret string
	validate      *validator.Validate
}

func New(log *slog.Logger, service Service, secret string) *Handler {
	return &Handler{
		log:           log,
		service:       service,
		webhookSecret: secret,
		validate:      validator.New(),
	}
}

// verifySignature проверяет hex-подпись HMAC-SHA256 тела запроса.
func (h *Handler) verifySignature(body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(h.webhookSecret))
	mac.Write(body)
	expectedSig := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expectedSig), []byte(signature))
}

// ServeHTTP принимает уведомление провайдера. Подпись проверяется до
// разбора тела: запрос с неверной подписью не читает состояние подписки.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.webhook"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	body, err := readBody(r)
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("failed to read request body"))
		return
	}

	signature := r.Header.Get("X-Webhook-Signature")
	if signature == "" {
		log.Error("missing webhook signature")
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("missing webhook signature"))
		return
	}
	if !h.verifySignature(body, signature) {
		log.Error("invalid webhook signature")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("invalid webhook signature"))
		return
	}

	var notification models.WebhookNotification
	if err := json.Unmarshal(body, &notification); err != nil {
		log.Error("failed to unmarshal webhook payload", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	if err := h.validate.Struct(notification); err != nil {
		log.Error("validation failed", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	if err := h.service.ProcessWebhookEvent(r.Context(), notification); err != nil {
		switch {
		case errors.Is(err, subscription.ErrUnknownPlan):
			log.Error("unknown plan in webhook payload", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("unknown plan type"))
		case errors.Is(err, models.ErrAdvertiserNotFound):
			log.Error("advertiser not found for webhook", sl.Err(err))
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, response.Error("advertiser not found"))
		default:
			log.Error("failed to process webhook event", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to process event"))
		}
		return
	}

	log.Info("webhook processed successfully", slog.String("event", notification.EventType))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"message": fmt.Sprintf("event %s processed", notification.EventType),
	}))
}

func readBody(r *http.Request) ([]byte, error) {
	defer func() {
		_ = r.Body.Close()
	}()
	return io.ReadAll(r.Body)
}
