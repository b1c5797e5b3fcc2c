// Package status реализует выдачу статуса подписки текущего анунсианта.
package status

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/tudomais/tudomais-backend/internal/http/middlewarectx"
	"github.com/tudomais/tudomais-backend/internal/http/response"
	"github.com/tudomais/tudomais-backend/internal/lib/sl"
	"github.com/tudomais/tudomais-backend/internal/models"
	services "github.com/tudomais/tudomais-backend/internal/services/subscription"
)

// Service описывает получение статуса подписки.
type Service interface {
	Status(ctx context.Context, uid string) (*services.StatusInfo, error)
}

type Handler struct {
	log     *slog.Logger
	service Service
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP возвращает статус подписки анунсианта из JWT токена.
//
// @Summary Статус подписки
// @Tags subscription
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Response
// @Failure 401 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/subscription/status [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.status"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	uid, ok := r.Context().Value(middlewarectx.UID).(string)
	if !ok || uid == "" {
		log.Error("missing advertiser uid in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	info, err := h.service.Status(r.Context(), uid)
	if err != nil {
		if errors.Is(err, models.ErrAdvertiserNotFound) {
			log.Error("advertiser not found", sl.Err(err))
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, response.Error("advertiser not found"))
			return
		}
		log.Error("failed to load subscription status", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to load subscription status"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(info))
}
