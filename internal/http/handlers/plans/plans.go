// Package plans реализует выдачу каталога тарифов.
package plans

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/tudomais/tudomais-backend/internal/http/response"
	"github.com/tudomais/tudomais-backend/internal/lib/sl"
	"github.com/tudomais/tudomais-backend/internal/subscription"
)

// Service описывает получение каталога тарифов.
type Service interface {
	Plans(ctx context.Context) (map[subscription.Plan]subscription.PlanInfo, error)
}

type Handler struct {
	log     *slog.Logger
	service Service
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP возвращает каталог тарифов с ценами и выгодой долгосрочных планов.
//
// @Summary Каталог тарифов
// @Tags plans
// @Produce json
// @Success 200 {object} response.Response
// @Failure 500 {object} response.ErrorResponse
// @Router /api/plans [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.plans"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	plans, err := h.service.Plans(r.Context())
	if err != nil {
		log.Error("failed to load plans", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to load plans"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(plans))
}
