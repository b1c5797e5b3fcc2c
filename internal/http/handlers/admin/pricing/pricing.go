// Package pricing реализует изменение цен тарифов администратором.
package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/tudomais/tudomais-backend/internal/http/response"
	"github.com/tudomais/tudomais-backend/internal/lib/sl"
	"github.com/tudomais/tudomais-backend/internal/subscription"
)

// Service описывает изменение цены тарифа.
type Service interface {
	UpdatePlanPrice(ctx context.Context, plan subscription.Plan, price float64) error
}

// Request — входные данные для изменения цены тарифа.
type Request struct {
	Plan  string  `json:"plan" validate:"required"`
	Price float64 `json:"price" validate:"required,gt=0"`
}

type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP сохраняет новую цену тарифа. Доступно только администратору.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.pricing"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	err := h.service.UpdatePlanPrice(r.Context(), subscription.Plan(req.Plan), req.Price)
	if err != nil {
		if errors.Is(err, subscription.ErrUnknownPlan) {
			log.Error("unknown plan", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("unknown plan"))
			return
		}
		log.Error("failed to update plan price", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to update plan price"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"plan":  req.Plan,
		"price": req.Price,
	}))
}
