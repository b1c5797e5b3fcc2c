// Package register реализует регистрацию анунсианта с пробным периодом.
package register

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
	"github.com/tudomais/tudomais-backend/internal/models"
)

// Service описывает регистрацию анунсианта.
type Service interface {
	Register(ctx context.Context, req models.RegisterRequest) (string, error)
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

// ServeHTTP регистрирует нового анунсианта. Пробный период выдается один
// раз на CPF: повторная попытка возвращает 409 Conflict.
//
// @Summary Регистрация анунсианта
// @Tags auth
// @Accept json
// @Produce json
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse
// @Router /api/auth/register [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.register"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.RegisterRequest
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
	log.Info("all fields are validated")

	uid, err := h.service.Register(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrTrialAlreadyUsed):
			log.Error("trial already used for cpf", sl.Err(err))
			render.Status(r, http.StatusConflict)
			render.JSON(w, r, response.Error("trial period already used for this cpf"))
		case errors.Is(err, models.ErrAlreadyRegistered):
			log.Error("email already registered", sl.Err(err))
			render.Status(r, http.StatusConflict)
			render.JSON(w, r, response.Error("email already registered"))
		case errors.Is(err, models.ErrUnderage):
			log.Error("advertiser is underage", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("advertiser must be at least 18 years old"))
		default:
			log.Error("registration failed", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to register advertiser"))
		}
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"uid":     uid,
		"message": "advertiser created successfully",
	}))
}
