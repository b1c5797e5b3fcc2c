// Package server собирает HTTP сервис каталога Tudo Mais: хранилище, кеш,
// очередь уведомлений, сервисы и маршруты.
package server

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/tudomais/tudomais-backend/internal/config"
	"github.com/tudomais/tudomais-backend/internal/http/handlers/admin/pricing"
	"github.com/tudomais/tudomais-backend/internal/http/handlers/auth/login"
	"github.com/tudomais/tudomais-backend/internal/http/handlers/auth/register"
	"github.com/tudomais/tudomais-backend/internal/http/handlers/health"
	"github.com/tudomais/tudomais-backend/internal/http/handlers/plans"
	"github.com/tudomais/tudomais-backend/internal/http/handlers/status"
	"github.com/tudomais/tudomais-backend/internal/http/handlers/webhook"
	"github.com/tudomais/tudomais-backend/internal/http/middlewarectx"
	"github.com/tudomais/tudomais-backend/internal/lib/jwt"
	authservice "github.com/tudomais/tudomais-backend/internal/services/auth"
	subservice "github.com/tudomais/tudomais-backend/internal/services/subscription"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, cfg *config.Config, jwtMaker jwt.Maker,
	subscriptionService *subservice.SubscriptionService, authService *authservice.AuthService) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api", func(r chi.Router) {
		// Открытые конечные точки
		r.Post("/auth/register", register.New(logger, authService).ServeHTTP)
		r.Post("/auth/login", login.New(logger, authService).ServeHTTP)
		r.Get("/plans", plans.New(logger, subscriptionService).ServeHTTP)
		r.Get("/health", health.New(logger).ServeHTTP)

		// Уведомления провайдера (аутентификация по подписи)
		r.Post("/webhook/payment", webhook.New(logger, subscriptionService, cfg.WebhookSecret).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(jwtMaker, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger))
			r.Get("/subscription/status", status.New(logger, subscriptionService).ServeHTTP)

			// Административные конечные точки
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.RequireRole("admin", logger))
				r.Put("/admin/plans/price", pricing.New(logger, subscriptionService).ServeHTTP)
			})
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
