// Package webhooks предоставляет маршруты сервиса.
package webhooks

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	checkouthandler "github.com/numisgallery/mercury-webhooks/internal/http/handlers/checkout"
	"github.com/numisgallery/mercury-webhooks/internal/http/handlers/health"
	portalhandler "github.com/numisgallery/mercury-webhooks/internal/http/handlers/portal"
	"github.com/numisgallery/mercury-webhooks/internal/http/handlers/stripewebhook"
	"github.com/numisgallery/mercury-webhooks/internal/http/middlewarectx"
	"github.com/numisgallery/mercury-webhooks/internal/paymentprovider"
	"github.com/numisgallery/mercury-webhooks/internal/services/billing"
	checkoutservice "github.com/numisgallery/mercury-webhooks/internal/services/checkout"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, frontendOrigin string,
	provider *paymentprovider.Client, billingService *billing.Service, sessionService *checkoutservice.Service) {
	// Глобальные middleware. Разбора тела здесь нет: webhook-обработчик
	// обязан получить сырые байты для проверки подписи.
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middlewarectx.RateLimitMiddleware(logger),
	)

	// Webhook endpoint: аутентификация — только подпись провайдера.
	r.Post("/stripe-webhook", stripewebhook.New(logger, provider, billingService).ServeHTTP)

	// Сессионные endpoint'ы вызываются браузером фронтенда.
	r.Group(func(r chi.Router) {
		r.Use(middlewarectx.CORSMiddleware(frontendOrigin))
		r.Post("/create-checkout-session", checkouthandler.New(logger, sessionService).ServeHTTP)
		r.Post("/create-portal-session", portalhandler.New(logger, sessionService).ServeHTTP)
	})

	r.Get("/health", health.New(logger).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
