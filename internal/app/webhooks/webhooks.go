// Package webhooks собирает приложение: конструирует зависимости, регистрирует
// маршруты и управляет жизненным циклом HTTP-сервера.
package webhooks

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"

	"github.com/numisgallery/mercury-webhooks/internal/config"
	"github.com/numisgallery/mercury-webhooks/internal/lib/sl"
	"github.com/numisgallery/mercury-webhooks/internal/paymentprovider"
	"github.com/numisgallery/mercury-webhooks/internal/recordstore"
	"github.com/numisgallery/mercury-webhooks/internal/services/billing"
	checkoutservice "github.com/numisgallery/mercury-webhooks/internal/services/checkout"
)

// App — HTTP-сервер со всеми собранными зависимостями.
type App struct {
	server *http.Server
	logger *slog.Logger
}

// New собирает приложение из конфигурации. Провайдерский клиент создаётся
// здесь один раз и передаётся компонентам явно — глобального состояния SDK нет.
func New(cfg *config.Config, logger *slog.Logger) *App {
	if cfg.WebhookSecret == "" {
		// Сервис стартует, но webhook-путь будет отвечать 500 до провижининга
		// секрета: это операционная ошибка, а не повод молча принимать события.
		logger.Error("STRIPE_WEBHOOK_SECRET is not configured, webhook verification will fail")
	}
	logger.Info("provider configuration",
		sl.Secret("stripe_secret_key", cfg.SecretKey),
		sl.Secret("stripe_webhook_secret", cfg.WebhookSecret),
		slog.String("record_store_url", cfg.RecordStore.URL))

	store := recordstore.New(cfg.RecordStore.URL, cfg.AdminEmail, cfg.AdminPassword, cfg.RecordStore.Timeout)
	provider := paymentprovider.New(cfg.SecretKey, cfg.WebhookSecret)

	billingService := billing.NewService(logger, store, billing.NewTierMapper(cfg.PriceProID))
	sessionService := checkoutservice.NewService(logger, provider, cfg.FrontendOrigin)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, cfg.FrontendOrigin, provider, billingService, sessionService)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
	}
}

// Run запускает сервер и корректно гасит его при отмене контекста.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		return a.server.Shutdown(timeoutCtx)
	}
}
