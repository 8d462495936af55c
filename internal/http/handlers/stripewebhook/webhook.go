// Package stripewebhook реализует HTTP-обработчик входящих событий платёжного
// провайдера. Это единственная граница аутентификации webhook-пути: никакой
// бизнес-логики до успешной проверки подписи. Тело запроса читается сырыми
// байтами, поэтому обработчик обязан стоять до любого разбора JSON —
// пересериализация ломает подпись.
package stripewebhook

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	stripe "github.com/stripe/stripe-go/v82"

	"github.com/numisgallery/mercury-webhooks/internal/http/response"
	"github.com/numisgallery/mercury-webhooks/internal/lib/sl"
	"github.com/numisgallery/mercury-webhooks/internal/metrics"
	"github.com/numisgallery/mercury-webhooks/internal/paymentprovider"
	"github.com/numisgallery/mercury-webhooks/internal/services/billing"
)

// Verifier проверяет подпись события над сырыми байтами тела.
type Verifier interface {
	VerifyEvent(payload []byte, sigHeader string) (stripe.Event, error)
}

// Service применяет верифицированное событие к записи подписки.
type Service interface {
	ProcessEvent(ctx context.Context, event stripe.Event) error
}

// Handler управляет приёмом webhook-событий провайдера.
type Handler struct {
	log      *slog.Logger
	verifier Verifier
	service  Service
}

// New создает новый Handler с переданными логгером, верификатором и сервисом.
func New(log *slog.Logger, verifier Verifier, service Service) *Handler {
	return &Handler{
		log:      log,
		verifier: verifier,
		service:  service,
	}
}

// ServeHTTP godoc
// @Summary Принять webhook-событие Stripe
// @Description Проверяет подпись события и приводит запись подписки пользователя к состоянию из события. 200 возвращается и для обработанных, и для сознательно пропущенных событий; не-200 — только при ошибке подписи или отказе хранилища, чтобы провайдер повторил доставку.
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param Stripe-Signature header string true "Подпись события"
// @Success 200 {object} map[string]bool "Событие принято"
// @Failure 400 {object} response.ErrorResponse "Отсутствует или не прошла проверку подпись"
// @Failure 500 {object} response.ErrorResponse "Секрет не настроен либо отказ хранилища"
// @Router /stripe-webhook [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.stripewebhook"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("failed to read request body"))
		return
	}
	defer r.Body.Close() //nolint:errcheck

	event, err := h.verifier.VerifyEvent(body, r.Header.Get("Stripe-Signature"))
	if err != nil {
		metrics.WebhookEventsTotal.WithLabelValues("unknown", metrics.OutcomeRejected).Inc()
		switch {
		case errors.Is(err, paymentprovider.ErrMissingSignatureHeader):
			log.Error("missing stripe-signature header")
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("missing stripe-signature header"))
		case errors.Is(err, paymentprovider.ErrSecretNotConfigured):
			log.Error("webhook secret is not configured")
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("webhook secret not configured"))
		default:
			log.Error("webhook signature verification failed", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("webhook signature verification failed"))
		}
		return
	}

	eventType := string(event.Type)
	log.Info("verified webhook event", slog.String("event_type", eventType))

	if err := h.service.ProcessEvent(r.Context(), event); err != nil {
		// Структурно неразрешимое событие подтверждается: повторная доставка
		// его не исправит, но след в логах обязателен.
		if errors.Is(err, billing.ErrUnresolvedSubscriber) || errors.Is(err, billing.ErrInvalidIdentifierFormat) {
			metrics.WebhookEventsTotal.WithLabelValues(eventType, metrics.OutcomeSkipped).Inc()
			log.Warn("event skipped", sl.Err(err))
			render.JSON(w, r, map[string]bool{"received": true})
			return
		}
		metrics.WebhookEventsTotal.WithLabelValues(eventType, metrics.OutcomeFailed).Inc()
		log.Error("failed to process webhook event", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("webhook processing failed"))
		return
	}

	metrics.WebhookEventsTotal.WithLabelValues(eventType, metrics.OutcomeProcessed).Inc()
	log.Info("webhook processed successfully", slog.String("event_type", eventType))
	render.JSON(w, r, map[string]bool{"received": true})
}
