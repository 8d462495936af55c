// Package checkout реализует HTTP-обработчик выпуска checkout-сессии.
//
// Handler принимает JSON-запрос с прайсом, email и идентификатором
// пользователя, валидирует их и возвращает URL hosted-страницы оплаты.
// Детали ошибок провайдера наружу не отдаются: в них бывают чувствительные
// данные аккаунта, фронтенду достаточно общего сообщения.
package checkout

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/numisgallery/mercury-webhooks/internal/http/response"
	"github.com/numisgallery/mercury-webhooks/internal/lib/sl"
	"github.com/numisgallery/mercury-webhooks/internal/metrics"
	checkoutservice "github.com/numisgallery/mercury-webhooks/internal/services/checkout"
)

// Request — входной JSON запроса на checkout-сессию.
type Request struct {
	PriceID       string `json:"priceId" validate:"required"`
	CustomerEmail string `json:"customerEmail" validate:"required,email"`
	UserID        string `json:"userId" validate:"required,alphanum,len=15"`
	SuccessURL    string `json:"successUrl" validate:"omitempty,url"`
	CancelURL     string `json:"cancelUrl" validate:"omitempty,url"`
}

// Service описывает интерфейс бизнес-логики выпуска checkout-сессии.
type Service interface {
	CreateCheckoutSession(ctx context.Context, req checkoutservice.Request) (string, error)
}

// Handler управляет HTTP-запросами на создание checkout-сессий.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Создать checkout-сессию
// @Description Выпускает hosted checkout-сессию провайдера для оформления подписки и возвращает URL для редиректа.
// @Tags Sessions
// @Accept json
// @Produce json
// @Param request body Request true "Параметры сессии"
// @Success 200 {object} map[string]string "URL сессии"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 422 {object} response.ErrorResponse "Не заполнены обязательные поля"
// @Failure 500 {object} response.ErrorResponse "Ошибка провайдера"
// @Router /create-checkout-session [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.checkout"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	sessionURL, err := h.service.CreateCheckoutSession(r.Context(), checkoutservice.Request{
		PriceID:       req.PriceID,
		CustomerEmail: req.CustomerEmail,
		UserID:        req.UserID,
		SuccessURL:    req.SuccessURL,
		CancelURL:     req.CancelURL,
	})
	if err != nil {
		metrics.SessionRequestsTotal.WithLabelValues("checkout", metrics.OutcomeFailed).Inc()
		log.Error("failed to create checkout session", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not create checkout session"))
		return
	}

	metrics.SessionRequestsTotal.WithLabelValues("checkout", metrics.OutcomeProcessed).Inc()
	log.Info("checkout session created", slog.String("user_id", req.UserID))
	render.JSON(w, r, map[string]string{"sessionUrl": sessionURL})
}
