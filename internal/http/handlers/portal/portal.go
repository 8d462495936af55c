// Package portal реализует HTTP-обработчик выпуска сессии billing portal,
// где пользователь управляет существующей подпиской.
package portal

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
)

// Request — входной JSON запроса на portal-сессию.
type Request struct {
	CustomerID string `json:"customerId" validate:"required"`
	ReturnURL  string `json:"returnUrl" validate:"omitempty,url"`
}

// Service описывает интерфейс бизнес-логики выпуска portal-сессии.
type Service interface {
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
}

// Handler управляет HTTP-запросами на создание portal-сессий.
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
// @Summary Создать сессию billing portal
// @Description Выпускает hosted-сессию портала управления подпиской и возвращает URL для редиректа.
// @Tags Sessions
// @Accept json
// @Produce json
// @Param request body Request true "Параметры сессии"
// @Success 200 {object} map[string]string "URL сессии"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 422 {object} response.ErrorResponse "Не заполнен customerId"
// @Failure 500 {object} response.ErrorResponse "Ошибка провайдера"
// @Router /create-portal-session [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.portal"
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

	portalURL, err := h.service.CreatePortalSession(r.Context(), req.CustomerID, req.ReturnURL)
	if err != nil {
		metrics.SessionRequestsTotal.WithLabelValues("portal", metrics.OutcomeFailed).Inc()
		log.Error("failed to create portal session", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not create portal session"))
		return
	}

	metrics.SessionRequestsTotal.WithLabelValues("portal", metrics.OutcomeProcessed).Inc()
	log.Info("portal session created", slog.String("customer_id", req.CustomerID))
	render.JSON(w, r, map[string]string{"url": portalURL})
}
