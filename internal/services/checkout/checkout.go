// Package checkout реализует выпуск hosted-сессий провайдера: checkout для
// оформления подписки и billing portal для управления ею. Сервис не трогает
// запись подписки — её меняет только webhook-путь, писатель остаётся один.
package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/numisgallery/mercury-webhooks/internal/paymentprovider"
)

// ProviderClient — операции платёжного провайдера, нужные сервису.
type ProviderClient interface {
	FindCustomerByEmail(ctx context.Context, email string) (string, error)
	UpdateCustomerUserID(ctx context.Context, customerID, userID string) error
	CreateCheckoutSession(ctx context.Context, p paymentprovider.CheckoutSessionParams) (string, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
}

// Request — параметры checkout-сессии. Обязательность полей проверяет
// обработчик; здесь есть значения по умолчанию только для URL возврата.
type Request struct {
	PriceID       string
	CustomerEmail string
	UserID        string
	SuccessURL    string
	CancelURL     string
}

// Service выпускает сессии через провайдера.
type Service struct {
	provider       ProviderClient
	frontendOrigin string
	log            *slog.Logger
}

// NewService создаёт сервис. frontendOrigin используется для URL возврата
// по умолчанию.
func NewService(log *slog.Logger, provider ProviderClient, frontendOrigin string) *Service {
	return &Service{
		provider:       provider,
		frontendOrigin: strings.TrimRight(frontendOrigin, "/"),
		log:            log,
	}
}

// CreateCheckoutSession возвращает URL hosted checkout-сессии. Если у
// провайдера уже есть клиент с таким email, он переиспользуется (с обновлением
// userId в метаданных) вместо создания дубликата.
func (s *Service) CreateCheckoutSession(ctx context.Context, req Request) (string, error) {
	const op = "checkout.CreateCheckoutSession"

	successURL := req.SuccessURL
	if successURL == "" {
		successURL = s.frontendOrigin + "/subscription?success=true"
	}
	cancelURL := req.CancelURL
	if cancelURL == "" {
		cancelURL = s.frontendOrigin + "/subscription"
	}

	customerID, err := s.provider.FindCustomerByEmail(ctx, req.CustomerEmail)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if customerID != "" {
		if err := s.provider.UpdateCustomerUserID(ctx, customerID, req.UserID); err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}
		s.log.Info("reusing existing provider customer",
			slog.String("op", op), slog.String("customer_id", customerID))
	}

	sessionURL, err := s.provider.CreateCheckoutSession(ctx, paymentprovider.CheckoutSessionParams{
		PriceID:    req.PriceID,
		CustomerID: customerID,
		Email:      req.CustomerEmail,
		UserID:     req.UserID,
		SuccessURL: successURL,
		CancelURL:  cancelURL,
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return sessionURL, nil
}

// CreatePortalSession возвращает URL billing portal для клиента провайдера.
func (s *Service) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	const op = "checkout.CreatePortalSession"

	if returnURL == "" {
		returnURL = s.frontendOrigin + "/subscription"
	}

	portalURL, err := s.provider.CreatePortalSession(ctx, customerID, returnURL)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return portalURL, nil
}
