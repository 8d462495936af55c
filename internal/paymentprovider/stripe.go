// Package paymentprovider оборачивает SDK платёжного провайдера (Stripe).
// Клиент создаётся явно и передаётся зависимостям через конструкторы — никакого
// глобального состояния SDK, чтобы в тестах его можно было подменить фейком.
package paymentprovider

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"
)

// Client — обёртка над Stripe API: проверка подписи вебхуков, работа с
// клиентами и выпуск hosted-сессий (checkout, billing portal).
type Client struct {
	api           *client.API
	webhookSecret string
}

// New создаёт клиент провайдера с отдельным секретом для проверки вебхуков.
func New(secretKey, webhookSecret string) *Client {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &Client{
		api:           api,
		webhookSecret: webhookSecret,
	}
}

// VerifyEvent проверяет подпись события над точными сырыми байтами тела
// запроса и возвращает типизированное событие. Любой разбор тела до этого
// шага недопустим: пересериализация ломает подпись.
func (c *Client) VerifyEvent(payload []byte, sigHeader string) (stripe.Event, error) {
	const op = "paymentprovider.VerifyEvent"

	if sigHeader == "" {
		return stripe.Event{}, fmt.Errorf("%s: %w", op, ErrMissingSignatureHeader)
	}
	if c.webhookSecret == "" {
		return stripe.Event{}, fmt.Errorf("%s: %w", op, ErrSecretNotConfigured)
	}

	// IgnoreAPIVersionMismatch: события, переотправленные Stripe CLI, могут
	// нести другую версию API; на криптографическую проверку это не влияет.
	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, c.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return stripe.Event{}, fmt.Errorf("%s: %w: %w", op, ErrSignatureInvalid, err)
	}
	return event, nil
}

// FindCustomerByEmail возвращает идентификатор существующего клиента Stripe
// с данным email либо пустую строку, если такого нет.
func (c *Client) FindCustomerByEmail(ctx context.Context, email string) (string, error) {
	const op = "paymentprovider.FindCustomerByEmail"

	params := &stripe.CustomerListParams{
		Email: stripe.String(email),
	}
	params.Context = ctx
	params.Limit = stripe.Int64(1)

	iter := c.api.Customers.List(params)
	if iter.Next() {
		return iter.Customer().ID, nil
	}
	if err := iter.Err(); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return "", nil
}

// UpdateCustomerUserID записывает внутренний userId в метаданные клиента
// Stripe, чтобы последующие события этого клиента разрешались напрямую.
func (c *Client) UpdateCustomerUserID(ctx context.Context, customerID, userID string) error {
	const op = "paymentprovider.UpdateCustomerUserID"

	params := &stripe.CustomerParams{}
	params.Context = ctx
	params.AddMetadata("userId", userID)

	if _, err := c.api.Customers.Update(customerID, params); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// CheckoutSessionParams — параметры hosted-сессии оплаты.
type CheckoutSessionParams struct {
	PriceID    string
	CustomerID string // необязателен: без него Stripe создаст клиента по email
	Email      string
	UserID     string
	SuccessURL string
	CancelURL  string
}

// CreateCheckoutSession выпускает hosted checkout-сессию и возвращает URL для
// редиректа. userId прокидывается и как client_reference_id сессии, и в
// метаданные будущей подписки — это прямой путь разрешения вебхуков.
func (c *Client) CreateCheckoutSession(ctx context.Context, p CheckoutSessionParams) (string, error) {
	const op = "paymentprovider.CreateCheckoutSession"

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(p.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:        stripe.String(p.SuccessURL),
		CancelURL:         stripe.String(p.CancelURL),
		ClientReferenceID: stripe.String(p.UserID),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{"userId": p.UserID},
		},
	}
	params.Context = ctx
	params.SetIdempotencyKey(uuid.NewString())

	if p.CustomerID != "" {
		params.Customer = stripe.String(p.CustomerID)
	} else {
		params.CustomerEmail = stripe.String(p.Email)
	}

	session, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return session.URL, nil
}

// CreatePortalSession выпускает сессию billing portal для управления
// существующей подпиской.
func (c *Client) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	const op = "paymentprovider.CreatePortalSession"

	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx
	params.SetIdempotencyKey(uuid.NewString())

	session, err := c.api.BillingPortalSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return session.URL, nil
}
