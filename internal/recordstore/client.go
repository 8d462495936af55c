// Package recordstore реализует клиент record store — HTTP-хранилища записей
// с коллекциями и фильтрацией по равенству (PocketBase-совместимый API).
// Клиент аутентифицируется админскими учётными данными, обменивая их на
// bearer-токен, и предоставляет типизированные методы работы с коллекцией
// subscriptions.
package recordstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/numisgallery/mercury-webhooks/internal/models"
)

// SubscriptionsCollection — имя коллекции с записями подписок.
const SubscriptionsCollection = "subscriptions"

// ErrAuthFailed возвращается, когда record store не принял админские
// учётные данные.
var ErrAuthFailed = errors.New("record store admin authentication failed")

// Client инкапсулирует доступ к record store. Админский токен кэшируется в
// памяти и обновляется один раз при ответе 401.
type Client struct {
	baseURL       string
	adminEmail    string
	adminPassword string
	httpClient    *http.Client

	mu    sync.Mutex
	token string
}

// New создаёт клиент record store.
func New(baseURL, adminEmail, adminPassword string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:       baseURL,
		adminEmail:    adminEmail,
		adminPassword: adminPassword,
		httpClient:    &http.Client{Timeout: timeout},
	}
}

// authenticate обменивает учётные данные на токен.
func (c *Client) authenticate(ctx context.Context) (string, error) {
	const op = "recordstore.authenticate"

	body, err := json.Marshal(map[string]string{
		"identity": c.adminEmail,
		"password": c.adminPassword,
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/admins/auth-with-password", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s: %w: unexpected status %s", op, ErrAuthFailed, resp.Status)
	}

	var authResp struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&authResp); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if authResp.Token == "" {
		return "", fmt.Errorf("%s: %w: empty token in response", op, ErrAuthFailed)
	}
	return authResp.Token, nil
}

// adminToken возвращает кэшированный токен, при необходимости выполняя обмен.
func (c *Client) adminToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" {
		return c.token, nil
	}
	token, err := c.authenticate(ctx)
	if err != nil {
		return "", err
	}
	c.token = token
	return token, nil
}

// invalidateToken сбрасывает кэш токена после 401.
func (c *Client) invalidateToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

// do выполняет запрос к API коллекций с bearer-токеном. На 401 токен
// обновляется и запрос повторяется один раз.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	const op = "recordstore.do"

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	for attempt := 0; attempt < 2; attempt++ {
		token, err := c.adminToken(ctx)
		if err != nil {
			return err
		}

		endpoint := c.baseURL + path
		if len(query) > 0 {
			endpoint += "?" + query.Encode()
		}

		var reader *bytes.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		} else {
			reader = bytes.NewReader(nil)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		if resp.StatusCode == http.StatusUnauthorized && attempt == 0 {
			_ = resp.Body.Close()
			c.invalidateToken()
			continue
		}

		defer resp.Body.Close() //nolint:errcheck
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return fmt.Errorf("%s: %s %s: unexpected status %s", op, method, path, resp.Status)
		}
		if out != nil {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
		}
		return nil
	}
	return fmt.Errorf("%s: unauthorized after token refresh", op)
}

// listByFilter возвращает записи подписок по фильтру равенства.
func (c *Client) listByFilter(ctx context.Context, filter string) ([]models.Subscription, error) {
	const op = "recordstore.listByFilter"

	query := url.Values{}
	query.Set("filter", filter)

	var listResp struct {
		Items []models.Subscription `json:"items"`
	}
	err := c.do(ctx, http.MethodGet,
		"/api/collections/"+SubscriptionsCollection+"/records", query, nil, &listResp)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return listResp.Items, nil
}

// FindSubscriptionByUserID возвращает запись подписки пользователя либо nil,
// если записи нет.
func (c *Client) FindSubscriptionByUserID(ctx context.Context, userID string) (*models.Subscription, error) {
	items, err := c.listByFilter(ctx, fmt.Sprintf("userId=%q", userID))
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

// FindSubscriptionByCustomerID ищет запись по идентификатору клиента
// провайдера — запасной ключ, когда событие не несёт userId.
func (c *Client) FindSubscriptionByCustomerID(ctx context.Context, customerID string) (*models.Subscription, error) {
	items, err := c.listByFilter(ctx, fmt.Sprintf("stripeCustomerId=%q", customerID))
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

// CreateSubscription создаёт запись подписки и возвращает её вместе с
// присвоенным идентификатором.
func (c *Client) CreateSubscription(ctx context.Context, sub models.Subscription) (*models.Subscription, error) {
	var created models.Subscription
	err := c.do(ctx, http.MethodPost,
		"/api/collections/"+SubscriptionsCollection+"/records", nil, sub, &created)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateSubscription частично обновляет запись: передаются только изменяемые
// поля, остальные значения record store сохраняет как есть.
func (c *Client) UpdateSubscription(ctx context.Context, id string, fields map[string]any) (*models.Subscription, error) {
	var updated models.Subscription
	err := c.do(ctx, http.MethodPatch,
		"/api/collections/"+SubscriptionsCollection+"/records/"+id, nil, fields, &updated)
	if err != nil {
		return nil, err
	}
	return &updated, nil
}
