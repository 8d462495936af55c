package checkout

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/numisgallery/mercury-webhooks/internal/paymentprovider"
)

type ProviderMock struct{ mock.Mock }

func (m *ProviderMock) FindCustomerByEmail(ctx context.Context, email string) (string, error) {
	args := m.Called(ctx, email)
	return args.String(0), args.Error(1)
}

func (m *ProviderMock) UpdateCustomerUserID(ctx context.Context, customerID, userID string) error {
	args := m.Called(ctx, customerID, userID)
	return args.Error(0)
}

func (m *ProviderMock) CreateCheckoutSession(ctx context.Context, p paymentprovider.CheckoutSessionParams) (string, error) {
	args := m.Called(ctx, p)
	return args.String(0), args.Error(1)
}

func (m *ProviderMock) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	args := m.Called(ctx, customerID, returnURL)
	return args.String(0), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestCreateCheckoutSession_NewCustomerAndDefaultURLs(t *testing.T) {
	provider := new(ProviderMock)
	provider.On("FindCustomerByEmail", mock.Anything, "user@example.com").Return("", nil).Once()
	provider.On("CreateCheckoutSession", mock.Anything, paymentprovider.CheckoutSessionParams{
		PriceID:    "price_pro_123",
		CustomerID: "",
		Email:      "user@example.com",
		UserID:     "abc123def456ghi",
		SuccessURL: "https://app.example.com/subscription?success=true",
		CancelURL:  "https://app.example.com/subscription",
	}).Return("https://checkout.stripe.com/c/pay/cs_1", nil).Once()

	// Слэш в конце origin не должен давать двойной слэш в URL возврата.
	service := NewService(testLogger(), provider, "https://app.example.com/")
	url, err := service.CreateCheckoutSession(context.Background(), Request{
		PriceID:       "price_pro_123",
		CustomerEmail: "user@example.com",
		UserID:        "abc123def456ghi",
	})

	require.NoError(t, err)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_1", url)
	provider.AssertExpectations(t)
	provider.AssertNotCalled(t, "UpdateCustomerUserID", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateCheckoutSession_ReusesExistingCustomer(t *testing.T) {
	provider := new(ProviderMock)
	provider.On("FindCustomerByEmail", mock.Anything, "user@example.com").Return("cus_1", nil).Once()
	provider.On("UpdateCustomerUserID", mock.Anything, "cus_1", "abc123def456ghi").Return(nil).Once()
	provider.On("CreateCheckoutSession", mock.Anything, mock.MatchedBy(func(p paymentprovider.CheckoutSessionParams) bool {
		return p.CustomerID == "cus_1" && p.SuccessURL == "https://shop.example.com/done"
	})).Return("https://checkout.stripe.com/c/pay/cs_2", nil).Once()

	service := NewService(testLogger(), provider, "https://app.example.com")
	url, err := service.CreateCheckoutSession(context.Background(), Request{
		PriceID:       "price_pro_123",
		CustomerEmail: "user@example.com",
		UserID:        "abc123def456ghi",
		SuccessURL:    "https://shop.example.com/done",
		CancelURL:     "https://shop.example.com/cancel",
	})

	require.NoError(t, err)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_2", url)
	provider.AssertExpectations(t)
}

func TestCreateCheckoutSession_ProviderErrors(t *testing.T) {
	cases := []struct {
		name  string
		setup func(p *ProviderMock)
	}{
		{
			name: "Ошибка поиска клиента",
			setup: func(p *ProviderMock) {
				p.On("FindCustomerByEmail", mock.Anything, mock.Anything).
					Return("", errors.New("stripe unavailable")).Once()
			},
		},
		{
			name: "Ошибка обновления метаданных",
			setup: func(p *ProviderMock) {
				p.On("FindCustomerByEmail", mock.Anything, mock.Anything).Return("cus_1", nil).Once()
				p.On("UpdateCustomerUserID", mock.Anything, "cus_1", mock.Anything).
					Return(errors.New("stripe unavailable")).Once()
			},
		},
		{
			name: "Ошибка выпуска сессии",
			setup: func(p *ProviderMock) {
				p.On("FindCustomerByEmail", mock.Anything, mock.Anything).Return("", nil).Once()
				p.On("CreateCheckoutSession", mock.Anything, mock.Anything).
					Return("", errors.New("stripe unavailable")).Once()
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			provider := new(ProviderMock)
			tc.setup(provider)
			service := NewService(testLogger(), provider, "https://app.example.com")

			_, err := service.CreateCheckoutSession(context.Background(), Request{
				PriceID:       "price_pro_123",
				CustomerEmail: "user@example.com",
				UserID:        "abc123def456ghi",
			})

			assert.Error(t, err)
			provider.AssertExpectations(t)
		})
	}
}

func TestCreatePortalSession(t *testing.T) {
	cases := []struct {
		name          string
		returnURL     string
		expectedURL   string
		providerURL   string
		providerErr   error
		expectFailure bool
	}{
		{
			name:        "Явный returnUrl",
			returnURL:   "https://shop.example.com/account",
			expectedURL: "https://shop.example.com/account",
			providerURL: "https://billing.stripe.com/p/session/bps_1",
		},
		{
			name:        "returnUrl по умолчанию",
			returnURL:   "",
			expectedURL: "https://app.example.com/subscription",
			providerURL: "https://billing.stripe.com/p/session/bps_1",
		},
		{
			name:          "Ошибка провайдера",
			returnURL:     "",
			expectedURL:   "https://app.example.com/subscription",
			providerErr:   errors.New("stripe unavailable"),
			expectFailure: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			provider := new(ProviderMock)
			provider.On("CreatePortalSession", mock.Anything, "cus_1", tc.expectedURL).
				Return(tc.providerURL, tc.providerErr).Once()
			service := NewService(testLogger(), provider, "https://app.example.com")

			url, err := service.CreatePortalSession(context.Background(), "cus_1", tc.returnURL)

			if tc.expectFailure {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tc.providerURL, url)
			}
			provider.AssertExpectations(t)
		})
	}
}
