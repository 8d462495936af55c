package portal

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type ServiceMock struct{ mock.Mock }

func (m *ServiceMock) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	args := m.Called(ctx, customerID, returnURL)
	return args.String(0), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestPortalHandler(t *testing.T) {
	cases := []struct {
		name         string
		body         string
		serviceURL   string
		serviceErr   error
		skipService  bool
		expectStatus int
		expectBody   string
	}{
		{
			name:         "Успех",
			body:         `{"customerId":"cus_1","returnUrl":"https://app.example.com/subscription"}`,
			serviceURL:   "https://billing.stripe.com/p/session/bps_1",
			expectStatus: http.StatusOK,
			expectBody:   `{"url":"https://billing.stripe.com/p/session/bps_1"}`,
		},
		{
			name:         "Успех без returnUrl",
			body:         `{"customerId":"cus_1"}`,
			serviceURL:   "https://billing.stripe.com/p/session/bps_1",
			expectStatus: http.StatusOK,
			expectBody:   `{"url":"https://billing.stripe.com/p/session/bps_1"}`,
		},
		{
			name:         "Битый JSON",
			body:         `{"customerId"`,
			skipService:  true,
			expectStatus: http.StatusBadRequest,
			expectBody:   `{"status":"Error","error":"invalid request body"}`,
		},
		{
			name:         "Нет customerId",
			body:         `{"returnUrl":"https://app.example.com/subscription"}`,
			skipService:  true,
			expectStatus: http.StatusUnprocessableEntity,
			expectBody:   `{"status":"Error","error":"field CustomerID is a required field"}`,
		},
		{
			name:         "Кривой returnUrl",
			body:         `{"customerId":"cus_1","returnUrl":"not a url"}`,
			skipService:  true,
			expectStatus: http.StatusUnprocessableEntity,
			expectBody:   `{"status":"Error","error":"field ReturnURL must be a valid url"}`,
		},
		{
			name:         "Ошибка провайдера не раскрывается",
			body:         `{"customerId":"cus_1"}`,
			serviceErr:   errors.New("stripe: no such customer"),
			expectStatus: http.StatusInternalServerError,
			expectBody:   `{"status":"Error","error":"could not create portal session"}`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			service := new(ServiceMock)
			if !tc.skipService {
				service.On("CreatePortalSession", mock.Anything, "cus_1", mock.AnythingOfType("string")).
					Return(tc.serviceURL, tc.serviceErr).Once()
			}

			handler := New(testLogger(), service)
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/create-portal-session", bytes.NewBufferString(tc.body))
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tc.expectStatus, rec.Code)
			assert.JSONEq(t, tc.expectBody, rec.Body.String())
			service.AssertExpectations(t)
			if tc.skipService {
				service.AssertNotCalled(t, "CreatePortalSession", mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}
