package webhook

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/rasbandhu/evaluation-service/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) VerifyWebhook(body []byte, signature string) bool {
	args := m.Called(body, signature)
	return args.Bool(0)
}

func (m *MockService) ConfirmFromWebhook(ctx context.Context, orderID string) (*models.Subscription, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func (m *MockService) FailPayment(ctx context.Context, orderID string) error {
	args := m.Called(ctx, orderID)
	return args.Error(0)
}

const capturedBody = `{
	"event": "payment.captured",
	"payload": {"payment": {"entity": {"id": "pay_1", "order_id": "order_1", "status": "captured"}}}
}`

func TestWebhookHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name           string
		body           string
		signature      string
		setupMock      func(*MockService)
		expectedStatus int
	}{
		{
			name:      "captured payment grants subscription",
			body:      capturedBody,
			signature: "good",
			setupMock: func(m *MockService) {
				m.On("VerifyWebhook", mock.Anything, "good").Return(true).Once()
				m.On("ConfirmFromWebhook", mock.Anything, "order_1").
					Return(&models.Subscription{UserUID: "uid-1"}, nil).Once()
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:      "duplicate capture notification ignored",
			body:      capturedBody,
			signature: "good",
			setupMock: func(m *MockService) {
				m.On("VerifyWebhook", mock.Anything, "good").Return(true).Once()
				m.On("ConfirmFromWebhook", mock.Anything, "order_1").
					Return(nil, models.ErrConflict).Once()
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:      "bad signature",
			body:      capturedBody,
			signature: "bad",
			setupMock: func(m *MockService) {
				m.On("VerifyWebhook", mock.Anything, "bad").Return(false).Once()
			},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "missing signature",
			body:           capturedBody,
			signature:      "",
			setupMock:      func(*MockService) {},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:      "failed payment marked",
			body:      strings.Replace(capturedBody, "payment.captured", "payment.failed", 1),
			signature: "good",
			setupMock: func(m *MockService) {
				m.On("VerifyWebhook", mock.Anything, "good").Return(true).Once()
				m.On("FailPayment", mock.Anything, "order_1").Return(nil).Once()
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:      "unknown event ignored",
			body:      strings.Replace(capturedBody, "payment.captured", "refund.created", 1),
			signature: "good",
			setupMock: func(m *MockService) {
				m.On("VerifyWebhook", mock.Anything, "good").Return(true).Once()
			},
			expectedStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodPost, "/payments/webhook", strings.NewReader(tt.body))
			if tt.signature != "" {
				req.Header.Set("X-Razorpay-Signature", tt.signature)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)

			mockService.AssertExpectations(t)
		})
	}
}
