package create

import (
	"context"
	"fmt"
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

func (m *MockService) Create(ctx context.Context, req models.DummyPlan) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

const validBody = `{
	"name": "Daily 30",
	"duration_days": 30,
	"price": 1000,
	"medium": "english",
	"program": "dailyEvaluation",
	"credits_per_day": 1
}`

func TestPlanCreateHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "successful creation",
			body: validBody,
			setupMock: func(m *MockService) {
				m.On("Create", mock.Anything, mock.MatchedBy(func(req models.DummyPlan) bool {
					return req.Name == "Daily 30" && req.Program == models.ProgramDaily
				})).Return("plan-1", nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"id":"plan-1"`,
		},
		{
			name:           "unsupported program",
			body:           strings.Replace(validBody, "dailyEvaluation", "weeklyEvaluation", 1),
			setupMock:      func(*MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `field Program has unsupported value`,
		},
		{
			name: "missing credit unit",
			body: validBody,
			setupMock: func(m *MockService) {
				m.On("Create", mock.Anything, mock.Anything).
					Return("", fmt.Errorf("%w: credits_per_day", models.ErrMissingField)).Once()
			},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `credits_per_day`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodPost, "/admin/plans", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)

			mockService.AssertExpectations(t)
		})
	}
}
