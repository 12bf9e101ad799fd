package middlewarectx

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/rasbandhu/evaluation-service/internal/models"
)

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) ValidateToken(ctx context.Context, token string) (*models.User, string, bool, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.String(1), args.Bool(2), args.Error(3)
	}
	return args.Get(0).(*models.User), args.String(1), args.Bool(2), args.Error(3)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestJWTMiddleware(t *testing.T) {
	tests := []struct {
		name           string
		authHeader     string
		setupMocks     func(*MockAuthService)
		expectedStatus int
		expectedBody   string
		expectedCtx    map[Key]interface{}
	}{
		{
			name:       "success - valid token",
			authHeader: "Bearer valid_token_123",
			setupMocks: func(as *MockAuthService) {
				as.On("ValidateToken", mock.Anything, "valid_token_123").Return(&models.User{
					Email: "student@example.com",
					Role:  models.RoleStudent,
					UID:   "uid-1",
				}, models.RoleStudent, true, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedCtx: map[Key]interface{}{
				User:    "student@example.com",
				Role:    models.RoleStudent,
				UserUID: "uid-1",
			},
		},
		{
			name:           "missing authorization header",
			authHeader:     "",
			setupMocks:     func(*MockAuthService) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `{"status":"Error","error":"missing or invalid authorization header"}`,
		},
		{
			name:           "invalid authorization header format",
			authHeader:     "InvalidFormat token123",
			setupMocks:     func(*MockAuthService) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `{"status":"Error","error":"missing or invalid authorization header"}`,
		},
		{
			name:       "invalid token",
			authHeader: "Bearer invalid_token",
			setupMocks: func(as *MockAuthService) {
				as.On("ValidateToken", mock.Anything, "invalid_token").
					Return(nil, "", false, assert.AnError).Once()
			},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `{"status":"Error","error":"invalid or expired token"}`,
		},
		{
			name:       "valid token with admin role",
			authHeader: "Bearer admin_token",
			setupMocks: func(as *MockAuthService) {
				as.On("ValidateToken", mock.Anything, "admin_token").Return(&models.User{
					Email: "admin@rasbandhu.in",
					Role:  models.RoleAdmin,
					UID:   "admin-1",
				}, models.RoleAdmin, true, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedCtx: map[Key]interface{}{
				User:    "admin@rasbandhu.in",
				Role:    models.RoleAdmin,
				UserUID: "admin-1",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			authService := new(MockAuthService)
			mw := JWTMiddleware(authService, newNoopLogger())

			tt.setupMocks(authService)

			var capturedCtx context.Context
			testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				capturedCtx = r.Context()
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}

			w := httptest.NewRecorder()

			mw(testHandler).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)

			if tt.expectedBody != "" {
				assert.JSONEq(t, tt.expectedBody, w.Body.String())
			}

			if tt.expectedStatus == http.StatusOK && tt.expectedCtx != nil {
				assert.NotNil(t, capturedCtx)
				for key, expectedValue := range tt.expectedCtx {
					assert.Equal(t, expectedValue, capturedCtx.Value(key))
				}
			}

			authService.AssertExpectations(t)
		})
	}
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name           string
		ctxRole        any
		allowed        []string
		expectedStatus int
	}{
		{
			name:           "allowed role passes",
			ctxRole:        models.RoleMentor,
			allowed:        []string{models.RoleMentor, models.RoleAdmin},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "disallowed role rejected",
			ctxRole:        models.RoleStudent,
			allowed:        []string{models.RoleAdmin},
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "missing role rejected",
			ctxRole:        nil,
			allowed:        []string{models.RoleAdmin},
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mw := RequireRole(newNoopLogger(), tt.allowed...)

			testHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.ctxRole != nil {
				req = req.WithContext(context.WithValue(req.Context(), Role, tt.ctxRole))
			}

			w := httptest.NewRecorder()
			mw(testHandler).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}
