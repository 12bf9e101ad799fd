package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/rasbandhu/evaluation-service/internal/models"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) ResetDailyCredits(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockRepository) FindSubscriptionsExpiringTomorrow(ctx context.Context) ([]*models.Subscription, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Subscription), args.Error(1)
}

func (m *MockRepository) ListOverdueEvaluations(ctx context.Context, dailyHours, testHours int) ([]*models.Evaluation, error) {
	args := m.Called(ctx, dailyHours, testHours)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Evaluation), args.Error(1)
}

func (m *MockRepository) GetUser(ctx context.Context, userUID string) (*models.User, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func newTestService(repo *MockRepository) *SchedulerService {
	return NewSchedulerService(repo, SLAWindows{DailyHours: 24, TestHours: 48}, newNoopLogger())
}

func TestSchedulerService_runDailyCreditReset(t *testing.T) {
	tests := []struct {
		name       string
		setupMocks func(*MockRepository)
	}{
		{
			name: "success - credits restored",
			setupMocks: func(r *MockRepository) {
				r.On("ResetDailyCredits", mock.Anything).Return([]string{"uid-1", "uid-2"}, nil).Once()
			},
		},
		{
			name: "success - nothing to reset",
			setupMocks: func(r *MockRepository) {
				r.On("ResetDailyCredits", mock.Anything).Return([]string{}, nil).Once()
			},
		},
		{
			name: "repository error only logged",
			setupMocks: func(r *MockRepository) {
				r.On("ResetDailyCredits", mock.Anything).Return(nil, errors.New("db error")).Once()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			tt.setupMocks(repo)

			newTestService(repo).runDailyCreditReset(context.Background())

			repo.AssertExpectations(t)
		})
	}
}

func TestSchedulerService_runFindExpiringSubscriptions(t *testing.T) {
	tests := []struct {
		name       string
		setupMocks func(*MockRepository)
	}{
		{
			name: "no expiring subscriptions",
			setupMocks: func(r *MockRepository) {
				r.On("FindSubscriptionsExpiringTomorrow", mock.Anything).
					Return([]*models.Subscription{}, nil).Once()
			},
		},
		{
			name: "repository error only logged",
			setupMocks: func(r *MockRepository) {
				r.On("FindSubscriptionsExpiringTomorrow", mock.Anything).
					Return(nil, errors.New("db error")).Once()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			tt.setupMocks(repo)

			newTestService(repo).runFindExpiringSubscriptions(context.Background(), nil)

			repo.AssertExpectations(t)
		})
	}
}

func TestSchedulerService_runFindOverdueEvaluations(t *testing.T) {
	tests := []struct {
		name       string
		setupMocks func(*MockRepository)
	}{
		{
			name: "no overdue evaluations",
			setupMocks: func(r *MockRepository) {
				r.On("ListOverdueEvaluations", mock.Anything, 24, 48).
					Return([]*models.Evaluation{}, nil).Once()
			},
		},
		{
			name: "repository error only logged",
			setupMocks: func(r *MockRepository) {
				r.On("ListOverdueEvaluations", mock.Anything, 24, 48).
					Return(nil, errors.New("db error")).Once()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			tt.setupMocks(repo)

			newTestService(repo).runFindOverdueEvaluations(context.Background(), nil)

			repo.AssertExpectations(t)
		})
	}
}

func TestSchedulerService_NewSchedulerService(t *testing.T) {
	repo := new(MockRepository)
	logger := newNoopLogger()

	service := NewSchedulerService(repo, SLAWindows{DailyHours: 24, TestHours: 48}, logger)

	assert.NotNil(t, service)
	assert.Equal(t, repo, service.repo)
	assert.Equal(t, logger, service.log)
}
