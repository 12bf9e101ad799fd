package services_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/rasbandhu/evaluation-service/internal/models"
	services "github.com/rasbandhu/evaluation-service/internal/services/catalog"
)

type PlanRepoMock struct {
	mock.Mock
}

func (m *PlanRepoMock) CreatePlan(ctx context.Context, plan models.Plan) (string, error) {
	args := m.Called(ctx, plan)
	return args.String(0), args.Error(1)
}

func (m *PlanRepoMock) UpdatePlan(ctx context.Context, plan models.Plan, id string) (int, error) {
	args := m.Called(ctx, plan, id)
	return args.Int(0), args.Error(1)
}

func (m *PlanRepoMock) GetPlan(ctx context.Context, id string) (*models.Plan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Plan), args.Error(1)
}

func (m *PlanRepoMock) ListPlans(ctx context.Context, program, medium string, onlyVisible bool) ([]*models.Plan, error) {
	args := m.Called(ctx, program, medium, onlyVisible)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Plan), args.Error(1)
}

type CacheMock struct {
	mock.Mock
}

func (m *CacheMock) Get(key string, result any) (bool, error) {
	args := m.Called(key, result)
	return args.Bool(0), args.Error(1)
}

func (m *CacheMock) Set(key string, value any, expiration time.Duration) error {
	args := m.Called(key, value, expiration)
	return args.Error(0)
}

func (m *CacheMock) Invalidate(key string) error {
	args := m.Called(key)
	return args.Error(0)
}

func newService(repo *PlanRepoMock, cache *CacheMock) *services.CatalogService {
	return services.NewCatalogService(repo, cache, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func validDailyPlan() models.DummyPlan {
	return models.DummyPlan{
		Name:          "Daily Hindi Monthly",
		DurationDays:  30,
		Price:         999,
		Medium:        "hindi",
		Program:       models.ProgramDaily,
		CreditsPerDay: 2,
		SeatsLeft:     50,
		IsVisible:     true,
	}
}

func TestCatalogService_ListVisible(t *testing.T) {
	plans := []*models.Plan{{ID: "p1", Program: models.ProgramDaily}}

	t.Run("cache miss fills cache", func(t *testing.T) {
		repo := new(PlanRepoMock)
		cache := new(CacheMock)
		cache.On("Get", "plans:dailyEvaluation:hindi", mock.Anything).Return(false, nil).Once()
		repo.On("ListPlans", mock.Anything, models.ProgramDaily, "hindi", true).Return(plans, nil).Once()
		cache.On("Set", "plans:dailyEvaluation:hindi", plans, 5*time.Minute).Return(nil).Once()

		got, err := newService(repo, cache).ListVisible(context.Background(), models.ProgramDaily, "hindi")
		assert.NoError(t, err)
		assert.Equal(t, plans, got)
		repo.AssertExpectations(t)
		cache.AssertExpectations(t)
	})

	t.Run("cache hit skips repository", func(t *testing.T) {
		repo := new(PlanRepoMock)
		cache := new(CacheMock)
		cache.On("Get", "plans:testEvaluation:", mock.Anything).Return(true, nil).Once()

		_, err := newService(repo, cache).ListVisible(context.Background(), models.ProgramTest, "")
		assert.NoError(t, err)
		repo.AssertNotCalled(t, "ListPlans")
		cache.AssertExpectations(t)
	})
}

func TestCatalogService_Create(t *testing.T) {
	t.Run("creates valid plan", func(t *testing.T) {
		repo := new(PlanRepoMock)
		cache := new(CacheMock)
		repo.On("CreatePlan", mock.Anything, mock.MatchedBy(func(p models.Plan) bool {
			return p.Program == models.ProgramDaily && p.CreditsPerDay == 2
		})).Return("p1", nil).Once()
		cache.On("Invalidate", mock.Anything).Return(nil)

		id, err := newService(repo, cache).Create(context.Background(), validDailyPlan())
		assert.NoError(t, err)
		assert.Equal(t, "p1", id)
		repo.AssertExpectations(t)
	})

	t.Run("rejects discount above price", func(t *testing.T) {
		req := validDailyPlan()
		req.DiscountedPrice = 1500

		_, err := newService(new(PlanRepoMock), new(CacheMock)).Create(context.Background(), req)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "exceeds price")
	})

	t.Run("daily plan requires credits per day", func(t *testing.T) {
		req := validDailyPlan()
		req.CreditsPerDay = 0

		_, err := newService(new(PlanRepoMock), new(CacheMock)).Create(context.Background(), req)
		assert.ErrorIs(t, err, models.ErrMissingField)
	})

	t.Run("test plan requires total credits", func(t *testing.T) {
		req := validDailyPlan()
		req.Program = models.ProgramTest
		req.CreditsPerDay = 0
		req.TotalCredits = 0

		_, err := newService(new(PlanRepoMock), new(CacheMock)).Create(context.Background(), req)
		assert.ErrorIs(t, err, models.ErrMissingField)
	})
}

func TestCatalogService_Update(t *testing.T) {
	t.Run("updates existing plan", func(t *testing.T) {
		repo := new(PlanRepoMock)
		cache := new(CacheMock)
		repo.On("UpdatePlan", mock.Anything, mock.Anything, "p1").Return(1, nil).Once()
		cache.On("Invalidate", mock.Anything).Return(nil)

		err := newService(repo, cache).Update(context.Background(), validDailyPlan(), "p1")
		assert.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("missing plan", func(t *testing.T) {
		repo := new(PlanRepoMock)
		repo.On("UpdatePlan", mock.Anything, mock.Anything, "p404").Return(0, nil).Once()

		err := newService(repo, new(CacheMock)).Update(context.Background(), validDailyPlan(), "p404")
		assert.ErrorIs(t, err, models.ErrNotFound)
		repo.AssertExpectations(t)
	})
}
