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
	services "github.com/rasbandhu/evaluation-service/internal/services/entitlement"
)

type EntitlementRepoMock struct {
	mock.Mock
}

func (m *EntitlementRepoMock) GetUser(ctx context.Context, userUID string) (*models.User, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *EntitlementRepoMock) GetSubscription(ctx context.Context, userUID, program string) (*models.Subscription, error) {
	args := m.Called(ctx, userUID, program)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func (m *EntitlementRepoMock) HasEverSubscribed(ctx context.Context, userUID, program string) (bool, error) {
	args := m.Called(ctx, userUID, program)
	return args.Bool(0), args.Error(1)
}

func (m *EntitlementRepoMock) ResetDailyCreditsForUser(ctx context.Context, userUID string) (bool, error) {
	args := m.Called(ctx, userUID)
	return args.Bool(0), args.Error(1)
}

func (m *EntitlementRepoMock) UpsertEntitlement(ctx context.Context, userUID string, plan models.Plan) (*models.Subscription, error) {
	args := m.Called(ctx, userUID, plan)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func (m *EntitlementRepoMock) GetPlan(ctx context.Context, id string) (*models.Plan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Plan), args.Error(1)
}

func newService(repo *EntitlementRepoMock) *services.EntitlementService {
	return services.NewEntitlementService(repo, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestEntitlementService_Resolve(t *testing.T) {
	completeUser := &models.User{UID: "uid-1", Name: "Asha", Phone: "555", Role: models.RoleStudent}

	t.Run("active daily subscription", func(t *testing.T) {
		repo := new(EntitlementRepoMock)
		repo.On("GetUser", mock.Anything, "uid-1").Return(completeUser, nil).Once()
		repo.On("ResetDailyCreditsForUser", mock.Anything, "uid-1").Return(false, nil).Once()
		repo.On("GetSubscription", mock.Anything, "uid-1", models.ProgramDaily).Return(&models.Subscription{
			CreditsRemaining: 2,
			Expiry:           time.Now().Add(24 * time.Hour),
			PlanInfo:         models.PlanInfo{Medium: "hindi"},
		}, nil).Once()

		ent, err := newService(repo).Resolve(context.Background(), "uid-1", models.ProgramDaily)
		assert.NoError(t, err)
		assert.True(t, ent.HasActiveSubscription)
		assert.True(t, ent.ProfileComplete)
		assert.Equal(t, 2, ent.CreditsRemaining)
		assert.Equal(t, "hindi", ent.Medium)
		assert.False(t, ent.TrialEligible)
		repo.AssertExpectations(t)
	})

	t.Run("expired subscription blocks trial", func(t *testing.T) {
		repo := new(EntitlementRepoMock)
		repo.On("GetUser", mock.Anything, "uid-1").Return(completeUser, nil).Once()
		repo.On("GetSubscription", mock.Anything, "uid-1", models.ProgramTest).Return(&models.Subscription{
			CreditsRemaining: 3,
			Expiry:           time.Now().Add(-time.Hour),
		}, nil).Once()

		ent, err := newService(repo).Resolve(context.Background(), "uid-1", models.ProgramTest)
		assert.NoError(t, err)
		assert.False(t, ent.HasActiveSubscription)
		assert.Zero(t, ent.CreditsRemaining)
		assert.False(t, ent.TrialEligible)
		repo.AssertExpectations(t)
	})

	t.Run("never subscribed is trial eligible", func(t *testing.T) {
		repo := new(EntitlementRepoMock)
		incomplete := &models.User{UID: "uid-2", Role: models.RoleStudent}
		repo.On("GetUser", mock.Anything, "uid-2").Return(incomplete, nil).Once()
		repo.On("GetSubscription", mock.Anything, "uid-2", models.ProgramTest).
			Return(nil, models.ErrNotFound).Once()

		ent, err := newService(repo).Resolve(context.Background(), "uid-2", models.ProgramTest)
		assert.NoError(t, err)
		assert.False(t, ent.HasActiveSubscription)
		assert.False(t, ent.ProfileComplete)
		assert.True(t, ent.TrialEligible)
		repo.AssertExpectations(t)
	})

	t.Run("lazy reset failure does not break resolve", func(t *testing.T) {
		repo := new(EntitlementRepoMock)
		repo.On("GetUser", mock.Anything, "uid-1").Return(completeUser, nil).Once()
		repo.On("ResetDailyCreditsForUser", mock.Anything, "uid-1").
			Return(false, assert.AnError).Once()
		repo.On("GetSubscription", mock.Anything, "uid-1", models.ProgramDaily).
			Return(nil, models.ErrNotFound).Once()

		ent, err := newService(repo).Resolve(context.Background(), "uid-1", models.ProgramDaily)
		assert.NoError(t, err)
		assert.True(t, ent.TrialEligible)
		repo.AssertExpectations(t)
	})
}

func TestEntitlementService_GrantTrial(t *testing.T) {
	trialPlan := &models.Plan{
		ID:            "plan-trial",
		Program:       models.ProgramDaily,
		IsTrial:       true,
		DurationDays:  3,
		CreditsPerDay: 1,
	}

	t.Run("grants to new user", func(t *testing.T) {
		repo := new(EntitlementRepoMock)
		repo.On("GetPlan", mock.Anything, "plan-trial").Return(trialPlan, nil).Once()
		repo.On("HasEverSubscribed", mock.Anything, "uid-1", models.ProgramDaily).Return(false, nil).Once()
		repo.On("UpsertEntitlement", mock.Anything, "uid-1", *trialPlan).
			Return(&models.Subscription{UserUID: "uid-1", CreditsRemaining: 1}, nil).Once()

		sub, err := newService(repo).GrantTrial(context.Background(), "uid-1", "plan-trial")
		assert.NoError(t, err)
		assert.Equal(t, 1, sub.CreditsRemaining)
		repo.AssertExpectations(t)
	})

	t.Run("refuses repeat trial", func(t *testing.T) {
		repo := new(EntitlementRepoMock)
		repo.On("GetPlan", mock.Anything, "plan-trial").Return(trialPlan, nil).Once()
		repo.On("HasEverSubscribed", mock.Anything, "uid-1", models.ProgramDaily).Return(true, nil).Once()

		_, err := newService(repo).GrantTrial(context.Background(), "uid-1", "plan-trial")
		assert.ErrorIs(t, err, models.ErrNotTrialEligible)
		repo.AssertExpectations(t)
	})

	t.Run("refuses non-trial plan", func(t *testing.T) {
		paid := &models.Plan{ID: "plan-paid", Program: models.ProgramDaily}
		repo := new(EntitlementRepoMock)
		repo.On("GetPlan", mock.Anything, "plan-paid").Return(paid, nil).Once()

		_, err := newService(repo).GrantTrial(context.Background(), "uid-1", "plan-paid")
		assert.ErrorIs(t, err, models.ErrNotTrialEligible)
		repo.AssertExpectations(t)
	})
}
