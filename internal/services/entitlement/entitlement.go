// Package services содержит резолвер прав: вычисление состояния абонемента
// пользователя по программе и начисление пробного плана.
package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/rasbandhu/evaluation-service/internal/lib/sl"
	"github.com/rasbandhu/evaluation-service/internal/models"
)

// Repository определяет методы хранилища, нужные резолверу.
type Repository interface {
	// GetUser возвращает пользователя по UID.
	GetUser(ctx context.Context, userUID string) (*models.User, error)
	// GetSubscription возвращает абонемент пары пользователь+программа.
	GetSubscription(ctx context.Context, userUID, program string) (*models.Subscription, error)
	// HasEverSubscribed сообщает, была ли когда-либо запись абонемента.
	HasEverSubscribed(ctx context.Context, userUID, program string) (bool, error)
	// ResetDailyCreditsForUser лениво восстанавливает дневные кредиты.
	ResetDailyCreditsForUser(ctx context.Context, userUID string) (bool, error)
	// UpsertEntitlement начисляет план.
	UpsertEntitlement(ctx context.Context, userUID string, plan models.Plan) (*models.Subscription, error)
	// GetPlan возвращает план по ID.
	GetPlan(ctx context.Context, id string) (*models.Plan, error)
}

// EntitlementService вычисляет права пользователя и выдаёт пробные планы.
type EntitlementService struct {
	repo Repository
	log  *slog.Logger
}

// NewEntitlementService создает новый экземпляр EntitlementService.
func NewEntitlementService(repo Repository, log *slog.Logger) *EntitlementService {
	return &EntitlementService{
		repo: repo,
		log:  log,
	}
}

// Resolve возвращает состояние пользователя по программе. Неполный профиль
// и отсутствие абонемента не являются ошибками: возвращается запись
// с выключенными флагами. Перед чтением остатка выполняется ленивое
// восстановление дневных кредитов на случай, если планировщик ещё
// не отработал сегодня.
func (s *EntitlementService) Resolve(ctx context.Context, userUID, program string) (*models.Entitlement, error) {
	user, err := s.repo.GetUser(ctx, userUID)
	if err != nil {
		return nil, err
	}

	ent := &models.Entitlement{
		Role:            user.Role,
		ProfileComplete: user.Name != "" && user.Phone != "",
	}

	if program == models.ProgramDaily {
		if _, err := s.repo.ResetDailyCreditsForUser(ctx, userUID); err != nil {
			s.log.Warn("lazy daily credit reset failed", sl.Err(err))
		}
	}

	sub, err := s.repo.GetSubscription(ctx, userUID, program)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			return nil, err
		}
		ent.TrialEligible = true
		return ent, nil
	}

	// Запись есть, пробный план больше недоступен даже после истечения срока.
	ent.HasActiveSubscription = sub.IsActive(time.Now())
	if ent.HasActiveSubscription {
		ent.CreditsRemaining = sub.CreditsRemaining
		ent.Medium = sub.PlanInfo.Medium
	}
	return ent, nil
}

// GrantTrial начисляет пробный план. Право на пробный план есть только
// у пользователя, у которого никогда не было абонемента по программе.
func (s *EntitlementService) GrantTrial(ctx context.Context, userUID, planID string) (*models.Subscription, error) {
	plan, err := s.repo.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if !plan.IsTrial {
		return nil, models.ErrNotTrialEligible
	}

	ever, err := s.repo.HasEverSubscribed(ctx, userUID, plan.Program)
	if err != nil {
		return nil, err
	}
	if ever {
		return nil, models.ErrNotTrialEligible
	}

	sub, err := s.repo.UpsertEntitlement(ctx, userUID, *plan)
	if err != nil {
		return nil, err
	}
	s.log.Info("trial granted",
		slog.String("user", userUID),
		slog.String("plan", plan.ID),
		slog.String("program", plan.Program))
	return sub, nil
}
