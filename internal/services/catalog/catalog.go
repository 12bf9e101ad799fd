// Package services содержит бизнес-логику каталога тарифных планов
// с кешированием витрины.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rasbandhu/evaluation-service/internal/models"
)

// PlanRepository определяет методы для работы с планами в хранилище.
type PlanRepository interface {
	// CreatePlan вставляет новый план и возвращает его ID.
	CreatePlan(ctx context.Context, plan models.Plan) (string, error)
	// UpdatePlan обновляет план по ID.
	UpdatePlan(ctx context.Context, plan models.Plan, id string) (int, error)
	// GetPlan возвращает план по ID.
	GetPlan(ctx context.Context, id string) (*models.Plan, error)
	// ListPlans возвращает планы программы.
	ListPlans(ctx context.Context, program, medium string, onlyVisible bool) ([]*models.Plan, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	// Get пытается получить значение из кеша по ключу.
	Get(key string, result any) (bool, error)
	// Set сохраняет значение в кеш с временем жизни.
	Set(key string, value any, expiration time.Duration) error
	// Invalidate удаляет значение из кеша по ключу.
	Invalidate(key string) error
}

// CatalogService реализует каталог планов: витрину для студентов
// и полный список с управлением для администратора.
type CatalogService struct {
	repo  PlanRepository
	cache Cache
	log   *slog.Logger
}

// NewCatalogService создает новый экземпляр CatalogService.
func NewCatalogService(repo PlanRepository, cache Cache, log *slog.Logger) *CatalogService {
	return &CatalogService{
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

// ListVisible возвращает видимые планы программы для витрины, используя кеш.
// Планы отсортированы по цене по возрастанию.
func (s *CatalogService) ListVisible(ctx context.Context, program, medium string) ([]*models.Plan, error) {
	var plans []*models.Plan
	cacheKey := fmt.Sprintf("plans:%s:%s", program, medium)
	found, err := s.cache.Get(cacheKey, &plans)
	if err != nil {
		s.log.Warn("failed to read plans from cache", slog.String("key", cacheKey), slog.Any("err", err))
	}
	if found {
		return plans, nil
	}

	plans, err = s.repo.ListPlans(ctx, program, medium, true)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(cacheKey, plans, 5*time.Minute); err != nil {
		s.log.Warn("failed to cache plans", slog.String("key", cacheKey), slog.Any("err", err))
	}
	return plans, nil
}

// ListAll возвращает все планы программы, включая скрытые. Для администратора.
func (s *CatalogService) ListAll(ctx context.Context, program string) ([]*models.Plan, error) {
	return s.repo.ListPlans(ctx, program, "", false)
}

// Get возвращает план по ID.
func (s *CatalogService) Get(ctx context.Context, id string) (*models.Plan, error) {
	return s.repo.GetPlan(ctx, id)
}

// Create валидирует и создаёт план, затем инвалидирует витрину программы.
func (s *CatalogService) Create(ctx context.Context, req models.DummyPlan) (string, error) {
	plan, err := planFromRequest(req)
	if err != nil {
		return "", err
	}
	id, err := s.repo.CreatePlan(ctx, plan)
	if err != nil {
		return "", err
	}
	s.log.Info("created plan", slog.String("id", id), slog.String("program", plan.Program))
	s.invalidateShowcase(plan.Program, plan.Medium)
	return id, nil
}

// Update обновляет план по ID и инвалидирует витрину программы.
func (s *CatalogService) Update(ctx context.Context, req models.DummyPlan, id string) error {
	plan, err := planFromRequest(req)
	if err != nil {
		return err
	}
	count, err := s.repo.UpdatePlan(ctx, plan, id)
	if err != nil {
		return err
	}
	if count == 0 {
		return models.ErrNotFound
	}
	s.log.Info("updated plan", slog.String("id", id))
	s.invalidateShowcase(plan.Program, plan.Medium)
	return nil
}

func (s *CatalogService) invalidateShowcase(program, medium string) {
	for _, key := range []string{
		fmt.Sprintf("plans:%s:%s", program, medium),
		fmt.Sprintf("plans:%s:", program),
	} {
		if err := s.cache.Invalidate(key); err != nil {
			s.log.Warn("failed to invalidate plans cache", slog.String("key", key), slog.Any("err", err))
		}
	}
}

// planFromRequest переводит запрос в план, проверяя инварианты каталога:
// скидка не выше цены, единица тарификации соответствует программе.
func planFromRequest(req models.DummyPlan) (models.Plan, error) {
	if req.DiscountedPrice > req.Price {
		return models.Plan{}, fmt.Errorf("discounted price %d exceeds price %d", req.DiscountedPrice, req.Price)
	}
	switch req.Program {
	case models.ProgramDaily:
		if req.CreditsPerDay < 1 {
			return models.Plan{}, fmt.Errorf("%w: credits_per_day", models.ErrMissingField)
		}
	case models.ProgramTest:
		if req.TotalCredits < 1 {
			return models.Plan{}, fmt.Errorf("%w: total_credits", models.ErrMissingField)
		}
	default:
		return models.Plan{}, fmt.Errorf("unknown program: %s", req.Program)
	}

	return models.Plan{
		Name:             req.Name,
		DurationDays:     req.DurationDays,
		Price:            req.Price,
		DiscountedPrice:  req.DiscountedPrice,
		Features:         req.Features,
		IsVisible:        req.IsVisible,
		OpenForAdmission: req.OpenForAdmission,
		SeatsLeft:        req.SeatsLeft,
		Medium:           req.Medium,
		Program:          req.Program,
		IsTrial:          req.IsTrial,
		CreditsPerDay:    req.CreditsPerDay,
		TotalCredits:     req.TotalCredits,
	}, nil
}
