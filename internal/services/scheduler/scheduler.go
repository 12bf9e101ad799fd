// Package services содержит фоновые задачи платформы: ежедневное
// восстановление кредитов и публикацию уведомлений об истекающих
// абонементах и просроченных проверках.
package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/rasbandhu/evaluation-service/internal/lib/rabbitmq"
	"github.com/rasbandhu/evaluation-service/internal/lib/sl"
	"github.com/rasbandhu/evaluation-service/internal/models"
)

type Repository interface {
	// ResetDailyCredits восстанавливает дневные кредиты активных абонементов.
	ResetDailyCredits(ctx context.Context) ([]string, error)
	// FindSubscriptionsExpiringTomorrow возвращает абонементы с истекающим сроком.
	FindSubscriptionsExpiringTomorrow(ctx context.Context) ([]*models.Subscription, error)
	// ListOverdueEvaluations возвращает непроверенные заявки за пределами SLA-окна.
	ListOverdueEvaluations(ctx context.Context, dailyHours, testHours int) ([]*models.Evaluation, error)
	// GetUser возвращает пользователя по UID для адресации письма.
	GetUser(ctx context.Context, userUID string) (*models.User, error)
}

// SLAWindows — окна проверки по программам в часах.
type SLAWindows struct {
	DailyHours int
	TestHours  int
}

type SchedulerService struct {
	repo Repository
	sla  SLAWindows
	log  *slog.Logger
}

// NewSchedulerService создает новый экземпляр SchedulerService.
func NewSchedulerService(repo Repository, sla SLAWindows, log *slog.Logger) *SchedulerService {
	return &SchedulerService{
		repo: repo,
		sla:  sla,
		log:  log,
	}
}

// RunDailyCreditReset ежечасно запускает восстановление дневных кредитов.
// Сам проход идемпотентен в пределах календарного дня, поэтому частый
// запуск безопасен.
func (s *SchedulerService) RunDailyCreditReset(ctx context.Context) {
	s.runDailyCreditReset(ctx)

	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		s.runDailyCreditReset(ctx)
	}
}

func (s *SchedulerService) runDailyCreditReset(ctx context.Context) {
	s.log.Info("starting daily credit reset sweep")
	uids, err := s.repo.ResetDailyCredits(ctx)
	if err != nil {
		s.log.Error("failed to reset daily credits", sl.Err(err))
		return
	}
	if len(uids) == 0 {
		s.log.Info("no subscriptions needed a credit reset")
		return
	}
	s.log.Info("daily credits restored", "count", len(uids))
}

// FindExpiringSubscriptions дважды в сутки публикует напоминания о
// скором окончании абонементов.
func (s *SchedulerService) FindExpiringSubscriptions(ctx context.Context, channel *amqp.Channel) {
	s.runFindExpiringSubscriptions(ctx, channel)

	ticker := time.NewTicker(12 * time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		s.runFindExpiringSubscriptions(ctx, channel)
	}
}

func (s *SchedulerService) runFindExpiringSubscriptions(ctx context.Context, channel *amqp.Channel) {
	s.log.Info("starting service to find expiring subscriptions")
	subs, err := s.repo.FindSubscriptionsExpiringTomorrow(ctx)
	if err != nil {
		s.log.Error("failed to find expiring subscriptions", sl.Err(err))
		return
	}
	if len(subs) == 0 {
		s.log.Info("no expiring subscriptions found")
		return
	}
	s.log.Info("found expiring subscriptions", "count", len(subs))
	for _, sub := range subs {
		user, err := s.repo.GetUser(ctx, sub.UserUID)
		if err != nil {
			s.log.Error("failed to get user for notice", sl.Err(err))
			continue
		}
		notice := models.ExpiryNotice{
			Email:   user.Email,
			Name:    user.Name,
			Program: sub.Program,
			Expiry:  sub.Expiry,
		}
		if err := rabbitmq.PublishMessage(channel, rabbitmq.Exchange, rabbitmq.KeyExpiring, notice); err != nil {
			s.log.Error("failed to publish message", sl.Err(err))
		}
	}
}

// FindOverdueEvaluations ежечасно публикует сводку по заявкам, висящим
// без проверки дольше SLA-окна. Сами заявки остаются в своих статусах.
func (s *SchedulerService) FindOverdueEvaluations(ctx context.Context, channel *amqp.Channel) {
	s.runFindOverdueEvaluations(ctx, channel)

	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		s.runFindOverdueEvaluations(ctx, channel)
	}
}

func (s *SchedulerService) runFindOverdueEvaluations(ctx context.Context, channel *amqp.Channel) {
	s.log.Info("starting service to find overdue evaluations")
	entries, err := s.repo.ListOverdueEvaluations(ctx, s.sla.DailyHours, s.sla.TestHours)
	if err != nil {
		s.log.Error("failed to find overdue evaluations", sl.Err(err))
		return
	}
	if len(entries) == 0 {
		s.log.Info("no overdue evaluations found")
		return
	}
	s.log.Info("found overdue evaluations", "count", len(entries))
	now := time.Now()
	for _, entry := range entries {
		hours := s.sla.TestHours
		if entry.Program == models.ProgramDaily {
			hours = s.sla.DailyHours
		}
		deadline := entry.CreatedAt.Add(time.Duration(hours) * time.Hour)
		notice := models.SlaNotice{
			EvaluationID: entry.ID,
			Program:      entry.Program,
			Status:       entry.Status,
			CreatedAt:    entry.CreatedAt,
			HoursOverdue: int(now.Sub(deadline).Hours()),
		}
		if err := rabbitmq.PublishMessage(channel, rabbitmq.Exchange, rabbitmq.KeySlaOverdue, notice); err != nil {
			s.log.Error("failed to publish message", sl.Err(err))
		}
	}
}
