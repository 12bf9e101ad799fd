// Package services содержит бизнес-логику жизненного цикла заявок на проверку:
// приём с валидацией вложений и списанием кредитов, взятие в работу,
// сдачу результата, отклонение и отзыв студента.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rasbandhu/evaluation-service/internal/models"
)

// EvaluationRepository определяет методы для работы с заявками в хранилище.
type EvaluationRepository interface {
	// CreateEvaluationWithDebit атомарно списывает кредиты и создаёт заявку.
	CreateEvaluationWithDebit(ctx context.Context, entry models.Evaluation) (*models.Evaluation, error)
	// GetEvaluation возвращает заявку по ID.
	GetEvaluation(ctx context.Context, id string) (*models.Evaluation, error)
	// ListEvaluations возвращает заявки по фильтру.
	ListEvaluations(ctx context.Context, filter models.EvaluationFilter) ([]*models.Evaluation, error)
	// AssignEvaluation выполняет условный переход Pending -> Assigned.
	AssignEvaluation(ctx context.Context, id, mentorUID string) (int, error)
	// SubmitEvaluationResult выполняет условный переход Assigned -> Evaluated.
	SubmitEvaluationResult(ctx context.Context, id, mentorUID, evaluationURL, comments string) (int, error)
	// RejectEvaluation переводит заявку в Rejected.
	RejectEvaluation(ctx context.Context, id, reason string) (int, error)
	// SetReview сохраняет первый отзыв студента.
	SetReview(ctx context.Context, id, userUID string, review models.Review) (int, error)
}

// SubscriptionRepository даёт доступ к абонементу для чтения языка обучения.
type SubscriptionRepository interface {
	GetSubscription(ctx context.Context, userUID, program string) (*models.Subscription, error)
}

// SLAWindows — окна проверки по программам в часах. Счётчик чисто
// информационный: просроченная заявка остаётся в своём статусе.
type SLAWindows struct {
	DailyHours int
	TestHours  int
}

// LifecycleService реализует жизненный цикл заявки.
type LifecycleService struct {
	repo LifecycleRepository
	sla  SLAWindows
	log  *slog.Logger
}

// LifecycleRepository объединяет хранилище заявок и абонементов.
type LifecycleRepository interface {
	EvaluationRepository
	SubscriptionRepository
}

// NewLifecycleService создает новый экземпляр LifecycleService.
func NewLifecycleService(repo LifecycleRepository, sla SLAWindows, log *slog.Logger) *LifecycleService {
	return &LifecycleService{
		repo: repo,
		sla:  sla,
		log:  log,
	}
}

// Create валидирует заявку, списывает кредиты и сохраняет её со статусом
// Pending. Язык обучения берётся из абонемента, а не из запроса.
func (s *LifecycleService) Create(ctx context.Context, userUID, program string, req models.DummyEvaluation) (*models.Evaluation, error) {
	if err := validateFiles(program, req.Files); err != nil {
		return nil, err
	}
	if program == models.ProgramDaily && req.NumberOfAnswers < 1 {
		return nil, fmt.Errorf("%w: number_of_answers", models.ErrMissingField)
	}
	if program == models.ProgramTest && len(req.Subjects) == 0 {
		return nil, fmt.Errorf("%w: subjects", models.ErrMissingField)
	}

	sub, err := s.repo.GetSubscription(ctx, userUID, program)
	if err != nil {
		return nil, models.ErrNoActiveSubscription
	}
	if !sub.IsActive(time.Now()) {
		return nil, models.ErrNoActiveSubscription
	}

	entry := models.Evaluation{
		UserUID:         userUID,
		Program:         program,
		Paper:           req.Paper,
		Subject:         req.Subject,
		Subjects:        req.Subjects,
		Medium:          sub.PlanInfo.Medium,
		NumberOfAnswers: req.NumberOfAnswers,
		ContainsPyq:     req.ContainsPyq,
		StudentComment:  req.StudentComment,
		Files:           req.Files,
	}

	created, err := s.repo.CreateEvaluationWithDebit(ctx, entry)
	if err != nil {
		return nil, err
	}
	s.log.Info("created evaluation request",
		slog.String("id", created.ID),
		slog.String("program", program),
		slog.Int("units", created.Units()))
	return created, nil
}

// Read возвращает заявку. Студент видит только свои заявки,
// ментор и администратор — любые.
func (s *LifecycleService) Read(ctx context.Context, id, callerUID, callerRole string) (*models.Evaluation, error) {
	entry, err := s.repo.GetEvaluation(ctx, id)
	if err != nil {
		return nil, err
	}
	if callerRole == models.RoleStudent && entry.UserUID != callerUID {
		return nil, models.ErrForbidden
	}
	return entry, nil
}

// List возвращает заявки с учётом роли: студент — только свои,
// ментор и администратор — по переданному фильтру.
func (s *LifecycleService) List(ctx context.Context, callerUID, callerRole string, filter models.EvaluationFilter) ([]*models.Evaluation, error) {
	if callerRole == models.RoleStudent {
		filter.UserUID = callerUID
	}
	return s.repo.ListEvaluations(ctx, filter)
}

// AssignToSelf закрепляет ожидающую заявку за ментором. При гонке двух
// менторов проигравший получает ErrConflict.
func (s *LifecycleService) AssignToSelf(ctx context.Context, id, mentorUID string) (*models.Evaluation, error) {
	count, err := s.repo.AssignEvaluation(ctx, id, mentorUID)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		if _, err := s.repo.GetEvaluation(ctx, id); err != nil {
			return nil, err
		}
		return nil, models.ErrConflict
	}
	s.log.Info("evaluation assigned", slog.String("id", id), slog.String("mentor", mentorUID))
	return s.repo.GetEvaluation(ctx, id)
}

// SubmitResult завершает проверку: требует и комментарии, и файл с разбором,
// после чего переводит заявку в Evaluated. Сдать результат может только
// закреплённый ментор; повторная сдача по проверенной заявке перезаписывает
// результат.
func (s *LifecycleService) SubmitResult(ctx context.Context, id, mentorUID, evaluationURL, comments string) (*models.Evaluation, error) {
	if evaluationURL == "" || comments == "" {
		return nil, models.ErrMissingEvaluationInput
	}
	count, err := s.repo.SubmitEvaluationResult(ctx, id, mentorUID, evaluationURL, comments)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		entry, err := s.repo.GetEvaluation(ctx, id)
		if err != nil {
			return nil, err
		}
		if (entry.Status == models.StatusAssigned || entry.Status == models.StatusEvaluated) &&
			entry.MentorAssigned != mentorUID {
			return nil, models.ErrForbidden
		}
		return nil, models.ErrConflict
	}
	s.log.Info("evaluation completed", slog.String("id", id), slog.String("mentor", mentorUID))
	return s.repo.GetEvaluation(ctx, id)
}

// Reject отклоняет заявку с обязательной причиной. Ментор может отклонить
// ожидающую или свою закреплённую заявку, администратор — любую нетерминальную.
func (s *LifecycleService) Reject(ctx context.Context, id, callerUID, callerRole, reason string) (*models.Evaluation, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, models.ErrMissingReason
	}
	entry, err := s.repo.GetEvaluation(ctx, id)
	if err != nil {
		return nil, err
	}
	if callerRole == models.RoleMentor &&
		entry.Status == models.StatusAssigned && entry.MentorAssigned != callerUID {
		return nil, models.ErrForbidden
	}
	count, err := s.repo.RejectEvaluation(ctx, id, reason)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, models.ErrConflict
	}
	s.log.Info("evaluation rejected", slog.String("id", id), slog.String("reason", reason))
	return s.repo.GetEvaluation(ctx, id)
}

// SubmitReview сохраняет отзыв студента о проверенной заявке.
// Повторный отзыв молча игнорируется: побеждает первый.
func (s *LifecycleService) SubmitReview(ctx context.Context, id, userUID string, req models.DummyReview) error {
	review := models.Review{
		Rating:         req.Rating,
		Feedback:       req.Feedback,
		FeedbackImages: req.FeedbackImages,
	}
	count, err := s.repo.SetReview(ctx, id, userUID, review)
	if err != nil {
		return err
	}
	if count == 0 {
		entry, err := s.repo.GetEvaluation(ctx, id)
		if err != nil {
			return err
		}
		if entry.UserUID != userUID {
			return models.ErrForbidden
		}
		if entry.Status != models.StatusEvaluated {
			return models.ErrConflict
		}
		// Отзыв уже есть, повтор не ошибка.
		return nil
	}
	return nil
}

// TimeLeft возвращает остаток SLA-окна заявки на момент now.
// Отрицательное значение означает просрочку.
func (s *LifecycleService) TimeLeft(entry *models.Evaluation, now time.Time) time.Duration {
	hours := s.sla.TestHours
	if entry.Program == models.ProgramDaily {
		hours = s.sla.DailyHours
	}
	deadline := entry.CreatedAt.Add(time.Duration(hours) * time.Hour)
	return deadline.Sub(now)
}

// validateFiles проверяет набор вложений по правилам программы:
// daily — несколько изображений либо ровно один PDF, без смешивания;
// test — ровно один PDF.
func validateFiles(program string, files []models.FileRef) error {
	if len(files) == 0 {
		return fmt.Errorf("%w: no files", models.ErrInvalidAttachment)
	}

	var images, pdfs, other int
	for _, f := range files {
		switch {
		case strings.HasPrefix(f.Type, "image/"):
			images++
		case f.Type == "application/pdf":
			pdfs++
		default:
			other++
		}
	}
	if other > 0 {
		return fmt.Errorf("%w: unsupported file type", models.ErrInvalidAttachment)
	}

	if program == models.ProgramTest {
		if pdfs != 1 || images != 0 {
			return fmt.Errorf("%w: test submission requires exactly one pdf", models.ErrInvalidAttachment)
		}
		return nil
	}

	// dailyEvaluation
	if pdfs > 1 || (pdfs == 1 && images > 0) {
		return fmt.Errorf("%w: images or a single pdf, not both", models.ErrInvalidAttachment)
	}
	return nil
}
