package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rasbandhu/evaluation-service/internal/models"
)

const evaluationColumns = `id, user_uid, program, paper, subject, subjects, medium,
			      number_of_answers, contains_pyq, student_comment, status, files, created_at,
			      mentor_assigned, mentor_comments, mentor_evaluation_url, assigned_at,
			      evaluated_at, reject_reason, rejected_at, review`

// CreateEvaluationWithDebit в одной транзакции списывает кредиты с
// абонемента и создаёт заявку со статусом Pending. Условный UPDATE
// credits_remaining >= units гарантирует, что при параллельных заявках
// остаток никогда не уходит в минус: проигравшая транзакция не находит
// строку и заявка не создаётся.
func (s *Storage) CreateEvaluationWithDebit(ctx context.Context, entry models.Evaluation) (*models.Evaluation, error) {
	const op = "storage.CreateEvaluationWithDebit"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	files, err := json.Marshal(entry.Files)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	subjects, err := json.Marshal(entry.Subjects)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	units := entry.Units()

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	debit := `UPDATE subscriptions
			  SET credits_remaining = credits_remaining - $1
			  WHERE user_uid = $2 AND program = $3
			    AND expiry > now()
			    AND credits_remaining >= $1`
	result, err := tx.ExecContext(ctx, debit, units, entry.UserUID, entry.Program)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 0 {
		// Различаем отсутствие активного абонемента и нехватку кредитов.
		var active bool
		check := `SELECT EXISTS (
				  SELECT 1 FROM subscriptions
				  WHERE user_uid = $1 AND program = $2 AND expiry > now())`
		if err := tx.QueryRowContext(ctx, check, entry.UserUID, entry.Program).Scan(&active); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if !active {
			return nil, fmt.Errorf("%s: %w", op, models.ErrNoActiveSubscription)
		}
		return nil, fmt.Errorf("%s: %w", op, models.ErrInsufficientCredits)
	}

	insert := `INSERT INTO evaluations (user_uid, program, paper, subject, subjects, medium,
			      number_of_answers, contains_pyq, student_comment, status, files)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			  RETURNING ` + evaluationColumns
	created, err := scanEvaluation(tx.QueryRowContext(ctx, insert,
		entry.UserUID, entry.Program, entry.Paper, entry.Subject,
		subjects, entry.Medium, entry.NumberOfAnswers,
		entry.ContainsPyq, entry.StudentComment, models.StatusPending, files))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return created, nil
}

// GetEvaluation возвращает заявку по ID.
func (s *Storage) GetEvaluation(ctx context.Context, id string) (*models.Evaluation, error) {
	const op = "storage.GetEvaluation"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	row := s.DB.QueryRowContext(ctx, `SELECT `+evaluationColumns+` FROM evaluations WHERE id = $1`, id)
	entry, err := scanEvaluation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return entry, nil
}

// ListEvaluations возвращает заявки по фильтру, новые первыми.
func (s *Storage) ListEvaluations(ctx context.Context, filter models.EvaluationFilter) ([]*models.Evaluation, error) {
	const op = "storage.ListEvaluations"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	conditions := []string{"1 = 1"}
	var args []any
	addCondition := func(column, value string) {
		if value != "" {
			args = append(args, value)
			conditions = append(conditions, column+" = $"+strconv.Itoa(len(args)))
		}
	}
	addCondition("user_uid", filter.UserUID)
	addCondition("program", filter.Program)
	addCondition("status", filter.Status)
	addCondition("mentor_assigned", filter.MentorAssigned)
	if !filter.CreatedAfter.IsZero() {
		args = append(args, filter.CreatedAfter)
		conditions = append(conditions, "created_at >= $"+strconv.Itoa(len(args)))
	}

	query := `SELECT ` + evaluationColumns + `
			  FROM evaluations
			  WHERE ` + strings.Join(conditions, " AND ") + `
			  ORDER BY created_at DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += " LIMIT $" + strconv.Itoa(len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += " OFFSET $" + strconv.Itoa(len(args))
	}

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Evaluation
	for rows.Next() {
		entry, err := scanEvaluation(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// AssignEvaluation переводит заявку Pending -> Assigned и закрепляет её
// за ментором. Условие status = 'Pending' разрешает гонку двух менторов:
// побеждает первый, второму возвращается 0 строк.
func (s *Storage) AssignEvaluation(ctx context.Context, id, mentorUID string) (int, error) {
	const op = "storage.AssignEvaluation"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE evaluations
			  SET status = $1, mentor_assigned = $2, assigned_at = now()
			  WHERE id = $3 AND status = $4`
	result, err := s.DB.ExecContext(ctx, query, models.StatusAssigned, mentorUID, id, models.StatusPending)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// SubmitEvaluationResult переводит заявку Assigned -> Evaluated, сохраняя
// файл проверки и комментарии ментора. Повторная сдача по уже проверенной
// заявке разрешена тому же ментору и перезаписывает результат.
func (s *Storage) SubmitEvaluationResult(ctx context.Context, id, mentorUID, evaluationURL, comments string) (int, error) {
	const op = "storage.SubmitEvaluationResult"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE evaluations
			  SET status = $1, mentor_evaluation_url = $2, mentor_comments = $3, evaluated_at = now()
			  WHERE id = $4 AND status IN ($5, $6) AND mentor_assigned = $7`
	result, err := s.DB.ExecContext(ctx, query,
		models.StatusEvaluated, evaluationURL, comments, id,
		models.StatusAssigned, models.StatusEvaluated, mentorUID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// RejectEvaluation переводит заявку из Pending или Assigned в Rejected
// с указанием причины.
func (s *Storage) RejectEvaluation(ctx context.Context, id, reason string) (int, error) {
	const op = "storage.RejectEvaluation"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE evaluations
			  SET status = $1, reject_reason = $2, rejected_at = now()
			  WHERE id = $3 AND status IN ($4, $5)`
	result, err := s.DB.ExecContext(ctx, query,
		models.StatusRejected, reason, id, models.StatusPending, models.StatusAssigned)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// SetReview сохраняет отзыв студента о проверенной заявке. Условие
// review IS NULL реализует правило "первый отзыв побеждает": повторная
// запись не находит строку.
func (s *Storage) SetReview(ctx context.Context, id, userUID string, review models.Review) (int, error) {
	const op = "storage.SetReview"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	payload, err := json.Marshal(review)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	query := `UPDATE evaluations
			  SET review = $1
			  WHERE id = $2 AND user_uid = $3 AND status = $4 AND review IS NULL`
	result, err := s.DB.ExecContext(ctx, query, payload, id, userUID, models.StatusEvaluated)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// ListOverdueEvaluations возвращает непроверенные заявки, у которых
// истёк срок проверки: dailyHours часов для daily и testHours для test.
func (s *Storage) ListOverdueEvaluations(ctx context.Context, dailyHours, testHours int) ([]*models.Evaluation, error) {
	const op = "storage.ListOverdueEvaluations"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + evaluationColumns + `
			  FROM evaluations
			  WHERE status IN ($1, $2)
			    AND created_at + make_interval(hours =>
			        CASE WHEN program = 'dailyEvaluation' THEN $3 ELSE $4 END) < now()
			  ORDER BY created_at`
	rows, err := s.DB.QueryContext(ctx, query,
		models.StatusPending, models.StatusAssigned, dailyHours, testHours)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Evaluation
	for rows.Next() {
		entry, err := scanEvaluation(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

func scanEvaluation(row rowScanner) (*models.Evaluation, error) {
	var entry models.Evaluation
	var studentComment, mentorAssigned, mentorComments sql.NullString
	var mentorEvaluationURL, rejectReason, subject sql.NullString
	var assignedAt, evaluatedAt, rejectedAt sql.NullTime
	var files, subjects, review []byte

	if err := row.Scan(&entry.ID, &entry.UserUID, &entry.Program, &entry.Paper,
		&subject, &subjects, &entry.Medium, &entry.NumberOfAnswers, &entry.ContainsPyq,
		&studentComment, &entry.Status, &files, &entry.CreatedAt,
		&mentorAssigned, &mentorComments, &mentorEvaluationURL, &assignedAt,
		&evaluatedAt, &rejectReason, &rejectedAt, &review); err != nil {
		return nil, err
	}

	entry.Subject = subject.String
	if len(subjects) > 0 {
		if err := json.Unmarshal(subjects, &entry.Subjects); err != nil {
			return nil, err
		}
	}
	entry.StudentComment = studentComment.String
	entry.MentorAssigned = mentorAssigned.String
	entry.MentorComments = mentorComments.String
	entry.MentorEvaluationURL = mentorEvaluationURL.String
	entry.RejectReason = rejectReason.String
	if assignedAt.Valid {
		entry.AssignedAt = &assignedAt.Time
	}
	if evaluatedAt.Valid {
		entry.EvaluatedAt = &evaluatedAt.Time
	}
	if rejectedAt.Valid {
		entry.RejectedAt = &rejectedAt.Time
	}
	if len(files) > 0 {
		if err := json.Unmarshal(files, &entry.Files); err != nil {
			return nil, err
		}
	}
	if len(review) > 0 {
		var r models.Review
		if err := json.Unmarshal(review, &r); err != nil {
			return nil, err
		}
		entry.Review = &r
	}
	return &entry, nil
}
