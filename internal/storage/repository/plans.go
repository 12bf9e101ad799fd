package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rasbandhu/evaluation-service/internal/models"
)

const planColumns = `id, name, duration_days, price, discounted_price, features,
			      is_visible, open_for_admission, seats_left, medium, program, is_trial,
			      credits_per_day, total_credits, admissions, revenue, created_at`

// CreatePlan вставляет новый тарифный план и возвращает его ID.
func (s *Storage) CreatePlan(ctx context.Context, plan models.Plan) (string, error) {
	const op = "storage.CreatePlan"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	features, err := json.Marshal(plan.Features)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	query := `INSERT INTO plans (name, duration_days, price, discounted_price, features,
			      is_visible, open_for_admission, seats_left, medium, program, is_trial,
			      credits_per_day, total_credits)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			  RETURNING id`
	var newID string
	err = s.DB.QueryRowContext(ctx, query,
		plan.Name, plan.DurationDays, plan.Price, plan.DiscountedPrice, features,
		plan.IsVisible, plan.OpenForAdmission, plan.SeatsLeft, plan.Medium, plan.Program,
		plan.IsTrial, plan.CreditsPerDay, plan.TotalCredits).Scan(&newID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// UpdatePlan обновляет план по ID и возвращает количество изменённых строк.
func (s *Storage) UpdatePlan(ctx context.Context, plan models.Plan, id string) (int, error) {
	const op = "storage.UpdatePlan"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	features, err := json.Marshal(plan.Features)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	query := `UPDATE plans
			  SET name = $1, duration_days = $2, price = $3, discounted_price = $4,
			      features = $5, is_visible = $6, open_for_admission = $7, seats_left = $8,
			      medium = $9, program = $10, is_trial = $11, credits_per_day = $12,
			      total_credits = $13
			  WHERE id = $14`
	result, err := s.DB.ExecContext(ctx, query,
		plan.Name, plan.DurationDays, plan.Price, plan.DiscountedPrice, features,
		plan.IsVisible, plan.OpenForAdmission, plan.SeatsLeft, plan.Medium, plan.Program,
		plan.IsTrial, plan.CreditsPerDay, plan.TotalCredits, id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// GetPlan возвращает план по его ID.
func (s *Storage) GetPlan(ctx context.Context, id string) (*models.Plan, error) {
	const op = "storage.GetPlan"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	row := s.DB.QueryRowContext(ctx, `SELECT `+planColumns+` FROM plans WHERE id = $1`, id)
	plan, err := scanPlan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return plan, nil
}

// ListPlans возвращает планы программы; medium и onlyVisible опциональны.
// Сортировка по цене по возрастанию, как на витрине.
func (s *Storage) ListPlans(ctx context.Context, program, medium string, onlyVisible bool) ([]*models.Plan, error) {
	const op = "storage.ListPlans"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + planColumns + `
			  FROM plans
			  WHERE program = $1
			    AND ($2 = '' OR medium = $2)
			    AND (NOT $3 OR is_visible)
			  ORDER BY price`
	rows, err := s.DB.QueryContext(ctx, query, program, medium, onlyVisible)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Plan
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, plan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// dbtx покрывает *sql.DB и *sql.Tx: запросы, которые должны уметь
// выполняться и напрямую, и внутри транзакции.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func scanPlan(row rowScanner) (*models.Plan, error) {
	var plan models.Plan
	var features []byte
	if err := row.Scan(&plan.ID, &plan.Name, &plan.DurationDays, &plan.Price,
		&plan.DiscountedPrice, &features, &plan.IsVisible, &plan.OpenForAdmission,
		&plan.SeatsLeft, &plan.Medium, &plan.Program, &plan.IsTrial,
		&plan.CreditsPerDay, &plan.TotalCredits, &plan.Admissions, &plan.Revenue,
		&plan.CreatedAt); err != nil {
		return nil, err
	}
	if len(features) > 0 {
		if err := json.Unmarshal(features, &plan.Features); err != nil {
			return nil, err
		}
	}
	return &plan, nil
}
