package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rasbandhu/evaluation-service/internal/models"
)

// GetSubscription возвращает абонемент пары пользователь+программа.
func (s *Storage) GetSubscription(ctx context.Context, userUID, program string) (*models.Subscription, error) {
	const op = "storage.GetSubscription"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, program, plan_id, plan_info, credits_remaining,
			      expiry, last_credit_reset, created_at
			  FROM subscriptions
			  WHERE user_uid = $1 AND program = $2`
	sub, err := scanSubscription(s.DB.QueryRowContext(ctx, query, userUID, program))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// HasEverSubscribed сообщает, была ли у пользователя когда-либо запись
// абонемента по программе. Записи не удаляются, поэтому наличие строки
// навсегда закрывает право на пробный план.
func (s *Storage) HasEverSubscribed(ctx context.Context, userUID, program string) (bool, error) {
	const op = "storage.HasEverSubscribed"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM subscriptions WHERE user_uid = $1 AND program = $2)`
	if err := s.DB.QueryRowContext(ctx, query, userUID, program).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

// UpsertEntitlement начисляет купленный план одной атомарной операцией.
// Для dailyEvaluation кредиты сбрасываются в дневной лимит нового плана,
// для testEvaluation остаток активного абонемента суммируется с покупкой.
// Срок действия активного абонемента продлевается от текущего expiry,
// истёкшего — отсчитывается заново от now().
func (s *Storage) UpsertEntitlement(ctx context.Context, userUID string, plan models.Plan) (*models.Subscription, error) {
	const op = "storage.UpsertEntitlement"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	sub, err := upsertEntitlement(ctx, s.DB, userUID, plan)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// upsertEntitlement выполняет начисление на переданном соединении либо
// внутри открытой транзакции.
func upsertEntitlement(ctx context.Context, q dbtx, userUID string, plan models.Plan) (*models.Subscription, error) {
	planInfo, err := json.Marshal(models.SnapshotOf(plan))
	if err != nil {
		return nil, err
	}
	sumCredits := plan.Program == models.ProgramTest

	query := `INSERT INTO subscriptions (user_uid, program, plan_id, plan_info, credits_remaining, expiry, last_credit_reset)
			  VALUES ($1, $2, $3, $4, $5,
			          now() + make_interval(days => $6),
			          CASE WHEN $2 = 'dailyEvaluation' THEN CURRENT_DATE END)
			  ON CONFLICT (user_uid, program) DO UPDATE SET
			      plan_id   = EXCLUDED.plan_id,
			      plan_info = EXCLUDED.plan_info,
			      credits_remaining = CASE
			          WHEN $7 AND subscriptions.expiry > now()
			              THEN subscriptions.credits_remaining + $5
			          ELSE $5
			      END,
			      expiry = CASE
			          WHEN subscriptions.expiry > now()
			              THEN subscriptions.expiry + make_interval(days => $6)
			          ELSE now() + make_interval(days => $6)
			      END,
			      last_credit_reset = CASE WHEN $2 = 'dailyEvaluation' THEN CURRENT_DATE END
			  RETURNING id, user_uid, program, plan_id, plan_info, credits_remaining,
			      expiry, last_credit_reset, created_at`
	return scanSubscription(q.QueryRowContext(ctx, query,
		userUID, plan.Program, plan.ID, planInfo, plan.CreditUnit(), plan.DurationDays, sumCredits))
}

// ResetDailyCredits восстанавливает дневные кредиты всех активных абонементов
// dailyEvaluation, у которых сегодня восстановления ещё не было. Повторный
// запуск в тот же день не делает ничего. Возвращает UID затронутых
// пользователей.
func (s *Storage) ResetDailyCredits(ctx context.Context) ([]string, error) {
	const op = "storage.ResetDailyCredits"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions
			  SET credits_remaining = COALESCE((plan_info->>'credits_per_day')::int, 0),
			      last_credit_reset = CURRENT_DATE
			  WHERE program = 'dailyEvaluation'
			    AND expiry > now()
			    AND (last_credit_reset IS NULL OR last_credit_reset < CURRENT_DATE)
			  RETURNING user_uid`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var uids []string
	for rows.Next() {
		var uid string
		if err := rows.Scan(&uid); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		uids = append(uids, uid)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return uids, nil
}

// ResetDailyCreditsForUser восстанавливает дневные кредиты одного
// пользователя по тем же правилам, что и общий проход. Используется
// резолвером прав как ленивая страховка на случай, если планировщик
// ещё не отработал. Возвращает true, если восстановление произошло.
func (s *Storage) ResetDailyCreditsForUser(ctx context.Context, userUID string) (bool, error) {
	const op = "storage.ResetDailyCreditsForUser"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions
			  SET credits_remaining = COALESCE((plan_info->>'credits_per_day')::int, 0),
			      last_credit_reset = CURRENT_DATE
			  WHERE user_uid = $1
			    AND program = 'dailyEvaluation'
			    AND expiry > now()
			    AND (last_credit_reset IS NULL OR last_credit_reset < CURRENT_DATE)`
	result, err := s.DB.ExecContext(ctx, query, userUID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return rowsAffected > 0, nil
}

// FindSubscriptionsExpiringTomorrow возвращает абонементы, срок действия
// которых истекает в ближайшие сутки. Используется планировщиком для
// напоминаний о продлении.
func (s *Storage) FindSubscriptionsExpiringTomorrow(ctx context.Context) ([]*models.Subscription, error) {
	const op = "storage.FindSubscriptionsExpiringTomorrow"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, program, plan_id, plan_info, credits_remaining,
			      expiry, last_credit_reset, created_at
			  FROM subscriptions
			  WHERE expiry > now() AND expiry <= now() + interval '1 day'`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

func scanSubscription(row rowScanner) (*models.Subscription, error) {
	var sub models.Subscription
	var planInfo []byte
	var lastReset sql.NullTime
	if err := row.Scan(&sub.ID, &sub.UserUID, &sub.Program, &sub.PlanID, &planInfo,
		&sub.CreditsRemaining, &sub.Expiry, &lastReset, &sub.CreatedAt); err != nil {
		return nil, err
	}
	if len(planInfo) > 0 {
		if err := json.Unmarshal(planInfo, &sub.PlanInfo); err != nil {
			return nil, err
		}
	}
	if lastReset.Valid {
		sub.LastCreditReset = &lastReset.Time
	}
	return &sub, nil
}
