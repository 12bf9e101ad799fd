package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rasbandhu/evaluation-service/internal/models"
)

// CreatePayment сохраняет созданный платёжный ордер.
func (s *Storage) CreatePayment(ctx context.Context, payment models.Payment) error {
	const op = "storage.CreatePayment"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO payments (order_id, user_uid, plan_id, program, amount, currency, status)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := s.DB.ExecContext(ctx, query,
		payment.OrderID, payment.UserUID, payment.PlanID, payment.Program,
		payment.Amount, payment.Currency, payment.Status); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetPayment возвращает платёж по идентификатору ордера.
func (s *Storage) GetPayment(ctx context.Context, orderID string) (*models.Payment, error) {
	const op = "storage.GetPayment"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var p models.Payment
	query := `SELECT order_id, user_uid, plan_id, program, amount, currency, status, created_at
			  FROM payments WHERE order_id = $1`
	if err := s.DB.QueryRowContext(ctx, query, orderID).Scan(&p.OrderID, &p.UserUID,
		&p.PlanID, &p.Program, &p.Amount, &p.Currency, &p.Status, &p.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &p, nil
}

// ConfirmPaymentAndGrant подтверждает платёж и начисляет план одной
// транзакцией: условный переход created -> confirmed, начисление абонемента
// и списание места плана либо проходят вместе, либо откатываются вместе.
// Сбой начисления оставляет платёж в created, и повторный вебхук может
// довести покупку до конца. Уже подтверждённый платёж даёт ErrConflict.
func (s *Storage) ConfirmPaymentAndGrant(ctx context.Context, orderID string, plan models.Plan, revenue int) (*models.Subscription, error) {
	const op = "storage.ConfirmPaymentAndGrant"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var userUID string
	query := `UPDATE payments SET status = $1
			  WHERE order_id = $2 AND status = $3
			  RETURNING user_uid`
	err = tx.QueryRowContext(ctx, query,
		models.PaymentConfirmed, orderID, models.PaymentCreated).Scan(&userUID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrConflict)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sub, err := upsertEntitlement(ctx, tx, userUID, plan)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// Нехватка мест после уже принятой оплаты не блокирует начисление:
	// seats_left проверяется при создании ордера, здесь счётчики просто
	// не уходят ниже нуля.
	query = `UPDATE plans
			  SET seats_left = seats_left - 1, admissions = admissions + 1, revenue = revenue + $1
			  WHERE id = $2 AND seats_left > 0`
	if _, err := tx.ExecContext(ctx, query, revenue, plan.ID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// MarkPaymentStatus переводит платёж из статуса fromStatus в toStatus.
// Условный UPDATE делает подтверждение идемпотентным: повторный вебхук
// не находит строку в статусе created и начисление не дублируется.
func (s *Storage) MarkPaymentStatus(ctx context.Context, orderID, fromStatus, toStatus string) (int, error) {
	const op = "storage.MarkPaymentStatus"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE payments SET status = $1 WHERE order_id = $2 AND status = $3`
	result, err := s.DB.ExecContext(ctx, query, toStatus, orderID, fromStatus)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}
