// Package services содержит бизнес-логику покупки планов: создание
// платёжного ордера и идемпотентное подтверждение оплаты с начислением
// абонемента.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rasbandhu/evaluation-service/internal/models"
	"github.com/rasbandhu/evaluation-service/internal/paymentprovider"
)

// Repository определяет методы хранилища, нужные покупке.
type Repository interface {
	// GetPlan возвращает план по ID.
	GetPlan(ctx context.Context, id string) (*models.Plan, error)
	// CreatePayment сохраняет созданный ордер.
	CreatePayment(ctx context.Context, payment models.Payment) error
	// GetPayment возвращает платёж по ордеру.
	GetPayment(ctx context.Context, orderID string) (*models.Payment, error)
	// MarkPaymentStatus выполняет условный переход статуса платежа.
	MarkPaymentStatus(ctx context.Context, orderID, fromStatus, toStatus string) (int, error)
	// ConfirmPaymentAndGrant подтверждает платёж и начисляет план
	// одной транзакцией.
	ConfirmPaymentAndGrant(ctx context.Context, orderID string, plan models.Plan, revenue int) (*models.Subscription, error)
}

// PaymentGateway описывает контракт платёжного шлюза.
type PaymentGateway interface {
	CreateOrder(req paymentprovider.CreateOrderRequest) (*paymentprovider.CreateOrderResponse, error)
	VerifyPaymentSignature(orderID, paymentID, signature string) bool
	VerifyWebhookSignature(body []byte, signature string) bool
}

// CheckoutService реализует покупку планов через платёжный шлюз.
type CheckoutService struct {
	repo     Repository
	gateway  PaymentGateway
	currency string
	log      *slog.Logger
}

// NewCheckoutService создает новый экземпляр CheckoutService.
func NewCheckoutService(repo Repository, gateway PaymentGateway, currency string, log *slog.Logger) *CheckoutService {
	return &CheckoutService{
		repo:     repo,
		gateway:  gateway,
		currency: currency,
		log:      log,
	}
}

// CreateOrder создаёт платёжный ордер на покупку плана. Пробные планы
// через кассу не продаются, закрытые для набора и без мест — не покупаются.
func (s *CheckoutService) CreateOrder(ctx context.Context, userUID, planID string) (*models.Payment, error) {
	plan, err := s.repo.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if plan.IsTrial {
		return nil, fmt.Errorf("trial plan is not purchasable")
	}
	if !plan.OpenForAdmission {
		return nil, fmt.Errorf("plan is closed for admission")
	}
	if plan.SeatsLeft <= 0 {
		return nil, models.ErrSeatsExhausted
	}

	amount := plan.EffectivePrice()
	order, err := s.gateway.CreateOrder(paymentprovider.CreateOrderRequest{
		Amount:   amount * 100, // сумма в пайсах
		Currency: s.currency,
		Notes: map[string]string{
			"user_uid": userUID,
			"plan_id":  planID,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	payment := models.Payment{
		OrderID:  order.ID,
		UserUID:  userUID,
		PlanID:   planID,
		Program:  plan.Program,
		Amount:   amount,
		Currency: s.currency,
		Status:   models.PaymentCreated,
	}
	if err := s.repo.CreatePayment(ctx, payment); err != nil {
		return nil, err
	}
	s.log.Info("payment order created",
		slog.String("order", order.ID),
		slog.String("plan", planID),
		slog.Int("amount", amount))
	return &payment, nil
}

// ConfirmPayment подтверждает оплату после проверки подписи и начисляет
// абонемент. Условный переход created -> confirmed делает операцию
// идемпотентной: повторное уведомление не начисляет план второй раз.
func (s *CheckoutService) ConfirmPayment(ctx context.Context, orderID, paymentID, signature string) (*models.Subscription, error) {
	if !s.gateway.VerifyPaymentSignature(orderID, paymentID, signature) {
		return nil, errors.New("invalid payment signature")
	}
	return s.settle(ctx, orderID)
}

// ConfirmFromWebhook подтверждает оплату по событию вебхука. Подпись тела
// вебхука проверяется обработчиком до вызова, подписи отдельного платежа
// в этом канале нет.
func (s *CheckoutService) ConfirmFromWebhook(ctx context.Context, orderID string) (*models.Subscription, error) {
	return s.settle(ctx, orderID)
}

// settle доводит оплаченный ордер до конца: переход created -> confirmed
// и начисление абонемента выполняются одной транзакцией хранилища, поэтому
// сбой начисления оставляет платёж в created и повторное уведомление
// завершает покупку.
func (s *CheckoutService) settle(ctx context.Context, orderID string) (*models.Subscription, error) {
	payment, err := s.repo.GetPayment(ctx, orderID)
	if err != nil {
		return nil, err
	}
	plan, err := s.repo.GetPlan(ctx, payment.PlanID)
	if err != nil {
		return nil, err
	}

	sub, err := s.repo.ConfirmPaymentAndGrant(ctx, orderID, *plan, payment.Amount)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			// Уже подтверждён или провален, повтор не начисляет.
			s.log.Info("payment already settled", slog.String("order", orderID))
		}
		return nil, err
	}

	s.log.Info("payment confirmed",
		slog.String("order", orderID),
		slog.String("user", payment.UserUID),
		slog.String("plan", plan.ID))
	return sub, nil
}

// FailPayment помечает платёж проваленным после отказа шлюза.
func (s *CheckoutService) FailPayment(ctx context.Context, orderID string) error {
	_, err := s.repo.MarkPaymentStatus(ctx, orderID, models.PaymentCreated, models.PaymentFailed)
	return err
}

// VerifyWebhook проверяет подпись тела вебхука.
func (s *CheckoutService) VerifyWebhook(body []byte, signature string) bool {
	return s.gateway.VerifyWebhookSignature(body, signature)
}
