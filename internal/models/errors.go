// Package models содержит доменные структуры платформы проверки ответов:
// заявки на проверку, абонементы с кредитами, тарифные планы и пользователей,
// а также типизированные доменные ошибки, которые сервисы возвращают наружу.
package models

import "errors"

// Типизированные доменные ошибки. Сервисы возвращают их (обёрнутыми через %w),
// обработчики сопоставляют через errors.Is и переводят в HTTP-ответ.
var (
	// ErrNoActiveSubscription — у пользователя нет действующего абонемента программы.
	ErrNoActiveSubscription = errors.New("no active subscription")
	// ErrInsufficientCredits — списание привело бы к отрицательному балансу кредитов.
	ErrInsufficientCredits = errors.New("insufficient credits")
	// ErrNotTrialEligible — пробный план уже использован или абонемент существовал ранее.
	ErrNotTrialEligible = errors.New("not eligible for trial")
	// ErrInvalidAttachment — набор файлов нарушает правило программы
	// (daily: изображения либо один PDF, test: ровно один PDF).
	ErrInvalidAttachment = errors.New("invalid attachment set")
	// ErrMissingField — не заполнено обязательное поле заявки.
	ErrMissingField = errors.New("missing required field")
	// ErrMissingEvaluationInput — у проверки отсутствует комментарий или файл с разбором.
	ErrMissingEvaluationInput = errors.New("missing evaluation comments or file")
	// ErrMissingReason — отклонение без указания причины.
	ErrMissingReason = errors.New("missing reject reason")
	// ErrConflict — условный переход статуса не прошёл: заявку уже забрал другой
	// проверяющий либо она уже в терминальном статусе.
	ErrConflict = errors.New("status transition conflict")
	// ErrNotFound — запись не найдена.
	ErrNotFound = errors.New("not found")
	// ErrForbidden — действие запрещено для роли или не владельцу записи.
	ErrForbidden = errors.New("forbidden")
	// ErrSeatsExhausted — в плане не осталось мест для зачисления.
	ErrSeatsExhausted = errors.New("no seats left")
)
