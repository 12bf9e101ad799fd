package models

import "time"

// ExpiryNotice — сообщение для письма о скором окончании абонемента.
type ExpiryNotice struct {
	Email   string    `json:"email"`
	Name    string    `json:"name"`
	Program string    `json:"program"`
	Expiry  time.Time `json:"expiry"`
}

// SlaNotice — сообщение о заявке, висящей без проверки дольше SLA-окна.
type SlaNotice struct {
	EvaluationID string    `json:"evaluation_id"`
	Program      string    `json:"program"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	HoursOverdue int       `json:"hours_overdue"`
}

// ContactMessage — обращение через контактную форму или запрос звонка ментора.
// Отправляется администратору письмом, в жизненном цикле заявок не участвует.
type ContactMessage struct {
	Kind    string `json:"kind" validate:"required,oneof=contact mentorship_call"`
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone,omitempty"`
	Message string `json:"message" validate:"required"`
}
