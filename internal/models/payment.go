package models

import "time"

// Статусы платёжного поручения.
const (
	PaymentCreated   = "created"
	PaymentConfirmed = "confirmed"
	PaymentFailed    = "failed"
)

// Payment — поручение на оплату плана, созданное перед переходом в кассу.
// Абонемент выдаётся только после подтверждения подписи шлюза; запись
// делает подтверждение идемпотентным по order_id.
type Payment struct {
	OrderID   string
	UserUID   string
	PlanID    string
	Program   string
	Amount    int // В минимальных единицах валюты
	Currency  string
	Status    string
	CreatedAt time.Time
}
