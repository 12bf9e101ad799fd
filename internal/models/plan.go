package models

import "time"

// Программы проверки. Ежедневные ответы и пробные работы тарифицируются
// и учитываются независимо друг от друга.
const (
	ProgramDaily = "dailyEvaluation"
	ProgramTest  = "testEvaluation"
)

// Plan — тарифный план каталога. Создаётся администратором, читается часто,
// меняется редко. Инварианты: DiscountedPrice <= Price при активной скидке,
// SeatsLeft >= 0, единица тарификации соответствует программе.
type Plan struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	DurationDays     int       `json:"duration_days"`
	Price            int       `json:"price"`
	DiscountedPrice  int       `json:"discounted_price,omitempty"`
	Features         []string  `json:"features"`
	IsVisible        bool      `json:"is_visible"`
	OpenForAdmission bool      `json:"open_for_admission"`
	SeatsLeft        int       `json:"seats_left"`
	Medium           string    `json:"medium"`
	Program          string    `json:"program"`
	IsTrial          bool      `json:"is_trial"`
	CreditsPerDay    int       `json:"credits_per_day,omitempty"` // Для dailyEvaluation
	TotalCredits     int       `json:"total_credits,omitempty"`   // Для testEvaluation
	Admissions       int       `json:"admissions"`
	Revenue          int       `json:"revenue"`
	CreatedAt        time.Time `json:"created_at"`
}

// EffectivePrice возвращает цену к оплате с учётом скидки.
func (p Plan) EffectivePrice() int {
	if p.DiscountedPrice > 0 && p.DiscountedPrice < p.Price {
		return p.DiscountedPrice
	}
	return p.Price
}

// CreditUnit возвращает единицу начисления кредитов плана:
// дневной лимит для daily, общий запас для test.
func (p Plan) CreditUnit() int {
	if p.Program == ProgramDaily {
		return p.CreditsPerDay
	}
	return p.TotalCredits
}

// DummyPlan используется для приёма данных плана из JSON-запроса администратора
// до их валидации и преобразования в Plan.
type DummyPlan struct {
	Name             string   `json:"name" validate:"required"`
	DurationDays     int      `json:"duration_days" validate:"required,gt=0"`
	Price            int      `json:"price" validate:"required,gt=0"`
	DiscountedPrice  int      `json:"discounted_price" validate:"omitempty,gt=0"`
	Features         []string `json:"features"`
	IsVisible        bool     `json:"is_visible"`
	OpenForAdmission bool     `json:"open_for_admission"`
	SeatsLeft        int      `json:"seats_left" validate:"omitempty,gte=0"`
	Medium           string   `json:"medium" validate:"required"`
	Program          string   `json:"program" validate:"required,oneof=dailyEvaluation testEvaluation"`
	IsTrial          bool     `json:"is_trial"`
	CreditsPerDay    int      `json:"credits_per_day" validate:"omitempty,gt=0"`
	TotalCredits     int      `json:"total_credits" validate:"omitempty,gt=0"`
}
