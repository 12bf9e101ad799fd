package models

import "time"

// PlanInfo — снимок витринных полей плана, сделанный в момент покупки.
// Денормализован намеренно: правка плана администратором не меняет условий
// уже купленного абонемента.
type PlanInfo struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	DurationDays    int      `json:"duration_days"`
	Price           int      `json:"price"`
	DiscountedPrice int      `json:"discounted_price,omitempty"`
	Features        []string `json:"features"`
	Medium          string   `json:"medium"`
	CreditsPerDay   int      `json:"credits_per_day,omitempty"`
	TotalCredits    int      `json:"total_credits,omitempty"`
}

// SnapshotOf строит снимок плана для сохранения в абонементе.
func SnapshotOf(p Plan) PlanInfo {
	return PlanInfo{
		ID:              p.ID,
		Name:            p.Name,
		DurationDays:    p.DurationDays,
		Price:           p.Price,
		DiscountedPrice: p.DiscountedPrice,
		Features:        p.Features,
		Medium:          p.Medium,
		CreditsPerDay:   p.CreditsPerDay,
		TotalCredits:    p.TotalCredits,
	}
}

// Subscription — абонемент пользователя по одной программе (у пары
// пользователь+программа не больше одной записи). Записи никогда не удаляются:
// существование записи означает, что абонемент когда-либо был, и закрывает
// право на пробный план.
//
// Инварианты: CreditsRemaining >= 0 всегда; "активен" определяется только как
// now < Expiry и не зависит от остатка кредитов.
type Subscription struct {
	ID               int
	UserUID          string
	Program          string
	PlanID           string
	PlanInfo         PlanInfo
	CreditsRemaining int
	Expiry           time.Time
	LastCreditReset  *time.Time // Только для dailyEvaluation: день последнего восстановления кредитов
	CreatedAt        time.Time
}

// IsActive сообщает, действует ли абонемент в момент now.
func (s *Subscription) IsActive(now time.Time) bool {
	return s != nil && now.Before(s.Expiry)
}
