package models

import "time"

// Роли пользователей. Роль хранится явным полем записи и попадает в JWT,
// вместо сверки с указателем админа в конфиге и custom claim, как раньше.
const (
	RoleStudent = "student"
	RoleMentor  = "mentor"
	RoleAdmin   = "admin"
)

// User представляет зарегистрированного пользователя системы.
type User struct {
	UID          string    // Уникальный идентификатор пользователя
	Name         string    // Имя (может быть пустым у нового профиля)
	Email        string    // Электронная почта
	Phone        string    // Телефон
	AvatarURL    string    // Ссылка на аватар
	AuthMethod   string    // Способ входа: phone, password, google
	PasswordHash string    // Хэш пароля (пустой при входе по телефону)
	Role         string    // Роль: student, mentor или admin
	CreatedAt    time.Time // Дата регистрации
}

// Entitlement — результат работы резолвера: роль и состояние абонемента
// пользователя по одной программе, выведенные из хранимых записей.
type Entitlement struct {
	Role                  string `json:"role"`
	ProfileComplete       bool   `json:"profile_complete"`
	HasActiveSubscription bool   `json:"has_active_subscription"`
	CreditsRemaining      int    `json:"credits_remaining"`
	Medium                string `json:"medium,omitempty"`
	TrialEligible         bool   `json:"trial_eligible"`
}
