package models

import "time"

// EvaluationFilter — параметры выборки заявок для слоя доступа к данным.
// Пустые поля означают отсутствие фильтра. Сортировка всегда по дате
// создания по убыванию, пагинация — limit/offset.
type EvaluationFilter struct {
	UserUID        string
	Program        string
	Status         string
	MentorAssigned string
	CreatedAfter   *time.Time
	Limit          int
	Offset         int
}
