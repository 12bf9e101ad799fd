package models

import "time"

// Статусы заявки на проверку. Переходы монотонны:
// Pending -> Assigned -> Evaluated, Pending -> Rejected, Assigned -> Rejected.
// Evaluated и Rejected — терминальные, обратных переходов нет.
const (
	StatusPending   = "Pending"
	StatusAssigned  = "Assigned"
	StatusEvaluated = "Evaluated"
	StatusRejected  = "Rejected"
)

// FileRef описывает прикреплённый файл: имя, публичный URL и MIME-тип.
type FileRef struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Type string `json:"type"`
}

// Review — отзыв студента о проверке. Устанавливается не более одного раза,
// повторные попытки игнорируются ("первый отзыв побеждает").
type Review struct {
	Rating         int      `json:"rating"`
	Feedback       string   `json:"feedback"`
	FeedbackImages []string `json:"feedback_images,omitempty"`
}

// Evaluation — заявка студента на проверку ответа. Обе программы используют
// одну структуру: у daily заполняется NumberOfAnswers и допускается несколько
// изображений либо один PDF, у test — список предметов и ровно один PDF.
// Записи не удаляются и хранятся как история.
type Evaluation struct {
	ID              string
	UserUID         string
	Program         string
	Paper           string
	Subject         string
	Subjects        []string
	Medium          string
	NumberOfAnswers int
	ContainsPyq     bool
	StudentComment  string
	Status          string
	Files           []FileRef
	CreatedAt       time.Time

	// Поля проверяющего, заполняются по мере прохождения жизненного цикла.
	MentorAssigned      string
	MentorComments      string
	MentorEvaluationURL string
	AssignedAt          *time.Time
	EvaluatedAt         *time.Time

	// Поля отклонения.
	RejectReason string
	RejectedAt   *time.Time

	Review *Review
}

// Units возвращает количество кредитов, которое списывает заявка:
// daily — по числу ответов, test — фиксированно один за работу.
func (e Evaluation) Units() int {
	if e.Program == ProgramDaily {
		return e.NumberOfAnswers
	}
	return 1
}

// DummyEvaluation используется для приёма заявки из JSON-запроса
// до валидации и преобразования в Evaluation.
type DummyEvaluation struct {
	Paper           string    `json:"paper" validate:"required"`
	Subject         string    `json:"subject,omitempty"`
	Subjects        []string  `json:"subjects,omitempty"`
	NumberOfAnswers int       `json:"number_of_answers" validate:"omitempty,gt=0"`
	ContainsPyq     bool      `json:"contains_pyq"`
	StudentComment  string    `json:"student_comment,omitempty"`
	Files           []FileRef `json:"files" validate:"required,min=1"`
}

// DummyReview используется для приёма отзыва студента из JSON-запроса.
type DummyReview struct {
	Rating         int      `json:"rating" validate:"required,gte=1,lte=5"`
	Feedback       string   `json:"feedback,omitempty"`
	FeedbackImages []string `json:"feedback_images,omitempty"`
}
