// Package contact реализует HTTP-обработчик контактной формы и запроса
// звонка ментора. Обращение публикуется в очередь уведомлений, письмо
// администратору отправляет sender.
package contact

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/rasbandhu/evaluation-service/internal/http/response"
	"github.com/rasbandhu/evaluation-service/internal/lib/rabbitmq"
	"github.com/rasbandhu/evaluation-service/internal/lib/sl"
	"github.com/rasbandhu/evaluation-service/internal/models"
)

// Publisher публикует сообщение в очередь уведомлений по ключу маршрутизации.
type Publisher func(routingKey string, message any) error

// Handler обрабатывает обращения контактной формы.
type Handler struct {
	log      *slog.Logger
	publish  Publisher
	validate *validator.Validate
}

// New создает новый Handler с переданными логгером и публикатором.
func New(log *slog.Logger, publish Publisher) *Handler {
	return &Handler{
		log:      log,
		publish:  publish,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Отправить обращение
// @Description Принимает сообщение контактной формы или запрос звонка ментора
// @Tags Contact
// @Accept  json
// @Produce  json
// @Param request body models.ContactMessage true "Обращение"
// @Success 200 {object} map[string]any "Обращение принято"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /contact [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.contact"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.ContactMessage
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	if err := h.publish(rabbitmq.KeyContact, req); err != nil {
		log.Error("failed to publish contact message", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not accept message"))
		return
	}

	log.Info("contact message accepted", slog.String("kind", req.Kind), slog.String("email", req.Email))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"accepted": true,
	}))
}
