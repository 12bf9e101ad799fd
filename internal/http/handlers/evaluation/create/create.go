// Package create реализует HTTP-обработчик подачи заявки на проверку.
//
// Handler принимает JSON-запрос с данными заявки, валидирует их, извлекает
// UID студента из контекста и вызывает бизнес-логику, которая атомарно
// списывает кредиты и сохраняет заявку со статусом Pending.
package create

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/rasbandhu/evaluation-service/internal/http/middlewarectx"
	"github.com/rasbandhu/evaluation-service/internal/http/response"
	"github.com/rasbandhu/evaluation-service/internal/lib/sl"
	"github.com/rasbandhu/evaluation-service/internal/models"
)

// Handler управляет HTTP-запросами подачи заявок на проверку.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики подачи заявки.
type Service interface {
	Create(ctx context.Context, userUID, program string, req models.DummyEvaluation) (*models.Evaluation, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Подать заявку на проверку
// @Description Списывает кредиты абонемента и создает заявку со статусом Pending
// @Tags Evaluations
// @Accept  json
// @Produce  json
// @Param program path string true "Программа: dailyEvaluation или testEvaluation"
// @Param request body models.DummyEvaluation true "Данные заявки"
// @Success 200 {object} map[string]any "Созданная заявка"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON или программа"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 402 {object} response.ErrorResponse "Нет абонемента или кредитов"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации или вложений"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Security BearerAuth
// @Router /programs/{program}/evaluations [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.evaluation.create"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	program := chi.URLParam(r, "program")
	if program != models.ProgramDaily && program != models.ProgramTest {
		log.Error("unknown program in url", slog.String("program", program))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("unknown program"))
		return
	}

	var req models.DummyEvaluation
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
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

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	entry, err := h.service.Create(r.Context(), userUID, program, req)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidAttachment), errors.Is(err, models.ErrMissingField):
			log.Error("invalid evaluation request", sl.Err(err))
			w.WriteHeader(http.StatusUnprocessableEntity)
			render.JSON(w, r, response.Error(err.Error()))
		case errors.Is(err, models.ErrNoActiveSubscription), errors.Is(err, models.ErrInsufficientCredits):
			log.Error("subscription does not cover request", sl.Err(err))
			w.WriteHeader(http.StatusPaymentRequired)
			render.JSON(w, r, response.Error(err.Error()))
		default:
			log.Error("failed to create evaluation", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not create evaluation"))
		}
		return
	}

	log.Info("evaluation created", slog.String("id", entry.ID), slog.String("program", program))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"evaluation": entry,
	}))
}
