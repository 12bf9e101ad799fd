// Package result реализует HTTP-обработчик сдачи результата проверки.
//
// Сдать результат может только закреплённый за заявкой ментор,
// переход Assigned -> Evaluated условный.
package result

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/rasbandhu/evaluation-service/internal/http/middlewarectx"
	"github.com/rasbandhu/evaluation-service/internal/http/response"
	"github.com/rasbandhu/evaluation-service/internal/lib/sl"
	"github.com/rasbandhu/evaluation-service/internal/models"
)

// Request — результат проверки: файл с разбором и комментарии ментора.
type Request struct {
	EvaluationURL string `json:"evaluation_url,omitempty"`
	Comments      string `json:"comments,omitempty"`
}

// Handler обрабатывает сдачу результата проверки.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики завершения проверки.
type Service interface {
	SubmitResult(ctx context.Context, id, mentorUID, evaluationURL, comments string) (*models.Evaluation, error)
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Сдать результат проверки
// @Tags Evaluations
// @Accept  json
// @Produce  json
// @Param id path string true "ID заявки"
// @Param request body Request true "Результат проверки"
// @Success 200 {object} map[string]any "Заявка проверена"
// @Failure 403 {object} response.ErrorResponse "Заявка закреплена за другим ментором"
// @Failure 404 {object} response.ErrorResponse "Заявка не найдена"
// @Failure 409 {object} response.ErrorResponse "Заявка не в статусе Assigned"
// @Failure 422 {object} response.ErrorResponse "Пустой результат"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Security BearerAuth
// @Router /evaluations/{id}/result [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.evaluation.result"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id := chi.URLParam(r, "id")
	mentorUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || mentorUID == "" {
		log.Error("user uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	entry, err := h.service.SubmitResult(r.Context(), id, mentorUID, req.EvaluationURL, req.Comments)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrMissingEvaluationInput):
			w.WriteHeader(http.StatusUnprocessableEntity)
			render.JSON(w, r, response.Error(err.Error()))
		case errors.Is(err, models.ErrNotFound):
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("evaluation not found"))
		case errors.Is(err, models.ErrForbidden):
			log.Error("evaluation assigned to another mentor", slog.String("id", id))
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error("evaluation assigned to another mentor"))
		case errors.Is(err, models.ErrConflict):
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("evaluation is not in progress"))
		default:
			log.Error("failed to submit result", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not submit result"))
		}
		return
	}

	log.Info("evaluation completed", slog.String("id", id), slog.String("mentor", mentorUID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"evaluation": entry,
	}))
}
