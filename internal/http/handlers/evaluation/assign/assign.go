// Package assign реализует HTTP-обработчик взятия заявки в работу ментором.
//
// Переход Pending -> Assigned условный: при гонке двух менторов
// проигравший получает 409 Conflict.
package assign

import (
	"context"
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

// Handler обрабатывает взятие заявки в работу.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики закрепления заявки.
type Service interface {
	AssignToSelf(ctx context.Context, id, mentorUID string) (*models.Evaluation, error)
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Взять заявку в работу
// @Tags Evaluations
// @Produce  json
// @Param id path string true "ID заявки"
// @Success 200 {object} map[string]any "Заявка закреплена"
// @Failure 404 {object} response.ErrorResponse "Заявка не найдена"
// @Failure 409 {object} response.ErrorResponse "Заявку уже забрали"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Security BearerAuth
// @Router /evaluations/{id}/assign [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.evaluation.assign"

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

	entry, err := h.service.AssignToSelf(r.Context(), id, mentorUID)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("evaluation not found"))
		case errors.Is(err, models.ErrConflict):
			log.Error("evaluation already taken", slog.String("id", id))
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("evaluation already taken"))
		default:
			log.Error("failed to assign evaluation", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not assign evaluation"))
		}
		return
	}

	log.Info("evaluation assigned", slog.String("id", id), slog.String("mentor", mentorUID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"evaluation": entry,
	}))
}
