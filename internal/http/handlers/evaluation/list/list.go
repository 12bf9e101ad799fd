// Package list реализует HTTP-обработчик выборки заявок.
//
// Студент всегда получает только свои заявки, ментор и администратор
// фильтруют очередь по программе, статусу и исполнителю.
package list

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/rasbandhu/evaluation-service/internal/http/middlewarectx"
	"github.com/rasbandhu/evaluation-service/internal/http/response"
	"github.com/rasbandhu/evaluation-service/internal/lib/sl"
	"github.com/rasbandhu/evaluation-service/internal/models"
)

// Handler обрабатывает запросы списка заявок.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики выборки заявок.
type Service interface {
	List(ctx context.Context, callerUID, callerRole string, filter models.EvaluationFilter) ([]*models.Evaluation, error)
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Список заявок
// @Description Возвращает заявки по фильтру. Студент видит только свои.
// @Tags Evaluations
// @Produce  json
// @Param program query string false "Фильтр по программе"
// @Param status query string false "Фильтр по статусу"
// @Param mentor query string false "Фильтр по закреплённому ментору"
// @Param limit query int false "Максимум записей" default(20)
// @Param offset query int false "Смещение" default(0)
// @Success 200 {object} map[string]any "Список заявок"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Security BearerAuth
// @Router /evaluations [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.evaluation.list"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	callerUID, _ := r.Context().Value(middlewarectx.UserUID).(string)
	callerRole, _ := r.Context().Value(middlewarectx.Role).(string)

	q := r.URL.Query()
	filter := models.EvaluationFilter{
		Program:        q.Get("program"),
		Status:         q.Get("status"),
		MentorAssigned: q.Get("mentor"),
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil && limit > 0 {
		filter.Limit = limit
	} else {
		filter.Limit = 20
	}
	if offset, err := strconv.Atoi(q.Get("offset")); err == nil && offset > 0 {
		filter.Offset = offset
	}

	entries, err := h.service.List(r.Context(), callerUID, callerRole, filter)
	if err != nil {
		log.Error("failed to list evaluations", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not list evaluations"))
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"evaluations": entries,
		"count":       len(entries),
	}))
}
