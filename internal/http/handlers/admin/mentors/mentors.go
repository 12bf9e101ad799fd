// Package mentors реализует административный HTTP-обработчик реестра менторов.
package mentors

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/rasbandhu/evaluation-service/internal/http/response"
	"github.com/rasbandhu/evaluation-service/internal/lib/sl"
	"github.com/rasbandhu/evaluation-service/internal/models"
)

// Handler обрабатывает запросы реестра менторов.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс реестра менторов.
type Service interface {
	ListMentors(ctx context.Context, limit, offset int) ([]*models.User, error)
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Реестр менторов
// @Tags Admin
// @Produce  json
// @Param limit query int false "Максимум записей" default(50)
// @Param offset query int false "Смещение" default(0)
// @Success 200 {object} map[string]any "Список менторов"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Security BearerAuth
// @Router /admin/mentors [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.mentors"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 50
	}
	offset, err := strconv.Atoi(r.URL.Query().Get("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}

	mentors, err := h.service.ListMentors(r.Context(), limit, offset)
	if err != nil {
		log.Error("failed to list mentors", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not list mentors"))
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"mentors": mentors,
		"count":   len(mentors),
	}))
}
