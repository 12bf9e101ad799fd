// Package listall реализует административный HTTP-обработчик полного списка
// планов программы, включая скрытые, со счётчиками набора и выручки.
package listall

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/rasbandhu/evaluation-service/internal/http/response"
	"github.com/rasbandhu/evaluation-service/internal/lib/sl"
	"github.com/rasbandhu/evaluation-service/internal/models"
)

// Handler обрабатывает административные запросы списка планов.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс каталога планов.
type Service interface {
	ListAll(ctx context.Context, program string) ([]*models.Plan, error)
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Полный список планов программы
// @Tags Admin
// @Produce  json
// @Param program query string true "Программа: dailyEvaluation или testEvaluation"
// @Success 200 {object} map[string]any "Все планы программы"
// @Failure 400 {object} response.ErrorResponse "Неизвестная программа"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Security BearerAuth
// @Router /admin/plans [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.plan.listall"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	program := r.URL.Query().Get("program")
	if program != models.ProgramDaily && program != models.ProgramTest {
		log.Error("unknown program in query", slog.String("program", program))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("unknown program"))
		return
	}

	plans, err := h.service.ListAll(r.Context(), program)
	if err != nil {
		log.Error("failed to list plans", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not list plans"))
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"plans": plans,
	}))
}
