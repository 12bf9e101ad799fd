// Package status реализует HTTP-обработчик резолвера прав: состояние
// абонемента текущего пользователя по программе.
package status

import (
	"context"
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

// Handler обрабатывает запросы состояния абонемента.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс резолвера прав.
type Service interface {
	Resolve(ctx context.Context, userUID, program string) (*models.Entitlement, error)
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Состояние абонемента по программе
// @Description Роль, полнота профиля, активность абонемента, остаток кредитов и право на пробный план
// @Tags Entitlements
// @Produce  json
// @Param program path string true "Программа: dailyEvaluation или testEvaluation"
// @Success 200 {object} map[string]any "Состояние"
// @Failure 400 {object} response.ErrorResponse "Неизвестная программа"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Security BearerAuth
// @Router /programs/{program}/entitlement [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.entitlement.status"

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

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	ent, err := h.service.Resolve(r.Context(), userUID, program)
	if err != nil {
		log.Error("failed to resolve entitlement", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not resolve entitlement"))
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"entitlement": ent,
	}))
}
