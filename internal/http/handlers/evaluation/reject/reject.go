// Package reject реализует HTTP-обработчик отклонения заявки.
package reject

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

// Request — причина отклонения, обязательна.
type Request struct {
	Reason string `json:"reason" validate:"required"`
}

// Handler обрабатывает отклонение заявки.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики отклонения заявки.
type Service interface {
	Reject(ctx context.Context, id, callerUID, callerRole, reason string) (*models.Evaluation, error)
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Отклонить заявку
// @Tags Evaluations
// @Accept  json
// @Produce  json
// @Param id path string true "ID заявки"
// @Param request body Request true "Причина отклонения"
// @Success 200 {object} map[string]any "Заявка отклонена"
// @Failure 403 {object} response.ErrorResponse "Заявка закреплена за другим ментором"
// @Failure 404 {object} response.ErrorResponse "Заявка не найдена"
// @Failure 409 {object} response.ErrorResponse "Заявка уже в терминальном статусе"
// @Failure 422 {object} response.ErrorResponse "Причина не указана"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Security BearerAuth
// @Router /evaluations/{id}/reject [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.evaluation.reject"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id := chi.URLParam(r, "id")
	callerUID, _ := r.Context().Value(middlewarectx.UserUID).(string)
	callerRole, _ := r.Context().Value(middlewarectx.Role).(string)

	var req Request
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

	entry, err := h.service.Reject(r.Context(), id, callerUID, callerRole, req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrMissingReason):
			w.WriteHeader(http.StatusUnprocessableEntity)
			render.JSON(w, r, response.Error(err.Error()))
		case errors.Is(err, models.ErrNotFound):
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("evaluation not found"))
		case errors.Is(err, models.ErrForbidden):
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error("evaluation assigned to another mentor"))
		case errors.Is(err, models.ErrConflict):
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("evaluation already settled"))
		default:
			log.Error("failed to reject evaluation", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not reject evaluation"))
		}
		return
	}

	log.Info("evaluation rejected", slog.String("id", id))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"evaluation": entry,
	}))
}
