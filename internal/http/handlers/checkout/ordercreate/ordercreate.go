// Package ordercreate реализует HTTP-обработчик создания платёжного ордера
// на покупку тарифного плана.
package ordercreate

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/rasbandhu/evaluation-service/internal/http/middlewarectx"
	"github.com/rasbandhu/evaluation-service/internal/http/response"
	"github.com/rasbandhu/evaluation-service/internal/lib/sl"
	"github.com/rasbandhu/evaluation-service/internal/models"
)

// Request — план, который пользователь покупает.
type Request struct {
	PlanID string `json:"plan_id" validate:"required"`
}

// Handler обрабатывает создание платёжного ордера.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс кассы.
type Service interface {
	CreateOrder(ctx context.Context, userUID, planID string) (*models.Payment, error)
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
// @Summary Создать платёжный ордер
// @Description Создает ордер платёжного шлюза на покупку плана по эффективной цене
// @Tags Checkout
// @Accept  json
// @Produce  json
// @Param request body Request true "ID плана"
// @Success 200 {object} map[string]any "Созданный ордер"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "План не найден"
// @Failure 409 {object} response.ErrorResponse "Мест не осталось"
// @Failure 422 {object} response.ErrorResponse "План недоступен для покупки"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Security BearerAuth
// @Router /checkout/order [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.checkout.ordercreate"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
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

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	payment, err := h.service.CreateOrder(r.Context(), userUID, req.PlanID)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("plan not found"))
		case errors.Is(err, models.ErrSeatsExhausted):
			log.Error("no seats left", slog.String("plan", req.PlanID))
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("no seats left"))
		default:
			log.Error("failed to create order", sl.Err(err))
			w.WriteHeader(http.StatusUnprocessableEntity)
			render.JSON(w, r, response.Error(err.Error()))
		}
		return
	}

	log.Info("order created", slog.String("order", payment.OrderID), slog.String("plan", req.PlanID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"order_id": payment.OrderID,
		"amount":   payment.Amount,
		"currency": payment.Currency,
	}))
}
