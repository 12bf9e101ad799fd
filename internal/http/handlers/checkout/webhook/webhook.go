// Package webhook реализует HTTP-обработчик вебхуков платёжного шлюза.
//
// Подпись тела проверяется до разбора полезной нагрузки. Обрабатываются
// только события захвата и отказа платежа, остальные игнорируются.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/rasbandhu/evaluation-service/internal/http/response"
	"github.com/rasbandhu/evaluation-service/internal/lib/sl"
	"github.com/rasbandhu/evaluation-service/internal/models"
)

// Service описывает интерфейс кассы для обработки вебхуков.
type Service interface {
	VerifyWebhook(body []byte, signature string) bool
	ConfirmFromWebhook(ctx context.Context, orderID string) (*models.Subscription, error)
	FailPayment(ctx context.Context, orderID string) error
}

// Handler обрабатывает вебхуки платёжного шлюза.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// Payload — разбираемая часть уведомления шлюза.
type Payload struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
				Status  string `json:"status"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// Обрабатываемые события шлюза.
const (
	PaymentCaptured = "payment.captured"
	PaymentFailed   = "payment.failed"
)

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.checkout.webhook"
	log := h.log.With(slog.String("op", op))

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	defer func() {
		_ = r.Body.Close()
	}()

	signature := r.Header.Get("X-Razorpay-Signature")
	if signature == "" || !h.service.VerifyWebhook(body, signature) {
		log.Error("invalid or missing webhook signature")
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	var payload Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		log.Error("failed to unmarshal webhook payload", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	orderID := payload.Payload.Payment.Entity.OrderID

	switch payload.Event {
	case PaymentCaptured:
		if _, err := h.service.ConfirmFromWebhook(r.Context(), orderID); err != nil {
			// Повтор уведомления об уже обработанном платеже — не ошибка.
			if errors.Is(err, models.ErrConflict) {
				log.Info("webhook for settled payment ignored", slog.String("order", orderID))
				break
			}
			log.Error("failed to process captured payment", sl.Err(err), slog.String("order", orderID))
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	case PaymentFailed:
		if err := h.service.FailPayment(r.Context(), orderID); err != nil {
			log.Error("failed to mark payment failed", sl.Err(err), slog.String("order", orderID))
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	default:
		log.Info("ignored webhook event", slog.String("event", payload.Event))
	}

	log.Info("webhook processed", slog.String("event", payload.Event), slog.String("order", orderID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"processed": true,
	}))
}
