package paymentprovider

// Запрос на создание ордера Razorpay. Сумма в минимальных единицах
// валюты (пайсы для INR).
type CreateOrderRequest struct {
	Amount   int               `json:"amount" validate:"required,gt=0"`
	Currency string            `json:"currency" validate:"required"`
	Receipt  string            `json:"receipt,omitempty"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// Ответ Razorpay при создании ордера.
type CreateOrderResponse struct {
	ID        string `json:"id"`
	Entity    string `json:"entity"`
	Amount    int    `json:"amount"`
	Currency  string `json:"currency"`
	Receipt   string `json:"receipt"`
	Status    string `json:"status"`
	CreatedAt int64  `json:"created_at"`
}
