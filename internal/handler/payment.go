package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"example.com/checkout-system/internal/domain"
	"example.com/checkout-system/internal/provider"
	"example.com/checkout-system/internal/service"
	"example.com/checkout-system/pkg/logger"
)

// PaymentHandler — обработчик платёжных endpoint'ов.
type PaymentHandler struct {
	payments Payments
}

// NewPaymentHandler создаёт обработчик платежей.
func NewPaymentHandler(payments Payments) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// === Request/Response DTOs ===

// CreateSessionRequest — тело запроса на создание сессии. Все поля опциональны.
type CreateSessionRequest struct {
	Amount                *AmountRequest `json:"amount"`
	AllowedPaymentMethods []string       `json:"allowedPaymentMethods"`
	Split                 []SplitRequest `json:"split"`
}

// AmountRequest — денежная сумма в запросе.
type AmountRequest struct {
	Currency string `json:"currency" binding:"required,len=3"`
	Value    int64  `json:"value" binding:"required,min=1"`
}

// SplitRequest — часть суммы для split-платежа.
type SplitRequest struct {
	Amount    *AmountRequest `json:"amount"`
	Type      string         `json:"type" binding:"required"`
	Account   string         `json:"account"`
	Reference string         `json:"reference" binding:"required"`
}

// === Handlers ===

// GetPaymentDataStore возвращает дамп всего леджера.
// GET /api/getPaymentDataStore
func (h *PaymentHandler) GetPaymentDataStore(c *gin.Context) {
	c.JSON(http.StatusOK, h.payments.DataStore(c.Request.Context()))
}

// CreateSession создаёт checkout-сессию.
// POST /api/sessions
// Ответ — кортеж [sessionResponse, orderRef]: фронтенду нужен и ответ
// провайдера для Drop-in, и reference нового заказа.
func (h *PaymentHandler) CreateSession(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.FromContext(ctx)

	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		log.Debug().Err(err).Msg("Невалидный запрос на создание сессии")
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Невалидные данные запроса",
		})
		return
	}

	svcReq := service.CreateSessionRequest{
		AllowedPaymentMethods: req.AllowedPaymentMethods,
	}
	if req.Amount != nil {
		svcReq.Amount = &domain.Amount{Currency: req.Amount.Currency, Value: req.Amount.Value}
	}
	for _, s := range req.Split {
		split := provider.Split{Type: s.Type, Account: s.Account, Reference: s.Reference}
		if s.Amount != nil {
			split.Amount = &domain.Amount{Currency: s.Amount.Currency, Value: s.Amount.Value}
		}
		svcReq.Splits = append(svcReq.Splits, split)
	}

	result, err := h.payments.CreateSession(ctx, svcReq)
	if err != nil {
		HandleServiceError(c, err, "CreateSession")
		return
	}

	c.JSON(http.StatusOK, []any{result.Session, result.OrderRef})
}

// CapturePayment запрашивает списание (полное или частичное).
// POST /api/capturePayment?orderRef=&value=
func (h *PaymentHandler) CapturePayment(c *gin.Context) {
	orderRef, ok := h.orderRef(c)
	if !ok {
		return
	}
	value, ok := h.optionalValue(c)
	if !ok {
		return
	}

	resp, err := h.payments.Capture(c.Request.Context(), orderRef, value)
	if err != nil {
		HandleServiceError(c, err, "CapturePayment")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CancelPayment запрашивает отмену авторизации.
// POST /api/cancelPayment?orderRef=
func (h *PaymentHandler) CancelPayment(c *gin.Context) {
	orderRef, ok := h.orderRef(c)
	if !ok {
		return
	}

	resp, err := h.payments.Cancel(c.Request.Context(), orderRef)
	if err != nil {
		HandleServiceError(c, err, "CancelPayment")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RefundPayment запрашивает возврат (полный или частичный).
// POST /api/refundPayment?orderRef=&value=
func (h *PaymentHandler) RefundPayment(c *gin.Context) {
	orderRef, ok := h.orderRef(c)
	if !ok {
		return
	}
	value, ok := h.optionalValue(c)
	if !ok {
		return
	}

	resp, err := h.payments.Refund(c.Request.Context(), orderRef, value)
	if err != nil {
		HandleServiceError(c, err, "RefundPayment")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CancelOrRefundPayment запрашивает reversal: провайдер сам выбирает
// между отменой и возвратом.
// POST /api/cancelOrRefundPayment?orderRef=
func (h *PaymentHandler) CancelOrRefundPayment(c *gin.Context) {
	orderRef, ok := h.orderRef(c)
	if !ok {
		return
	}

	resp, err := h.payments.CancelOrRefund(c.Request.Context(), orderRef)
	if err != nil {
		HandleServiceError(c, err, "CancelOrRefundPayment")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// === Helpers ===

// orderRef извлекает обязательный query-параметр orderRef.
func (h *PaymentHandler) orderRef(c *gin.Context) (string, bool) {
	orderRef := c.Query("orderRef")
	if orderRef == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Параметр orderRef обязателен",
		})
		return "", false
	}
	return orderRef, true
}

// optionalValue извлекает опциональный query-параметр value (сумма в
// минимальных единицах). Отсутствие параметра — 0: сервис подставит остаток.
func (h *PaymentHandler) optionalValue(c *gin.Context) (int64, bool) {
	raw := c.Query("value")
	if raw == "" {
		return 0, true
	}

	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Параметр value должен быть положительным целым числом",
		})
		return 0, false
	}
	return value, true
}
