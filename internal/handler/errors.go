package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"example.com/checkout-system/internal/domain"
	"example.com/checkout-system/internal/provider"
	"example.com/checkout-system/pkg/circuitbreaker"
	"example.com/checkout-system/pkg/logger"
)

// ErrorResponse — стандартный формат ошибки API.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HandleServiceError преобразует ошибку сервиса платежей в HTTP ответ.
// Ошибки провайдера пробрасываются с его статусом и сообщением, без повторов.
func HandleServiceError(c *gin.Context, err error, method string) {
	log := logger.FromContext(c.Request.Context())

	// Ошибка Checkout API — отдаём статус и сообщение провайдера как есть.
	var apiErr *provider.APIError
	if errors.As(err, &apiErr) {
		status := apiErr.Status
		if status == 0 {
			status = http.StatusBadGateway
		}
		errorCode := apiErr.ErrorCode
		if errorCode == "" {
			errorCode = "gateway_error"
		}

		log.Warn().
			Err(err).
			Str("method", method).
			Int("provider_status", apiErr.Status).
			Msg("Ошибка платёжного провайдера")

		c.JSON(status, ErrorResponse{
			Error:   errorCode,
			Message: apiErr.Message,
		})
		return
	}

	switch {
	case errors.Is(err, circuitbreaker.ErrOpen):
		log.Warn().Str("method", method).Msg("Провайдер недоступен, circuit breaker открыт")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error:   "provider_unavailable",
			Message: "Платёжный провайдер временно недоступен",
		})
	case errors.Is(err, domain.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Заказ с таким orderRef не найден",
		})
	case errors.Is(err, domain.ErrNotAuthorised):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "not_authorised",
			Message: "Платёж ещё не авторизован, модификация недоступна",
		})
	case errors.Is(err, domain.ErrInvalidAmount):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_amount",
			Message: "Некорректная сумма операции",
		})
	default:
		log.Error().Err(err).Str("method", method).Msg("Внутренняя ошибка")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Внутренняя ошибка сервера",
		})
	}
}
