package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"example.com/checkout-system/internal/provider"
	"example.com/checkout-system/pkg/logger"
)

// webhookAck — безусловный acknowledgement, которого ждёт провайдер.
const webhookAck = "[accepted]"

// NotificationProcessor — процессор webhook-батчей.
type NotificationProcessor interface {
	ProcessBatch(ctx context.Context, notification provider.Notification)
}

// WebhookHandler — обработчик webhook-уведомлений провайдера.
type WebhookHandler struct {
	processor NotificationProcessor
}

// NewWebhookHandler создаёт обработчик webhook'ов.
func NewWebhookHandler(processor NotificationProcessor) *WebhookHandler {
	return &WebhookHandler{processor: processor}
}

// HandleNotification принимает батч уведомлений.
// POST /api/webhook/notification
//
// Ответ — всегда "[accepted]": результат обработки отдельных элементов
// на acknowledgement не влияет, иначе провайдер будет бесконечно
// передоставлять весь батч.
func (h *WebhookHandler) HandleNotification(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.FromContext(ctx)

	var notification provider.Notification
	if err := c.ShouldBindJSON(&notification); err != nil {
		// Нечитаемое тело — единственный случай без acknowledgement.
		log.Warn().Err(err).Msg("Невалидное тело webhook-запроса")
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Невалидное тело уведомления",
		})
		return
	}

	log.Info().Int("items", len(notification.NotificationItems)).Msg("Получен webhook-батч")

	h.processor.ProcessBatch(ctx, notification)

	c.String(http.StatusOK, webhookAck)
}
