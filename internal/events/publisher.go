// Package events публикует события изменения статуса платежа в Kafka.
// Публикация best effort: ошибки логируются и не влияют на обработку запроса.
package events

import (
	"context"
	"encoding/json"
	"time"

	"example.com/checkout-system/internal/domain"
	"example.com/checkout-system/pkg/kafka"
	"example.com/checkout-system/pkg/logger"
)

// Publisher — издатель событий жизненного цикла платежа.
type Publisher interface {
	// PublishStatusChange публикует факт изменения статуса записи.
	PublishStatusChange(ctx context.Context, record domain.PaymentRecord)
}

// Nop — издатель-заглушка (события выключены конфигурацией).
type Nop struct{}

// PublishStatusChange ничего не делает.
func (Nop) PublishStatusChange(context.Context, domain.PaymentRecord) {}

// =============================================================================
// Kafka издатель
// =============================================================================

// StatusChangeEvent — payload события в топике payment.status.
type StatusChangeEvent struct {
	Reference       string        `json:"reference"`
	Status          string        `json:"status"`
	PaymentRef      string        `json:"payment_ref,omitempty"`
	ModificationRef string        `json:"modification_ref,omitempty"`
	Amount          domain.Amount `json:"amount"`
	CapturedValue   int64         `json:"captured_value"`
	RefundedValue   int64         `json:"refunded_value"`
	OccurredAt      time.Time     `json:"occurred_at"`
}

// KafkaPublisher публикует события через pkg/kafka Producer.
type KafkaPublisher struct {
	producer *kafka.Producer
}

// NewKafkaPublisher создаёт издателя поверх готового Producer.
func NewKafkaPublisher(producer *kafka.Producer) *KafkaPublisher {
	return &KafkaPublisher{producer: producer}
}

// PublishStatusChange сериализует событие и отправляет его в payment.status.
// Ключ — reference заказа: все события одного заказа попадают в одну партицию.
func (p *KafkaPublisher) PublishStatusChange(ctx context.Context, record domain.PaymentRecord) {
	event := StatusChangeEvent{
		Reference:       record.Reference,
		Status:          string(record.Status),
		PaymentRef:      record.PaymentRef,
		ModificationRef: record.ModificationRef,
		Amount:          record.Amount,
		CapturedValue:   record.CapturedValue,
		RefundedValue:   record.RefundedValue,
		OccurredAt:      time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		logger.Error().Err(err).Str("reference", record.Reference).Msg("Ошибка сериализации события статуса")
		return
	}

	if err := p.producer.Send(ctx, kafka.TopicPaymentStatus, []byte(record.Reference), payload); err != nil {
		logger.Warn().
			Err(err).
			Str("reference", record.Reference).
			Str("status", string(record.Status)).
			Msg("Событие статуса не опубликовано")
	}
}
