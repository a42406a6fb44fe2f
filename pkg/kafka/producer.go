// Package kafka предоставляет обёртку-producer над kafka-go для публикации
// событий жизненного цикла платежей.
package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"example.com/checkout-system/pkg/logger"
)

// TopicPaymentStatus — топик событий изменения статуса платежа.
const TopicPaymentStatus = "payment.status"

// Ключи headers сообщений.
const (
	// HeaderTraceID — идентификатор трассировки запроса.
	HeaderTraceID = "trace_id"

	// HeaderCorrelationID — идентификатор корреляции операций одного заказа.
	HeaderCorrelationID = "correlation_id"

	// HeaderTimestamp — временная метка создания сообщения.
	HeaderTimestamp = "timestamp"
)

// Config содержит настройки подключения к Kafka.
type Config struct {
	// Brokers — адреса брокеров.
	Brokers []string
}

// Producer отправляет сообщения в Kafka с headers трассировки.
type Producer struct {
	writer *kafka.Writer
}

// NewProducer создаёт Producer в sync-режиме с подтверждением от лидера.
func NewProducer(cfg Config) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("не указаны брокеры Kafka")
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}

	logger.Info().Strs("brokers", cfg.Brokers).Msg("Создан Kafka Producer")

	return &Producer{writer: writer}, nil
}

// Send отправляет сообщение в топик.
// Headers trace_id/correlation_id/timestamp добавляются из context автоматически.
func (p *Producer) Send(ctx context.Context, topic string, key, value []byte) error {
	msg := kafka.Message{
		Topic:   topic,
		Key:     key,
		Value:   value,
		Headers: buildHeaders(ctx),
		Time:    time.Now(),
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		logger.Error().
			Err(err).
			Str("topic", topic).
			Str("key", string(key)).
			Msg("Ошибка отправки сообщения в Kafka")
		return fmt.Errorf("ошибка отправки в Kafka: %w", err)
	}

	logger.Debug().
		Str("topic", topic).
		Str("key", string(key)).
		Str("trace_id", logger.TraceIDFromContext(ctx)).
		Msg("Сообщение отправлено в Kafka")

	return nil
}

// buildHeaders собирает headers из context.
func buildHeaders(ctx context.Context) []kafka.Header {
	headers := make([]kafka.Header, 0, 3)

	if traceID := logger.TraceIDFromContext(ctx); traceID != "" {
		headers = append(headers, kafka.Header{Key: HeaderTraceID, Value: []byte(traceID)})
	}
	if correlationID := logger.CorrelationIDFromContext(ctx); correlationID != "" {
		headers = append(headers, kafka.Header{Key: HeaderCorrelationID, Value: []byte(correlationID)})
	}
	headers = append(headers, kafka.Header{
		Key:   HeaderTimestamp,
		Value: []byte(time.Now().UTC().Format(time.RFC3339Nano)),
	})

	return headers
}

// Close закрывает соединение с Kafka. Вызывается при завершении приложения.
func (p *Producer) Close() error {
	logger.Info().Msg("Закрытие Kafka Producer")

	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("ошибка закрытия producer: %w", err)
	}
	return nil
}
