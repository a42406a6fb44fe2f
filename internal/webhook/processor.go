// Package webhook обрабатывает батчи webhook-уведомлений провайдера
// и сверяет их с леджером платежей.
package webhook

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"example.com/checkout-system/internal/domain"
	"example.com/checkout-system/internal/events"
	"example.com/checkout-system/internal/ledger"
	"example.com/checkout-system/internal/provider"
	"example.com/checkout-system/pkg/logger"
	"example.com/checkout-system/pkg/metrics"
)

const (
	// dedupKeyPrefix — префикс ключей дедупликации в Redis.
	dedupKeyPrefix = "webhook:seen:"

	// defaultDedupTTL — время жизни ключа дедупликации.
	defaultDedupTTL = 24 * time.Hour
)

// Validator проверяет подлинность уведомления.
// Реализуется provider.HMACValidator, мокируется в тестах.
type Validator interface {
	Validate(item provider.NotificationRequestItem) bool
}

// Config — настройки процессора.
type Config struct {
	// Redis — клиент для дедупликации повторных доставок. nil — дедупликация выключена.
	Redis *redis.Client

	// DedupTTL — время жизни отметки об обработанном событии.
	DedupTTL time.Duration
}

// Processor последовательно применяет уведомления батча к леджеру.
// Ошибка одного элемента изолирована и не прерывает обработку остальных;
// ответ вебхука в любом случае — безусловный acknowledgement.
type Processor struct {
	ledger    *ledger.Ledger
	validator Validator
	events    events.Publisher
	redis     *redis.Client
	dedupTTL  time.Duration
}

// NewProcessor создаёт процессор уведомлений.
func NewProcessor(l *ledger.Ledger, validator Validator, pub events.Publisher, cfg Config) *Processor {
	if pub == nil {
		pub = events.Nop{}
	}
	ttl := cfg.DedupTTL
	if ttl <= 0 {
		ttl = defaultDedupTTL
	}
	return &Processor{
		ledger:    l,
		validator: validator,
		events:    pub,
		redis:     cfg.Redis,
		dedupTTL:  ttl,
	}
}

// ProcessBatch обрабатывает элементы батча последовательно, в порядке wire-формата.
func (p *Processor) ProcessBatch(ctx context.Context, notification provider.Notification) {
	for _, wrapper := range notification.NotificationItems {
		if err := p.processItem(ctx, wrapper.Item); err != nil {
			// Изоляция по элементам: логируем и продолжаем батч.
			logger.Ctx(ctx).Error().
				Err(err).
				Str("event_code", wrapper.Item.EventCode).
				Str("psp_reference", wrapper.Item.PSPReference).
				Msg("Ошибка обработки webhook-уведомления")
		}
	}
}

// processItem применяет одно уведомление к леджеру.
func (p *Processor) processItem(ctx context.Context, item provider.NotificationRequestItem) error {
	log := logger.FromContext(ctx)

	if !p.validator.Validate(item) {
		log.Warn().
			Str("event_code", item.EventCode).
			Str("psp_reference", item.PSPReference).
			Msg("Уведомление с невалидной HMAC подписью отброшено")
		metrics.RecordWebhookEvent(item.EventCode, "invalid_hmac")
		return nil
	}

	if p.isDuplicate(ctx, item) {
		log.Info().
			Str("event_code", item.EventCode).
			Str("psp_reference", item.PSPReference).
			Msg("Повторная доставка уведомления пропущена")
		metrics.RecordWebhookEvent(item.EventCode, "duplicate")
		return nil
	}

	success := item.IsSuccess()

	var (
		rec domain.PaymentRecord
		err error
	)

	switch item.EventCode {
	case provider.EventAuthorisation:
		if !success {
			metrics.RecordWebhookEvent(item.EventCode, "skipped")
			return nil
		}
		rec, err = p.ledger.Authorise(item.MerchantReference, item.PSPReference)

	case provider.EventCancelOrRefund:
		if !success {
			metrics.RecordWebhookEvent(item.EventCode, "skipped")
			return nil
		}
		rec, err = p.ledger.ApplyCancelOrRefund(item.PSPReference, item.ModificationAction(), item.Amount.Value)

	case provider.EventCapture:
		if !success {
			metrics.RecordWebhookEvent(item.EventCode, "skipped")
			return nil
		}
		rec, err = p.ledger.ApplyCapture(item.PSPReference, item.Amount.Value)

	case provider.EventCancellation:
		// Неуспешная отмена тоже обрабатывается: статус откатывается в Authorised.
		rec, err = p.ledger.ApplyCancellation(item.PSPReference, success, item.Amount.Value)

	case provider.EventRefund:
		// Неуспешный возврат откатывает статус в Captured.
		rec, err = p.ledger.ApplyRefund(item.PSPReference, success, item.Amount.Value)

	default:
		log.Info().Str("event_code", item.EventCode).Msg("Non-actionable уведомление пропущено")
		metrics.RecordWebhookEvent(item.EventCode, "skipped")
		return nil
	}

	if err != nil {
		// Отсутствие записи — no-op: acknowledgement всё равно безусловный.
		log.Warn().
			Err(err).
			Str("event_code", item.EventCode).
			Str("psp_reference", item.PSPReference).
			Str("merchant_reference", item.MerchantReference).
			Msg("Запись для уведомления не найдена")
		metrics.RecordWebhookEvent(item.EventCode, "no_match")
		return nil
	}

	metrics.RecordWebhookEvent(item.EventCode, "applied")
	p.events.PublishStatusChange(ctx, rec)

	log.Info().
		Str("event_code", item.EventCode).
		Str("reference", rec.Reference).
		Str("status", string(rec.Status)).
		Int64("captured_value", rec.CapturedValue).
		Int64("refunded_value", rec.RefundedValue).
		Msg("Webhook-уведомление применено")

	return nil
}

// isDuplicate атомарно помечает событие обработанным через SETNX.
// При ошибке или выключенном Redis работаем fail-open: событие обрабатывается,
// то есть без Redis система ведёт себя как исходная (без дедупликации).
func (p *Processor) isDuplicate(ctx context.Context, item provider.NotificationRequestItem) bool {
	if p.redis == nil {
		return false
	}

	key := fmt.Sprintf("%s%s:%s:%s", dedupKeyPrefix, item.PSPReference, item.EventCode, item.Success)
	wasSet, err := p.redis.SetNX(ctx, key, "1", p.dedupTTL).Result()
	if err != nil {
		logger.Ctx(ctx).Warn().Err(err).Msg("Ошибка Redis при дедупликации уведомления")
		return false
	}
	return !wasSet
}
