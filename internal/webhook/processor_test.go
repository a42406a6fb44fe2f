// Package webhook содержит тесты процессора webhook-уведомлений.
package webhook

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/checkout-system/internal/domain"
	"example.com/checkout-system/internal/ledger"
	"example.com/checkout-system/internal/provider"
)

// =====================================
// Моки
// =====================================

// mockValidator — мок HMAC валидатора с настраиваемым поведением.
type mockValidator struct {
	validateFunc func(item provider.NotificationRequestItem) bool
}

func (m *mockValidator) Validate(item provider.NotificationRequestItem) bool {
	if m.validateFunc != nil {
		return m.validateFunc(item)
	}
	return true
}

// mockPublisher собирает опубликованные события статусов.
type mockPublisher struct {
	published []domain.PaymentRecord
}

func (m *mockPublisher) PublishStatusChange(_ context.Context, record domain.PaymentRecord) {
	m.published = append(m.published, record)
}

// =====================================
// Хелперы
// =====================================

// acceptAll — валидатор, принимающий все уведомления.
var acceptAll = &mockValidator{}

// newAuthorisedLedger создаёт леджер с авторизованным заказом order-1 на 1000 EUR.
func newAuthorisedLedger(t *testing.T) *ledger.Ledger {
	t.Helper()

	l := ledger.New()
	require.NoError(t, l.Create("order-1", domain.Amount{Currency: "EUR", Value: 1000}))
	_, err := l.Authorise("order-1", "psp-auth-1")
	require.NoError(t, err)
	return l
}

// registerModification фиксирует прямой вызов и возвращает его psp reference.
func registerModification(t *testing.T, l *ledger.Ledger, kind domain.ModificationKind, modRef string) {
	t.Helper()

	_, err := l.RegisterModification("order-1", kind, modRef)
	require.NoError(t, err)
}

// batch оборачивает уведомления в формат батча провайдера.
func batch(items ...provider.NotificationRequestItem) provider.Notification {
	n := provider.Notification{Live: "false"}
	for _, item := range items {
		n.NotificationItems = append(n.NotificationItems, provider.NotificationWrapper{Item: item})
	}
	return n
}

// item собирает типовое уведомление.
func item(eventCode, pspRef, success string, value int64) provider.NotificationRequestItem {
	return provider.NotificationRequestItem{
		Amount:              domain.Amount{Currency: "EUR", Value: value},
		EventCode:           eventCode,
		MerchantAccountCode: "TestMerchant",
		MerchantReference:   "order-1",
		PSPReference:        pspRef,
		Success:             success,
	}
}

// =====================================
// Тесты обработки событий
// =====================================

// TestProcessor_Authorisation тестирует обработку AUTHORISATION.
func TestProcessor_Authorisation(t *testing.T) {
	t.Run("успешная авторизация записывает paymentRef", func(t *testing.T) {
		l := ledger.New()
		require.NoError(t, l.Create("order-1", domain.Amount{Currency: "EUR", Value: 1000}))
		pub := &mockPublisher{}
		p := NewProcessor(l, acceptAll, pub, Config{})

		p.ProcessBatch(context.Background(), batch(item(provider.EventAuthorisation, "psp-auth-1", "true", 1000)))

		rec, err := l.Get("order-1")
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentStatusAuthorised, rec.Status)
		assert.Equal(t, "psp-auth-1", rec.PaymentRef)
		require.Len(t, pub.published, 1)
		assert.Equal(t, domain.PaymentStatusAuthorised, pub.published[0].Status)
	})

	t.Run("неуспешная авторизация не меняет леджер", func(t *testing.T) {
		l := ledger.New()
		require.NoError(t, l.Create("order-1", domain.Amount{Currency: "EUR", Value: 1000}))
		p := NewProcessor(l, acceptAll, nil, Config{})

		p.ProcessBatch(context.Background(), batch(item(provider.EventAuthorisation, "psp-auth-1", "false", 1000)))

		rec, err := l.Get("order-1")
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentStatusNone, rec.Status)
		assert.Empty(t, rec.PaymentRef)
	})

	t.Run("неизвестный merchantReference игнорируется", func(t *testing.T) {
		l := ledger.New()
		p := NewProcessor(l, acceptAll, nil, Config{})

		// Запись отсутствует; acknowledgement всё равно безусловный,
		// поэтому обработка не должна паниковать или ломать батч.
		p.ProcessBatch(context.Background(), batch(item(provider.EventAuthorisation, "psp-auth-1", "true", 1000)))

		assert.Empty(t, l.All())
	})
}

// TestProcessor_НевалиднаяПодпись проверяет, что уведомление с плохой HMAC
// подписью отбрасывается без изменения леджера.
func TestProcessor_НевалиднаяПодпись(t *testing.T) {
	l := ledger.New()
	require.NoError(t, l.Create("order-1", domain.Amount{Currency: "EUR", Value: 1000}))
	rejectAll := &mockValidator{validateFunc: func(provider.NotificationRequestItem) bool { return false }}
	pub := &mockPublisher{}
	p := NewProcessor(l, rejectAll, pub, Config{})

	p.ProcessBatch(context.Background(), batch(item(provider.EventAuthorisation, "psp-auth-1", "true", 1000)))

	rec, err := l.Get("order-1")
	require.NoError(t, err)
	assert.Empty(t, rec.PaymentRef)
	assert.Empty(t, pub.published)
}

// TestProcessor_Capture тестирует обработку CAPTURE.
func TestProcessor_Capture(t *testing.T) {
	t.Run("частичные списания до полного", func(t *testing.T) {
		l := newAuthorisedLedger(t)
		p := NewProcessor(l, acceptAll, nil, Config{})

		registerModification(t, l, domain.ModificationCapture, "psp-mod-1")
		p.ProcessBatch(context.Background(), batch(item(provider.EventCapture, "psp-mod-1", "true", 400)))

		rec, err := l.Get("order-1")
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentStatusPartiallyCaptured, rec.Status)
		assert.Equal(t, int64(400), rec.CapturedValue)

		registerModification(t, l, domain.ModificationCapture, "psp-mod-2")
		p.ProcessBatch(context.Background(), batch(item(provider.EventCapture, "psp-mod-2", "true", 600)))

		rec, err = l.Get("order-1")
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentStatusCaptured, rec.Status)
		assert.Equal(t, int64(1000), rec.CapturedValue)
	})

	t.Run("неуспешный capture пропускается", func(t *testing.T) {
		l := newAuthorisedLedger(t)
		registerModification(t, l, domain.ModificationCapture, "psp-mod-1")
		p := NewProcessor(l, acceptAll, nil, Config{})

		p.ProcessBatch(context.Background(), batch(item(provider.EventCapture, "psp-mod-1", "false", 400)))

		rec, err := l.Get("order-1")
		require.NoError(t, err)
		assert.Zero(t, rec.CapturedValue)
		assert.Equal(t, domain.PaymentStatusCaptureInitiated, rec.Status)
	})
}

// TestProcessor_Refund тестирует обработку REFUND, включая откат при неуспехе.
func TestProcessor_Refund(t *testing.T) {
	setup := func(t *testing.T) (*ledger.Ledger, *Processor) {
		l := newAuthorisedLedger(t)
		p := NewProcessor(l, acceptAll, nil, Config{})

		// Полное списание, затем запрос возврата.
		registerModification(t, l, domain.ModificationCapture, "psp-mod-1")
		p.ProcessBatch(context.Background(), batch(item(provider.EventCapture, "psp-mod-1", "true", 1000)))
		registerModification(t, l, domain.ModificationRefund, "psp-mod-2")
		return l, p
	}

	t.Run("полный возврат", func(t *testing.T) {
		l, p := setup(t)

		p.ProcessBatch(context.Background(), batch(item(provider.EventRefund, "psp-mod-2", "true", 1000)))

		rec, err := l.Get("order-1")
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentStatusRefunded, rec.Status)
		assert.Equal(t, int64(1000), rec.RefundedValue)
	})

	t.Run("частичный возврат", func(t *testing.T) {
		l, p := setup(t)

		p.ProcessBatch(context.Background(), batch(item(provider.EventRefund, "psp-mod-2", "true", 300)))

		rec, err := l.Get("order-1")
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentStatusPartiallyRefunded, rec.Status)
		assert.Equal(t, int64(300), rec.RefundedValue)
	})

	t.Run("неуспешный возврат откатывает статус в Captured", func(t *testing.T) {
		l, p := setup(t)

		p.ProcessBatch(context.Background(), batch(item(provider.EventRefund, "psp-mod-2", "false", 1000)))

		rec, err := l.Get("order-1")
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentStatusCaptured, rec.Status)
		assert.Zero(t, rec.RefundedValue)
	})
}

// TestProcessor_Cancellation тестирует обработку CANCELLATION.
func TestProcessor_Cancellation(t *testing.T) {
	setup := func(t *testing.T) (*ledger.Ledger, *Processor) {
		l := newAuthorisedLedger(t)
		registerModification(t, l, domain.ModificationCancel, "psp-mod-1")
		return l, NewProcessor(l, acceptAll, nil, Config{})
	}

	t.Run("успешная отмена", func(t *testing.T) {
		l, p := setup(t)

		p.ProcessBatch(context.Background(), batch(item(provider.EventCancellation, "psp-mod-1", "true", 1000)))

		rec, err := l.Get("order-1")
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentStatusCancelled, rec.Status)
		assert.Equal(t, int64(1000), rec.RefundedValue)
	})

	t.Run("неуспешная отмена откатывает статус в Authorised", func(t *testing.T) {
		l, p := setup(t)

		p.ProcessBatch(context.Background(), batch(item(provider.EventCancellation, "psp-mod-1", "false", 1000)))

		rec, err := l.Get("order-1")
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentStatusAuthorised, rec.Status)
		assert.Zero(t, rec.RefundedValue)
	})
}

// TestProcessor_CancelOrRefund тестирует обработку CANCEL_OR_REFUND.
func TestProcessor_CancelOrRefund(t *testing.T) {
	tests := []struct {
		name           string
		action         string
		expectedStatus domain.PaymentStatus
	}{
		{
			name:           "modification.action refund",
			action:         "refund",
			expectedStatus: domain.PaymentStatusRefunded,
		},
		{
			name:           "modification.action cancel",
			action:         "cancel",
			expectedStatus: domain.PaymentStatusCancelled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newAuthorisedLedger(t)
			registerModification(t, l, domain.ModificationReversal, "psp-mod-1")
			p := NewProcessor(l, acceptAll, nil, Config{})

			ev := item(provider.EventCancelOrRefund, "psp-mod-1", "true", 1000)
			ev.AdditionalData = map[string]string{
				provider.AdditionalDataModificationAction: tt.action,
			}
			p.ProcessBatch(context.Background(), batch(ev))

			rec, err := l.Get("order-1")
			require.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, rec.Status)
			assert.Equal(t, int64(1000), rec.RefundedValue)
		})
	}
}

// TestProcessor_NonActionableСобытия проверяет, что прочие коды событий
// не трогают леджер.
func TestProcessor_NonActionableСобытия(t *testing.T) {
	l := newAuthorisedLedger(t)
	pub := &mockPublisher{}
	p := NewProcessor(l, acceptAll, pub, Config{})

	p.ProcessBatch(context.Background(), batch(item("REPORT_AVAILABLE", "psp-report-1", "true", 0)))

	rec, err := l.Get("order-1")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusAuthorised, rec.Status)
	assert.Empty(t, pub.published)
}

// TestProcessor_БатчОбрабатываетсяПолностью проверяет изоляцию элементов:
// несопоставимое уведомление в середине не мешает остальным.
func TestProcessor_БатчОбрабатываетсяПолностью(t *testing.T) {
	l := newAuthorisedLedger(t)
	registerModification(t, l, domain.ModificationCapture, "psp-mod-1")
	p := NewProcessor(l, acceptAll, nil, Config{})

	p.ProcessBatch(context.Background(), batch(
		item(provider.EventCapture, "psp-unknown", "true", 400), // нет совпадения
		item(provider.EventCapture, "psp-mod-1", "true", 1000),  // применяется
	))

	rec, err := l.Get("order-1")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusCaptured, rec.Status)
	assert.Equal(t, int64(1000), rec.CapturedValue)
}

// =====================================
// Дедупликация через Redis
// =====================================

// TestProcessor_Дедупликация тестирует подавление повторных доставок.
func TestProcessor_Дедупликация(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	t.Run("повторная доставка не применяется дважды", func(t *testing.T) {
		l := newAuthorisedLedger(t)
		registerModification(t, l, domain.ModificationCapture, "psp-mod-1")
		p := NewProcessor(l, acceptAll, nil, Config{Redis: rdb, DedupTTL: time.Hour})

		ev := item(provider.EventCapture, "psp-mod-1", "true", 400)
		p.ProcessBatch(context.Background(), batch(ev))
		p.ProcessBatch(context.Background(), batch(ev))

		rec, err := l.Get("order-1")
		require.NoError(t, err)
		assert.Equal(t, int64(400), rec.CapturedValue)
	})

	t.Run("разные события с одним pspReference не конфликтуют", func(t *testing.T) {
		mr.FlushAll()

		l := newAuthorisedLedger(t)
		registerModification(t, l, domain.ModificationRefund, "psp-mod-1")
		p := NewProcessor(l, acceptAll, nil, Config{Redis: rdb, DedupTTL: time.Hour})

		// Неуспешный возврат, затем его успешная повторная попытка:
		// success входит в ключ, второе событие не считается дубликатом.
		p.ProcessBatch(context.Background(), batch(item(provider.EventRefund, "psp-mod-1", "false", 400)))
		p.ProcessBatch(context.Background(), batch(item(provider.EventRefund, "psp-mod-1", "true", 400)))

		rec, err := l.Get("order-1")
		require.NoError(t, err)
		assert.Equal(t, int64(400), rec.RefundedValue)
	})

	t.Run("fail-open при недоступном Redis", func(t *testing.T) {
		l := newAuthorisedLedger(t)
		registerModification(t, l, domain.ModificationCapture, "psp-mod-1")

		deadRedis := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
		t.Cleanup(func() { _ = deadRedis.Close() })
		p := NewProcessor(l, acceptAll, nil, Config{Redis: deadRedis, DedupTTL: time.Hour})

		p.ProcessBatch(context.Background(), batch(item(provider.EventCapture, "psp-mod-1", "true", 1000)))

		rec, err := l.Get("order-1")
		require.NoError(t, err)
		assert.Equal(t, int64(1000), rec.CapturedValue)
	})
}
