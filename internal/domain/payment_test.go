// Package domain содержит unit тесты для доменных сущностей платежей.
package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// =====================================
// Тесты PaymentRecord.BeginModification
// =====================================

// TestPaymentRecord_BeginModification тестирует фиксацию прямых вызовов.
func TestPaymentRecord_BeginModification(t *testing.T) {
	tests := []struct {
		name           string
		record         *PaymentRecord
		kind           ModificationKind
		expectedErr    error
		expectedStatus PaymentStatus
	}{
		{
			name: "capture по авторизованному платежу",
			record: &PaymentRecord{
				Reference:  "order-1",
				PaymentRef: "psp-auth-1",
				Status:     PaymentStatusAuthorised,
			},
			kind:           ModificationCapture,
			expectedStatus: PaymentStatusCaptureInitiated,
		},
		{
			name: "cancel по авторизованному платежу",
			record: &PaymentRecord{
				Reference:  "order-1",
				PaymentRef: "psp-auth-1",
				Status:     PaymentStatusAuthorised,
			},
			kind:           ModificationCancel,
			expectedStatus: PaymentStatusCancelInitiated,
		},
		{
			name: "refund по частично списанному платежу",
			record: &PaymentRecord{
				Reference:     "order-1",
				PaymentRef:    "psp-auth-1",
				Status:        PaymentStatusPartiallyCaptured,
				CapturedValue: 400,
			},
			kind:           ModificationRefund,
			expectedStatus: PaymentStatusRefundInitiated,
		},
		{
			name: "reversal тоже даёт Refund Initiated",
			record: &PaymentRecord{
				Reference:  "order-1",
				PaymentRef: "psp-auth-1",
				Status:     PaymentStatusAuthorised,
			},
			kind:           ModificationReversal,
			expectedStatus: PaymentStatusRefundInitiated,
		},
		{
			name: "платёж без подтверждённой авторизации",
			record: &PaymentRecord{
				Reference: "order-1",
			},
			kind:        ModificationCapture,
			expectedErr: ErrNotAuthorised,
		},
		{
			name: "неизвестный тип модификации",
			record: &PaymentRecord{
				Reference:  "order-1",
				PaymentRef: "psp-auth-1",
			},
			kind:        ModificationKind("chargeback"),
			expectedErr: ErrUnknownModification,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.record.BeginModification(tt.kind, "psp-mod-1")

			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				return
			}

			assert.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, tt.record.Status)
			assert.Equal(t, "psp-mod-1", tt.record.ModificationRef)
		})
	}
}

// TestPaymentRecord_BeginModification_ПерезаписываетModificationRef проверяет,
// что каждый новый прямой вызов затирает reference предыдущей модификации.
func TestPaymentRecord_BeginModification_ПерезаписываетModificationRef(t *testing.T) {
	rec := &PaymentRecord{
		Reference:  "order-1",
		PaymentRef: "psp-auth-1",
	}

	assert.NoError(t, rec.BeginModification(ModificationCapture, "psp-mod-1"))
	assert.NoError(t, rec.BeginModification(ModificationRefund, "psp-mod-2"))

	assert.Equal(t, "psp-mod-2", rec.ModificationRef)
	assert.Equal(t, PaymentStatusRefundInitiated, rec.Status)
}

// =====================================
// Тесты webhook-сверки
// =====================================

// TestPaymentRecord_ApplyAuthorisation тестирует применение AUTHORISATION.
func TestPaymentRecord_ApplyAuthorisation(t *testing.T) {
	t.Run("первая авторизация записывает paymentRef", func(t *testing.T) {
		rec := &PaymentRecord{Reference: "order-1"}

		rec.ApplyAuthorisation("psp-auth-1")

		assert.Equal(t, PaymentStatusAuthorised, rec.Status)
		assert.Equal(t, "psp-auth-1", rec.PaymentRef)
		assert.True(t, rec.Authorised())
	})

	t.Run("повторная авторизация не перезаписывает paymentRef", func(t *testing.T) {
		rec := &PaymentRecord{Reference: "order-1", PaymentRef: "psp-auth-1"}

		rec.ApplyAuthorisation("psp-auth-2")

		assert.Equal(t, "psp-auth-1", rec.PaymentRef)
		assert.Equal(t, PaymentStatusAuthorised, rec.Status)
	})
}

// TestPaymentRecord_ApplyCapture тестирует учёт списаний.
// Полнота списания определяется по остатку ДО инкремента счётчика.
func TestPaymentRecord_ApplyCapture(t *testing.T) {
	tests := []struct {
		name             string
		authorised       int64
		alreadyCaptured  int64
		value            int64
		expectedStatus   PaymentStatus
		expectedCaptured int64
	}{
		{
			name:             "полное списание одним событием",
			authorised:       1000,
			value:            1000,
			expectedStatus:   PaymentStatusCaptured,
			expectedCaptured: 1000,
		},
		{
			name:             "частичное списание",
			authorised:       1000,
			value:            400,
			expectedStatus:   PaymentStatusPartiallyCaptured,
			expectedCaptured: 400,
		},
		{
			name:             "событие закрывает остаток в ноль",
			authorised:       1000,
			alreadyCaptured:  400,
			value:            600,
			expectedStatus:   PaymentStatusCaptured,
			expectedCaptured: 1000,
		},
		{
			name:             "списание сверх авторизации остаётся частичным",
			authorised:       1000,
			alreadyCaptured:  400,
			value:            700,
			expectedStatus:   PaymentStatusPartiallyCaptured,
			expectedCaptured: 1100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &PaymentRecord{
				Reference:     "order-1",
				Amount:        Amount{Currency: "EUR", Value: tt.authorised},
				PaymentRef:    "psp-auth-1",
				CapturedValue: tt.alreadyCaptured,
			}

			rec.ApplyCapture(tt.value)

			assert.Equal(t, tt.expectedStatus, rec.Status)
			assert.Equal(t, tt.expectedCaptured, rec.CapturedValue)
		})
	}
}

// TestPaymentRecord_ApplyCancelOrRefund тестирует применение CANCEL_OR_REFUND.
func TestPaymentRecord_ApplyCancelOrRefund(t *testing.T) {
	tests := []struct {
		name             string
		action           string
		value            int64
		expectedStatus   PaymentStatus
		expectedRefunded int64
	}{
		{
			name:             "провайдер выполнил возврат",
			action:           "refund",
			value:            1000,
			expectedStatus:   PaymentStatusRefunded,
			expectedRefunded: 1000,
		},
		{
			name:             "провайдер выполнил отмену",
			action:           "cancel",
			value:            1000,
			expectedStatus:   PaymentStatusCancelled,
			expectedRefunded: 1000,
		},
		{
			name:             "пустой modification.action трактуется как отмена",
			action:           "",
			value:            500,
			expectedStatus:   PaymentStatusCancelled,
			expectedRefunded: 500,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &PaymentRecord{
				Reference:  "order-1",
				Amount:     Amount{Currency: "EUR", Value: 1000},
				PaymentRef: "psp-auth-1",
				Status:     PaymentStatusRefundInitiated,
			}

			rec.ApplyCancelOrRefund(tt.action, tt.value)

			assert.Equal(t, tt.expectedStatus, rec.Status)
			assert.Equal(t, tt.expectedRefunded, rec.RefundedValue)
		})
	}
}

// TestPaymentRecord_ApplyCancellation тестирует применение CANCELLATION.
func TestPaymentRecord_ApplyCancellation(t *testing.T) {
	t.Run("успешная отмена", func(t *testing.T) {
		rec := &PaymentRecord{
			Reference:  "order-1",
			Amount:     Amount{Currency: "EUR", Value: 1000},
			PaymentRef: "psp-auth-1",
			Status:     PaymentStatusCancelInitiated,
		}

		rec.ApplyCancellation(true, 1000)

		assert.Equal(t, PaymentStatusCancelled, rec.Status)
		assert.Equal(t, int64(1000), rec.RefundedValue)
	})

	t.Run("неуспешная отмена откатывает статус в Authorised", func(t *testing.T) {
		rec := &PaymentRecord{
			Reference:  "order-1",
			Amount:     Amount{Currency: "EUR", Value: 1000},
			PaymentRef: "psp-auth-1",
			Status:     PaymentStatusCancelInitiated,
		}

		rec.ApplyCancellation(false, 1000)

		assert.Equal(t, PaymentStatusAuthorised, rec.Status)
		assert.Zero(t, rec.RefundedValue)
	})
}

// TestPaymentRecord_ApplyRefund тестирует учёт возвратов.
func TestPaymentRecord_ApplyRefund(t *testing.T) {
	tests := []struct {
		name             string
		captured         int64
		alreadyRefunded  int64
		success          bool
		value            int64
		expectedStatus   PaymentStatus
		expectedRefunded int64
	}{
		{
			name:             "полный возврат списанной суммы",
			captured:         1000,
			success:          true,
			value:            1000,
			expectedStatus:   PaymentStatusRefunded,
			expectedRefunded: 1000,
		},
		{
			name:             "частичный возврат",
			captured:         1000,
			success:          true,
			value:            300,
			expectedStatus:   PaymentStatusPartiallyRefunded,
			expectedRefunded: 300,
		},
		{
			name:             "возврат закрывает остаток списания в ноль",
			captured:         1000,
			alreadyRefunded:  300,
			success:          true,
			value:            700,
			expectedStatus:   PaymentStatusRefunded,
			expectedRefunded: 1000,
		},
		{
			name:             "неуспешный возврат откатывает статус в Captured",
			captured:         1000,
			success:          false,
			value:            1000,
			expectedStatus:   PaymentStatusCaptured,
			expectedRefunded: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &PaymentRecord{
				Reference:     "order-1",
				Amount:        Amount{Currency: "EUR", Value: 1000},
				PaymentRef:    "psp-auth-1",
				Status:        PaymentStatusRefundInitiated,
				CapturedValue: tt.captured,
				RefundedValue: tt.alreadyRefunded,
			}

			rec.ApplyRefund(tt.success, tt.value)

			assert.Equal(t, tt.expectedStatus, rec.Status)
			assert.Equal(t, tt.expectedRefunded, rec.RefundedValue)
		})
	}
}

// =====================================
// Сценарий жизненного цикла
// =====================================

// TestPaymentRecord_ЖизненныйЦикл прогоняет полный цикл: авторизация 1000,
// два частичных списания, полный возврат.
func TestPaymentRecord_ЖизненныйЦикл(t *testing.T) {
	rec := &PaymentRecord{
		Reference: "order-1",
		Amount:    Amount{Currency: "EUR", Value: 1000},
	}

	rec.ApplyAuthorisation("psp-auth-1")
	assert.Equal(t, PaymentStatusAuthorised, rec.Status)

	rec.ApplyCapture(400)
	assert.Equal(t, PaymentStatusPartiallyCaptured, rec.Status)
	assert.Equal(t, int64(600), rec.RemainingCapture())

	rec.ApplyCapture(600)
	assert.Equal(t, PaymentStatusCaptured, rec.Status)
	assert.Zero(t, rec.RemainingCapture())

	rec.ApplyRefund(true, 1000)
	assert.Equal(t, PaymentStatusRefunded, rec.Status)
	assert.Equal(t, int64(1000), rec.RefundedValue)
}
