// Package domain содержит бизнес-сущности Checkout System.
package domain

import "time"

// PaymentStatus — статус платежа в жизненном цикле заказа.
// Строковые значения совпадают с терминологией дашборда провайдера.
type PaymentStatus string

const (
	// PaymentStatusNone — запись создана, авторизация ещё не подтверждена webhook'ом.
	PaymentStatusNone PaymentStatus = ""

	// PaymentStatusAuthorised — авторизация подтверждена (AUTHORISATION webhook).
	PaymentStatusAuthorised PaymentStatus = "Authorised"

	// PaymentStatusCaptureInitiated — запрос на списание принят провайдером,
	// ожидаем подтверждение webhook'ом.
	PaymentStatusCaptureInitiated PaymentStatus = "Capture Initiated"

	// PaymentStatusCaptured — списана полная сумма авторизации.
	PaymentStatusCaptured PaymentStatus = "Captured"

	// PaymentStatusPartiallyCaptured — списана часть суммы авторизации.
	PaymentStatusPartiallyCaptured PaymentStatus = "Partially Captured"

	// PaymentStatusCancelInitiated — запрос на отмену принят провайдером.
	PaymentStatusCancelInitiated PaymentStatus = "Cancel Initiated"

	// PaymentStatusRefundInitiated — запрос на возврат (или reversal) принят провайдером.
	PaymentStatusRefundInitiated PaymentStatus = "Refund Initiated"

	// PaymentStatusRefunded — возвращена вся списанная сумма.
	PaymentStatusRefunded PaymentStatus = "Refunded"

	// PaymentStatusPartiallyRefunded — возвращена часть списанной суммы.
	PaymentStatusPartiallyRefunded PaymentStatus = "Partially Refunded"

	// PaymentStatusCancelled — авторизация отменена.
	PaymentStatusCancelled PaymentStatus = "Cancelled"
)

// ModificationKind — тип модификации уже авторизованного платежа.
type ModificationKind string

const (
	ModificationCapture  ModificationKind = "capture"
	ModificationCancel   ModificationKind = "cancel"
	ModificationRefund   ModificationKind = "refund"
	ModificationReversal ModificationKind = "reversal"
)

// initiatedStatus — статус "... Initiated", выставляемый сразу после
// успешного прямого вызова модификации (до подтверждения webhook'ом).
var initiatedStatus = map[ModificationKind]PaymentStatus{
	ModificationCapture:  PaymentStatusCaptureInitiated,
	ModificationCancel:   PaymentStatusCancelInitiated,
	ModificationRefund:   PaymentStatusRefundInitiated,
	ModificationReversal: PaymentStatusRefundInitiated,
}

// Amount — денежная сумма в минимальных единицах валюты (центы, копейки).
type Amount struct {
	Currency string `json:"currency"` // ISO 4217 код
	Value    int64  `json:"value"`    // сумма в минимальных единицах
}

// =============================================================================
// PaymentRecord — доменная сущность
// =============================================================================

// PaymentRecord — запись о платеже одного заказа.
//
// Запись мутируется двумя путями: синхронными результатами прямых вызовов
// (capture/cancel/refund/reversal -> статусы "... Initiated") и асинхронными
// webhook-уведомлениями (финальные статусы и счётчики сумм). Терминальных
// состояний нет: провайдер может присылать несколько частичных событий подряд.
type PaymentRecord struct {
	Reference       string        `json:"reference"`                 // ключ леджера, назначается при создании сессии
	Amount          Amount        `json:"amount"`                    // сумма авторизации, задаётся один раз
	PaymentRef      string        `json:"paymentRef,omitempty"`      // psp reference транзакции, пишется ровно один раз
	ModificationRef string        `json:"modificationRef,omitempty"` // psp reference последней модификации
	Status          PaymentStatus `json:"status,omitempty"`          // текущий статус
	CapturedValue   int64         `json:"capturedValue"`             // суммарно списано, монотонно растёт
	RefundedValue   int64         `json:"refundedValue"`             // суммарно возвращено, монотонно растёт
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}

// Authorised возвращает true, если платёж уже получил подтверждение авторизации.
// Только такие записи допускают capture/cancel/refund.
func (p *PaymentRecord) Authorised() bool {
	return p.PaymentRef != ""
}

// RemainingCapture возвращает остаток суммы, доступный для списания.
func (p *PaymentRecord) RemainingCapture() int64 {
	return p.Amount.Value - p.CapturedValue
}

// =============================================================================
// Прямые вызовы
// =============================================================================

// BeginModification фиксирует принятую провайдером модификацию:
// выставляет статус "... Initiated" и перезаписывает ModificationRef.
// Требует подтверждённой авторизации (PaymentRef уже записан).
func (p *PaymentRecord) BeginModification(kind ModificationKind, modificationRef string) error {
	if !p.Authorised() {
		return ErrNotAuthorised
	}

	status, ok := initiatedStatus[kind]
	if !ok {
		return ErrUnknownModification
	}

	p.Status = status
	p.ModificationRef = modificationRef
	p.UpdatedAt = time.Now()
	return nil
}

// =============================================================================
// Webhook-сверка
// =============================================================================

// ApplyAuthorisation применяет успешное событие AUTHORISATION.
// PaymentRef пишется только первым событием, повторные авторизации
// (например, после повторной доставки) его не перезаписывают.
func (p *PaymentRecord) ApplyAuthorisation(pspReference string) {
	p.Status = PaymentStatusAuthorised
	if p.PaymentRef == "" {
		p.PaymentRef = pspReference
	}
	p.UpdatedAt = time.Now()
}

// ApplyCapture применяет успешное событие CAPTURE.
// Сравнение идёт с остатком ДО инкремента: событие, закрывающее остаток
// ровно в ноль, означает полное списание, любое другое — частичное.
func (p *PaymentRecord) ApplyCapture(value int64) {
	if p.RemainingCapture() == value {
		p.Status = PaymentStatusCaptured
	} else {
		p.Status = PaymentStatusPartiallyCaptured
	}
	p.CapturedValue += value
	p.UpdatedAt = time.Now()
}

// ApplyCancelOrRefund применяет успешное событие CANCEL_OR_REFUND (reversal).
// Провайдер сам выбирает операцию и сообщает её в additionalData["modification.action"].
func (p *PaymentRecord) ApplyCancelOrRefund(action string, value int64) {
	if action == "refund" {
		p.Status = PaymentStatusRefunded
	} else {
		p.Status = PaymentStatusCancelled
	}
	p.RefundedValue += value
	p.UpdatedAt = time.Now()
}

// ApplyCancellation применяет событие CANCELLATION.
// Неуспешная отмена возвращает платёж в Authorised: авторизация остаётся в силе.
func (p *PaymentRecord) ApplyCancellation(success bool, value int64) {
	if success {
		p.Status = PaymentStatusCancelled
		p.RefundedValue += value
	} else {
		p.Status = PaymentStatusAuthorised
	}
	p.UpdatedAt = time.Now()
}

// ApplyRefund применяет событие REFUND.
// Успешный возврат, закрывающий ровно весь списанный остаток
// (capturedValue - refundedValue до инкремента), делает платёж Refunded,
// иначе — Partially Refunded. Неуспешный возврат откатывает статус в Captured.
func (p *PaymentRecord) ApplyRefund(success bool, value int64) {
	if success {
		if p.CapturedValue-p.RefundedValue == value {
			p.Status = PaymentStatusRefunded
		} else {
			p.Status = PaymentStatusPartiallyRefunded
		}
		p.RefundedValue += value
	} else {
		p.Status = PaymentStatusCaptured
	}
	p.UpdatedAt = time.Now()
}
