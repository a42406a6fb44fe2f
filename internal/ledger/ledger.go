// Package ledger содержит in-memory леджер платежей — авторитетный источник
// финансового состояния каждого заказа на время жизни процесса.
package ledger

import (
	"sync"
	"time"

	"example.com/checkout-system/internal/domain"
)

// Ledger — потокобезопасная таблица записей о платежах.
//
// Хранилище намеренно энергозависимое: записи живут от создания сессии до
// завершения процесса и не переживают рестарт. Все мутации выполняются под
// write-блокировкой, поэтому гонка прямого вызова и webhook'а по одному
// reference сериализуется внутри процесса.
type Ledger struct {
	mu      sync.RWMutex
	records map[string]*domain.PaymentRecord
}

// New создаёт пустой леджер.
func New() *Ledger {
	return &Ledger{
		records: make(map[string]*domain.PaymentRecord),
	}
}

// Create добавляет новую запись с нулевыми счётчиками списаний и возвратов.
// Возвращает ErrDuplicateReference, если reference уже занят — при генерации
// reference через uuid это означает баг вызывающего кода.
func (l *Ledger) Create(reference string, amount domain.Amount) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.records[reference]; exists {
		return domain.ErrDuplicateReference
	}

	now := time.Now()
	l.records[reference] = &domain.PaymentRecord{
		Reference: reference,
		Amount:    amount,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return nil
}

// Get возвращает копию записи по reference.
func (l *Ledger) Get(reference string) (domain.PaymentRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	rec, ok := l.records[reference]
	if !ok {
		return domain.PaymentRecord{}, domain.ErrRecordNotFound
	}
	return *rec, nil
}

// All возвращает снапшот всех записей (reference -> запись).
// Используется для дампа состояния через GET /api/getPaymentDataStore.
func (l *Ledger) All() map[string]domain.PaymentRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	snapshot := make(map[string]domain.PaymentRecord, len(l.records))
	for ref, rec := range l.records {
		snapshot[ref] = *rec
	}
	return snapshot
}

// FindByModificationRef ищет запись линейным сканом по ModificationRef.
// Возвращается первое совпадение; различить несколько записей с одинаковым
// ModificationRef по данным из webhook'а невозможно. Отсутствие совпадений —
// ErrRecordNotFound.
func (l *Ledger) FindByModificationRef(modificationRef string) (domain.PaymentRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	rec := l.findByModificationRefLocked(modificationRef)
	if rec == nil {
		return domain.PaymentRecord{}, domain.ErrRecordNotFound
	}
	return *rec, nil
}

// findByModificationRefLocked — скан без блокировки, вызывать под l.mu.
func (l *Ledger) findByModificationRefLocked(modificationRef string) *domain.PaymentRecord {
	if modificationRef == "" {
		return nil
	}
	for _, rec := range l.records {
		if rec.ModificationRef == modificationRef {
			return rec
		}
	}
	return nil
}

// =============================================================================
// Прямые вызовы
// =============================================================================

// RegisterModification фиксирует результат успешного прямого вызова
// (capture/cancel/refund/reversal): статус "... Initiated" и psp reference
// модификации. Запись обязана быть авторизованной (PaymentRef записан).
func (l *Ledger) RegisterModification(reference string, kind domain.ModificationKind, modificationRef string) (domain.PaymentRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[reference]
	if !ok {
		return domain.PaymentRecord{}, domain.ErrRecordNotFound
	}
	if err := rec.BeginModification(kind, modificationRef); err != nil {
		return domain.PaymentRecord{}, err
	}
	return *rec, nil
}

// =============================================================================
// Webhook-события
// =============================================================================

// Authorise применяет AUTHORISATION: запись ищется по merchantReference
// (он же reference заказа). Возвращает обновлённую копию записи.
func (l *Ledger) Authorise(merchantReference, pspReference string) (domain.PaymentRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[merchantReference]
	if !ok {
		return domain.PaymentRecord{}, domain.ErrRecordNotFound
	}
	rec.ApplyAuthorisation(pspReference)
	return *rec, nil
}

// ApplyCapture применяет CAPTURE к записи, найденной по modificationRef.
func (l *Ledger) ApplyCapture(modificationRef string, value int64) (domain.PaymentRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec := l.findByModificationRefLocked(modificationRef)
	if rec == nil {
		return domain.PaymentRecord{}, domain.ErrRecordNotFound
	}
	rec.ApplyCapture(value)
	return *rec, nil
}

// ApplyCancelOrRefund применяет CANCEL_OR_REFUND к записи, найденной по
// modificationRef. action — значение additionalData["modification.action"].
func (l *Ledger) ApplyCancelOrRefund(modificationRef, action string, value int64) (domain.PaymentRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec := l.findByModificationRefLocked(modificationRef)
	if rec == nil {
		return domain.PaymentRecord{}, domain.ErrRecordNotFound
	}
	rec.ApplyCancelOrRefund(action, value)
	return *rec, nil
}

// ApplyCancellation применяет CANCELLATION к записи, найденной по modificationRef.
func (l *Ledger) ApplyCancellation(modificationRef string, success bool, value int64) (domain.PaymentRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec := l.findByModificationRefLocked(modificationRef)
	if rec == nil {
		return domain.PaymentRecord{}, domain.ErrRecordNotFound
	}
	rec.ApplyCancellation(success, value)
	return *rec, nil
}

// ApplyRefund применяет REFUND к записи, найденной по modificationRef.
func (l *Ledger) ApplyRefund(modificationRef string, success bool, value int64) (domain.PaymentRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec := l.findByModificationRefLocked(modificationRef)
	if rec == nil {
		return domain.PaymentRecord{}, domain.ErrRecordNotFound
	}
	rec.ApplyRefund(success, value)
	return *rec, nil
}
