// Package service содержит бизнес-логику прямых вызовов Checkout System:
// создание сессий и модификации платежей с фиксацией результатов в леджере.
package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"example.com/checkout-system/internal/domain"
	"example.com/checkout-system/internal/events"
	"example.com/checkout-system/internal/ledger"
	"example.com/checkout-system/internal/provider"
	"example.com/checkout-system/pkg/logger"
	"example.com/checkout-system/pkg/metrics"
)

// =============================================================================
// Интерфейсы внешних зависимостей
// =============================================================================

// CheckoutGateway — клиент платёжного провайдера.
// Позволяет мокировать HTTP клиент в тестах.
type CheckoutGateway interface {
	// MerchantAccount возвращает merchant account для запросов.
	MerchantAccount() string

	// CreateSession создаёт checkout-сессию.
	CreateSession(ctx context.Context, req provider.SessionRequest) (*provider.SessionResponse, error)

	// Capture запрашивает списание по авторизованному платежу.
	Capture(ctx context.Context, paymentPSPReference string, req provider.ModificationRequest) (*provider.ModificationResponse, error)

	// Cancel запрашивает отмену авторизации.
	Cancel(ctx context.Context, paymentPSPReference string, req provider.ModificationRequest) (*provider.ModificationResponse, error)

	// Refund запрашивает возврат списанных средств.
	Refund(ctx context.Context, paymentPSPReference string, req provider.ModificationRequest) (*provider.ModificationResponse, error)

	// Reverse запрашивает reversal (отмена или возврат на выбор провайдера).
	Reverse(ctx context.Context, paymentPSPReference string, req provider.ModificationRequest) (*provider.ModificationResponse, error)
}

// =============================================================================
// DTO
// =============================================================================

// CreateSessionRequest — запрос на создание сессии.
// Amount опционален: по умолчанию берётся сконфигурированная сумма.
type CreateSessionRequest struct {
	Amount                *domain.Amount
	AllowedPaymentMethods []string
	Splits                []provider.Split
}

// CreateSessionResult — созданная сессия и reference нового заказа.
type CreateSessionResult struct {
	Session  *provider.SessionResponse
	OrderRef string
}

// Config — настройки сервиса платежей.
type Config struct {
	// DefaultAmount — сумма сессии, если клиент её не прислал.
	DefaultAmount domain.Amount

	// ReturnURLBase — база для returnUrl 3DS-редиректа (адрес фронтенда).
	ReturnURLBase string
}

// =============================================================================
// Сервис
// =============================================================================

// PaymentService — оркестрация прямых вызовов: леджер + провайдер + события.
type PaymentService struct {
	gateway CheckoutGateway
	ledger  *ledger.Ledger
	events  events.Publisher
	cfg     Config
}

// NewPaymentService создаёт сервис платежей.
func NewPaymentService(gateway CheckoutGateway, l *ledger.Ledger, pub events.Publisher, cfg Config) *PaymentService {
	if pub == nil {
		pub = events.Nop{}
	}
	return &PaymentService{
		gateway: gateway,
		ledger:  l,
		events:  pub,
		cfg:     cfg,
	}
}

// CreateSession создаёт checkout-сессию у провайдера и заводит запись в леджере.
// Возвращает ответ провайдера и reference заказа.
func (s *PaymentService) CreateSession(ctx context.Context, req CreateSessionRequest) (*CreateSessionResult, error) {
	log := logger.FromContext(ctx)

	orderRef := uuid.New().String()

	amount := s.cfg.DefaultAmount
	if req.Amount != nil {
		if req.Amount.Value <= 0 {
			return nil, domain.ErrInvalidAmount
		}
		amount = *req.Amount
	}

	session, err := s.gateway.CreateSession(ctx, provider.SessionRequest{
		Amount:                amount,
		Reference:             orderRef,
		MerchantAccount:       s.gateway.MerchantAccount(),
		Channel:               "Web",
		ReturnURL:             fmt.Sprintf("%s/redirect?orderRef=%s", s.cfg.ReturnURLBase, orderRef),
		AllowedPaymentMethods: req.AllowedPaymentMethods,
		AdditionalData:        map[string]string{"executeThreeD": "true"},
		Splits:                req.Splits,
	})
	if err != nil {
		return nil, err
	}

	if err := s.ledger.Create(orderRef, amount); err != nil {
		// uuid исключает коллизии reference; дубликат здесь — баг.
		log.Error().Err(err).Str("order_ref", orderRef).Msg("Ошибка создания записи в леджере")
		return nil, err
	}

	log.Info().
		Str("order_ref", orderRef).
		Int64("value", amount.Value).
		Str("currency", amount.Currency).
		Msg("Checkout-сессия создана")

	return &CreateSessionResult{Session: session, OrderRef: orderRef}, nil
}

// Capture запрашивает списание. value <= 0 означает "остаток суммы авторизации".
func (s *PaymentService) Capture(ctx context.Context, orderRef string, value int64) (*provider.ModificationResponse, error) {
	rec, err := s.authorisedRecord(orderRef)
	if err != nil {
		return nil, err
	}

	if value <= 0 {
		value = rec.RemainingCapture()
	}
	if value <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	amount := &domain.Amount{Currency: rec.Amount.Currency, Value: value}
	return s.modify(ctx, orderRef, rec, domain.ModificationCapture, amount, s.gateway.Capture)
}

// Cancel запрашивает отмену авторизации.
func (s *PaymentService) Cancel(ctx context.Context, orderRef string) (*provider.ModificationResponse, error) {
	rec, err := s.authorisedRecord(orderRef)
	if err != nil {
		return nil, err
	}
	return s.modify(ctx, orderRef, rec, domain.ModificationCancel, nil, s.gateway.Cancel)
}

// Refund запрашивает возврат. value <= 0 означает "весь невозвращённый остаток".
func (s *PaymentService) Refund(ctx context.Context, orderRef string, value int64) (*provider.ModificationResponse, error) {
	rec, err := s.authorisedRecord(orderRef)
	if err != nil {
		return nil, err
	}

	if value <= 0 {
		value = rec.CapturedValue - rec.RefundedValue
	}
	if value <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	amount := &domain.Amount{Currency: rec.Amount.Currency, Value: value}
	return s.modify(ctx, orderRef, rec, domain.ModificationRefund, amount, s.gateway.Refund)
}

// CancelOrRefund запрашивает reversal: провайдер сам решает, отменять
// авторизацию или возвращать списанные средства.
func (s *PaymentService) CancelOrRefund(ctx context.Context, orderRef string) (*provider.ModificationResponse, error) {
	rec, err := s.authorisedRecord(orderRef)
	if err != nil {
		return nil, err
	}
	return s.modify(ctx, orderRef, rec, domain.ModificationReversal, nil, s.gateway.Reverse)
}

// DataStore возвращает снапшот всего леджера.
func (s *PaymentService) DataStore(ctx context.Context) map[string]domain.PaymentRecord {
	return s.ledger.All()
}

// =============================================================================
// Вспомогательные методы
// =============================================================================

// authorisedRecord возвращает запись, пригодную для модификаций.
func (s *PaymentService) authorisedRecord(orderRef string) (domain.PaymentRecord, error) {
	rec, err := s.ledger.Get(orderRef)
	if err != nil {
		return domain.PaymentRecord{}, err
	}
	if !rec.Authorised() {
		return domain.PaymentRecord{}, domain.ErrNotAuthorised
	}
	return rec, nil
}

// modifyCall — сигнатура методов модификации CheckoutGateway.
type modifyCall func(ctx context.Context, paymentPSPReference string, req provider.ModificationRequest) (*provider.ModificationResponse, error)

// modify выполняет запрос модификации и фиксирует результат в леджере.
func (s *PaymentService) modify(ctx context.Context, orderRef string, rec domain.PaymentRecord, kind domain.ModificationKind, amount *domain.Amount, call modifyCall) (*provider.ModificationResponse, error) {
	log := logger.FromContext(ctx)

	resp, err := call(ctx, rec.PaymentRef, provider.ModificationRequest{
		MerchantAccount: s.gateway.MerchantAccount(),
		Amount:          amount,
		Reference:       uuid.New().String(),
	})
	if err != nil {
		metrics.RecordModification(string(kind), "error")
		return nil, err
	}

	updated, err := s.ledger.RegisterModification(orderRef, kind, resp.PSPReference)
	if err != nil {
		// Провайдер запрос уже принял; рассинхрон леджера только логируем.
		log.Error().
			Err(err).
			Str("order_ref", orderRef).
			Str("psp_reference", resp.PSPReference).
			Msg("Модификация принята провайдером, но не зафиксирована в леджере")
		return nil, err
	}

	metrics.RecordModification(string(kind), "success")
	s.events.PublishStatusChange(ctx, updated)

	log.Info().
		Str("order_ref", orderRef).
		Str("kind", string(kind)).
		Str("modification_ref", resp.PSPReference).
		Str("status", string(updated.Status)).
		Msg("Модификация платежа инициирована")

	return resp, nil
}
