// Package provider содержит клиент Checkout API платёжного провайдера
// и типы его wire-формата. Провайдер — внешний чёрный ящик: клиент не
// интерпретирует ответы, только транспортирует их.
package provider

import (
	"fmt"

	"example.com/checkout-system/internal/domain"
)

// SessionRequest — запрос на создание checkout-сессии.
type SessionRequest struct {
	Amount                domain.Amount     `json:"amount"`
	Reference             string            `json:"reference"`
	MerchantAccount       string            `json:"merchantAccount"`
	Channel               string            `json:"channel"`
	ReturnURL             string            `json:"returnUrl"`
	AllowedPaymentMethods []string          `json:"allowedPaymentMethods,omitempty"`
	AdditionalData        map[string]string `json:"additionalData,omitempty"`
	Splits                []Split           `json:"splits,omitempty"`
}

// Split — часть суммы платежа, направляемая на отдельный счёт (split payments).
type Split struct {
	Amount    *domain.Amount `json:"amount,omitempty"`
	Type      string         `json:"type"`
	Account   string         `json:"account,omitempty"`
	Reference string         `json:"reference"`
}

// SessionResponse — ответ провайдера на создание сессии.
// SessionData передаётся фронтенду как есть.
type SessionResponse struct {
	ID              string        `json:"id"`
	SessionData     string        `json:"sessionData"`
	Amount          domain.Amount `json:"amount"`
	Reference       string        `json:"reference"`
	MerchantAccount string        `json:"merchantAccount"`
	ReturnURL       string        `json:"returnUrl"`
	ExpiresAt       string        `json:"expiresAt,omitempty"`
}

// ModificationRequest — запрос модификации авторизованного платежа
// (capture, cancel, refund, reversal). Amount присутствует только там,
// где модификация поддерживает частичную сумму (capture, refund).
type ModificationRequest struct {
	MerchantAccount string         `json:"merchantAccount"`
	Amount          *domain.Amount `json:"amount,omitempty"`
	Reference       string         `json:"reference"`
}

// ModificationResponse — ответ провайдера на запрос модификации.
// PSPReference — идентификатор самой модификации; именно он придёт в
// webhook'е подтверждения и по нему леджер находит запись.
type ModificationResponse struct {
	MerchantAccount     string         `json:"merchantAccount"`
	PaymentPSPReference string         `json:"paymentPspReference"`
	PSPReference        string         `json:"pspReference"`
	Reference           string         `json:"reference"`
	Status              string         `json:"status"`
	Amount              *domain.Amount `json:"amount,omitempty"`
}

// APIError — ошибка Checkout API. Пробрасывается HTTP-вызывающему
// с оригинальным статусом и сообщением провайдера, без повторов.
type APIError struct {
	Status    int    `json:"status"`
	ErrorCode string `json:"errorCode"`
	ErrorType string `json:"errorType"`
	Message   string `json:"message"`
}

// Error реализует интерфейс error.
func (e *APIError) Error() string {
	return fmt.Sprintf("checkout api: статус %d, код %s: %s", e.Status, e.ErrorCode, e.Message)
}
