package provider

import "example.com/checkout-system/internal/domain"

// Коды webhook-событий, которые обрабатывает леджер.
// Остальные коды — non-actionable и пропускаются.
const (
	EventAuthorisation  = "AUTHORISATION"
	EventCapture        = "CAPTURE"
	EventCancelOrRefund = "CANCEL_OR_REFUND"
	EventCancellation   = "CANCELLATION"
	EventRefund         = "REFUND"
)

// Ключи additionalData в уведомлениях.
const (
	// AdditionalDataHMACSignature — подпись уведомления.
	AdditionalDataHMACSignature = "hmacSignature"

	// AdditionalDataModificationAction — фактическая операция reversal'а
	// ("refund" или "cancel") в событии CANCEL_OR_REFUND.
	AdditionalDataModificationAction = "modification.action"
)

// Notification — батч webhook-уведомлений от провайдера.
type Notification struct {
	Live              string                `json:"live"`
	NotificationItems []NotificationWrapper `json:"notificationItems"`
}

// NotificationWrapper — обёртка одного элемента батча (формат провайдера).
type NotificationWrapper struct {
	Item NotificationRequestItem `json:"NotificationRequestItem"`
}

// NotificationRequestItem — одно webhook-уведомление.
type NotificationRequestItem struct {
	Amount              domain.Amount     `json:"amount"`
	EventCode           string            `json:"eventCode"`
	EventDate           string            `json:"eventDate,omitempty"`
	MerchantAccountCode string            `json:"merchantAccountCode"`
	MerchantReference   string            `json:"merchantReference"`
	OriginalReference   string            `json:"originalReference,omitempty"`
	PSPReference        string            `json:"pspReference"`
	Reason              string            `json:"reason,omitempty"`
	Success             string            `json:"success"`
	AdditionalData      map[string]string `json:"additionalData,omitempty"`
}

// IsSuccess парсит строковый boolean wire-формата ("true"/"false")
// в настоящий bool. Внутри системы сравнения строк не используются.
func (n *NotificationRequestItem) IsSuccess() bool {
	return n.Success == "true"
}

// HMACSignature возвращает подпись из additionalData (пустая строка, если нет).
func (n *NotificationRequestItem) HMACSignature() string {
	return n.AdditionalData[AdditionalDataHMACSignature]
}

// ModificationAction возвращает additionalData["modification.action"].
func (n *NotificationRequestItem) ModificationAction() string {
	return n.AdditionalData[AdditionalDataModificationAction]
}
