package provider

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// HMACValidator проверяет подлинность webhook-уведомлений.
//
// Схема провайдера: SHA-256 HMAC от канонической конкатенации полей события
// через ":", ключ — hex-строка общего секрета, подпись — base64 в
// additionalData["hmacSignature"]. Символы "\" и ":" внутри значений
// экранируются, чтобы конкатенация оставалась однозначной.
type HMACValidator struct {
	key []byte
}

// NewHMACValidator создаёт валидатор из hex-представления ключа.
func NewHMACValidator(hexKey string) (*HMACValidator, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("некорректный HMAC ключ: %w", err)
	}
	if len(key) == 0 {
		return nil, fmt.Errorf("пустой HMAC ключ")
	}
	return &HMACValidator{key: key}, nil
}

// Validate сверяет подпись уведомления с подписью из additionalData.
// Сравнение за константное время.
func (v *HMACValidator) Validate(item NotificationRequestItem) bool {
	expected := item.HMACSignature()
	if expected == "" {
		return false
	}
	return hmac.Equal([]byte(v.Sign(item)), []byte(expected))
}

// Sign вычисляет base64-подпись для уведомления.
// Используется в тестах для сборки валидных событий.
func (v *HMACValidator) Sign(item NotificationRequestItem) string {
	mac := hmac.New(sha256.New, v.key)
	mac.Write([]byte(signingPayload(item)))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// signingPayload собирает каноническую строку для подписи.
// Порядок полей фиксирован протоколом провайдера.
func signingPayload(item NotificationRequestItem) string {
	fields := []string{
		item.PSPReference,
		item.OriginalReference,
		escapeField(item.MerchantAccountCode),
		escapeField(item.MerchantReference),
		strconv.FormatInt(item.Amount.Value, 10),
		item.Amount.Currency,
		item.EventCode,
		item.Success,
	}
	return strings.Join(fields, ":")
}

// escapeField экранирует "\" и ":" в значении поля.
func escapeField(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, ":", `\:`)
}
