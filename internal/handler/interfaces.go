// Package handler содержит HTTP обработчики REST API чекаута.
package handler

import (
	"context"

	"example.com/checkout-system/internal/domain"
	"example.com/checkout-system/internal/provider"
	"example.com/checkout-system/internal/service"
)

// Payments — интерфейс сервиса платежей.
// Позволяет мокировать бизнес-логику в тестах обработчиков.
type Payments interface {
	// CreateSession создаёт checkout-сессию и запись в леджере.
	CreateSession(ctx context.Context, req service.CreateSessionRequest) (*service.CreateSessionResult, error)

	// Capture запрашивает списание (value <= 0 — остаток авторизации).
	Capture(ctx context.Context, orderRef string, value int64) (*provider.ModificationResponse, error)

	// Cancel запрашивает отмену авторизации.
	Cancel(ctx context.Context, orderRef string) (*provider.ModificationResponse, error)

	// Refund запрашивает возврат (value <= 0 — весь невозвращённый остаток).
	Refund(ctx context.Context, orderRef string, value int64) (*provider.ModificationResponse, error)

	// CancelOrRefund запрашивает reversal.
	CancelOrRefund(ctx context.Context, orderRef string) (*provider.ModificationResponse, error)

	// DataStore возвращает снапшот леджера.
	DataStore(ctx context.Context) map[string]domain.PaymentRecord
}
