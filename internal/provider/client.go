package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"example.com/checkout-system/pkg/circuitbreaker"
	"example.com/checkout-system/pkg/logger"
)

// Базовые URL Checkout API по окружениям.
const (
	testBaseURL = "https://checkout-test.adyen.com/v70"

	defaultTimeout = 30 * time.Second
)

// Config — настройки клиента Checkout API.
type Config struct {
	APIKey          string
	MerchantAccount string

	// BaseURL переопределяет адрес API (тесты, live-префикс).
	// По умолчанию — тестовое окружение.
	BaseURL string

	// Timeout — таймаут одного HTTP вызова.
	Timeout time.Duration

	// Breaker переопределяет настройки circuit breaker (nil — дефолтные).
	Breaker *circuitbreaker.Breaker
}

// Client — HTTP клиент Checkout API.
// Один вызов — один запрос: ни повторов, ни кеширования. Circuit breaker
// даёт быстрый отказ при недоступности провайдера, но ничего не повторяет.
type Client struct {
	httpClient      *http.Client
	breaker         *circuitbreaker.Breaker
	baseURL         string
	apiKey          string
	merchantAccount string
}

// NewClient создаёт клиент Checkout API.
func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = testBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	breaker := cfg.Breaker
	if breaker == nil {
		settings := circuitbreaker.DefaultSettings()
		settings.IsFailure = isInfrastructureFailure
		breaker = circuitbreaker.NewWithSettings("checkout-api", settings)
	}

	return &Client{
		httpClient:      &http.Client{Timeout: timeout},
		breaker:         breaker,
		baseURL:         baseURL,
		apiKey:          cfg.APIKey,
		merchantAccount: cfg.MerchantAccount,
	}
}

// isInfrastructureFailure отделяет сбои провайдера от его бизнес-ответов.
// Бизнес-ошибки (4xx: валидация, отказ по правилам) breaker не открывают.
func isInfrastructureFailure(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= http.StatusInternalServerError
	}
	return true
}

// MerchantAccount возвращает merchant account, от имени которого идут вызовы.
func (c *Client) MerchantAccount() string {
	return c.merchantAccount
}

// CreateSession создаёт checkout-сессию.
func (c *Client) CreateSession(ctx context.Context, req SessionRequest) (*SessionResponse, error) {
	var resp SessionResponse
	if err := c.post(ctx, "/sessions", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Capture запрашивает списание (полное или частичное) по авторизованному платежу.
func (c *Client) Capture(ctx context.Context, paymentPSPReference string, req ModificationRequest) (*ModificationResponse, error) {
	return c.modify(ctx, paymentPSPReference, "captures", req)
}

// Cancel запрашивает отмену авторизации.
func (c *Client) Cancel(ctx context.Context, paymentPSPReference string, req ModificationRequest) (*ModificationResponse, error) {
	return c.modify(ctx, paymentPSPReference, "cancels", req)
}

// Refund запрашивает возврат (полный или частичный) списанных средств.
func (c *Client) Refund(ctx context.Context, paymentPSPReference string, req ModificationRequest) (*ModificationResponse, error) {
	return c.modify(ctx, paymentPSPReference, "refunds", req)
}

// Reverse запрашивает reversal: провайдер сам выбирает между отменой
// и возвратом в зависимости от состояния платежа.
func (c *Client) Reverse(ctx context.Context, paymentPSPReference string, req ModificationRequest) (*ModificationResponse, error) {
	return c.modify(ctx, paymentPSPReference, "reversals", req)
}

// modify выполняет POST /payments/{pspReference}/{operation}.
func (c *Client) modify(ctx context.Context, paymentPSPReference, operation string, req ModificationRequest) (*ModificationResponse, error) {
	var resp ModificationResponse
	path := fmt.Sprintf("/payments/%s/%s", paymentPSPReference, operation)
	if err := c.post(ctx, path, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// post выполняет JSON POST через circuit breaker и декодирует ответ в out.
// Не-2xx ответ возвращается как *APIError со статусом и сообщением провайдера;
// при открытом breaker'е возвращается circuitbreaker.ErrOpen без похода в сеть.
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	return c.breaker.Do(func() error {
		return c.doPost(ctx, path, body, out)
	})
}

func (c *Client) doPost(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("ошибка сериализации запроса: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("ошибка создания запроса: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ошибка вызова checkout api: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil {
			apiErr.Message = resp.Status
		}
		// Статус из тела может отсутствовать — источник истины HTTP статус.
		apiErr.Status = resp.StatusCode

		logger.Warn().
			Int("status", apiErr.Status).
			Str("error_code", apiErr.ErrorCode).
			Str("path", path).
			Msg("Checkout API вернул ошибку")
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("ошибка декодирования ответа: %w", err)
	}
	return nil
}
