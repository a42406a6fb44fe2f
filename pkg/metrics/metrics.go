// Package metrics предоставляет Prometheus метрики Checkout System
// и HTTP сервер для /metrics endpoint.
//
// Типы метрик:
//   - Counter: только растёт (запросы, события) — "сколько всего произошло"
//   - Histogram: распределение значений (latency) — "как быстро работает"
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"example.com/checkout-system/pkg/logger"
)

// =============================================================================
// Метрики
// =============================================================================

var (
	// RequestsTotal — счётчик HTTP запросов.
	// PromQL: rate(requests_total{service="checkout"}[5m]) — RPS за 5 минут.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "requests_total",
			Help: "Общее количество запросов по сервису, методу и статусу",
		},
		[]string{"service", "method", "status"},
	)

	// RequestDuration — гистограмма latency запросов.
	// PromQL: histogram_quantile(0.95, rate(request_duration_seconds_bucket[5m])).
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "request_duration_seconds",
			Help:    "Время выполнения запроса в секундах",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"service", "method"},
	)

	// WebhookEventsTotal — счётчик webhook-уведомлений по коду события и исходу
	// (applied, duplicate, invalid_hmac, no_match, skipped).
	WebhookEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "Количество webhook-уведомлений по коду события и исходу обработки",
		},
		[]string{"event_code", "outcome"},
	)

	// ModificationsTotal — счётчик прямых модификаций платежей
	// (capture/cancel/refund/reversal) по исходу.
	ModificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_modifications_total",
			Help: "Количество запросов модификации платежей по типу и исходу",
		},
		[]string{"kind", "status"},
	)
)

// RecordRequest записывает метрики HTTP запроса.
func RecordRequest(service, method, status string, duration time.Duration) {
	RequestsTotal.WithLabelValues(service, method, status).Inc()
	RequestDuration.WithLabelValues(service, method).Observe(duration.Seconds())
}

// RecordWebhookEvent записывает исход обработки webhook-уведомления.
func RecordWebhookEvent(eventCode, outcome string) {
	WebhookEventsTotal.WithLabelValues(eventCode, outcome).Inc()
}

// RecordModification записывает исход запроса модификации платежа.
func RecordModification(kind, status string) {
	ModificationsTotal.WithLabelValues(kind, status).Inc()
}

// =============================================================================
// HTTP Server для /metrics endpoint
// =============================================================================

// ReadinessChecker — проверка готовности сервиса.
// nil ошибка — сервис готов принимать трафик.
type ReadinessChecker func(ctx context.Context) error

// Server — HTTP сервер для экспорта метрик Prometheus.
type Server struct {
	httpServer     *http.Server
	service        string
	readinessCheck ReadinessChecker
}

// Option — функциональная опция Server.
type Option func(*Server)

// WithReadinessCheck добавляет проверку готовности для /readyz.
// Ошибка checker'а — 503 Service Unavailable.
func WithReadinessCheck(checker ReadinessChecker) Option {
	return func(s *Server) {
		s.readinessCheck = checker
	}
}

// NewServer создаёт metrics server на addr (например ":9090").
func NewServer(addr, service string, opts ...Option) *Server {
	s := &Server{service: service}
	for _, opt := range opts {
		opt(s)
	}

	mux := http.NewServeMux()

	// /metrics — сюда приходит Prometheus за метриками.
	mux.Handle("/metrics", promhttp.Handler())

	// /healthz — liveness probe: процесс жив, раз сервер отвечает.
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"alive"}`))
	})

	// /readyz — readiness probe: зависимости доступны.
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if s.readinessCheck == nil {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ready"}`))
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := s.readinessCheck(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			// Детали ошибки наружу не отдаём.
			_, _ = w.Write([]byte(`{"status":"not_ready"}`))
			logger.Warn().Err(err).Str("service", service).Msg("Readiness check failed")
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	})

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return s
}

// Start запускает сервер. Блокирующий вызов — запускать в горутине.
func (s *Server) Start() error {
	logger.Info().Str("service", s.service).Str("addr", s.httpServer.Addr).Msg("Запуск Metrics Server")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully останавливает сервер.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// =============================================================================
// Gin Middleware
// =============================================================================

// GinMetricsMiddleware собирает requests_total и request_duration_seconds
// для каждого HTTP запроса.
func GinMetricsMiddleware(service string) func(c *gin.Context) {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := "success"
		if c.Writer.Status() >= 400 {
			status = "error"
		}

		RecordRequest(service, c.FullPath(), status, time.Since(start))
	}
}
