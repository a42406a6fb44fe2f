package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"example.com/checkout-system/internal/middleware"
	"example.com/checkout-system/pkg/metrics"
)

// ReadinessChecker — проверка готовности сервиса.
type ReadinessChecker func(ctx context.Context) error

// Router — конфигурация HTTP роутера.
type Router struct {
	engine         *gin.Engine
	payments       *PaymentHandler
	webhook        *WebhookHandler
	rateLimitMW    *middleware.RateLimitMiddleware
	readinessCheck ReadinessChecker
}

// RouterConfig — параметры создания роутера.
type RouterConfig struct {
	Payments       *PaymentHandler
	Webhook        *WebhookHandler
	RateLimitMW    *middleware.RateLimitMiddleware // опционально
	ReadinessCheck ReadinessChecker                // опциональная проверка для /readyz
	Debug          bool                            // режим отладки Gin
}

// NewRouter создаёт и настраивает HTTP роутер.
func NewRouter(cfg RouterConfig) *Router {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	engine.Use(gin.Recovery())

	// CORS — browser-фронтенд чекаута ходит с другого origin
	engine.Use(middleware.CORS(middleware.DefaultCORSConfig()))

	// Security headers — платёжный API не кешируем и не встраиваем в iframe
	engine.Use(middleware.SecurityHeaders())

	// Trace/correlation ID + логирование запросов
	engine.Use(middleware.RequestTracing())

	// OpenTelemetry tracing — spans для Jaeger
	engine.Use(otelgin.Middleware("checkout-system"))

	// Prometheus метрики — requests_total, request_duration_seconds
	engine.Use(metrics.GinMetricsMiddleware("checkout"))

	r := &Router{
		engine:         engine,
		payments:       cfg.Payments,
		webhook:        cfg.Webhook,
		rateLimitMW:    cfg.RateLimitMW,
		readinessCheck: cfg.ReadinessCheck,
	}

	r.setupRoutes()
	return r
}

// setupRoutes настраивает маршруты API.
func (r *Router) setupRoutes() {
	// Health endpoints (без rate limiting)
	r.engine.GET("/health", r.healthCheck)
	r.engine.GET("/healthz", r.livenessCheck)
	r.engine.GET("/readyz", r.readinessCheckHandler)

	api := r.engine.Group("/api")

	if r.rateLimitMW != nil {
		api.Use(r.rateLimitMW.Handle())
	}

	// === Payment routes ===
	api.GET("/getPaymentDataStore", r.payments.GetPaymentDataStore)
	api.POST("/sessions", r.payments.CreateSession)
	api.POST("/capturePayment", r.payments.CapturePayment)
	api.POST("/cancelPayment", r.payments.CancelPayment)
	api.POST("/refundPayment", r.payments.RefundPayment)
	api.POST("/cancelOrRefundPayment", r.payments.CancelOrRefundPayment)

	// === Webhook ===
	api.POST("/webhook/notification", r.webhook.HandleNotification)
}

// Engine возвращает Gin engine для запуска сервера.
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// healthCheck — проверка работоспособности сервиса (legacy).
func (r *Router) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "checkout-system",
	})
}

// livenessCheck — liveness probe: процесс жив, раз сервер отвечает.
func (r *Router) livenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

// readinessCheckHandler — readiness probe: зависимости доступны.
func (r *Router) readinessCheckHandler(c *gin.Context) {
	if r.readinessCheck == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := r.readinessCheck(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
