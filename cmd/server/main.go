// Package main — точка входа Checkout System.
// Сервис обеспечивает REST API чекаута: создание платёжных сессий,
// модификации платежей (capture/cancel/refund) и приём webhook-уведомлений
// провайдера со сверкой их с in-memory леджером.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"example.com/checkout-system/internal/config"
	"example.com/checkout-system/internal/domain"
	"example.com/checkout-system/internal/events"
	"example.com/checkout-system/internal/handler"
	"example.com/checkout-system/internal/ledger"
	"example.com/checkout-system/internal/middleware"
	"example.com/checkout-system/internal/provider"
	"example.com/checkout-system/internal/service"
	"example.com/checkout-system/internal/webhook"
	"example.com/checkout-system/pkg/db"
	"example.com/checkout-system/pkg/healthcheck"
	"example.com/checkout-system/pkg/kafka"
	"example.com/checkout-system/pkg/logger"
	"example.com/checkout-system/pkg/metrics"
	"example.com/checkout-system/pkg/tracing"
)

func main() {
	// Загружаем конфигурацию
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Ошибка загрузки конфигурации")
	}

	// Инициализируем логгер
	logger.Init(logger.Config{
		Level:  cfg.App.LogLevel,
		Pretty: cfg.App.LogPretty,
	})

	logger.Info().
		Str("service", cfg.App.Name).
		Str("env", cfg.App.Env).
		Msg("Запуск Checkout System")

	// === Observability: Metrics + Tracing ===

	// Redis клиент (дедупликация webhook'ов + rate limiting), опционально
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = db.ConnectRedis(cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB)
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Error().Err(err).Msg("Ошибка закрытия Redis")
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			cancel()
			logger.Fatal().Err(err).Msg("Не удалось подключиться к Redis")
		}
		cancel()
		logger.Info().Str("addr", cfg.Redis.Addr()).Msg("Подключено к Redis")
	}

	// Readiness check для probes: без Redis сервис готов всегда.
	var readinessCheck func(ctx context.Context) error
	if redisClient != nil {
		readinessCheck = healthcheck.Composite(func(ctx context.Context) error {
			return healthcheck.CheckRedis(ctx, redisClient)
		})
	}

	// Запускаем HTTP сервер для Prometheus метрик
	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		opts := []metrics.Option{}
		if readinessCheck != nil {
			opts = append(opts, metrics.WithReadinessCheck(readinessCheck))
		}
		metricsServer = metrics.NewServer(cfg.Metrics.Addr(), "checkout", opts...)
		go func() {
			if err := metricsServer.Start(); err != nil {
				logger.Error().Err(err).Msg("Ошибка Metrics Server")
			}
		}()
	}

	// Инициализируем distributed tracing (Jaeger)
	shutdownTracing, err := tracing.InitTracer(tracing.Config{
		ServiceName:    "checkout-system",
		JaegerEndpoint: cfg.Jaeger.OTLPEndpoint(),
		Enabled:        cfg.Jaeger.Enabled,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("Не удалось инициализировать tracing")
	}

	// === Инициализация зависимостей ===

	// Kafka producer для событий статусов платежей, опционально
	var eventsPublisher events.Publisher = events.Nop{}
	if cfg.Kafka.Enabled {
		producer, err := kafka.NewProducer(kafka.Config{Brokers: cfg.Kafka.Brokers})
		if err != nil {
			logger.Fatal().Err(err).Msg("Ошибка создания Kafka Producer")
		}
		defer func() {
			if err := producer.Close(); err != nil {
				logger.Error().Err(err).Msg("Ошибка закрытия Kafka Producer")
			}
		}()
		eventsPublisher = events.NewKafkaPublisher(producer)
	}

	// Клиент Checkout API
	checkoutClient := provider.NewClient(provider.Config{
		APIKey:          cfg.Checkout.APIKey,
		MerchantAccount: cfg.Checkout.MerchantAccount,
		BaseURL:         cfg.Checkout.BaseURL,
		Timeout:         cfg.Checkout.Timeout,
	})

	// HMAC валидатор webhook-подписей
	hmacValidator, err := provider.NewHMACValidator(cfg.Checkout.HMACKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("Невалидный HMAC ключ")
	}

	// In-memory леджер платежей
	paymentLedger := ledger.New()

	// Сервис прямых вызовов
	paymentService := service.NewPaymentService(checkoutClient, paymentLedger, eventsPublisher, service.Config{
		DefaultAmount: domain.Amount{
			Currency: cfg.Checkout.DefaultAmountCurrency,
			Value:    cfg.Checkout.DefaultAmountValue,
		},
		ReturnURLBase: cfg.Checkout.ReturnURLBase,
	})

	// Процессор webhook-уведомлений
	webhookCfg := webhook.Config{DedupTTL: cfg.Webhook.DedupTTL}
	if cfg.Webhook.DedupEnabled && redisClient != nil {
		webhookCfg.Redis = redisClient
	}
	webhookProcessor := webhook.NewProcessor(paymentLedger, hmacValidator, eventsPublisher, webhookCfg)

	// === Инициализация middleware ===

	// Rate limiting middleware (только при доступном Redis)
	var rateLimitMW *middleware.RateLimitMiddleware
	if cfg.RateLimit.Enabled && redisClient != nil {
		rateLimitMW = middleware.NewRateLimitMiddleware(middleware.RateLimitConfig{
			Redis:  redisClient,
			Limit:  cfg.RateLimit.RequestsLimit,
			Window: cfg.RateLimit.Window,
		})
		logger.Info().
			Int("limit", cfg.RateLimit.RequestsLimit).
			Dur("window", cfg.RateLimit.Window).
			Msg("Rate limiting включён")
	}

	// === Настройка роутера ===

	router := handler.NewRouter(handler.RouterConfig{
		Payments:       handler.NewPaymentHandler(paymentService),
		Webhook:        handler.NewWebhookHandler(webhookProcessor),
		RateLimitMW:    rateLimitMW,
		ReadinessCheck: readinessCheck,
		Debug:          cfg.IsDevelopment(),
	})

	// === HTTP сервер ===

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      router.Engine(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	// Запускаем сервер в горутине
	go func() {
		logger.Info().
			Str("addr", cfg.HTTP.Addr()).
			Msg("HTTP сервер запущен")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Ошибка HTTP сервера")
		}
	}()

	// === Graceful Shutdown ===

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Получен сигнал завершения, останавливаем сервер...")

	// Даём 30 секунд на завершение текущих запросов
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Ошибка при остановке сервера")
	}

	// Останавливаем Metrics Server (если был запущен)
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Ошибка остановки Metrics Server")
		}
	}

	// Останавливаем Tracing
	if shutdownTracing != nil {
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Ошибка остановки Tracing")
		}
	}

	logger.Info().Msg("Checkout System остановлен")
}
