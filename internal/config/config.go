// Package config содержит конфигурацию Checkout System.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config содержит полную конфигурацию приложения.
type Config struct {
	App       AppConfig
	HTTP      HTTPConfig
	Checkout  CheckoutConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Webhook   WebhookConfig
	Kafka     KafkaConfig
	Jaeger    JaegerConfig
	Metrics   MetricsConfig
}

// AppConfig — общие настройки приложения.
type AppConfig struct {
	Name      string `env:"APP_NAME" envDefault:"checkout-system"`
	Env       string `env:"APP_ENV" envDefault:"development"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty bool   `env:"LOG_PRETTY" envDefault:"false"`
}

// HTTPConfig — настройки HTTP сервера.
type HTTPConfig struct {
	Host         string        `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port         int           `env:"HTTP_PORT" envDefault:"8080"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"10s"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
}

// Addr возвращает адрес HTTP сервера.
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// CheckoutConfig — настройки платёжного провайдера.
type CheckoutConfig struct {
	APIKey          string `env:"CHECKOUT_API_KEY,required"`          // API ключ Checkout API
	MerchantAccount string `env:"CHECKOUT_MERCHANT_ACCOUNT,required"` // merchant account
	HMACKey         string `env:"CHECKOUT_HMAC_KEY,required"`         // hex-ключ подписи webhook'ов
	BaseURL         string `env:"CHECKOUT_BASE_URL"`                  // переопределение адреса API (пусто = тестовое окружение)

	// DefaultAmountValue/Currency — сумма сессии, если клиент не прислал свою.
	DefaultAmountValue    int64  `env:"CHECKOUT_DEFAULT_AMOUNT_VALUE" envDefault:"1000"`
	DefaultAmountCurrency string `env:"CHECKOUT_DEFAULT_AMOUNT_CURRENCY" envDefault:"EUR"`

	// ReturnURLBase — база returnUrl для 3DS redirect flow (адрес фронтенда).
	ReturnURLBase string `env:"CHECKOUT_RETURN_URL_BASE" envDefault:"http://localhost:8080"`

	// Timeout — таймаут вызова Checkout API.
	Timeout time.Duration `env:"CHECKOUT_TIMEOUT" envDefault:"30s"`
}

// RedisConfig — настройки подключения к Redis.
type RedisConfig struct {
	Enabled  bool   `env:"REDIS_ENABLED" envDefault:"true"`
	Host     string `env:"REDIS_HOST" envDefault:"localhost"`
	Port     int    `env:"REDIS_PORT" envDefault:"6379"`
	Password string `env:"REDIS_PASSWORD" envDefault:""`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

// Addr возвращает адрес Redis сервера.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RateLimitConfig — настройки ограничения запросов.
type RateLimitConfig struct {
	Enabled       bool          `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RequestsLimit int           `env:"RATE_LIMIT_REQUESTS" envDefault:"100"`
	Window        time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
}

// WebhookConfig — настройки обработки webhook-уведомлений.
type WebhookConfig struct {
	// DedupEnabled включает защиту от повторной доставки через Redis.
	DedupEnabled bool `env:"WEBHOOK_DEDUP_ENABLED" envDefault:"true"`

	// DedupTTL — время жизни отметки об обработанном событии.
	DedupTTL time.Duration `env:"WEBHOOK_DEDUP_TTL" envDefault:"24h"`
}

// KafkaConfig — настройки публикации событий статусов платежей.
type KafkaConfig struct {
	Enabled bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	Brokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
}

// JaegerConfig — настройки трассировки Jaeger.
type JaegerConfig struct {
	Enabled  bool   `env:"JAEGER_ENABLED" envDefault:"true"`
	Host     string `env:"JAEGER_HOST" envDefault:"localhost"`
	OTLPPort int    `env:"JAEGER_OTLP_PORT" envDefault:"4317"`
}

// OTLPEndpoint возвращает OTLP gRPC endpoint для Jaeger.
func (c JaegerConfig) OTLPEndpoint() string {
	return fmt.Sprintf("%s:%d", c.Host, c.OTLPPort)
}

// MetricsConfig — настройки Prometheus метрик.
type MetricsConfig struct {
	Enabled bool `env:"METRICS_ENABLED" envDefault:"true"`
	Port    int  `env:"METRICS_PORT" envDefault:"9090"`
}

// Addr возвращает адрес Metrics HTTP сервера.
func (c MetricsConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подхватывает .env файл, если он существует.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("ошибка парсинга конфигурации: %w", err)
	}

	return cfg, nil
}

// IsDevelopment возвращает true в development режиме.
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

// IsProduction возвращает true в production режиме.
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}
