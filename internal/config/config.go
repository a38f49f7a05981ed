package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the application
type Config struct {
	// Solana RPC configuration
	Solana SolanaConfig

	// Helius DAS API configuration
	Helius HeliusConfig

	// Telegram delivery configuration
	Telegram TelegramConfig

	// Kafka event publishing configuration
	Kafka KafkaConfig

	// Database configuration
	Database DatabaseConfig

	// Redis configuration
	Redis RedisConfig

	// Shared outbound HTTP session
	HTTP HTTPConfig

	// API server configuration
	API APIConfig

	// Portfolio refresh configuration
	Portfolio PortfolioConfig

	// Logging configuration
	Log LogConfig
}

// SolanaConfig holds Solana node connection settings
type SolanaConfig struct {
	RPCURL      string        `envconfig:"SOLANA_RPC_URL" default:"https://api.mainnet-beta.solana.com"`
	MaxAttempts int           `envconfig:"SOLANA_MAX_ATTEMPTS" default:"3"`
	RetryDelay  time.Duration `envconfig:"SOLANA_RETRY_DELAY" default:"1s"`
}

// HeliusConfig holds Helius API settings
type HeliusConfig struct {
	APIKey      string        `envconfig:"HELIUS_API_KEY" required:"true"`
	RPCURL      string        `envconfig:"HELIUS_RPC_URL" default:"https://mainnet.helius-rpc.com"`
	PageSize    int           `envconfig:"HELIUS_PAGE_SIZE" default:"100"`
	RateLimit   float64       `envconfig:"HELIUS_RATE_LIMIT" default:"10"`
	MaxAttempts int           `envconfig:"HELIUS_MAX_ATTEMPTS" default:"3"`
	RetryDelay  time.Duration `envconfig:"HELIUS_RETRY_DELAY" default:"1s"`
}

// DASEndpoint returns the DAS JSON-RPC endpoint including the API key
func (c *HeliusConfig) DASEndpoint() string {
	return fmt.Sprintf("%s/?api-key=%s", c.RPCURL, c.APIKey)
}

// TelegramConfig holds Telegram bot delivery settings
type TelegramConfig struct {
	BotToken    string   `envconfig:"TELEGRAM_BOT_TOKEN"`
	ChatIDs     []string `envconfig:"TELEGRAM_CHAT_IDS"`
	APIURL      string   `envconfig:"TELEGRAM_API_URL" default:"https://api.telegram.org"`
	RateLimit   float64  `envconfig:"TELEGRAM_RATE_LIMIT" default:"25"`
	MaxAttempts int      `envconfig:"TELEGRAM_MAX_ATTEMPTS" default:"3"`
}

// Enabled reports whether Telegram delivery is configured
func (c *TelegramConfig) Enabled() bool {
	return c.BotToken != "" && len(c.ChatIDs) > 0
}

// KafkaConfig holds Kafka publisher settings
type KafkaConfig struct {
	Brokers      []string      `envconfig:"KAFKA_BROKERS"`
	Topic        string        `envconfig:"KAFKA_TOPIC" default:"wallet-activity"`
	WriteTimeout time.Duration `envconfig:"KAFKA_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether the Kafka sink is configured
func (c *KafkaConfig) Enabled() bool {
	return len(c.Brokers) > 0
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Host            string        `envconfig:"DB_HOST" default:"localhost"`
	Port            int           `envconfig:"DB_PORT" default:"5432"`
	User            string        `envconfig:"DB_USER" default:"watcher"`
	Password        string        `envconfig:"DB_PASSWORD" default:"watcher"`
	Name            string        `envconfig:"DB_NAME" default:"wallet_watcher"`
	SSLMode         string        `envconfig:"DB_SSL_MODE" default:"disable"`
	MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
	MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"5m"`
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host        string        `envconfig:"REDIS_HOST" default:"localhost"`
	Port        int           `envconfig:"REDIS_PORT" default:"6379"`
	Password    string        `envconfig:"REDIS_PASSWORD" default:""`
	DB          int           `envconfig:"REDIS_DB" default:"0"`
	MetadataTTL time.Duration `envconfig:"REDIS_METADATA_TTL" default:"24h"`
	KeyPrefix   string        `envconfig:"REDIS_KEY_PREFIX" default:"wallet-watcher:"`
}

// HTTPConfig holds settings for the pooled outbound HTTP client
type HTTPConfig struct {
	PoolSize int           `envconfig:"HTTP_POOL_SIZE" default:"15"`
	Timeout  time.Duration `envconfig:"HTTP_TIMEOUT" default:"10s"`
}

// APIConfig holds API server settings
type APIConfig struct {
	Host            string        `envconfig:"API_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"API_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"API_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"API_WRITE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"API_SHUTDOWN_TIMEOUT" default:"30s"`
	RateLimitRPS    int           `envconfig:"API_RATE_LIMIT_RPS" default:"100"`
	WebhookSecret   string        `envconfig:"WEBHOOK_SECRET" required:"true"`
	MaxBodyBytes    int64         `envconfig:"WEBHOOK_MAX_BODY_BYTES" default:"10485760"`
	Concurrency     int           `envconfig:"WEBHOOK_CONCURRENCY" default:"16"`
}

// PortfolioConfig holds portfolio cache settings
type PortfolioConfig struct {
	CacheTTL time.Duration `envconfig:"PORTFOLIO_CACHE_TTL" default:"5m"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"json"`
	File   string `envconfig:"LOG_FILE" default:""`
}

// Load loads configuration from environment variables, reading .env first if present
func Load() (*Config, error) {
	// A missing .env file is fine; real environment variables take precedence.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}
