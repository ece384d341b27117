package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/hkdf"

	"agent_gateway/internal/models"
)

// Config holds configuration for the gateway.
type Config struct {
	HTTPPort      string
	JWTSecret     []byte
	LogLevel      string
	LogFormat     string
	StoreDriver   string // "postgres" or "memory"
	PricingFile   string
	EncryptionKey []byte
	CORSOrigins   []string
	Database      DatabaseConfig
	Cache         CacheConfig
	Redis         RedisConfig
	Usage         UsageConfig
	Billing       BillingConfig
	Providers     ProviderConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// CacheConfig holds cache settings
type CacheConfig struct {
	CredentialCacheSize int
	CredentialCacheTTL  time.Duration
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Address      string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// UsageConfig controls how usage records reach the ledger store
type UsageConfig struct {
	Async        bool   // append through the queue worker instead of inline
	QueueBackend string // "memory" or "redis"
	QueueName    string
	BatchSize    int
	BatchTimeout time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
}

// BillingConfig holds the display-currency conversion
type BillingConfig struct {
	ExchangeRate    float64 // display currency units per USD
	DisplayCurrency string
}

// ProviderConfig holds process-level provider defaults
type ProviderConfig struct {
	RequestTimeout time.Duration
	APIKeys        map[models.ProviderType]string // fallback credentials
	BaseURLs       map[models.ProviderType]string // overrides, mostly for tests
}

func getEnvInt(key string, defaultValue int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getEnvFloat(key string, defaultValue float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return defaultValue
	}
	return f
}

func getEnvBool(key string, defaultValue bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultValue
	}
	return b
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(val)
	if err != nil {
		return defaultValue
	}

	return duration
}

func getEnvString(key string, defaultValue string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	return val
}

func getEnvList(key string, defaultValue []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// devEncryptionKey is used when ENCRYPTION_KEY is unset. Never use it in production.
const devEncryptionKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

// DeriveEncryptionKey accepts 64 hex characters as a raw AES-256 key;
// any other non-empty value is treated as a passphrase and stretched with HKDF-SHA256.
func DeriveEncryptionKey(secret string) ([]byte, error) {
	if secret == "" {
		return nil, fmt.Errorf("encryption key cannot be empty")
	}
	if len(secret) == 64 {
		if key, err := hex.DecodeString(secret); err == nil {
			return key, nil
		}
	}

	key := make([]byte, 32)
	r := hkdf.New(sha256.New, []byte(secret), []byte("agent-gateway"), []byte("credential-encryption"))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("failed to derive encryption key: %w", err)
	}
	return key, nil
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	driver := getEnvString("STORE_DRIVER", "postgres")
	if driver != "postgres" && driver != "memory" {
		return nil, fmt.Errorf("STORE_DRIVER must be postgres or memory, got %q", driver)
	}

	dbURL := os.Getenv("DATABASE_URL")
	if driver == "postgres" && dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	encKey, err := DeriveEncryptionKey(getEnvString("ENCRYPTION_KEY", devEncryptionKey))
	if err != nil {
		return nil, err
	}

	rate := getEnvFloat("EXCHANGE_RATE_VND", 25000)
	if rate <= 0 {
		return nil, fmt.Errorf("EXCHANGE_RATE_VND must be positive")
	}

	logLevel := getEnvString("LOG_LEVEL", "info")
	if local := strings.ToLower(os.Getenv("LOCAL")); local == "true" || local == "1" {
		logLevel = "debug"
	}

	cfg := &Config{
		HTTPPort:      getEnvString("HTTP_PORT", "8080"),
		JWTSecret:     []byte(getEnvString("JWT_SECRET", "supersecretkey")),
		LogLevel:      logLevel,
		LogFormat:     getEnvString("LOG_FORMAT", "json"),
		StoreDriver:   driver,
		PricingFile:   os.Getenv("PRICING_FILE"),
		EncryptionKey: encKey,
		CORSOrigins:   getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		Database: DatabaseConfig{
			URL:             dbURL,
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 1*time.Minute),
		},
		Cache: CacheConfig{
			CredentialCacheSize: getEnvInt("CACHE_CREDENTIAL_SIZE", 500),
			CredentialCacheTTL:  getEnvDuration("CACHE_CREDENTIAL_TTL", 15*time.Minute),
		},
		Redis: RedisConfig{
			Address:      getEnvString("REDIS_ADDRESS", "localhost:6379"),
			Password:     getEnvString("REDIS_PASSWORD", ""),
			DB:           getEnvInt("REDIS_DB", 0),
			PoolSize:     getEnvInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getEnvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getEnvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Usage: UsageConfig{
			Async:        getEnvBool("USAGE_ASYNC", false),
			QueueBackend: getEnvString("USAGE_QUEUE_BACKEND", "memory"),
			QueueName:    getEnvString("USAGE_QUEUE_NAME", "usage"),
			BatchSize:    getEnvInt("USAGE_BATCH_SIZE", 100),
			BatchTimeout: getEnvDuration("USAGE_BATCH_TIMEOUT", 5*time.Second),
			MaxRetries:   getEnvInt("USAGE_MAX_RETRIES", 3),
			RetryBackoff: getEnvDuration("USAGE_RETRY_BACKOFF", 1*time.Second),
		},
		Billing: BillingConfig{
			ExchangeRate:    rate,
			DisplayCurrency: getEnvString("DISPLAY_CURRENCY", "VND"),
		},
		Providers: ProviderConfig{
			RequestTimeout: getEnvDuration("PROVIDER_REQUEST_TIMEOUT", 60*time.Second),
			APIKeys:        map[models.ProviderType]string{},
			BaseURLs:       map[models.ProviderType]string{},
		},
	}

	for _, p := range models.KnownProviders() {
		prefix := strings.ToUpper(string(p))
		if key := os.Getenv(prefix + "_API_KEY"); key != "" {
			cfg.Providers.APIKeys[p] = key
		}
		if url := os.Getenv(prefix + "_BASE_URL"); url != "" {
			cfg.Providers.BaseURLs[p] = url
		}
	}

	return cfg, nil
}
