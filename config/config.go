package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageBackendMemory = "memory"
	StorageBackendRedis  = "redis"
	StorageBackendMySQL  = "mysql"
)

type Config struct {
	App               AppConfig
	HTTP              ServerConfig
	GRPC              ServerConfig
	Log               LogConfig
	InternalEndpoints InternalEndpointsConfig
	Gateway           GatewayConfig
	Storage           StorageConfig
	Redis             RedisConfig
	MySQL             MySQLConfig
	Reconcile         ReconcileConfig
	Jobs              JobsConfig
}

type AppConfig struct {
	ServiceName   string
	SessionCookie string
}

type ServerConfig struct {
	Host string
	Port string
}

type LogConfig struct {
	Level  string
	Format string
}

type InternalEndpointsConfig struct {
	AuthGRPCAddr string
}

type GatewayConfig struct {
	VerifyBaseURL string
	APIToken      string
	HTTPTimeout   time.Duration
}

type StorageConfig struct {
	Backend   string
	RecordKey string
	RecordTTL time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type ReconcileConfig struct {
	ThreeDSInterval      time.Duration
	ThreeDSMaxAttempts   int
	PendingBaseDelay     time.Duration
	PendingMaxDelay      time.Duration
	PendingMaxAttempts   int
	SuccessRedirectDelay time.Duration
	OrderURLTemplate     string
	SessionRetention     time.Duration
}

type JobsConfig struct {
	PurgeInterval   time.Duration
	PurgeStaleAfter time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	verifyBaseURL := strings.TrimSpace(os.Getenv("VERIFY_BASE_URL"))
	if verifyBaseURL == "" {
		return nil, errors.New("VERIFY_BASE_URL environment variable is required")
	}

	backend := strings.ToLower(getEnv("STORAGE_BACKEND", StorageBackendMemory))
	switch backend {
	case StorageBackendMemory, StorageBackendRedis:
	case StorageBackendMySQL:
		if os.Getenv("MYSQL_DSN") == "" {
			return nil, errors.New("MYSQL_DSN environment variable is required for mysql storage")
		}
	default:
		return nil, errors.New("STORAGE_BACKEND must be memory, redis, or mysql")
	}

	return &Config{
		App: AppConfig{
			ServiceName:   getEnv("APP_SERVICE_NAME", "payments-reconciler"),
			SessionCookie: getEnv("APP_SESSION_COOKIE", "checkout_session"),
		},
		HTTP: ServerConfig{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnv("HTTP_PORT", "8080"),
		},
		GRPC: ServerConfig{
			Host: getEnv("GRPC_HOST", "0.0.0.0"),
			Port: getEnv("GRPC_PORT", "9090"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		InternalEndpoints: InternalEndpointsConfig{
			AuthGRPCAddr: getEnv("AUTH_SERVICE_GRPC_ADDR", "localhost:9090"),
		},
		Gateway: GatewayConfig{
			VerifyBaseURL: verifyBaseURL,
			APIToken:      getEnv("VERIFY_API_TOKEN", ""),
			HTTPTimeout:   getSecondsEnv("VERIFY_HTTP_TIMEOUT_SECONDS", 10*time.Second),
		},
		Storage: StorageConfig{
			Backend:   backend,
			RecordKey: getEnv("STORAGE_RECORD_KEY", "pendingPayment"),
			RecordTTL: getMinutesEnv("STORAGE_RECORD_TTL_MINUTES", 60*time.Minute),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		MySQL: MySQLConfig{
			DSN:             os.Getenv("MYSQL_DSN"),
			MaxOpenConns:    getIntEnv("MYSQL_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("MYSQL_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getMinutesEnv("MYSQL_CONN_MAX_LIFETIME_MINUTES", 30*time.Minute),
		},
		Reconcile: ReconcileConfig{
			ThreeDSInterval:      getMillisEnv("RECONCILE_3DS_INTERVAL_MS", 3*time.Second),
			ThreeDSMaxAttempts:   getIntEnv("RECONCILE_3DS_MAX_ATTEMPTS", 30),
			PendingBaseDelay:     getMillisEnv("RECONCILE_PENDING_BASE_DELAY_MS", time.Second),
			PendingMaxDelay:      getMillisEnv("RECONCILE_PENDING_MAX_DELAY_MS", 10*time.Second),
			PendingMaxAttempts:   getIntEnv("RECONCILE_PENDING_MAX_ATTEMPTS", 30),
			SuccessRedirectDelay: getMillisEnv("RECONCILE_SUCCESS_REDIRECT_DELAY_MS", 2*time.Second),
			OrderURLTemplate:     getEnv("RECONCILE_ORDER_URL_TEMPLATE", "/orders/{order_id}"),
			SessionRetention:     getMinutesEnv("RECONCILE_SESSION_RETENTION_MINUTES", 10*time.Minute),
		},
		Jobs: JobsConfig{
			PurgeInterval:   getMinutesEnv("JOBS_PURGE_INTERVAL_MINUTES", 15*time.Minute),
			PurgeStaleAfter: getMinutesEnv("JOBS_PURGE_STALE_AFTER_MINUTES", 24*time.Hour),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getMinutesEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

func getSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}

func getMillisEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if millis, err := strconv.Atoi(value); err == nil {
			return time.Duration(millis) * time.Millisecond
		}
	}
	return defaultValue
}
