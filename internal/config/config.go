package config

import (
	"os"
	"strconv"
	"time"

	commoncfg "juni-core/common/config"

	"github.com/joho/godotenv"
)

// Config juni-core (HTTP API) settings
type Config struct {
	HTTP struct {
		Addr string
	}
	DBEnabled bool
	Database  commoncfg.DatabaseConfig
	Redis     struct {
		Enabled bool
		commoncfg.RedisConfig
	}
	Log struct {
		Level  string
		Format string
	}
	Matching MatchingConfig
	Payout   PayoutConfig
	Transfer TransferConfig
	Notify   NotifyConfig
	MQTT     commoncfg.MQTTConfig
}

// MatchingConfig Kindred matching defaults
type MatchingConfig struct {
	DefaultLimit int
}

// PayoutConfig payout run settings
type PayoutConfig struct {
	HourlyRateCents int64
	PlatformFeePct  float64
	Concurrency     int           // companions processed in parallel per run
	LockTTL         time.Duration // per-companion run lock lifetime
	Currency        string
}

// TransferConfig payment-transfer collaborator
type TransferConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	Retries int
}

// NotifyConfig notification sink
type NotifyConfig struct {
	Sink         string // "redis" | "mqtt" | "none"
	Stream       string
	StreamMaxLen int64
	TopicPrefix  string
}

// Load reads the process environment. A .env file in the working directory
// is applied first when present; real environment variables win.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	// When DB is unavailable the service falls back to the in-memory store.
	cfg.DBEnabled = getEnv("DB_ENABLED", "true") == "true"
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "juni")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = parseInt(getEnv("DB_MAX_CONNS", "20"), 20)
	cfg.Database.MaxIdle = parseInt(getEnv("DB_MAX_IDLE", "5"), 5)

	cfg.Redis.Enabled = getEnv("REDIS_ENABLED", "true") == "true"
	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = parseInt(getEnv("REDIS_DB", "0"), 0)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	cfg.Matching.DefaultLimit = parseInt(getEnv("MATCH_DEFAULT_LIMIT", "5"), 5)

	// $26.00/hr, 10% platform fee in the reference deployment
	cfg.Payout.HourlyRateCents = int64(parseInt(getEnv("PAYOUT_HOURLY_RATE_CENTS", "2600"), 2600))
	cfg.Payout.PlatformFeePct = parseFloat(getEnv("PAYOUT_PLATFORM_FEE_PCT", "0.10"), 0.10)
	cfg.Payout.Concurrency = parseInt(getEnv("PAYOUT_CONCURRENCY", "4"), 4)
	cfg.Payout.LockTTL = time.Duration(parseInt(getEnv("PAYOUT_LOCK_TTL", "300"), 300)) * time.Second
	cfg.Payout.Currency = getEnv("PAYOUT_CURRENCY", "usd")

	cfg.Transfer.BaseURL = getEnv("TRANSFER_BASE_URL", "http://localhost:12111")
	cfg.Transfer.APIKey = getEnv("TRANSFER_API_KEY", "")
	cfg.Transfer.Timeout = time.Duration(parseInt(getEnv("TRANSFER_TIMEOUT", "15"), 15)) * time.Second
	cfg.Transfer.Retries = parseInt(getEnv("TRANSFER_RETRIES", "2"), 2)

	cfg.Notify.Sink = getEnv("NOTIFY_SINK", "redis")
	cfg.Notify.Stream = getEnv("NOTIFY_STREAM", "juni:events")
	cfg.Notify.StreamMaxLen = int64(parseInt(getEnv("NOTIFY_STREAM_MAXLEN", "10000"), 10000))
	cfg.Notify.TopicPrefix = getEnv("MQTT_TOPIC", "juni/events")

	cfg.MQTT.Broker = "tcp://localhost:1883"
	cfg.MQTT.ClientID = "juni-core"
	cfg.MQTT.QoS = 1
	cfg.MQTT.LoadFromEnv("MQTT")

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func parseFloat(s string, def float64) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return f
}
