package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Freeeeeet/interview_scheduler/internal/availability"
	"github.com/Freeeeeet/interview_scheduler/internal/cache"
	"github.com/joho/godotenv"
)

type Config struct {
	Environment    string
	DBDSN          string
	MigrationsDir  string
	TimeSlots      []string
	HTTPAddr       string
	TelegramToken  string
	TelegramChatID int64

	Cache   CacheConfig
	Redis   RedisConfig
	Kafka   KafkaConfig
	Otel    OtelConfig
	Breaker BreakerConfig
}

type CacheConfig struct {
	TTL           time.Duration
	MaxSize       int
	SweepInterval time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Enabled true, если адрес Redis задан
func (c RedisConfig) Enabled() bool { return c.Addr != "" }

type KafkaConfig struct {
	Brokers string
	Topic   string
}

func (c KafkaConfig) Enabled() bool { return strings.TrimSpace(c.Brokers) != "" }

type OtelConfig struct {
	Enabled      bool
	ServiceName  string
	OTLPEndpoint string
	SampleRatio  float64
}

type BreakerConfig struct {
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
}

// Load читает .env (если есть) и переменные окружения
func Load() (*Config, error) {
	// .env необязателен, переменные окружения имеют приоритет
	_ = godotenv.Load(".env")
	return FromEnv(os.LookupEnv)
}

// FromEnv собирает конфиг из функции поиска переменных
func FromEnv(lookup func(string) (string, bool)) (*Config, error) {
	r := reader{lookup: lookup}

	cfg := &Config{
		Environment:    r.str("ENV", "development"),
		DBDSN:          r.str("DB_DSN", ""),
		MigrationsDir:  r.str("MIGRATIONS_DIR", ""),
		HTTPAddr:       r.str("HTTP_ADDR", ":8080"),
		TelegramToken:  r.str("TELEGRAM_TOKEN", ""),
		TelegramChatID: r.int64("TELEGRAM_NOTIFY_CHAT_ID", 0),
		Cache: CacheConfig{
			TTL:           r.duration("CACHE_TTL", cache.DefaultTTL),
			MaxSize:       r.int("CACHE_MAX_SIZE", cache.DefaultMaxSize),
			SweepInterval: r.duration("CACHE_SWEEP_INTERVAL", time.Minute),
		},
		Redis: RedisConfig{
			Addr:     r.str("REDIS_ADDR", ""),
			Password: r.str("REDIS_PASSWORD", ""),
			DB:       r.int("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers: r.str("KAFKA_BROKERS", ""),
			Topic:   r.str("KAFKA_TOPIC", "interview.slots.v1"),
		},
		Otel: OtelConfig{
			Enabled:      r.bool("OTEL_ENABLED", false),
			ServiceName:  r.str("OTEL_SERVICE_NAME", "interview-scheduler"),
			OTLPEndpoint: r.str("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			SampleRatio:  r.float("OTEL_SAMPLING_RATIO", 1),
		},
		Breaker: BreakerConfig{
			ConsecutiveFailures: uint32(r.int("STORE_BREAKER_FAILURES", 5)),
			OpenTimeout:         r.duration("STORE_BREAKER_TIMEOUT", 30*time.Second),
		},
	}

	if raw := r.str("TIME_SLOTS", ""); raw != "" {
		slots, err := availability.ParseCatalog(raw)
		if err != nil {
			r.fail("TIME_SLOTS", err)
		}
		cfg.TimeSlots = slots
	} else {
		cfg.TimeSlots = append([]string(nil), availability.DefaultCatalog...)
	}

	if cfg.DBDSN == "" {
		r.fail("DB_DSN", fmt.Errorf("is required but not set"))
	}
	if cfg.Cache.MaxSize <= 0 {
		r.fail("CACHE_MAX_SIZE", fmt.Errorf("must be positive"))
	}
	if cfg.Otel.SampleRatio < 0 || cfg.Otel.SampleRatio > 1 {
		r.fail("OTEL_SAMPLING_RATIO", fmt.Errorf("must be within [0, 1]"))
	}
	if cfg.TelegramChatID != 0 && cfg.TelegramToken == "" {
		r.fail("TELEGRAM_NOTIFY_CHAT_ID", fmt.Errorf("requires TELEGRAM_TOKEN"))
	}

	if r.err != nil {
		return nil, r.err
	}
	return cfg, nil
}

// IsProduction true для ENV=production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// reader запоминает первую ошибку разбора
type reader struct {
	lookup func(string) (string, bool)
	err    error
}

func (r *reader) fail(key string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("config %s: %w", key, err)
	}
}

func (r *reader) str(key, fallback string) string {
	if v, ok := r.lookup(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func (r *reader) int(key string, fallback int) int {
	raw := r.str(key, "")
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		r.fail(key, err)
		return fallback
	}
	return n
}

func (r *reader) int64(key string, fallback int64) int64 {
	raw := r.str(key, "")
	if raw == "" {
		return fallback
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		r.fail(key, err)
		return fallback
	}
	return n
}

func (r *reader) float(key string, fallback float64) float64 {
	raw := r.str(key, "")
	if raw == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		r.fail(key, err)
		return fallback
	}
	return f
}

func (r *reader) bool(key string, fallback bool) bool {
	raw := r.str(key, "")
	if raw == "" {
		return fallback
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		r.fail(key, err)
		return fallback
	}
	return b
}

func (r *reader) duration(key string, fallback time.Duration) time.Duration {
	raw := r.str(key, "")
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		r.fail(key, err)
		return fallback
	}
	if d <= 0 {
		r.fail(key, fmt.Errorf("must be positive"))
		return fallback
	}
	return d
}
