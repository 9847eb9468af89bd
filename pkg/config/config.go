package config

import (
	"errors"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

const dateLayout = "2006-01-02"

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Event     EventConfig
	Booking   BookingConfig
	MiniSite  MiniSiteConfig
	Scraper   ScraperConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
	Kafka     KafkaConfig
	Outbox    OutboxConfig
	Telemetry TelemetryConfig
	Jobs      JobsConfig
}

type DatabaseConfig struct {
	Driver       string
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int

	// ConnMaxLifetime recycles pooled connections, zero keeps them forever.
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
	Issuer string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// EventConfig describes the published trade-show calendar.
type EventConfig struct {
	Name      string
	StartDate time.Time
	EndDate   time.Time
}

// Contains reports whether day falls inside the inclusive event window.
func (e EventConfig) Contains(day time.Time) bool {
	d := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	if !e.StartDate.IsZero() && d.Before(e.StartDate) {
		return false
	}
	if !e.EndDate.IsZero() && d.After(e.EndDate) {
		return false
	}
	return true
}

// BookingConfig tunes optimistic retries on appointment transitions.
type BookingConfig struct {
	RetryAttempts        int
	RetryInitialInterval time.Duration
}

// MiniSiteConfig holds mini-site defaults.
type MiniSiteConfig struct {
	DefaultTheme string
}

// ScraperConfig bounds the external website fetch used for enrichment.
type ScraperConfig struct {
	Timeout      time.Duration
	UserAgent    string
	MaxBodyBytes int64
	MaxImages    int
}

// CacheConfig governs Redis read-through caching.
type CacheConfig struct {
	SlotsTTL    time.Duration
	MiniSiteTTL time.Duration
}

// RateLimitConfig bounds appointment request bursts per user.
type RateLimitConfig struct {
	Enabled  bool
	Requests int
	Window   time.Duration
}

type KafkaConfig struct {
	Brokers []string
}

// OutboxConfig drives the event publisher and its nightly pruning.
type OutboxConfig struct {
	PollInterval    time.Duration
	BatchSize       int
	Retention       time.Duration
	CleanupSchedule string
}

type TelemetryConfig struct {
	Enabled      bool
	ServiceName  string
	OTLPEndpoint string
	SampleRatio  float64
}

// JobsConfig sizes the in-process enrichment queue.
type JobsConfig struct {
	EnrichWorkers int
	EnrichRetries int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Driver:          v.GetString("DB_DRIVER"),
		Host:            v.GetString("DB_HOST"),
		Port:            v.GetInt("DB_PORT"),
		User:            v.GetString("DB_USER"),
		Password:        v.GetString("DB_PASSWORD"),
		Name:            v.GetString("DB_NAME"),
		SSLMode:         v.GetString("DB_SSL_MODE"),
		MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
		ConnMaxLifetime: parseDuration(v.GetString("DB_CONN_MAX_LIFETIME"), time.Hour),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("ENABLE_REDIS"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret: v.GetString("JWT_SECRET"),
		Issuer: v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	start, err := parseDate(v.GetString("EVENT_START_DATE"))
	if err != nil {
		return nil, err
	}
	end, err := parseDate(v.GetString("EVENT_END_DATE"))
	if err != nil {
		return nil, err
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return nil, errors.New("EVENT_END_DATE must not precede EVENT_START_DATE")
	}
	cfg.Event = EventConfig{
		Name:      v.GetString("EVENT_NAME"),
		StartDate: start,
		EndDate:   end,
	}

	cfg.Booking = BookingConfig{
		RetryAttempts:        v.GetInt("BOOKING_RETRY_ATTEMPTS"),
		RetryInitialInterval: parseDuration(v.GetString("BOOKING_RETRY_INITIAL_INTERVAL"), 50*time.Millisecond),
	}

	cfg.MiniSite = MiniSiteConfig{DefaultTheme: v.GetString("MINISITE_DEFAULT_THEME")}

	cfg.Scraper = ScraperConfig{
		Timeout:      parseDuration(v.GetString("SCRAPER_TIMEOUT"), 10*time.Second),
		UserAgent:    v.GetString("SCRAPER_USER_AGENT"),
		MaxBodyBytes: v.GetInt64("SCRAPER_MAX_BODY_BYTES"),
		MaxImages:    v.GetInt("SCRAPER_MAX_IMAGES"),
	}

	cfg.Cache = CacheConfig{
		SlotsTTL:    parseDuration(v.GetString("CACHE_SLOTS_TTL"), time.Minute),
		MiniSiteTTL: parseDuration(v.GetString("CACHE_MINISITE_TTL"), 5*time.Minute),
	}

	cfg.RateLimit = RateLimitConfig{
		Enabled:  v.GetBool("RATE_LIMIT_ENABLED"),
		Requests: v.GetInt("RATE_LIMIT_REQUESTS"),
		Window:   parseDuration(v.GetString("RATE_LIMIT_WINDOW"), time.Minute),
	}

	cfg.Kafka = KafkaConfig{Brokers: splitAndTrim(v.GetString("KAFKA_BROKERS"))}

	cfg.Outbox = OutboxConfig{
		PollInterval:    parseDuration(v.GetString("OUTBOX_POLL_INTERVAL"), 2*time.Second),
		BatchSize:       v.GetInt("OUTBOX_BATCH_SIZE"),
		Retention:       parseDuration(v.GetString("OUTBOX_RETENTION"), 7*24*time.Hour),
		CleanupSchedule: v.GetString("OUTBOX_CLEANUP_SCHEDULE"),
	}

	cfg.Telemetry = TelemetryConfig{
		Enabled:      v.GetBool("OTEL_ENABLED"),
		ServiceName:  v.GetString("OTEL_SERVICE_NAME"),
		OTLPEndpoint: v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
		SampleRatio:  parseRatio(v.GetString("OTEL_SAMPLING_RATIO"), 1),
	}

	cfg.Jobs = JobsConfig{
		EnrichWorkers: v.GetInt("ENRICH_WORKERS"),
		EnrichRetries: v.GetInt("ENRICH_RETRIES"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "siports")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "1h")

	v.SetDefault("ENABLE_REDIS", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("EVENT_NAME", "SIPORTS 2026")
	v.SetDefault("EVENT_START_DATE", "2026-04-01")
	v.SetDefault("EVENT_END_DATE", "2026-04-03")

	v.SetDefault("BOOKING_RETRY_ATTEMPTS", 3)
	v.SetDefault("BOOKING_RETRY_INITIAL_INTERVAL", "50ms")

	v.SetDefault("MINISITE_DEFAULT_THEME", "modern")

	v.SetDefault("SCRAPER_TIMEOUT", "10s")
	v.SetDefault("SCRAPER_USER_AGENT", "SiportsBot/1.0 (+https://siportevent.com)")
	v.SetDefault("SCRAPER_MAX_BODY_BYTES", 2*1024*1024)
	v.SetDefault("SCRAPER_MAX_IMAGES", 10)

	v.SetDefault("CACHE_SLOTS_TTL", "1m")
	v.SetDefault("CACHE_MINISITE_TTL", "5m")

	v.SetDefault("RATE_LIMIT_ENABLED", false)
	v.SetDefault("RATE_LIMIT_REQUESTS", 30)
	v.SetDefault("RATE_LIMIT_WINDOW", "1m")

	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("OUTBOX_POLL_INTERVAL", "2s")
	v.SetDefault("OUTBOX_BATCH_SIZE", 50)
	v.SetDefault("OUTBOX_RETENTION", "168h")
	v.SetDefault("OUTBOX_CLEANUP_SCHEDULE", "0 0 3 * * *")

	v.SetDefault("OTEL_ENABLED", false)
	v.SetDefault("OTEL_SERVICE_NAME", "siports-api")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	v.SetDefault("OTEL_SAMPLING_RATIO", "1")

	v.SetDefault("ENRICH_WORKERS", 2)
	v.SetDefault("ENRICH_RETRIES", 2)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateLayout, raw)
}

func parseRatio(raw string, fallback float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || f < 0 || f > 1 {
		return fallback
	}
	return f
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
