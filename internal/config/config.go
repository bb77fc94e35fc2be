package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName         string
	AppEnv          string
	AppPort         string
	LogLevel        string
	DatabaseURL     string
	RedisURL        string
	NATSURL         string
	RealtimeChannel string
	JWTSecret       string
	AllowOrigins    string

	MaxGrade              float64
	ReminderLeadTime      time.Duration
	ReminderSweepInterval time.Duration

	DispatchWorkers    int
	DispatchBuffer     int
	DispatchMaxRetries int
	DispatchRetryDelay time.Duration

	DashboardCacheTTL      time.Duration
	NotificationKeepAlive  time.Duration
	SubmissionRateLimit    int
	SubmissionRateInterval time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// UsesSQLite reports whether the database URL points at an SQLite file or memory DSN.
func (c Config) UsesSQLite() bool {
	url := strings.ToLower(strings.TrimSpace(c.DatabaseURL))
	return strings.HasPrefix(url, "file:") || strings.HasSuffix(url, ".db") || strings.HasPrefix(url, "sqlite")
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("GEMA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "GEMA Grading API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("http.allow_origins", "*")
	v.SetDefault("realtime.channel", "gema:grading")
	v.SetDefault("grading.max_grade", 100)
	v.SetDefault("reminders.lead_time", "24h")
	v.SetDefault("reminders.sweep_interval", "1m")
	v.SetDefault("dispatch.workers", 2)
	v.SetDefault("dispatch.buffer", 64)
	v.SetDefault("dispatch.max_retries", 3)
	v.SetDefault("dispatch.retry_delay", "2s")
	v.SetDefault("dashboard.cache_ttl", "5m")
	v.SetDefault("notifications.keepalive", "30s")
	v.SetDefault("submissions.rate_limit", 10)
	v.SetDefault("submissions.rate_interval", "1m")

	durations := map[string]*time.Duration{}
	cfg := Config{
		AppName:            v.GetString("app.name"),
		AppEnv:             v.GetString("app.env"),
		AppPort:            v.GetString("app.port"),
		LogLevel:           strings.ToLower(v.GetString("log.level")),
		DatabaseURL:        v.GetString("database.url"),
		RedisURL:           v.GetString("redis.url"),
		NATSURL:            v.GetString("nats.url"),
		RealtimeChannel:    v.GetString("realtime.channel"),
		JWTSecret:          v.GetString("jwt.secret"),
		AllowOrigins:       v.GetString("http.allow_origins"),
		MaxGrade:           v.GetFloat64("grading.max_grade"),
		DispatchWorkers:    v.GetInt("dispatch.workers"),
		DispatchBuffer:     v.GetInt("dispatch.buffer"),
		DispatchMaxRetries: v.GetInt("dispatch.max_retries"),
	}
	cfg.SubmissionRateLimit = v.GetInt("submissions.rate_limit")
	durations["reminders.lead_time"] = &cfg.ReminderLeadTime
	durations["reminders.sweep_interval"] = &cfg.ReminderSweepInterval
	durations["dispatch.retry_delay"] = &cfg.DispatchRetryDelay
	durations["dashboard.cache_ttl"] = &cfg.DashboardCacheTTL
	durations["notifications.keepalive"] = &cfg.NotificationKeepAlive
	durations["submissions.rate_interval"] = &cfg.SubmissionRateInterval

	for key, target := range durations {
		parsed, err := time.ParseDuration(v.GetString(key))
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", key, err)
		}
		if parsed <= 0 {
			return Config{}, fmt.Errorf("%s must be positive", key)
		}
		*target = parsed
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("database url must be provided")
	}
	if cfg.MaxGrade <= 0 {
		return Config{}, fmt.Errorf("grading max grade must be positive")
	}
	if cfg.DispatchWorkers <= 0 {
		cfg.DispatchWorkers = 2
	}
	if cfg.DispatchMaxRetries < 0 {
		cfg.DispatchMaxRetries = 0
	}

	return cfg, nil
}
