package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Board    BoardConfig
	TTS      TTSConfig
	Push     PushConfig
	Digests  DigestsConfig
	Display  DisplayConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// BoardConfig tunes the display board endpoint and its cache.
type BoardConfig struct {
	CacheTTL time.Duration
}

// TTSConfig points at the external speech synthesis endpoint.
type TTSConfig struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
	CacheTTL time.Duration
}

// PushConfig governs the push fan-out worker pool.
type PushConfig struct {
	Enabled           bool
	WorkerConcurrency int
	WorkerRetries     int
	DeliveryTimeout   time.Duration
}

// DigestsConfig controls message digest exports.
type DigestsConfig struct {
	Enabled         bool
	StorageDir      string
	SignedURLSecret string
	SignedURLTTL    time.Duration
}

// DisplayConfig drives the headless display agent.
type DisplayConfig struct {
	APIBaseURL   string
	Token        string
	PollInterval time.Duration
	PlayerCmd    string
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
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 30*24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Board = BoardConfig{
		CacheTTL: parseDuration(v.GetString("BOARD_CACHE_TTL"), time.Minute),
	}

	cfg.TTS = TTSConfig{
		Endpoint: v.GetString("TTS_ENDPOINT"),
		APIKey:   v.GetString("TTS_API_KEY"),
		Timeout:  parseDuration(v.GetString("TTS_TIMEOUT"), 15*time.Second),
		CacheTTL: parseDuration(v.GetString("TTS_CACHE_TTL"), 6*time.Hour),
	}

	cfg.Push = PushConfig{
		Enabled:           v.GetBool("ENABLE_PUSH"),
		WorkerConcurrency: v.GetInt("PUSH_WORKER_CONCURRENCY"),
		WorkerRetries:     v.GetInt("PUSH_WORKER_RETRIES"),
		DeliveryTimeout:   parseDuration(v.GetString("PUSH_DELIVERY_TIMEOUT"), 10*time.Second),
	}

	cfg.Digests = DigestsConfig{
		Enabled:         v.GetBool("ENABLE_DIGESTS"),
		StorageDir:      v.GetString("DIGESTS_STORAGE_DIR"),
		SignedURLSecret: v.GetString("DIGESTS_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("DIGESTS_SIGNED_URL_TTL"), 24*time.Hour),
	}

	cfg.Display = DisplayConfig{
		APIBaseURL:   v.GetString("DISPLAY_API_BASE_URL"),
		Token:        v.GetString("DISPLAY_TOKEN"),
		PollInterval: parseDuration(v.GetString("DISPLAY_POLL_INTERVAL"), time.Minute),
		PlayerCmd:    v.GetString("DISPLAY_PLAYER_CMD"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "famboard")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "720h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("BOARD_CACHE_TTL", "1m")
	v.SetDefault("BOARD_EVENT_CHANNEL", "famboard:events")

	v.SetDefault("TTS_ENDPOINT", "http://localhost:5002/api/tts")
	v.SetDefault("TTS_API_KEY", "")
	v.SetDefault("TTS_TIMEOUT", "15s")
	v.SetDefault("TTS_CACHE_TTL", "6h")

	v.SetDefault("ENABLE_PUSH", false)
	v.SetDefault("PUSH_WORKER_CONCURRENCY", 2)
	v.SetDefault("PUSH_WORKER_RETRIES", 3)
	v.SetDefault("PUSH_DELIVERY_TIMEOUT", "10s")

	v.SetDefault("ENABLE_DIGESTS", false)
	v.SetDefault("DIGESTS_STORAGE_DIR", "./digests")
	v.SetDefault("DIGESTS_SIGNED_URL_SECRET", "dev_digests_secret")
	v.SetDefault("DIGESTS_SIGNED_URL_TTL", "24h")

	v.SetDefault("DISPLAY_API_BASE_URL", "http://localhost:8080/api/v1")
	v.SetDefault("DISPLAY_TOKEN", "")
	v.SetDefault("DISPLAY_FAMILY_ID", "")
	v.SetDefault("DISPLAY_POLL_INTERVAL", "1m")
	v.SetDefault("DISPLAY_PLAYER_CMD", "")
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
