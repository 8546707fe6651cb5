package config

import (
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server struct {
		Port            string
		Env             string
		ShutdownTimeout time.Duration
	}

	// Inference backend (OpenAI-compatible chat completions)
	Inference struct {
		BaseURL      string
		APIKey       string
		DefaultModel string
		Temperature  float32
		MaxTokens    int
		Timeout      time.Duration
	}

	// Storage locations and archive backend
	Storage struct {
		DataDir         string
		ArchiveDir      string
		WorldDir        string
		CharacterDir    string
		PreferencesPath string
		ArchiveBackend  string
		ArchiveDSN      string
	}

	// Security configuration
	Security struct {
		RateLimit      float64
		RateLimitBurst int
		AllowedOrigins []string
		MaxBodySize    int64
	}

	// Logging configuration
	Logging struct {
		Level  string
		Format string
	}

	// Cache settings
	Cache struct {
		TTL        time.Duration
		MaxSize    int
		WatchFiles bool
	}

	Observability struct {
		TracingEnabled bool
		MetricsEnabled bool
	}

	// Redis is only used for cross-process archive locks
	Redis struct {
		URL     string
		LockTTL time.Duration
	}

	OpenAPI struct {
		SchemaPath string
	}
}

var (
	instance *Config
	once     sync.Once
)

// New creates the process-wide Config instance from .env, an optional config file and
// the environment. Uses singleton pattern to ensure only one instance exists
func New() *Config {
	once.Do(func() {
		// Load .env file if exists
		godotenv.Load()

		cfg, err := Load()
		if err != nil {
			// A broken config file must not take the defaults down with it
			cfg, _ = fromViper(newViper())
		}
		instance = cfg
	})

	return instance
}

// Get returns the singleton Config instance
func Get() *Config {
	if instance == nil {
		return New()
	}
	return instance
}

// Load builds a fresh Config without touching the singleton.
// CONFIG_FILE may point at a yaml, json or toml file; environment variables win over it.
func Load() (*Config, error) {
	v := newViper()
	if path := v.GetString("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}
	return fromViper(v)
}

func newViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("PORT", "8000")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("SHUTDOWN_TIMEOUT", 10*time.Second)

	v.SetDefault("LM_BASE_URL", "http://127.0.0.1:1234/v1")
	v.SetDefault("LM_API_KEY", "lm-studio")
	v.SetDefault("LM_DEFAULT_MODEL", "dolphin3.0-llama3.1-8b")
	v.SetDefault("LM_TEMPERATURE", 0.7)
	v.SetDefault("LM_MAX_TOKENS", 513)
	v.SetDefault("LM_TIMEOUT", 60*time.Second)

	v.SetDefault("DATA_DIR", filepath.Join("static", "userdata"))
	v.SetDefault("ARCHIVE_DIR", "")
	v.SetDefault("WORLD_DIR", "")
	v.SetDefault("CHARACTER_DIR", "")
	v.SetDefault("PREFERENCES_PATH", "")
	v.SetDefault("ARCHIVE_BACKEND", "file")
	v.SetDefault("ARCHIVE_DSN", "")

	v.SetDefault("RATE_LIMIT", 20)
	v.SetDefault("RATE_LIMIT_BURST", 40)
	v.SetDefault("ALLOWED_ORIGINS", "*")
	v.SetDefault("MAX_BODY_SIZE", 10<<20) // 10MB

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("CACHE_TTL", 5*time.Minute)
	v.SetDefault("CACHE_MAX_SIZE", 1000)
	v.SetDefault("CACHE_WATCH_FILES", true)

	v.SetDefault("TRACING_ENABLED", false)
	v.SetDefault("METRICS_ENABLED", true)

	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_LOCK_TTL", 30*time.Second)

	v.SetDefault("OPENAPI_SCHEMA_PATH", "")

	v.AutomaticEnv()
	return v
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{}

	cfg.Server.Port = v.GetString("PORT")
	cfg.Server.Env = v.GetString("APP_ENV")
	cfg.Server.ShutdownTimeout = v.GetDuration("SHUTDOWN_TIMEOUT")

	cfg.Inference.BaseURL = strings.TrimRight(v.GetString("LM_BASE_URL"), "/")
	cfg.Inference.APIKey = v.GetString("LM_API_KEY")
	cfg.Inference.DefaultModel = v.GetString("LM_DEFAULT_MODEL")
	cfg.Inference.Temperature = float32(v.GetFloat64("LM_TEMPERATURE"))
	cfg.Inference.MaxTokens = v.GetInt("LM_MAX_TOKENS")
	cfg.Inference.Timeout = v.GetDuration("LM_TIMEOUT")

	dataDir := v.GetString("DATA_DIR")
	cfg.Storage.DataDir = dataDir
	cfg.Storage.ArchiveDir = orDefault(v.GetString("ARCHIVE_DIR"), filepath.Join(dataDir, "archive"))
	cfg.Storage.WorldDir = orDefault(v.GetString("WORLD_DIR"), filepath.Join(dataDir, "world_info"))
	cfg.Storage.CharacterDir = orDefault(v.GetString("CHARACTER_DIR"), filepath.Join(dataDir, "characters"))
	cfg.Storage.PreferencesPath = orDefault(v.GetString("PREFERENCES_PATH"), filepath.Join(dataDir, "config.json"))
	cfg.Storage.ArchiveBackend = strings.ToLower(v.GetString("ARCHIVE_BACKEND"))
	cfg.Storage.ArchiveDSN = v.GetString("ARCHIVE_DSN")

	cfg.Security.RateLimit = v.GetFloat64("RATE_LIMIT")
	cfg.Security.RateLimitBurst = v.GetInt("RATE_LIMIT_BURST")
	cfg.Security.AllowedOrigins = splitList(v.GetString("ALLOWED_ORIGINS"))
	cfg.Security.MaxBodySize = v.GetInt64("MAX_BODY_SIZE")

	cfg.Logging.Level = v.GetString("LOG_LEVEL")
	cfg.Logging.Format = v.GetString("LOG_FORMAT")

	cfg.Cache.TTL = v.GetDuration("CACHE_TTL")
	cfg.Cache.MaxSize = v.GetInt("CACHE_MAX_SIZE")
	cfg.Cache.WatchFiles = v.GetBool("CACHE_WATCH_FILES")

	cfg.Observability.TracingEnabled = v.GetBool("TRACING_ENABLED")
	cfg.Observability.MetricsEnabled = v.GetBool("METRICS_ENABLED")

	cfg.Redis.URL = v.GetString("REDIS_URL")
	cfg.Redis.LockTTL = v.GetDuration("REDIS_LOCK_TTL")

	cfg.OpenAPI.SchemaPath = v.GetString("OPENAPI_SCHEMA_PATH")

	return cfg, nil
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
