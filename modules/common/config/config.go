package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Store backends selectable at construction time.
const (
	StoreBackendMemory   = "memory"
	StoreBackendSupabase = "supabase"

	SnapshotBackendMemory = "memory"
	SnapshotBackendRedis  = "redis"
)

// Config - all environment values, loaded once at startup
type Config struct {
	// Server
	Port   string
	AppEnv string

	// Gemini API
	GeminiAPIKey   string
	GeminiBaseURL  string
	GeminiModel    string
	ProxyURL       string
	MaxRetries     int
	RetryBaseDelay time.Duration
	RequestTimeout time.Duration

	// Generation defaults
	DefaultTemperature float64
	MaxOutputTokens    int

	// Upload
	UploadMaxSize int64

	// Persistence
	StoreBackend    string
	SnapshotBackend string

	// Supabase
	SupabaseURL            string
	SupabaseServiceKey     string
	SupabaseStorageBaseURL string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisUsername string
	RedisPassword string
	RedisUseTLS   bool
}

// LoadConfig - load environment values with defaults and validate
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  .env file not found, using environment variables")
	}

	useTLS := true
	if tlsStr := os.Getenv("REDIS_USE_TLS"); tlsStr != "" {
		if parsed, err := strconv.ParseBool(tlsStr); err == nil {
			useTLS = parsed
		}
	}

	cfg := &Config{
		// Server
		Port:   getEnv("PORT", "8080"),
		AppEnv: getEnv("APP_ENV", "development"),

		// Gemini API
		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		GeminiBaseURL:  getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
		GeminiModel:    getEnv("GEMINI_MODEL", "gemini-2.5-flash-image-preview"),
		ProxyURL:       getEnv("PROXY_URL", ""),
		MaxRetries:     getEnvInt("GEMINI_MAX_RETRIES", 3),
		RetryBaseDelay: time.Duration(getEnvInt("GEMINI_RETRY_DELAY_MS", 1000)) * time.Millisecond,
		RequestTimeout: time.Duration(getEnvInt("GEMINI_TIMEOUT_MS", 60000)) * time.Millisecond,

		// Generation defaults
		DefaultTemperature: getEnvFloat("GEMINI_TEMPERATURE", 0.7),
		MaxOutputTokens:    getEnvInt("GEMINI_MAX_OUTPUT_TOKENS", 8192),

		// Upload
		UploadMaxSize: int64(getEnvInt("UPLOAD_MAX_SIZE", 10*1024*1024)),

		// Persistence
		StoreBackend:    getEnv("STORE_BACKEND", StoreBackendMemory),
		SnapshotBackend: getEnv("SNAPSHOT_BACKEND", SnapshotBackendMemory),

		// Supabase
		SupabaseURL:            getEnv("SUPABASE_URL", ""),
		SupabaseServiceKey:     getEnv("SUPABASE_SERVICE_KEY", ""),
		SupabaseStorageBaseURL: getEnv("SUPABASE_STORAGE_BASE_URL", ""),

		// Redis
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisUsername: getEnv("REDIS_USERNAME", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisUseTLS:   useTLS,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	log.Println("✅ Configuration loaded successfully")
	log.Printf("   Env: %s, Port: %s", cfg.AppEnv, cfg.Port)
	log.Printf("   Gemini: %s (proxy: %v, retries: %d)", cfg.GeminiModel, cfg.ProxyURL != "", cfg.MaxRetries)
	log.Printf("   Store: %s, Snapshots: %s", cfg.StoreBackend, cfg.SnapshotBackend)

	return cfg, nil
}

// validate - required values per selected backends
func (c *Config) validate() error {
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("GEMINI_MAX_RETRIES must be at least 1")
	}
	if c.DefaultTemperature < 0 || c.DefaultTemperature > 1 {
		return fmt.Errorf("GEMINI_TEMPERATURE must be between 0 and 1")
	}

	switch c.StoreBackend {
	case StoreBackendMemory:
	case StoreBackendSupabase:
		if c.SupabaseURL == "" {
			return fmt.Errorf("SUPABASE_URL is required when STORE_BACKEND=supabase")
		}
		if c.SupabaseServiceKey == "" {
			return fmt.Errorf("SUPABASE_SERVICE_KEY is required when STORE_BACKEND=supabase")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND: %s", c.StoreBackend)
	}

	switch c.SnapshotBackend {
	case SnapshotBackendMemory:
	case SnapshotBackendRedis:
		if c.RedisHost == "" {
			return fmt.Errorf("REDIS_HOST is required when SNAPSHOT_BACKEND=redis")
		}
	default:
		return fmt.Errorf("unknown SNAPSHOT_BACKEND: %s", c.SnapshotBackend)
	}

	return nil
}

// IsDevelopment - whether internal error detail may be exposed to clients
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// GetRedisAddr - Redis connection address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}

// getEnv - environment value with default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}
