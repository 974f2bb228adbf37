package config

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

type DBConfig struct {
	Driver string // postgres, sqlite or memory
	URL    string
}

type KeyConfig struct {
	Path string
	Bits int
}

type Config struct {
	Port               string
	Environment        string
	LogLevel           string
	DB                 DBConfig
	JWTSecret          string
	TokenTTL           time.Duration
	Keys               KeyConfig
	SettlementInterval time.Duration
	BidCancelWindow    time.Duration
	CorsConfig         cors.Options
}

// Load reads an optional .env file (ENV_FILE, default ".env") and then the process environment
func Load() (Config, error) {
	envFile := getEnv("ENV_FILE", ".env")
	// a missing .env file is fine, the environment alone may be enough
	_ = godotenv.Load(envFile)

	tokenMinutes, err := getInt("ACCESS_TOKEN_EXPIRE_MINUTES", 30)
	if err != nil {
		return Config{}, err
	}
	keyBits, err := getInt("RSA_KEY_BITS", 2048)
	if err != nil {
		return Config{}, err
	}
	interval, err := getDuration("SETTLEMENT_INTERVAL", 5*time.Second)
	if err != nil {
		return Config{}, err
	}
	cancelWindow, err := getDuration("BID_CANCEL_WINDOW", 10*time.Second)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		DB: DBConfig{
			Driver: getEnv("DB_DRIVER", "sqlite"),
			URL:    getEnv("DB_URL", "file:auction.db"),
		},
		JWTSecret: getEnv("JWT_SECRET", "not-so-secret-now-is-it?"),
		TokenTTL:  time.Duration(tokenMinutes) * time.Minute,
		Keys: KeyConfig{
			Path: getEnv("RSA_KEYS_PATH", "keys/server_rsa.json"),
			Bits: keyBits,
		},
		SettlementInterval: interval,
		BidCancelWindow:    cancelWindow,
		CorsConfig:         CorsConfig(splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"))),
	}

	if cfg.IsProduction() && cfg.JWTSecret == "not-so-secret-now-is-it?" {
		return Config{}, fmt.Errorf("config: JWT_SECRET must be set in production")
	}
	return cfg, nil
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

// Gets the env by key or fallbacks
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("config: %s must be a positive integer, got %q", key, raw)
	}
	return v, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("config: %s must be a positive duration, got %q", key, raw)
	}
	return v, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func CorsConfig(origins []string) cors.Options {
	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
	}
}
