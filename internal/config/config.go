// Package config reads process configuration from the environment,
// optionally seeded from a .env file in the working directory.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPPort        string
	GRPCPort        string
	DatabaseURL     string
	MongoDBName     string
	Secret          string
	RedisAddr       string
	RedisPassword   string
	CartCacheTTL    time.Duration
	KafkaBrokers    []string
	IdentitySource  string
	TokenTTL        time.Duration
	TokenIssuer     string
	AdminEmails     []string // registrations with these addresses get admin rights
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	LogLevel        string
}

// Load applies .env (when present) and then reads the environment.
// Variables already set in the environment win over .env entries.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return FromEnv()
}

func FromEnv() (*Config, error) {
	cfg := &Config{
		HTTPPort:       getEnv("PORT", "4000"),
		GRPCPort:       getEnv("GRPC_PORT", "50051"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		MongoDBName:    getEnv("MONGO_DB_NAME", "cosmic"),
		Secret:         os.Getenv("SECRET"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		KafkaBrokers:   splitList(os.Getenv("KAFKA_BROKERS")),
		IdentitySource: getEnv("CART_IDENTITY_SOURCE", "token"),
		TokenIssuer:    getEnv("TOKEN_ISSUER", "cosmic-backend"),
		AdminEmails:    splitList(strings.ToLower(os.Getenv("ADMIN_EMAILS"))),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.Secret == "" {
		return nil, errors.New("SECRET is required")
	}

	durations := []struct {
		key string
		def time.Duration
		dst *time.Duration
	}{
		{"CART_CACHE_TTL", 15 * time.Minute, &cfg.CartCacheTTL},
		{"TOKEN_TTL", 24 * time.Hour, &cfg.TokenTTL},
		{"REQUEST_TIMEOUT", 30 * time.Second, &cfg.RequestTimeout},
		{"SHUTDOWN_TIMEOUT", 10 * time.Second, &cfg.ShutdownTimeout},
	}
	for _, d := range durations {
		v, err := getDuration(d.key, d.def)
		if err != nil {
			return nil, err
		}
		*d.dst = v
	}

	for _, p := range []struct{ key, val string }{{"PORT", cfg.HTTPPort}, {"GRPC_PORT", cfg.GRPCPort}} {
		if n, err := strconv.Atoi(p.val); err != nil || n <= 0 || n > 65535 {
			return nil, fmt.Errorf("%s must be a port number, got %q", p.key, p.val)
		}
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, value)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
