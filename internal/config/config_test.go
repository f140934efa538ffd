package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"PORT", "GRPC_PORT", "DATABASE_URL", "MONGO_DB_NAME", "SECRET", "REDIS_ADDR",
	"REDIS_PASSWORD", "CART_CACHE_TTL", "KAFKA_BROKERS", "CART_IDENTITY_SOURCE",
	"TOKEN_TTL", "TOKEN_ISSUER", "ADMIN_EMAILS", "REQUEST_TIMEOUT", "SHUTDOWN_TIMEOUT", "LOG_LEVEL",
}

// clearEnv blanks every config variable for the duration of the test.
func clearEnv(t *testing.T) {
	for _, k := range configKeys {
		t.Setenv(k, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "mongodb://localhost:27017")
	t.Setenv("SECRET", "s3cret")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "4000", cfg.HTTPPort)
	assert.Equal(t, "50051", cfg.GRPCPort)
	assert.Equal(t, "cosmic", cfg.MongoDBName)
	assert.Equal(t, 15*time.Minute, cfg.CartCacheTTL)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "token", cfg.IdentitySource)
	assert.Equal(t, "cosmic-backend", cfg.TokenIssuer)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.RedisAddr)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Empty(t, cfg.AdminEmails)
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "memory://")
	t.Setenv("SECRET", "s3cret")
	t.Setenv("PORT", "8080")
	t.Setenv("KAFKA_BROKERS", " kafka-1:9092, ,kafka-2:9092 ")
	t.Setenv("CART_CACHE_TTL", "90s")
	t.Setenv("CART_IDENTITY_SOURCE", "request")
	t.Setenv("ADMIN_EMAILS", "Ops@Cosmic.dev, root@cosmic.dev")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 90*time.Second, cfg.CartCacheTTL)
	assert.Equal(t, "request", cfg.IdentitySource)
	assert.Equal(t, []string{"ops@cosmic.dev", "root@cosmic.dev"}, cfg.AdminEmails)
}

func TestFromEnv_Errors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"missing database url", map[string]string{"SECRET": "x"}, "DATABASE_URL is required"},
		{"missing secret", map[string]string{"DATABASE_URL": "memory://"}, "SECRET is required"},
		{"bad duration", map[string]string{"DATABASE_URL": "memory://", "SECRET": "x", "TOKEN_TTL": "soon"}, "invalid TOKEN_TTL"},
		{"negative duration", map[string]string{"DATABASE_URL": "memory://", "SECRET": "x", "REQUEST_TIMEOUT": "-1s"}, "REQUEST_TIMEOUT must be positive"},
		{"bad port", map[string]string{"DATABASE_URL": "memory://", "SECRET": "x", "PORT": "http"}, "PORT must be a port number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := FromEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_ReadsDotEnv(t *testing.T) {
	clearEnv(t)
	// godotenv never overrides variables that are already set, even to "".
	os.Unsetenv("DATABASE_URL")
	os.Unsetenv("SECRET")
	t.Setenv("PORT", "9000")

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("DATABASE_URL=memory://\nSECRET=from-file\nPORT=1234\n"), 0o600))
	t.Chdir(dir)
	t.Cleanup(func() {
		os.Unsetenv("DATABASE_URL")
		os.Unsetenv("SECRET")
	})

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "memory://", cfg.DatabaseURL)
	assert.Equal(t, "from-file", cfg.Secret)
	assert.Equal(t, "9000", cfg.HTTPPort)
}

func TestLoad_WithoutDotEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "memory://")
	t.Setenv("SECRET", "s3cret")
	t.Chdir(t.TempDir())

	_, err := Load()
	require.NoError(t, err)
}
