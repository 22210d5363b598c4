package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/linemk/gogol-pizza/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpFile, err := os.CreateTemp(t.TempDir(), "config_test_*.yaml")
	require.NoError(t, err)
	_, err = tmpFile.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, tmpFile.Close())
	return tmpFile.Name()
}

func TestMustLoadByPath_Success(t *testing.T) {
	t.Setenv("DB_PASSWORD", "mypassword")
	t.Setenv("JWT_SECRET", "mysecret")
	t.Setenv("MPESA_CONSUMER_KEY", "key")
	t.Setenv("MPESA_PASSKEY", "passkey")

	path := writeConfig(t, `
env: "local"
http_server:
  address: "localhost:8080"
  timeout: "4s"
  idle_timeout: "60s"
database:
  host: "localhost"
  port: 5432
  user: "postgres"
  name: "gogol"
jwt:
  token_ttl: 60
migrations:
  path: "./migrations"
mpesa:
  shortcode: "174379"
  callback_url: "https://example.com/api/orders/mpesa/callback"
cors:
  allowed_origins: ["http://localhost:5173", "https://gogol.example"]
kafka:
  brokers: "kafka-1:9092, kafka-2:9092"
`)

	cfg := config.MustLoadByPath(path)

	assert.Equal(t, "local", cfg.Env)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, "localhost:8080", cfg.HTTPServer.Address)
	assert.Equal(t, 4*time.Second, cfg.HTTPServer.Timeout)
	assert.Equal(t, 5*time.Second, cfg.HTTPServer.ShutdownTimeout)
	assert.Equal(t, "postgres", cfg.Database.User)
	assert.Equal(t, "mypassword", cfg.Database.Password)
	assert.Equal(t, "gogol", cfg.Database.Name)
	assert.Equal(t, "mysecret", cfg.JWT.Secret)
	assert.Equal(t, 60, cfg.JWT.TokenTTL)
	assert.Equal(t, "token", cfg.JWT.CookieName)
	assert.Equal(t, "sandbox", cfg.MPesa.Env)
	assert.Equal(t, "174379", cfg.MPesa.ShortCode)
	assert.Equal(t, "key", cfg.MPesa.ConsumerKey)
	assert.Equal(t, "passkey", cfg.MPesa.Passkey)
	assert.Equal(t, 10*time.Minute, cfg.Seller.CodeTTL)
	assert.Equal(t, []string{"http://localhost:5173", "https://gogol.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.BrokerList())
	assert.Equal(t, 16, cfg.Realtime.SendBuffer)
}

func TestKafkaConfig_EmptyBrokers(t *testing.T) {
	assert.Empty(t, config.KafkaConfig{}.BrokerList())
	assert.Empty(t, config.KafkaConfig{Brokers: " , "}.BrokerList())
}

func TestIsProduction(t *testing.T) {
	cfg := &config.Config{Env: config.EnvProduction}
	assert.True(t, cfg.IsProduction())
}

func TestMustLoadByPath_FileNotFound(t *testing.T) {
	assert.Panics(t, func() {
		config.MustLoadByPath("non_existent_config.yaml")
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	db := config.DatabaseConfig{Host: "db", Port: 5432, User: "gogol", Password: "p@ss/word", Name: "gogol"}

	assert.Equal(t, "postgres://gogol:p%40ss%2Fword@db:5432/gogol?sslmode=disable", db.DSN())

	db.SSLMode = "require"
	assert.Equal(t,
		"postgres://gogol:p%40ss%2Fword@db:5432/gogol?sslmode=require&x-migrations-table=migrations",
		db.DSN("x-migrations-table", "migrations"))
}
