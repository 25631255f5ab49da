package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("IMPORT_CONCURRENCY", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 8, cfg.Import.Concurrency)
	assert.Equal(t, 5*time.Second, cfg.Sync.OrderPoll)
	assert.Equal(t, 30*time.Second, cfg.Sync.MenuPoll)
	assert.Equal(t, 60*time.Second, cfg.Sync.PortalRefresh)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, cfg.Server.CORSAllowedOrigins)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://admin.example.com , ,https://tv.example.com")
	t.Setenv("IMPORT_CONCURRENCY", "64")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://admin.example.com", "https://tv.example.com"}, cfg.Server.CORSAllowedOrigins)
	assert.Equal(t, 16, cfg.Import.Concurrency)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestDSN(t *testing.T) {
	c := DatabaseConfig{User: "u", Password: "p", Host: "h", Port: "5432", DBName: "d", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@h:5432/d?sslmode=disable", c.DSN())
	c.URL = "postgres://supabase/db"
	assert.Equal(t, "postgres://supabase/db", c.DSN())
}
