package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-readiness/internal/config"
)

func TestDefaults(t *testing.T) {
	c, err := config.FromEnv()
	require.NoError(t, err)

	assert.Equal(t, config.ModeOffline, c.Mode)
	assert.Equal(t, ":8080", c.HTTPAddr)
	assert.Equal(t, "sqlite", c.DBDriver)
	assert.True(t, c.PersistEnabled)
	assert.Equal(t, 10*time.Second, c.PersistTimeout)
	assert.Equal(t, 45*time.Second, c.NarrativeTimeout)
	assert.Equal(t, float32(0.7), c.NarrativeTemperature)
	assert.Equal(t, 1000, c.NarrativeMaxTokens)
	assert.Equal(t, "gpt-4o-mini", c.OpenAIModel)
	assert.Equal(t, "fs", c.BlobDriver)
	assert.Equal(t, 24*time.Hour, c.SessionTTL)
	assert.Empty(t, c.AdminPassHash)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:3010"}, c.AllowedOrigins())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MODE", "online")
	t.Setenv("AUTH_HMAC_SECRET", "s3cret")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("PERSIST_ENABLED", "false")
	t.Setenv("NARRATIVE_TIMEOUT", "5s")
	t.Setenv("NARRATIVE_MAX_TOKENS", "400")
	t.Setenv("PUBLIC_URL", "https://example.org/")
	t.Setenv("CORS_ORIGINS_ONLINE", " https://a.example , ,https://b.example")

	c, err := config.FromEnv()
	require.NoError(t, err)
	assert.Equal(t, config.ModeOnline, c.Mode)
	assert.Equal(t, "postgres", c.DBDriver)
	assert.False(t, c.PersistEnabled)
	assert.Equal(t, 5*time.Second, c.NarrativeTimeout)
	assert.Equal(t, 400, c.NarrativeMaxTokens)
	assert.Equal(t, "https://example.org", c.PublicURL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, c.AllowedOrigins())
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "readiness.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http_addr: \":9090\"\nopenai_model: gpt-4o\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("OPENAI_MODEL", "gpt-4.1-mini")

	c, err := config.FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":9090", c.HTTPAddr)
	assert.Equal(t, "gpt-4.1-mini", c.OpenAIModel, "environment wins over the file")
}

func TestValidate(t *testing.T) {
	t.Setenv("MODE", "online")
	t.Setenv("DB_DRIVER", "mysql")
	t.Setenv("BLOB_DRIVER", "minio")

	_, err := config.FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_DRIVER")
	assert.Contains(t, err.Error(), "MINIO_ACCESS_KEY")
	assert.Contains(t, err.Error(), "AUTH_HMAC_SECRET")
}
