package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresMongoURI(t *testing.T) {
	// t.Setenv registers a cleanup restoring the prior value; the explicit
	// unset makes the required-var check fire.
	t.Setenv("MONGO_URI", "placeholder")
	os.Unsetenv("MONGO_URI")

	_, err := Load("all")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MONGO_URI")
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")

	cfg, err := Load("api")
	require.NoError(t, err)

	assert.Equal(t, "api", cfg.RunMode)
	assert.Equal(t, "mongodb://localhost:27017", cfg.MongoURI)
	assert.Equal(t, 24*time.Hour, cfg.ActionTokenTTL)
	assert.Equal(t, 30*24*time.Hour, cfg.TokenSweepRetention)
	assert.Equal(t, 587, cfg.SmtpPort)
	assert.Equal(t, "8080", cfg.ApiPort)
	assert.Equal(t, "http://localhost:8080", cfg.PublicBaseURL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("MONGO_URI", "mongodb://db:27017")
	t.Setenv("ACTION_TOKEN_TTL_HOURS", "48")
	t.Setenv("SMTP_PORT", "465")
	t.Setenv("PUBLIC_BASE_URL", "https://swap.example.com")

	cfg, err := Load("all")
	require.NoError(t, err)

	assert.Equal(t, 48*time.Hour, cfg.ActionTokenTTL)
	assert.Equal(t, 465, cfg.SmtpPort)
	assert.Equal(t, "https://swap.example.com", cfg.PublicBaseURL)
}

func TestLoadRejectsMalformedNumbers(t *testing.T) {
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("ACTION_TOKEN_TTL_HOURS", "soon")

	_, err := Load("all")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ACTION_TOKEN_TTL_HOURS")
}

func TestActionURL(t *testing.T) {
	cfg := &Config{PublicBaseURL: "https://swap.example.com"}
	assert.Equal(t, "https://swap.example.com/action?token=abc123", cfg.ActionURL("abc123"))
}
