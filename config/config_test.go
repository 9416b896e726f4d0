package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "secret")

	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, StoreMongo, cfg.StoreDriver)
	assert.Equal(t, uint16(4000), cfg.HTTP.Port)
	assert.Equal(t, "/api", cfg.HTTP.APIPrefix)
	assert.Equal(t, time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 10, cfg.Auth.BcryptCost)
	assert.Equal(t, "donate", cfg.Mongo.Database)
	assert.False(t, cfg.Auth.EnforceModerator)
	assert.False(t, cfg.Cloudinary.Enabled())
	assert.False(t, cfg.Mail.Enabled())
}

func TestParseOverrides(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "secret")
	t.Setenv("STORE_DRIVER", " Memory ")
	t.Setenv("HTTP_PORT", "8081")
	t.Setenv("HTTP_CORS_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("AUTH_TOKEN_TTL", "30m")
	t.Setenv("CLOUDINARY_CLOUD_NAME", "demo")
	t.Setenv("CLOUDINARY_API_KEY", "key")
	t.Setenv("CLOUDINARY_API_SECRET", "shh")
	t.Setenv("ZEPTO_API_URL", "https://api.zeptomail.com/v1.1/email")
	t.Setenv("ZEPTO_API_KEY", "k")
	t.Setenv("EMAIL_FROM", "noreply@example.com")

	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, StoreMemory, cfg.StoreDriver)
	assert.Equal(t, uint16(8081), cfg.HTTP.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.CORSOrigins)
	assert.Equal(t, 30*time.Minute, cfg.Auth.TokenTTL)
	assert.True(t, cfg.Cloudinary.Enabled())
	assert.True(t, cfg.Mail.Enabled())
}

func TestParseRequiresSecret(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "")

	_, err := Parse()
	assert.ErrorContains(t, err, "AUTH_JWT_SECRET")
}

func TestParseRejectsUnknownStore(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "secret")
	t.Setenv("STORE_DRIVER", "redis")

	_, err := Parse()
	assert.ErrorContains(t, err, "redis")
}
