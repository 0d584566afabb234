package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()
	require.NoError(t, c.Validate())
	assert.Equal(t, 40.0, c.ThresholdPercent)
	assert.Equal(t, 5, c.MaxConcurrent)
	assert.Equal(t, 45*time.Second, c.ItemTimeout)
	assert.Equal(t, 0, c.FetchRetries)
	assert.False(t, c.RespectRobots)
	assert.False(t, c.HeadlessFallback)
	assert.False(t, c.SMTPEnabled())
}

func TestLoadFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PRICEPULSE_ENV", "production")
	t.Setenv("PRICEPULSE_DB_PATH", "/data/prices.db")
	t.Setenv("PRICEPULSE_THRESHOLD_PERCENT", "25.5")
	t.Setenv("PRICEPULSE_MAX_CONCURRENT", "8")
	t.Setenv("PRICEPULSE_ITEM_TIMEOUT", "1m")
	t.Setenv("PRICEPULSE_RESPECT_ROBOTS", "true")
	t.Setenv("PROXY_USERNAME", "cust")
	t.Setenv("PROXY_PORT", "9000")
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("PORT", "3000")
	t.Setenv("PRICEPULSE_CRON_SECRET", "s3cret")

	c := DefaultConfig()
	require.NoError(t, c.LoadFromEnv())

	assert.Equal(t, "production", c.Env)
	assert.Equal(t, "/data/prices.db", c.DBPath)
	assert.Equal(t, 25.5, c.ThresholdPercent)
	assert.Equal(t, 8, c.MaxConcurrent)
	assert.Equal(t, time.Minute, c.ItemTimeout)
	assert.True(t, c.RespectRobots)
	assert.Equal(t, "cust", c.ProxyUsername)
	assert.Equal(t, "brd.superproxy.io", c.ProxyHost)
	assert.Equal(t, 9000, c.ProxyPort)
	assert.True(t, c.SMTPEnabled())
	assert.Equal(t, "587", c.SMTPPort)
	assert.Equal(t, "3000", c.HTTPPort)
	assert.Equal(t, "s3cret", c.CronSecret)
}

func TestLoadFromEnv_Malformed(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PRICEPULSE_MAX_CONCURRENT", "many")
	t.Setenv("PRICEPULSE_ITEM_TIMEOUT", "45")

	c := DefaultConfig()
	err := c.LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PRICEPULSE_MAX_CONCURRENT")
	assert.Contains(t, err.Error(), "PRICEPULSE_ITEM_TIMEOUT")
	assert.Equal(t, 5, c.MaxConcurrent, "malformed values keep the default")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero concurrency", func(c *Config) { c.MaxConcurrent = 0 }, "max concurrent"},
		{"threshold above 100", func(c *Config) { c.ThresholdPercent = 120 }, "threshold"},
		{"negative threshold", func(c *Config) { c.ThresholdPercent = -1 }, "threshold"},
		{"zero item timeout", func(c *Config) { c.ItemTimeout = 0 }, "item timeout"},
		{"zero fetch timeout", func(c *Config) { c.FetchTimeout = 0 }, "fetch timeout"},
		{"negative retries", func(c *Config) { c.FetchRetries = -1 }, "retries"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mutate(c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	c := DefaultConfig()
	c.ThresholdPercent = 0
	assert.NoError(t, c.Validate(), "a zero threshold is allowed")
}
