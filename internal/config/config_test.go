package config

import (
	"flag"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func load(t *testing.T, args ...string) *Config {
	t.Helper()
	fs := flag.NewFlagSet("vulnsync-test", flag.ContinueOnError)
	return loadFrom(fs, args)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg := load(t)

	assert.Equal(t, "https://cloud.tenable.com", cfg.BaseURL)
	assert.Equal(t, 500, cfg.AssetsPerChunk)
	assert.Equal(t, 30*time.Minute, cfg.ExportTimeout)
	assert.Equal(t, 5*time.Second, cfg.PollInitialWait)
	assert.Equal(t, 30*time.Second, cfg.PollMaxWait)
	assert.Equal(t, 120*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, "critical", cfg.ServerSort)
	assert.Empty(t, cfg.Severities)
}

func TestLoadTimingFromEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("VULNSYNC_POLL_INITIAL_WAIT", "2")
	t.Setenv("VULNSYNC_POLL_MAX_WAIT", "45")
	t.Setenv("VULNSYNC_REQUEST_TIMEOUT", "10")

	cfg := load(t)

	assert.Equal(t, 2*time.Second, cfg.PollInitialWait)
	assert.Equal(t, 45*time.Second, cfg.PollMaxWait)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
}

func TestLoadFlagsOverrideEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("VULNSYNC_POLL_MAX_WAIT", "45")
	t.Setenv("VULNSYNC_REQUEST_TIMEOUT", "10")

	cfg := load(t,
		"-poll-initial-wait", "1",
		"-poll-max-wait", "60",
		"-request-timeout", "90",
	)

	assert.Equal(t, 1*time.Second, cfg.PollInitialWait)
	assert.Equal(t, 60*time.Second, cfg.PollMaxWait)
	assert.Equal(t, 90*time.Second, cfg.RequestTimeout)
}

func TestLoadIgnoresMalformedEnvInt(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("VULNSYNC_POLL_MAX_WAIT", "not-a-number")

	cfg := load(t)

	assert.Equal(t, 30*time.Second, cfg.PollMaxWait)
}

func TestLoadSeverityList(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg := load(t, "-severity", "critical, high ,")

	assert.Equal(t, []string{"critical", "high"}, cfg.Severities)
}
