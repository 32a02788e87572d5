package config

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	BaseURL   string
	AccessKey string
	SecretKey string

	AssetsPerChunk      int
	ExportTimeout       time.Duration
	PollInitialWait     time.Duration
	PollMaxWait         time.Duration
	MaxConcurrentChunks int
	RequestTimeout      time.Duration
	MaxRetries          int
	BackoffFactor       float64

	CacheDir      string
	CacheMaxHours float64

	DBPath        string
	OverridesPath string

	MockMode    bool
	MetricsAddr string
	Debug       bool

	Severities   []string
	ForceRefresh bool
	ServerSort   string
}

// Load parses command line flags and environment variables to populate Config.
// Flags take precedence over environment variables.
func Load() *Config {
	return loadFrom(flag.CommandLine, os.Args[1:])
}

func loadFrom(fs *flag.FlagSet, args []string) *Config {
	cfg := &Config{}

	// Defaults and Environment Variables
	cfg.BaseURL = getEnv("VULNSYNC_URL", "https://cloud.tenable.com")
	cfg.AccessKey = getEnv("VULNSYNC_ACCESS_KEY", "")
	cfg.SecretKey = getEnv("VULNSYNC_SECRET_KEY", "")
	cfg.AssetsPerChunk = getEnvInt("VULNSYNC_ASSETS_PER_CHUNK", 500)
	exportTimeoutMin := getEnvInt("VULNSYNC_EXPORT_TIMEOUT_MIN", 30)
	pollInitialSec := getEnvInt("VULNSYNC_POLL_INITIAL_WAIT", 5)
	pollMaxSec := getEnvInt("VULNSYNC_POLL_MAX_WAIT", 30)
	requestTimeoutSec := getEnvInt("VULNSYNC_REQUEST_TIMEOUT", 120)
	cfg.MaxConcurrentChunks = getEnvInt("VULNSYNC_CHUNK_WORKERS", 4)
	cfg.MaxRetries = getEnvInt("VULNSYNC_MAX_RETRIES", 3)
	cfg.BackoffFactor = getEnvFloat("VULNSYNC_BACKOFF_FACTOR", 1.0)
	cfg.CacheDir = getEnv("VULNSYNC_CACHE_DIR", defaultDataPath("cache"))
	cfg.CacheMaxHours = getEnvFloat("VULNSYNC_CACHE_MAX_HOURS", 24)
	cfg.DBPath = getEnv("VULNSYNC_DB", defaultDataPath("vulnsync.db"))
	cfg.OverridesPath = getEnv("VULNSYNC_OVERRIDES", defaultDataPath("device_overrides.json"))
	cfg.MockMode = getEnvBool("VULNSYNC_MOCK", false)
	cfg.MetricsAddr = getEnv("VULNSYNC_METRICS_ADDR", "")

	// Command Line Flags (Override Env)
	fs.StringVar(&cfg.BaseURL, "url", cfg.BaseURL, "Bulk-export API base URL")
	fs.StringVar(&cfg.AccessKey, "access-key", cfg.AccessKey, "API access key")
	fs.StringVar(&cfg.SecretKey, "secret-key", cfg.SecretKey, "API secret key")
	fs.IntVar(&cfg.AssetsPerChunk, "assets-per-chunk", cfg.AssetsPerChunk, "Assets per export chunk")
	fs.IntVar(&exportTimeoutMin, "export-timeout", exportTimeoutMin, "Export polling timeout in minutes")
	fs.IntVar(&pollInitialSec, "poll-initial-wait", pollInitialSec, "Initial status poll interval in seconds")
	fs.IntVar(&pollMaxSec, "poll-max-wait", pollMaxSec, "Maximum status poll interval in seconds")
	fs.IntVar(&requestTimeoutSec, "request-timeout", requestTimeoutSec, "Per-request HTTP timeout in seconds")
	fs.IntVar(&cfg.MaxConcurrentChunks, "chunk-workers", cfg.MaxConcurrentChunks, "Concurrent chunk downloads")
	fs.IntVar(&cfg.MaxRetries, "retries", cfg.MaxRetries, "HTTP retry attempts on transient failures")
	fs.Float64Var(&cfg.BackoffFactor, "backoff", cfg.BackoffFactor, "Retry backoff factor in seconds")
	fs.StringVar(&cfg.CacheDir, "cache-dir", cfg.CacheDir, "Directory for the findings cache")
	fs.Float64Var(&cfg.CacheMaxHours, "cache-max-hours", cfg.CacheMaxHours, "Cache freshness window in hours")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to SQLite database")
	fs.StringVar(&cfg.OverridesPath, "overrides", cfg.OverridesPath, "Path to device type overrides file")
	fs.BoolVar(&cfg.MockMode, "mock", cfg.MockMode, "Run against a built-in mock export API")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Prometheus metrics listen address (empty to disable)")
	fs.BoolVar(&cfg.Debug, "debug", false, "Enable verbose debug logging")

	severityStr := ""
	fs.StringVar(&severityStr, "severity", "", "Severity filter, comma separated (critical,high,medium,low)")
	fs.BoolVar(&cfg.ForceRefresh, "force", false, "Bypass the findings cache")
	fs.StringVar(&cfg.ServerSort, "sort", "critical", "Server listing sort key (critical, high, total, hostname)")

	fs.Parse(args)

	cfg.Severities = splitList(severityStr)
	cfg.ExportTimeout = time.Duration(exportTimeoutMin) * time.Minute
	cfg.PollInitialWait = time.Duration(pollInitialSec) * time.Second
	cfg.PollMaxWait = time.Duration(pollMaxSec) * time.Second
	cfg.RequestTimeout = time.Duration(requestTimeoutSec) * time.Second

	return cfg
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

// defaultDataPath returns a path under ~/.vulnsync, creating the directory
// if needed. Falls back to the working directory when home is unknown.
func defaultDataPath(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		log.Printf("Warning: Could not get user home directory, using current dir: %v", err)
		return name
	}

	dir := filepath.Join(home, ".vulnsync")
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Printf("Warning: Could not create .vulnsync directory, using current dir: %v", err)
		return name
	}

	return filepath.Join(dir, name)
}
