// Package config loads configuration from environment variables.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds server and CLI configuration.
type Config struct {
	// Server
	ListenAddr   string
	MetricsAddr  string
	RateLimitRPM int

	// Logging
	LogLevel  string
	LogFormat string

	// Provider endpoints
	APIURL      string
	SiteURL     string
	SharePrefix string
	UserAgent   string

	// Pre-seeded credentials (optional)
	Token             string
	VerificationToken string

	// Resolver
	RequestTimeout time.Duration
	Concurrency    int
	MaxDepth       int
	RetryAttempts  int

	// Manifest storage ("local" or "s3")
	ManifestBackend   string
	ManifestLocalPath string
	S3Endpoint        string
	S3Bucket          string
	S3AccessKey       string
	S3SecretKey       string
	S3Region          string
}

// Load reads configuration from environment variables with defaults.
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:        envOr("LISTEN_ADDR", ":8080"),
		MetricsAddr:       os.Getenv("METRICS_ADDR"),
		RateLimitRPM:      envInt("RATE_LIMIT_RPM", 0),
		LogLevel:          envOr("LOG_LEVEL", "info"),
		LogFormat:         envOr("LOG_FORMAT", "json"),
		APIURL:            envOr("GOFILE_API_URL", "https://api.gofile.io"),
		SiteURL:           envOr("GOFILE_SITE_URL", "https://gofile.io"),
		SharePrefix:       envOr("GOFILE_SHARE_PREFIX", "https://gofile.io/d/"),
		UserAgent:         envOr("GOFILE_USER_AGENT", "Mozilla/5.0 (X11; Linux x86_64) gofile-dl/1.0"),
		Token:             os.Getenv("GOFILE_TOKEN"),
		VerificationToken: os.Getenv("GOFILE_WT"),
		RequestTimeout:    envDuration("GOFILE_REQUEST_TIMEOUT", 30*time.Second),
		Concurrency:       envInt("GOFILE_CONCURRENCY", 4),
		MaxDepth:          envInt("GOFILE_MAX_DEPTH", 64),
		RetryAttempts:     envInt("RETRY_ATTEMPTS", 1),
		ManifestBackend:   envOr("MANIFEST_BACKEND", "local"),
		ManifestLocalPath: envOr("MANIFEST_LOCAL_PATH", "."),
		S3Endpoint:        envOr("S3_ENDPOINT", ""),
		S3Bucket:          envOr("S3_BUCKET", ""),
		S3AccessKey:       envOr("S3_ACCESS_KEY", ""),
		S3SecretKey:       envOr("S3_SECRET_KEY", ""),
		S3Region:          envOr("S3_REGION", "us-east-1"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that flags may have overridden after Load.
func (c *Config) Validate() error {
	for name, raw := range map[string]string{"GOFILE_API_URL": c.APIURL, "GOFILE_SITE_URL": c.SiteURL} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s must be an absolute URL, got %q", name, raw)
		}
	}
	if !strings.HasSuffix(c.SharePrefix, "/") {
		return fmt.Errorf("GOFILE_SHARE_PREFIX must end with '/', got %q", c.SharePrefix)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("GOFILE_CONCURRENCY must be at least 1, got %d", c.Concurrency)
	}
	if c.MaxDepth < 1 {
		return fmt.Errorf("GOFILE_MAX_DEPTH must be at least 1, got %d", c.MaxDepth)
	}
	if c.RateLimitRPM < 0 {
		return fmt.Errorf("RATE_LIMIT_RPM must not be negative, got %d", c.RateLimitRPM)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("GOFILE_REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout)
	}
	switch c.ManifestBackend {
	case "local":
	case "s3":
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required when MANIFEST_BACKEND=s3")
		}
	default:
		return fmt.Errorf("unknown MANIFEST_BACKEND %q", c.ManifestBackend)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
