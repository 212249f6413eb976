package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.SharePrefix != "https://gofile.io/d/" {
		t.Errorf("unexpected share prefix %q", cfg.SharePrefix)
	}
	if cfg.APIURL != "https://api.gofile.io" {
		t.Errorf("unexpected api url %q", cfg.APIURL)
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Errorf("unexpected timeout %s", cfg.RequestTimeout)
	}
	if cfg.RetryAttempts != 1 {
		t.Errorf("expected no retries by default, got %d attempts", cfg.RetryAttempts)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("GOFILE_CONCURRENCY", "8")
	t.Setenv("GOFILE_REQUEST_TIMEOUT", "5s")
	t.Setenv("GOFILE_TOKEN", "preset")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Concurrency != 8 {
		t.Errorf("expected concurrency 8, got %d", cfg.Concurrency)
	}
	if cfg.RequestTimeout != 5*time.Second {
		t.Errorf("expected 5s, got %s", cfg.RequestTimeout)
	}
	if cfg.Token != "preset" {
		t.Errorf("expected preset token, got %q", cfg.Token)
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("GOFILE_MAX_DEPTH", "deep")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MaxDepth != 64 {
		t.Errorf("expected fallback depth 64, got %d", cfg.MaxDepth)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"relative api url", func(c *Config) { c.APIURL = "/api" }, "GOFILE_API_URL"},
		{"prefix without slash", func(c *Config) { c.SharePrefix = "https://gofile.io/d" }, "GOFILE_SHARE_PREFIX"},
		{"zero concurrency", func(c *Config) { c.Concurrency = 0 }, "GOFILE_CONCURRENCY"},
		{"negative rate limit", func(c *Config) { c.RateLimitRPM = -1 }, "RATE_LIMIT_RPM"},
		{"s3 without bucket", func(c *Config) { c.ManifestBackend = "s3" }, "S3_BUCKET"},
		{"unknown backend", func(c *Config) { c.ManifestBackend = "smb" }, "MANIFEST_BACKEND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			tt.mutate(cfg)
			err = cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error mentioning %s, got %v", tt.wantErr, err)
			}
		})
	}
}
