package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func clearEnv(t *testing.T) {
	t.Setenv(EnvConfig, "")
	t.Setenv(EnvURL, "")
	t.Setenv(EnvTimeout, "")
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.BaseURL != "http://localhost:8080" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.TimeoutDuration() != 300*time.Second {
		t.Errorf("Timeout = %v", cfg.TimeoutDuration())
	}
	if cfg.PaperPageSize != 20 || cfg.ArticlePageSize != 250 {
		t.Errorf("page sizes = %d/%d, want 20/250", cfg.PaperPageSize, cfg.ArticlePageSize)
	}
	if cfg.DebounceDuration() != 500*time.Millisecond {
		t.Errorf("Debounce = %v", cfg.DebounceDuration())
	}
	if cfg.CacheTTL() != 12*time.Hour {
		t.Errorf("Cache.TTL = %v", cfg.CacheTTL())
	}
}

func TestLoad_Files(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "yaml",
			file: "config.yaml",
			content: `base_url: https://papers.example.com
timeout: 30s
paper_page_size: 50
debounce: 250ms
cache:
  dir: /tmp/pd
  ttl: 1h
`,
		},
		{
			name: "jsonc",
			file: "config.jsonc",
			content: `{
  // production server
  "base_url": "https://papers.example.com",
  "timeout": "30s",
  "paper_page_size": 50,
  "debounce": "250ms",
  "cache": {"dir": "/tmp/pd", "ttl": "1h",},
}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			cfg, err := Load(writeFile(t, tt.file, tt.content))
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if cfg.BaseURL != "https://papers.example.com" {
				t.Errorf("BaseURL = %q", cfg.BaseURL)
			}
			if cfg.TimeoutDuration() != 30*time.Second {
				t.Errorf("Timeout = %v", cfg.TimeoutDuration())
			}
			if cfg.PaperPageSize != 50 {
				t.Errorf("PaperPageSize = %d", cfg.PaperPageSize)
			}
			if cfg.ArticlePageSize != 250 {
				t.Errorf("ArticlePageSize = %d, want default 250", cfg.ArticlePageSize)
			}
			if cfg.DebounceDuration() != 250*time.Millisecond {
				t.Errorf("Debounce = %v", cfg.DebounceDuration())
			}
			if cfg.Cache.Dir != "/tmp/pd" || cfg.CacheTTL() != time.Hour {
				t.Errorf("Cache = %+v", cfg.Cache)
			}
		})
	}
}

func TestLoad_EnvConfigPath(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvConfig, writeFile(t, "c.yml", "paper_page_size: 7\n"))

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.PaperPageSize != 7 {
		t.Errorf("PaperPageSize = %d, want 7", cfg.PaperPageSize)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "c.yaml", "base_url: http://file:1\ntimeout: 5s\n")
	t.Setenv(EnvURL, "http://env:2")
	t.Setenv(EnvTimeout, "9s")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.BaseURL != "http://env:2" {
		t.Errorf("BaseURL = %q, want env value", cfg.BaseURL)
	}
	if cfg.TimeoutDuration() != 9*time.Second {
		t.Errorf("Timeout = %v, want 9s", cfg.TimeoutDuration())
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T) string
		wantErr string
	}{
		{
			name:    "missing file",
			setup:   func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.yaml") },
			wantErr: "read config",
		},
		{
			name:    "bad yaml",
			setup:   func(t *testing.T) string { return writeFile(t, "c.yaml", "timeout: [\n") },
			wantErr: "parse config",
		},
		{
			name:    "bad duration",
			setup:   func(t *testing.T) string { return writeFile(t, "c.yaml", "timeout: soon\n") },
			wantErr: "parse config",
		},
		{
			name:    "bad url",
			setup:   func(t *testing.T) string { return writeFile(t, "c.yaml", "base_url: localhost\n") },
			wantErr: "base_url",
		},
		{
			name:    "several invalid fields",
			setup:   func(t *testing.T) string { return writeFile(t, "c.json", `{"paper_page_size": 0, "article_page_size": -1}`) },
			wantErr: "article_page_size must be positive",
		},
		{
			name: "bad env timeout",
			setup: func(t *testing.T) string {
				t.Setenv(EnvTimeout, "fast")
				return ""
			},
			wantErr: EnvTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			_, err := Load(tt.setup(t))
			if err == nil {
				t.Fatal("Load succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_CacheDisabledIgnoresTTL(t *testing.T) {
	cfg := Default()
	cfg.Cache.TTL = 0
	cfg.Cache.Disabled = true
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}
