// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestDefaultConfig verifies that defaultConfig() returns proper defaults
func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Micropub.DefaultStatus != "publish" {
		t.Errorf("Micropub.DefaultStatus = %q, want publish", cfg.Micropub.DefaultStatus)
	}
	if cfg.IndieAuth.Mode != "introspection" {
		t.Errorf("IndieAuth.Mode = %q, want introspection", cfg.IndieAuth.Mode)
	}
	if cfg.IndieAuth.Timeout != 10*time.Second {
		t.Errorf("IndieAuth.Timeout = %v, want 10s", cfg.IndieAuth.Timeout)
	}
	if cfg.Micropub.AllowAnonymous {
		t.Error("Micropub.AllowAnonymous should default to false")
	}
	if cfg.IndieAuth.CacheTTL != 0 {
		t.Errorf("IndieAuth.CacheTTL = %v, want 0 (off)", cfg.IndieAuth.CacheTTL)
	}
	if cfg.Store.Driver != "badger" {
		t.Errorf("Store.Driver = %q, want badger", cfg.Store.Driver)
	}
	if cfg.Events.Transport != "memory" {
		t.Errorf("Events.Transport = %q, want memory", cfg.Events.Transport)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestLoadFile_YAMLAndEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlContent := `
site:
  url: https://blog.example.com/
  timezone: America/Los_Angeles
  default_author: alice
micropub:
  default_status: draft
syndication:
  targets:
    - uid: https://social.example/@alice
      name: Mastodon
      webhook: https://hooks.example/mastodon
store:
  driver: sqlite
  path: /tmp/scribe.db
`
	if err := os.WriteFile(path, []byte(yamlContent), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("MICROPUB_DEBUG", "true")
	t.Setenv("CORS_ORIGINS", "https://quill.p3k.io, https://indigenous.realize.be")
	t.Setenv("SITE_TIMEZONE", "Europe/Berlin")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if cfg.Site.URL != "https://blog.example.com/" {
		t.Errorf("Site.URL = %q", cfg.Site.URL)
	}
	if cfg.Site.Timezone != "Europe/Berlin" {
		t.Errorf("env should override file timezone, got %q", cfg.Site.Timezone)
	}
	if cfg.Micropub.DefaultStatus != "draft" {
		t.Errorf("Micropub.DefaultStatus = %q, want draft", cfg.Micropub.DefaultStatus)
	}
	if !cfg.Micropub.Debug {
		t.Error("Micropub.Debug should be true from env")
	}
	if len(cfg.Security.CORSOrigins) != 2 || cfg.Security.CORSOrigins[1] != "https://indigenous.realize.be" {
		t.Errorf("CORSOrigins = %v", cfg.Security.CORSOrigins)
	}
	if len(cfg.Syndication.Targets) != 1 || cfg.Syndication.Targets[0].Name != "Mastodon" {
		t.Errorf("Syndication.Targets = %+v", cfg.Syndication.Targets)
	}
	if cfg.Store.Driver != "sqlite" {
		t.Errorf("Store.Driver = %q, want sqlite", cfg.Store.Driver)
	}
	if cfg.MicropubEndpoint() != "https://blog.example.com/micropub" {
		t.Errorf("MicropubEndpoint() = %q", cfg.MicropubEndpoint())
	}
}

func TestEnvTransformFunc(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"SITE_URL":                 "site.url",
		"INDIEAUTH_MODE":           "indieauth.mode",
		"NATS_URL":                 "events.nats_url",
		"BACKUP_KEEP":              "backup.keep",
		"WAL_ENABLED":              "events.wal.enabled",
		"MICROPUB_ALLOW_ANONYMOUS": "micropub.allow_anonymous",
		"HOME":                     "",
		"PATH":                     "",
	}
	for in, want := range tests {
		if got := envTransformFunc(in); got != want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValidate_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"bad mode", func(c *Config) { c.IndieAuth.Mode = "oauth" }, "mode must be one of"},
		{"short jwt secret", func(c *Config) { c.IndieAuth.Mode = "jwt"; c.IndieAuth.JWTSecret = "short" }, "JWT_SECRET"},
		{"static without tokens", func(c *Config) { c.IndieAuth.Mode = "static" }, "static_tokens"},
		{"missing slug placeholder", func(c *Config) { c.Site.PermalinkPattern = "{year}/{month}/" }, "{slug}"},
		{"bad timezone", func(c *Config) { c.Site.Timezone = "Mars/Olympus" }, "timezone"},
		{"bad store driver", func(c *Config) { c.Store.Driver = "duckdb" }, "driver must be one of"},
		{"nats without url", func(c *Config) { c.Events.Transport = "nats"; c.Events.NATSURL = "" }, "NATS_URL"},
		{"wal without path", func(c *Config) { c.Events.WAL.Enabled = true; c.Events.WAL.Path = "" }, "WAL_PATH"},
		{"backup without dir", func(c *Config) { c.Backup.Enabled = true; c.Backup.Dir = "" }, "BACKUP_DIR"},
		{"backup interval too short", func(c *Config) { c.Backup.Enabled = true; c.Backup.Interval = time.Second }, "BACKUP_INTERVAL"},
		{"bad default status", func(c *Config) { c.Micropub.DefaultStatus = "published" }, "default_status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("Expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %q", tt.wantErr, err.Error())
			}
		})
	}
}

func TestMediaBaseURL(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	cfg.Site.URL = "https://example.com"
	if got := cfg.MediaBaseURL(); got != "https://example.com/media/" {
		t.Errorf("MediaBaseURL() = %q", got)
	}
	cfg.Media.BaseURL = "https://cdn.example.com/u"
	if got := cfg.MediaBaseURL(); got != "https://cdn.example.com/u/" {
		t.Errorf("MediaBaseURL() = %q", got)
	}
}
