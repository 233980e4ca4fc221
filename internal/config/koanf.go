// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/scribe/config.yaml",
	"/etc/scribe/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// Default returns the built-in configuration without reading files or the
// environment.
func Default() *Config {
	return defaultConfig()
}

// defaultConfig returns a Config struct with all default values.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			Timeout:         30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Site: SiteConfig{
			URL:                  "http://localhost:8080/",
			Name:                 "Scribe",
			Timezone:             "UTC",
			AuthorArchivePattern: "author/%s/",
			PermalinkPattern:     "{year}/{month}/{slug}/",
		},
		Micropub: MicropubConfig{
			DefaultStatus: "publish",
			Debug:         false,
			PageSize:      20,
			MaxPageSize:   100,
			PostTypes:     []string{"note", "article", "reply", "like", "repost", "bookmark", "rsvp", "event", "checkin", "photo"},
		},
		IndieAuth: IndieAuthConfig{
			Mode:                  "introspection",
			TokenEndpoint:         "https://tokens.indieauth.com/token",
			AuthorizationEndpoint: "https://indieauth.com/auth",
			Timeout:               10 * time.Second,
			Breaker: BreakerConfig{
				MaxRequests:      1,
				Interval:         time.Minute,
				Timeout:          30 * time.Second,
				FailureThreshold: 5,
			},
		},
		Authz: AuthzConfig{
			DefaultRole: "author",
		},
		Store: StoreConfig{
			Driver: "badger",
			Path:   "/data/scribe",
		},
		Media: MediaConfig{
			Enabled:      true,
			Dir:          "/data/media",
			MaxSize:      20 << 20, // 20MB
			FetchTimeout: 30 * time.Second,
		},
		Syndication: SyndicationConfig{
			RatePerSecond: 1,
			Burst:         3,
			Timeout:       15 * time.Second,
		},
		Events: EventsConfig{
			Transport:  "memory",
			NATSURL:    "nats://127.0.0.1:4222",
			BufferSize: 64,
			WAL: WALConfig{
				Enabled:         false,
				Path:            "/data/wal",
				SyncWrites:      true,
				RetryInterval:   30 * time.Second,
				RetryBackoff:    5 * time.Second,
				MaxRetries:      20,
				EntryTTL:        72 * time.Hour,
				CompactInterval: time.Hour,
				LeaseDuration:   2 * time.Minute,
			},
		},
		Backup: BackupConfig{
			Enabled:      false,
			Dir:          "/data/backups",
			Interval:     24 * time.Hour,
			Keep:         7,
			IncludeMedia: true,
		},
		Security: SecurityConfig{
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   60,
			RateLimitWindow: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load loads configuration using koanf with layered sources:
//  1. Defaults: built-in defaults
//  2. Config File: optional YAML config file (if exists)
//  3. Environment Variables: override any mapped setting
func Load() (*Config, error) {
	return load(findConfigFile())
}

// LoadFile loads configuration from an explicit YAML path plus environment overrides.
func LoadFile(path string) (*Config, error) {
	return load(path)
}

func load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// SITE_URL -> site.url, INDIEAUTH_MODE -> indieauth.mode
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// ConfigFile returns the YAML file Load would read, or "" when none exists.
func ConfigFile() string {
	return findConfigFile()
}

// findConfigFile returns the first existing config file, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths defines which config paths are parsed as comma-separated slices
var sliceConfigPaths = []string{
	"micropub.post_types",
	"security.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf paths.
var envMappings = map[string]string{
	"http_host":                 "server.host",
	"http_port":                 "server.port",
	"http_timeout":              "server.timeout",
	"shutdown_timeout":          "server.shutdown_timeout",
	"site_url":                  "site.url",
	"site_name":                 "site.name",
	"site_timezone":             "site.timezone",
	"default_author":            "site.default_author",
	"author_archive_pattern":    "site.author_archive_pattern",
	"permalink_pattern":         "site.permalink_pattern",
	"micropub_default_status":   "micropub.default_status",
	"micropub_debug":            "micropub.debug",
	"micropub_page_size":        "micropub.page_size",
	"micropub_max_page_size":    "micropub.max_page_size",
	"micropub_post_types":       "micropub.post_types",
	"micropub_allow_anonymous":  "micropub.allow_anonymous",
	"indieauth_mode":            "indieauth.mode",
	"token_endpoint":            "indieauth.token_endpoint",
	"authorization_endpoint":    "indieauth.authorization_endpoint",
	"indieauth_timeout":         "indieauth.timeout",
	"indieauth_cache_ttl":       "indieauth.cache_ttl",
	"jwt_secret":                "indieauth.jwt_secret",
	"jwt_issuer":                "indieauth.jwt_issuer",
	"breaker_failure_threshold": "indieauth.breaker.failure_threshold",
	"breaker_timeout":           "indieauth.breaker.timeout",
	"casbin_model_path":         "authz.model_path",
	"casbin_policy_path":        "authz.policy_path",
	"authz_default_role":        "authz.default_role",
	"store_driver":              "store.driver",
	"store_path":                "store.path",
	"store_in_memory":           "store.in_memory",
	"media_enabled":             "media.enabled",
	"media_dir":                 "media.dir",
	"media_base_url":            "media.base_url",
	"media_max_size":            "media.max_size",
	"media_fetch_timeout":       "media.fetch_timeout",
	"media_import_remote":       "media.import_remote",
	"syndication_rate":          "syndication.rate_per_second",
	"syndication_burst":         "syndication.burst",
	"syndication_timeout":       "syndication.timeout",
	"events_transport":          "events.transport",
	"nats_url":                  "events.nats_url",
	"events_buffer_size":        "events.buffer_size",
	"wal_enabled":               "events.wal.enabled",
	"wal_path":                  "events.wal.path",
	"wal_sync_writes":           "events.wal.sync_writes",
	"wal_retry_interval":        "events.wal.retry_interval",
	"wal_retry_backoff":         "events.wal.retry_backoff",
	"wal_max_retries":           "events.wal.max_retries",
	"wal_entry_ttl":             "events.wal.entry_ttl",
	"wal_compact_interval":      "events.wal.compact_interval",
	"backup_enabled":            "backup.enabled",
	"backup_dir":                "backup.dir",
	"backup_interval":           "backup.interval",
	"backup_keep":               "backup.keep",
	"backup_include_media":      "backup.include_media",
	"cors_origins":              "security.cors_origins",
	"rate_limit_reqs":           "security.rate_limit_reqs",
	"rate_limit_window":         "security.rate_limit_window",
	"disable_rate_limit":        "security.rate_limit_disabled",
	"log_level":                 "logging.level",
	"log_format":                "logging.format",
	"log_caller":                "logging.caller",
}

// envTransformFunc transforms environment variable names to koanf config paths.
// Unmapped variables return "" so unrelated environment does not leak into config.
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}

// WatchConfigFile invokes callback whenever the YAML file at path changes.
func WatchConfigFile(path string, callback func()) error {
	return file.Provider(path).Watch(func(_ interface{}, err error) {
		if err != nil {
			return
		}
		callback()
	})
}
