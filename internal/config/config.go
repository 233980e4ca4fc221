// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

// Package config loads Scribe configuration from defaults, an optional YAML
// file and environment variables, in that order of precedence (lowest first).
package config

import (
	"net"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Site        SiteConfig        `koanf:"site"`
	Micropub    MicropubConfig    `koanf:"micropub"`
	IndieAuth   IndieAuthConfig   `koanf:"indieauth"`
	Authz       AuthzConfig       `koanf:"authz"`
	Store       StoreConfig       `koanf:"store"`
	Media       MediaConfig       `koanf:"media"`
	Syndication SyndicationConfig `koanf:"syndication"`
	Events      EventsConfig      `koanf:"events"`
	Backup      BackupConfig      `koanf:"backup"`
	Security    SecurityConfig    `koanf:"security"`
	Logging     LoggingConfig     `koanf:"logging"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"gte=1,lte=65535"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// SiteConfig describes the site Scribe publishes to.
type SiteConfig struct {
	URL      string `koanf:"url" validate:"required,http_url"` // Canonical site URL, e.g. https://example.com/
	Name     string `koanf:"name"`
	Timezone string `koanf:"timezone" validate:"required,timezone"`

	// DefaultAuthor is the user id that owns posts made by the site owner (me == site URL).
	DefaultAuthor string `koanf:"default_author"`

	// AuthorArchivePattern is appended to the site URL with %s replaced by the user login.
	AuthorArchivePattern string `koanf:"author_archive_pattern"`

	// PermalinkPattern supports {year}, {month}, {day} and {slug}.
	PermalinkPattern string `koanf:"permalink_pattern" validate:"required"`
}

// MicropubConfig holds protocol behaviour settings.
type MicropubConfig struct {
	DefaultStatus  string   `koanf:"default_status" validate:"oneof=publish draft private"`
	Debug          bool     `koanf:"debug"` // Include debug data in error envelopes
	PageSize       int      `koanf:"page_size" validate:"gte=1"`
	MaxPageSize    int      `koanf:"max_page_size" validate:"gtefield=PageSize"`
	PostTypes      []string `koanf:"post_types"`
	AllowAnonymous bool     `koanf:"allow_anonymous"` // Accept writes from tokens whose me is not a local user
}

// IndieAuthConfig selects how bearer tokens are verified.
type IndieAuthConfig struct {
	Mode                  string        `koanf:"mode" validate:"oneof=introspection jwt static"`
	TokenEndpoint         string        `koanf:"token_endpoint"`
	AuthorizationEndpoint string        `koanf:"authorization_endpoint"`
	Timeout               time.Duration `koanf:"timeout"`
	CacheTTL              time.Duration `koanf:"cache_ttl"` // Zero disables caching of verified tokens
	JWTSecret             string        `koanf:"jwt_secret"`
	JWTIssuer             string        `koanf:"jwt_issuer"`
	StaticTokens          []StaticToken `koanf:"static_tokens" validate:"dive"`
	Breaker               BreakerConfig `koanf:"breaker"`
}

// StaticToken is a personal token accepted in static mode. Hash is a bcrypt hash.
type StaticToken struct {
	Hash   string   `koanf:"hash" validate:"required"`
	Me     string   `koanf:"me" validate:"required,http_url"`
	Scopes []string `koanf:"scopes" validate:"min=1"`
}

// BreakerConfig configures the circuit breaker around outbound calls.
type BreakerConfig struct {
	MaxRequests      uint32        `koanf:"max_requests"`
	Interval         time.Duration `koanf:"interval"`
	Timeout          time.Duration `koanf:"timeout"`
	FailureThreshold uint32        `koanf:"failure_threshold" validate:"gte=1"`
}

// AuthzConfig configures the casbin enforcer.
type AuthzConfig struct {
	ModelPath   string `koanf:"model_path"`  // Empty uses the embedded model
	PolicyPath  string `koanf:"policy_path"` // Empty uses the embedded policy
	DefaultRole string `koanf:"default_role" validate:"oneof=administrator editor author contributor"`
}

// StoreConfig selects the content store.
type StoreConfig struct {
	Driver   string `koanf:"driver" validate:"oneof=badger sqlite"`
	Path     string `koanf:"path"`
	InMemory bool   `koanf:"in_memory"`
}

// MediaConfig configures the media endpoint.
type MediaConfig struct {
	Enabled      bool          `koanf:"enabled"`
	Dir          string        `koanf:"dir"`
	BaseURL      string        `koanf:"base_url"`
	MaxSize      int64         `koanf:"max_size" validate:"gte=1"`
	FetchTimeout time.Duration `koanf:"fetch_timeout"`

	// ImportRemote copies photo, video and audio URLs into the media directory.
	ImportRemote bool `koanf:"import_remote"`
}

// SyndicationTarget is an external destination advertised via q=syndicate-to.
type SyndicationTarget struct {
	UID     string `koanf:"uid" json:"uid" validate:"required"`
	Name    string `koanf:"name" json:"name" validate:"required"`
	Webhook string `koanf:"webhook" json:"-" validate:"omitempty,http_url"`
}

// SyndicationConfig configures syndication targets and outbound delivery.
type SyndicationConfig struct {
	Targets       []SyndicationTarget `koanf:"targets" validate:"dive"`
	RatePerSecond float64             `koanf:"rate_per_second" validate:"gt=0"`
	Burst         int                 `koanf:"burst" validate:"gte=1"`
	Timeout       time.Duration       `koanf:"timeout"`
}

// EventsConfig selects the post-action event transport.
type EventsConfig struct {
	Transport  string    `koanf:"transport" validate:"oneof=memory nats"`
	NATSURL    string    `koanf:"nats_url"`
	BufferSize int64     `koanf:"buffer_size"`
	WAL        WALConfig `koanf:"wal"`
}

// WALConfig configures the durable event outbox in front of the bus.
type WALConfig struct {
	Enabled         bool          `koanf:"enabled"`
	Path            string        `koanf:"path"`
	SyncWrites      bool          `koanf:"sync_writes"`
	RetryInterval   time.Duration `koanf:"retry_interval"`
	RetryBackoff    time.Duration `koanf:"retry_backoff"`
	MaxRetries      int           `koanf:"max_retries" validate:"gte=0"`
	EntryTTL        time.Duration `koanf:"entry_ttl"`
	CompactInterval time.Duration `koanf:"compact_interval"`
	LeaseDuration   time.Duration `koanf:"lease_duration"`
}

// BackupConfig schedules store and media archives.
type BackupConfig struct {
	Enabled      bool          `koanf:"enabled"`
	Dir          string        `koanf:"dir"`
	Interval     time.Duration `koanf:"interval"`
	Keep         int           `koanf:"keep" validate:"gte=0"`
	IncludeMedia bool          `koanf:"include_media"`
}

// SecurityConfig holds CORS and rate limiting settings.
type SecurityConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// SiteURL returns the site URL with exactly one trailing slash.
func (c *Config) SiteURL() string {
	return strings.TrimRight(c.Site.URL, "/") + "/"
}

// MicropubEndpoint returns the absolute Micropub endpoint URL.
func (c *Config) MicropubEndpoint() string {
	return c.SiteURL() + "micropub"
}

// MediaEndpoint returns the absolute media endpoint URL, or "" when disabled.
func (c *Config) MediaEndpoint() string {
	if !c.Media.Enabled {
		return ""
	}
	return c.SiteURL() + "micropub/media"
}

// MediaBaseURL returns the public URL prefix for uploaded files.
func (c *Config) MediaBaseURL() string {
	if c.Media.BaseURL != "" {
		return strings.TrimRight(c.Media.BaseURL, "/") + "/"
	}
	return c.SiteURL() + "media/"
}

// ListenAddr returns host:port for the HTTP server.
func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}
