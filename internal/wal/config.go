// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package wal

import "time"

// Config configures the WAL and its background loops.
type Config struct {
	// Path is the badger directory. Ignored when InMemory is set.
	Path     string
	InMemory bool

	// SyncWrites fsyncs every write.
	SyncWrites bool

	// RetryInterval is how often the retry loop scans pending entries.
	RetryInterval time.Duration

	// RetryBackoff is the delay after the first failed attempt. It doubles
	// per attempt up to maxBackoff.
	RetryBackoff time.Duration

	// MaxRetries is the attempt count after which an entry is dropped.
	MaxRetries int

	// EntryTTL bounds how long an undelivered entry is kept.
	EntryTTL time.Duration

	CompactInterval time.Duration

	// LeaseDuration is how long a claim on an entry lasts.
	LeaseDuration time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Path:            "/data/wal",
		SyncWrites:      true,
		RetryInterval:   30 * time.Second,
		RetryBackoff:    5 * time.Second,
		MaxRetries:      20,
		EntryTTL:        72 * time.Hour,
		CompactInterval: time.Hour,
		LeaseDuration:   2 * time.Minute,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Path == "" && !c.InMemory {
		return &ConfigError{Field: "Path", Message: "required unless InMemory"}
	}
	if c.RetryInterval <= 0 {
		return &ConfigError{Field: "RetryInterval", Message: "must be positive"}
	}
	if c.RetryBackoff <= 0 {
		return &ConfigError{Field: "RetryBackoff", Message: "must be positive"}
	}
	if c.MaxRetries < 1 {
		return &ConfigError{Field: "MaxRetries", Message: "must be at least 1"}
	}
	if c.EntryTTL <= 0 {
		return &ConfigError{Field: "EntryTTL", Message: "must be positive"}
	}
	if c.CompactInterval <= 0 {
		return &ConfigError{Field: "CompactInterval", Message: "must be positive"}
	}
	if c.LeaseDuration <= 0 {
		return &ConfigError{Field: "LeaseDuration", Message: "must be positive"}
	}
	return nil
}

// ConfigError reports an invalid Config field.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "wal config: " + e.Field + ": " + e.Message
}
