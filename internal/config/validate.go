// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/tomtom215/scribe/internal/validation"
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if err := validation.AsError(validation.ValidateStruct(c)); err != nil {
		return err
	}
	if err := c.validateSite(); err != nil {
		return err
	}
	if err := c.validateIndieAuth(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateMedia(); err != nil {
		return err
	}
	if err := c.validateEvents(); err != nil {
		return err
	}
	return c.validateBackup()
}

func (c *Config) validateSite() error {
	if !strings.Contains(c.Site.PermalinkPattern, "{slug}") {
		return fmt.Errorf("PERMALINK_PATTERN must contain {slug}")
	}
	if c.Site.AuthorArchivePattern != "" && !strings.Contains(c.Site.AuthorArchivePattern, "%s") {
		return fmt.Errorf("AUTHOR_ARCHIVE_PATTERN must contain %%s")
	}
	return nil
}

func (c *Config) validateIndieAuth() error {
	switch c.IndieAuth.Mode {
	case "introspection":
		if c.IndieAuth.TokenEndpoint == "" {
			return fmt.Errorf("TOKEN_ENDPOINT is required when INDIEAUTH_MODE=introspection")
		}
		if u, err := url.Parse(c.IndieAuth.TokenEndpoint); err != nil || u.Host == "" {
			return fmt.Errorf("TOKEN_ENDPOINT must be an absolute URL, got %q", c.IndieAuth.TokenEndpoint)
		}
	case "jwt":
		if len(c.IndieAuth.JWTSecret) < 32 {
			return fmt.Errorf("JWT_SECRET must be at least 32 characters when INDIEAUTH_MODE=jwt")
		}
	case "static":
		if len(c.IndieAuth.StaticTokens) == 0 {
			return fmt.Errorf("indieauth.static_tokens must not be empty when INDIEAUTH_MODE=static")
		}
	}
	return nil
}

func (c *Config) validateStore() error {
	if !c.Store.InMemory && c.Store.Path == "" {
		return fmt.Errorf("STORE_PATH is required unless STORE_IN_MEMORY=true")
	}
	if c.Store.InMemory && c.Store.Driver == "sqlite" && c.Store.Path != "" && !strings.HasPrefix(c.Store.Path, "file:") {
		return fmt.Errorf("STORE_PATH must be a file: URI when using in-memory sqlite")
	}
	return nil
}

func (c *Config) validateMedia() error {
	if c.Media.Enabled && c.Media.Dir == "" {
		return fmt.Errorf("MEDIA_DIR is required when MEDIA_ENABLED=true")
	}
	return nil
}

func (c *Config) validateEvents() error {
	if c.Events.Transport == "nats" && c.Events.NATSURL == "" {
		return fmt.Errorf("NATS_URL is required when EVENTS_TRANSPORT=nats")
	}
	if c.Events.WAL.Enabled && c.Events.WAL.Path == "" {
		return fmt.Errorf("WAL_PATH is required when WAL_ENABLED=true")
	}
	return nil
}

func (c *Config) validateBackup() error {
	if !c.Backup.Enabled {
		return nil
	}
	if c.Backup.Dir == "" {
		return fmt.Errorf("BACKUP_DIR is required when BACKUP_ENABLED=true")
	}
	if c.Backup.Interval < time.Minute {
		return fmt.Errorf("BACKUP_INTERVAL must be at least 1m, got %s", c.Backup.Interval)
	}
	return nil
}
