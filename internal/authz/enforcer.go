// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

// Package authz maps local users to publishing capabilities using casbin.
//
// Roles (administrator, editor, author, contributor) grant the capabilities
// the Micropub pipeline checks before writing: can-publish, can-edit,
// can-delete and can-upload.
package authz

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"
)

//go:embed model.conf
var embeddedModel string

//go:embed policy.csv
var embeddedPolicy string

// Capability names checked by the Micropub pipeline and media endpoint.
const (
	CapPublish = "can-publish"
	CapEdit    = "can-edit"
	CapDelete  = "can-delete"
	CapUpload  = "can-upload"
)

// ObjectFor returns the policy object a capability applies to.
func ObjectFor(capability string) string {
	if capability == CapUpload {
		return "media"
	}
	return "entries"
}

// EnforcerConfig holds configuration for the casbin enforcer.
type EnforcerConfig struct {
	// ModelPath is the path to the casbin model file. Empty uses the embedded model.
	ModelPath string

	// PolicyPath is the path to the casbin policy file. Empty uses the embedded policy.
	PolicyPath string

	// DefaultRole applies to users without explicit roles.
	DefaultRole string

	// CacheTTL is how long decisions are cached; zero disables caching.
	CacheTTL time.Duration
}

// DefaultEnforcerConfig returns default configuration.
func DefaultEnforcerConfig() *EnforcerConfig {
	return &EnforcerConfig{
		DefaultRole: "author",
		CacheTTL:    5 * time.Minute,
	}
}

// Enforcer wraps the casbin enforcer with role defaults and a decision cache.
type Enforcer struct {
	config   *EnforcerConfig
	enforcer *casbin.SyncedEnforcer
	cache    *enforcementCache
}

// NewEnforcer creates a new capability enforcer.
func NewEnforcer(_ context.Context, config *EnforcerConfig) (*Enforcer, error) {
	if config == nil {
		config = DefaultEnforcerConfig()
	}

	var m model.Model
	var err error
	if config.ModelPath != "" && fileExists(config.ModelPath) {
		m, err = model.NewModelFromFile(config.ModelPath)
	} else {
		m, err = model.NewModelFromString(embeddedModel)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load casbin model: %w", err)
	}

	var enforcer *casbin.SyncedEnforcer
	if config.PolicyPath != "" && fileExists(config.PolicyPath) {
		enforcer, err = casbin.NewSyncedEnforcer(m, fileadapter.NewAdapter(config.PolicyPath))
	} else {
		enforcer, err = casbin.NewSyncedEnforcer(m)
		if err == nil {
			err = loadEmbeddedPolicy(enforcer, embeddedPolicy)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}

	e := &Enforcer{config: config, enforcer: enforcer}
	if config.CacheTTL > 0 {
		e.cache = newEnforcementCache(config.CacheTTL)
	}
	return e, nil
}

// loadEmbeddedPolicy parses p and g lines of a policy CSV.
func loadEmbeddedPolicy(enforcer *casbin.SyncedEnforcer, policy string) error {
	for _, line := range strings.Split(policy, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		ptype, rule := parts[0], parts[1:]

		switch ptype {
		case "p":
			if len(rule) >= 3 {
				if _, err := enforcer.AddPolicy(rule[0], rule[1], rule[2]); err != nil {
					return fmt.Errorf("failed to add policy %v: %w", rule, err)
				}
			}
		case "g":
			if len(rule) >= 2 {
				if _, err := enforcer.AddGroupingPolicy(rule[0], rule[1]); err != nil {
					return fmt.Errorf("failed to add grouping policy %v: %w", rule, err)
				}
			}
		}
	}
	return nil
}

// Can reports whether userID holds capability. Users without any assigned
// role are evaluated as DefaultRole.
func (e *Enforcer) Can(userID, capability string) (bool, error) {
	if e.cache != nil {
		if allowed, ok := e.cache.get(userID, capability); ok {
			return allowed, nil
		}
	}

	subject := userID
	roles, err := e.enforcer.GetRolesForUser(userID)
	if err != nil {
		return false, fmt.Errorf("failed to get roles for %s: %w", userID, err)
	}
	if len(roles) == 0 && e.config.DefaultRole != "" {
		subject = e.config.DefaultRole
	}

	allowed, err := e.enforcer.Enforce(subject, ObjectFor(capability), capability)
	if err != nil {
		return false, fmt.Errorf("enforcement failed: %w", err)
	}

	if e.cache != nil {
		e.cache.set(userID, capability, allowed)
	}
	return allowed, nil
}

// SetRoles replaces every role assigned to user.
func (e *Enforcer) SetRoles(user string, roles []string) error {
	if _, err := e.enforcer.DeleteRolesForUser(user); err != nil {
		return fmt.Errorf("failed to clear roles: %w", err)
	}
	for _, role := range roles {
		if _, err := e.enforcer.AddGroupingPolicy(user, role); err != nil {
			return fmt.Errorf("failed to add role %s: %w", role, err)
		}
	}
	if e.cache != nil {
		e.cache.invalidateUser(user)
	}
	return nil
}

// AddRoleForUser assigns a role to a user.
func (e *Enforcer) AddRoleForUser(user, role string) (bool, error) {
	added, err := e.enforcer.AddGroupingPolicy(user, role)
	if err != nil {
		return false, fmt.Errorf("failed to add role: %w", err)
	}
	if e.cache != nil {
		e.cache.invalidateUser(user)
	}
	return added, nil
}

// GetRolesForUser returns the roles assigned to a user.
func (e *Enforcer) GetRolesForUser(user string) ([]string, error) {
	return e.enforcer.GetRolesForUser(user)
}

// Close stops background work.
func (e *Enforcer) Close() {
	if e.cache != nil {
		e.cache.stop()
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
