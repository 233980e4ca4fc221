// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/tomtom215/scribe/internal/authz"
	"github.com/tomtom215/scribe/internal/backup"
	"github.com/tomtom215/scribe/internal/config"
	"github.com/tomtom215/scribe/internal/events"
	"github.com/tomtom215/scribe/internal/indieauth"
	"github.com/tomtom215/scribe/internal/models"
	"github.com/tomtom215/scribe/internal/store/driver"
	"github.com/tomtom215/scribe/internal/supervisor/services"
)

func TestStoreGarbageCollector(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		cfg    func(t *testing.T) config.StoreConfig
		wantGC bool
	}{
		{
			name:   "badger",
			cfg:    func(*testing.T) config.StoreConfig { return config.StoreConfig{Driver: "badger", InMemory: true} },
			wantGC: true,
		},
		{
			name: "sqlite",
			cfg: func(t *testing.T) config.StoreConfig {
				return config.StoreConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "scribe.db")}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			st, err := driver.Open(tt.cfg(t))
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			defer st.Close()
			if _, ok := st.(services.GarbageCollector); ok != tt.wantGC {
				t.Errorf("store implements GarbageCollector = %v, want %v", ok, tt.wantGC)
			}
		})
	}
}

func TestNewVerifier(t *testing.T) {
	t.Parallel()

	hash, err := indieauth.HashToken("personal-token")
	if err != nil {
		t.Fatalf("HashToken() error = %v", err)
	}

	tests := []struct {
		name    string
		cfg     config.IndieAuthConfig
		wantErr bool
	}{
		{
			name: "introspection",
			cfg:  config.IndieAuthConfig{Mode: "introspection", TokenEndpoint: "https://tokens.example.com/token", Timeout: time.Second},
		},
		{
			name:    "introspection relative endpoint",
			cfg:     config.IndieAuthConfig{Mode: "introspection", TokenEndpoint: "/token"},
			wantErr: true,
		},
		{
			name: "jwt",
			cfg:  config.IndieAuthConfig{Mode: "jwt", JWTSecret: "0123456789abcdef0123456789abcdef", JWTIssuer: "scribe"},
		},
		{
			name:    "jwt short secret",
			cfg:     config.IndieAuthConfig{Mode: "jwt", JWTSecret: "short"},
			wantErr: true,
		},
		{
			name: "static",
			cfg: config.IndieAuthConfig{Mode: "static", StaticTokens: []config.StaticToken{
				{Hash: hash, Me: "https://example.com/", Scopes: []string{"create"}},
			}},
		},
		{
			name: "static plaintext token",
			cfg: config.IndieAuthConfig{Mode: "static", StaticTokens: []config.StaticToken{
				{Hash: "personal-token", Me: "https://example.com/", Scopes: []string{"create"}},
			}},
			wantErr: true,
		},
		{
			name:    "unknown mode",
			cfg:     config.IndieAuthConfig{Mode: "oauth1"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			v, err := newVerifier(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("newVerifier() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && v == nil {
				t.Fatal("newVerifier() returned nil verifier")
			}
		})
	}
}

func TestNewVerifier_Caching(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		cfg        config.IndieAuthConfig
		wantCached bool
	}{
		{
			name:       "introspection cached",
			cfg:        config.IndieAuthConfig{Mode: "introspection", TokenEndpoint: "https://tokens.example.com/token", CacheTTL: time.Minute},
			wantCached: true,
		},
		{
			name: "introspection without ttl",
			cfg:  config.IndieAuthConfig{Mode: "introspection", TokenEndpoint: "https://tokens.example.com/token"},
		},
		{
			name: "jwt never cached",
			cfg:  config.IndieAuthConfig{Mode: "jwt", JWTSecret: "0123456789abcdef0123456789abcdef", CacheTTL: time.Minute},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			v, err := newVerifier(tt.cfg)
			if err != nil {
				t.Fatalf("newVerifier() error = %v", err)
			}
			if _, ok := v.(*indieauth.CachingVerifier); ok != tt.wantCached {
				t.Errorf("verifier %T cached = %v, want %v", v, ok, tt.wantCached)
			}
		})
	}
}

func TestNewEnforcer_SeedsStoredRoles(t *testing.T) {
	t.Parallel()

	st, err := driver.Open(config.StoreConfig{Driver: "badger", InMemory: true})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer st.Close()

	ctx := context.Background()
	users := []*models.User{
		{ID: "u-admin", Login: "admin", Roles: []string{"administrator"}},
		{ID: "u-guest", Login: "guest", Roles: []string{"contributor"}},
		{ID: "u-plain", Login: "plain"},
	}
	for _, u := range users {
		if err := st.PutUser(ctx, u); err != nil {
			t.Fatalf("PutUser(%s) error = %v", u.ID, err)
		}
	}

	enforcer, err := newEnforcer(ctx, config.AuthzConfig{DefaultRole: "author"}, st)
	if err != nil {
		t.Fatalf("newEnforcer() error = %v", err)
	}
	defer enforcer.Close()

	tests := []struct {
		user string
		cap  string
		want bool
	}{
		{"u-admin", authz.CapDelete, true},
		{"u-guest", authz.CapPublish, false},
		{"u-guest", authz.CapEdit, true},
		{"u-plain", authz.CapPublish, true},
	}
	for _, tt := range tests {
		got, err := enforcer.Can(tt.user, tt.cap)
		if err != nil {
			t.Fatalf("Can(%s, %s) error = %v", tt.user, tt.cap, err)
		}
		if got != tt.want {
			t.Errorf("Can(%s, %s) = %v, want %v", tt.user, tt.cap, got, tt.want)
		}
	}
}

func TestEventBusSubscribers(t *testing.T) {
	t.Parallel()

	bus, err := newEventBus(config.EventsConfig{Transport: "memory", BufferSize: 8})
	if err != nil {
		t.Fatalf("newEventBus() error = %v", err)
	}

	synd := make(chan *events.EntryEvent, 4)
	feed := make(chan *events.EntryEvent, 4)
	registerSubscribers(bus, subscribers{
		Syndication: func(_ context.Context, ev *events.EntryEvent) error { synd <- ev; return nil },
		Feed:        func(_ context.Context, ev *events.EntryEvent) error { feed <- ev; return nil },
	})

	check := busCheck(bus)
	if err := check(context.Background()); err == nil {
		t.Error("busCheck() should fail before Start")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := bus.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer bus.Shutdown(context.Background())

	if err := check(ctx); err != nil {
		t.Errorf("busCheck() after Start error = %v", err)
	}

	entry := &models.Entry{ID: "e1", URL: "https://example.com/2024/01/hello/", Status: models.StatusPublish}
	if err := bus.Publish(ctx, events.NewEntryEvent("delete", entry, "u1", nil)); err != nil {
		t.Fatalf("Publish(delete) error = %v", err)
	}
	if err := bus.Publish(ctx, events.NewEntryEvent("create", entry, "u1", nil)); err != nil {
		t.Fatalf("Publish(create) error = %v", err)
	}

	seen := map[string]bool{}
	for len(seen) < 2 {
		select {
		case ev := <-feed:
			seen[ev.Action] = true
		case <-ctx.Done():
			t.Fatalf("feed received %v, want delete and create", seen)
		}
	}

	select {
	case ev := <-synd:
		if ev.Action != "create" {
			t.Errorf("syndication action = %q, want create", ev.Action)
		}
	case <-ctx.Done():
		t.Fatal("syndication did not receive create")
	}
	select {
	case ev := <-synd:
		t.Errorf("syndication received unexpected %q", ev.Action)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestNewBackupManager(t *testing.T) {
	t.Parallel()

	st, err := driver.Open(config.StoreConfig{Driver: "badger", InMemory: true})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer st.Close()

	cfg := &config.Config{
		Backup: config.BackupConfig{Enabled: true, Dir: t.TempDir(), Keep: 3, IncludeMedia: true},
		Media:  config.MediaConfig{Enabled: true, Dir: filepath.Join(t.TempDir(), "media")},
	}
	mgr, err := newBackupManager(cfg, st)
	if err != nil {
		t.Fatalf("newBackupManager() error = %v", err)
	}

	b, err := mgr.Create(context.Background())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if b.Driver != "badger" {
		t.Errorf("Driver = %q, want badger", b.Driver)
	}
	if _, err := backup.Verify(b.FilePath); err != nil {
		t.Errorf("Verify() error = %v", err)
	}
}

func TestNewEventWAL(t *testing.T) {
	t.Parallel()

	bus, err := newEventBus(config.EventsConfig{Transport: "memory", BufferSize: 8})
	if err != nil {
		t.Fatalf("newEventBus() error = %v", err)
	}
	defer bus.Shutdown(context.Background())

	cfg := config.WALConfig{
		Enabled:         true,
		Path:            t.TempDir(),
		RetryInterval:   time.Second,
		RetryBackoff:    time.Second,
		MaxRetries:      3,
		EntryTTL:        time.Hour,
		CompactInterval: time.Minute,
		LeaseDuration:   time.Minute,
	}
	w, pub, err := newEventWAL(cfg, bus)
	if err != nil {
		t.Fatalf("newEventWAL() error = %v", err)
	}
	defer w.Close()

	// The bus is not started, so gochannel accepts and drops the message;
	// the entry is still confirmed.
	entry := &models.Entry{ID: "e1", URL: "https://example.com/2024/01/hello/", Status: models.StatusPublish}
	if err := pub.Publish(context.Background(), events.NewEntryEvent("create", entry, "u1", nil)); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if s := w.Stats(); s.Writes != 1 || s.Pending != 0 {
		t.Errorf("Stats() = %+v, want 1 write and nothing pending", s)
	}

	bad := cfg
	bad.MaxRetries = 0
	bad.Path = t.TempDir()
	if _, _, err := newEventWAL(bad, bus); err == nil {
		t.Error("newEventWAL() with MaxRetries=0 should fail")
	}
}
