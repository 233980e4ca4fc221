// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata" // site timezones in minimal containers

	"github.com/tomtom215/scribe/internal/api"
	"github.com/tomtom215/scribe/internal/config"
	"github.com/tomtom215/scribe/internal/events"
	"github.com/tomtom215/scribe/internal/indieauth"
	"github.com/tomtom215/scribe/internal/logging"
	"github.com/tomtom215/scribe/internal/media"
	"github.com/tomtom215/scribe/internal/micropub"
	"github.com/tomtom215/scribe/internal/models"
	"github.com/tomtom215/scribe/internal/store/driver"
	"github.com/tomtom215/scribe/internal/supervisor"
	"github.com/tomtom215/scribe/internal/supervisor/services"
	"github.com/tomtom215/scribe/internal/syndication"
	"github.com/tomtom215/scribe/internal/wal"
	"github.com/tomtom215/scribe/internal/websocket"
)

// storeGCInterval is how often the badger value log is compacted.
const storeGCInterval = 10 * time.Minute

func main() {
	if err := run(); err != nil {
		logging.Fatal().Err(err).Msg("Scribe stopped with an error")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().
		Str("site", cfg.SiteURL()).
		Str("micropub", cfg.MicropubEndpoint()).
		Msg("Starting Scribe")

	if path := config.ConfigFile(); path != "" {
		if err := config.WatchConfigFile(path, reloadLogLevel(path)); err != nil {
			logging.Warn().Err(err).Str("path", path).Msg("Config file watch disabled")
		}
	}

	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (DISABLE_RATE_LIMIT=true)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := driver.Open(cfg.Store)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing content store")
		}
	}()

	verifier, err := newVerifier(cfg.IndieAuth)
	if err != nil {
		return fmt.Errorf("token verifier: %w", err)
	}
	gate, err := indieauth.NewGate(verifier, st, indieauth.GateConfig{
		SiteURL:              cfg.SiteURL(),
		DefaultAuthor:        cfg.Site.DefaultAuthor,
		AuthorArchivePattern: cfg.Site.AuthorArchivePattern,
	})
	if err != nil {
		return err
	}

	enforcer, err := newEnforcer(ctx, cfg.Authz, st)
	if err != nil {
		return fmt.Errorf("authorization: %w", err)
	}
	defer enforcer.Close()

	loc, err := time.LoadLocation(cfg.Site.Timezone)
	if err != nil {
		return fmt.Errorf("site timezone: %w", err)
	}

	bus, err := newEventBus(cfg.Events)
	if err != nil {
		return fmt.Errorf("event bus: %w", err)
	}

	targets := make([]syndication.Target, 0, len(cfg.Syndication.Targets))
	for _, t := range cfg.Syndication.Targets {
		targets = append(targets, syndication.Target{UID: t.UID, Name: t.Name, Webhook: t.Webhook})
	}
	provider := syndication.NewProvider(targets)
	dispatcher := syndication.NewDispatcher(syndication.DispatcherConfig{
		RatePerSecond: cfg.Syndication.RatePerSecond,
		Burst:         cfg.Syndication.Burst,
		Timeout:       cfg.Syndication.Timeout,
	}, provider, st)

	hub := websocket.NewHub()
	registerSubscribers(bus, subscribers{
		Syndication: dispatcher.HandleEvent,
		Feed:        hub.HandleEvent,
	})

	var (
		publisher events.Publisher = bus
		eventWAL  *wal.WAL
		durable   *wal.DurablePublisher
	)
	if cfg.Events.WAL.Enabled {
		eventWAL, durable, err = newEventWAL(cfg.Events.WAL, bus)
		if err != nil {
			return fmt.Errorf("event wal: %w", err)
		}
		defer func() {
			if err := eventWAL.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing event WAL")
			}
		}()
		publisher = durable
	}

	opts := micropub.Options{
		Store:            st,
		Gate:             gate,
		Capabilities:     enforcer,
		SiteURL:          cfg.SiteURL(),
		PermalinkPattern: cfg.Site.PermalinkPattern,
		Location:         loc,
		DefaultStatus:    models.Status(cfg.Micropub.DefaultStatus),
		MediaEndpoint:    cfg.MediaEndpoint(),
		PostTypes:        micropub.PostTypesByName(cfg.Micropub.PostTypes),
		PageSize:         cfg.Micropub.PageSize,
		MaxPageSize:      cfg.Micropub.MaxPageSize,
		AllowAnonymous:   cfg.Micropub.AllowAnonymous,
		Syndication:      provider,
		Hook:             events.NewHook(publisher),
	}

	var mediaSvc *media.Service
	if cfg.Media.Enabled {
		mediaSvc, err = media.New(media.Config{
			Dir:          cfg.Media.Dir,
			BaseURL:      cfg.MediaBaseURL(),
			MaxSize:      cfg.Media.MaxSize,
			FetchTimeout: cfg.Media.FetchTimeout,
		}, st)
		if err != nil {
			return err
		}
		opts.Media = mediaSvc
		opts.ImportRemote = cfg.Media.ImportRemote
		logging.Info().Str("dir", cfg.Media.Dir).Str("endpoint", cfg.MediaEndpoint()).Msg("Media endpoint enabled")
	} else {
		logging.Info().Msg("Media endpoint disabled (MEDIA_ENABLED=false)")
	}

	pipeline, err := micropub.New(opts)
	if err != nil {
		return err
	}

	router, err := api.NewRouter(api.Deps{
		Config:       cfg,
		Pipeline:     pipeline,
		Gate:         gate,
		Capabilities: enforcer,
		Media:        mediaSvc,
		Hub:          hub,
		Checks: []api.ReadinessCheck{
			{Name: "store", Check: st.Ping},
			{Name: "events", Check: busCheck(bus)},
		},
	})
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       2 * cfg.Server.Timeout,
	}

	tree := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if gc, ok := st.(services.GarbageCollector); ok {
		tree.AddDataService(services.NewStoreGCService(gc, storeGCInterval))
	}
	if cfg.Backup.Enabled {
		backups, err := newBackupManager(cfg, st)
		if err != nil {
			return fmt.Errorf("backups: %w", err)
		}
		tree.AddDataService(services.NewBackupService(backups, cfg.Backup.Interval))
	}
	tree.AddMessagingService(services.NewEventBusService(bus, cfg.Server.ShutdownTimeout))
	if eventWAL != nil {
		tree.AddMessagingService(services.NewWALRetryLoopService(wal.NewRetryLoop(eventWAL, durable)))
		tree.AddDataService(services.NewWALCompactorService(wal.NewCompactor(eventWAL)))
	}
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	var serveErr error
	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutdown signal received, waiting for supervisor to finish...")
		serveErr = <-errCh
	case serveErr = <-errCh:
	}
	stop()

	if serveErr != nil && !errors.Is(serveErr, context.Canceled) {
		logging.Error().Err(serveErr).Msg("Supervisor tree error")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Scribe stopped gracefully")
	return nil
}

// busCheck reports the bus as unready until its router is running.
func busCheck(bus *events.Bus) func(context.Context) error {
	return func(context.Context) error {
		if !bus.IsRunning() {
			return errors.New("event bus not running")
		}
		return nil
	}
}

// reloadLogLevel re-reads the config file and applies its log level.
func reloadLogLevel(path string) func() {
	return func() {
		cfg, err := config.LoadFile(path)
		if err != nil {
			logging.Warn().Err(err).Str("path", path).Msg("Ignoring invalid configuration change")
			return
		}
		logging.SetLevelString(cfg.Logging.Level)
		logging.Info().Str("level", cfg.Logging.Level).Msg("Log level reloaded")
	}
}
