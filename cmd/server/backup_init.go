// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package main

import (
	"fmt"

	"github.com/tomtom215/scribe/internal/backup"
	"github.com/tomtom215/scribe/internal/config"
	"github.com/tomtom215/scribe/internal/logging"
	"github.com/tomtom215/scribe/internal/store"
	"github.com/tomtom215/scribe/internal/store/driver"
)

// newBackupManager builds the scheduled backup manager for st.
func newBackupManager(cfg *config.Config, st store.Store) (*backup.Manager, error) {
	snap, ok := st.(backup.Snapshotter)
	if !ok {
		return nil, fmt.Errorf("store driver %q does not support snapshots", cfg.Store.Driver)
	}
	bcfg := backup.Config{
		Dir:    cfg.Backup.Dir,
		Driver: driver.Name(cfg.Store),
		Keep:   cfg.Backup.Keep,
	}
	if cfg.Backup.IncludeMedia && cfg.Media.Enabled {
		bcfg.MediaDir = cfg.Media.Dir
	}
	mgr, err := backup.NewManager(bcfg, snap)
	if err != nil {
		return nil, err
	}
	logging.Info().
		Str("dir", bcfg.Dir).
		Dur("interval", cfg.Backup.Interval).
		Int("keep", bcfg.Keep).
		Bool("media", bcfg.MediaDir != "").
		Msg("Scheduled backups enabled")
	return mgr, nil
}
