// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

// Package driver opens the content store selected by configuration.
package driver

import (
	"fmt"

	"github.com/tomtom215/scribe/internal/config"
	"github.com/tomtom215/scribe/internal/store"
	"github.com/tomtom215/scribe/internal/store/badgerstore"
	"github.com/tomtom215/scribe/internal/store/sqlitestore"
)

// Store drivers.
const (
	Badger = "badger"
	SQLite = "sqlite"
)

// sqliteMemoryDSN is used for in-memory sqlite when no file: URI is set.
const sqliteMemoryDSN = "file:scribe?mode=memory&cache=shared"

// Name returns the effective driver name.
func Name(cfg config.StoreConfig) string {
	if cfg.Driver == "" {
		return Badger
	}
	return cfg.Driver
}

// Open opens the configured content store. An empty driver means badger.
func Open(cfg config.StoreConfig) (store.Store, error) {
	switch Name(cfg) {
	case Badger:
		return badgerstore.Open(badgerstore.Options{
			Path:     cfg.Path,
			InMemory: cfg.InMemory,
		})

	case SQLite:
		dsn := cfg.Path
		if cfg.InMemory && dsn == "" {
			dsn = sqliteMemoryDSN
		}
		return sqlitestore.Open(dsn)

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
