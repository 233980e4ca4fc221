// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

// Package backup writes point-in-time archives of the content store and the
// media directory, verifies them, and prunes old archives.
//
// # Archive Structure
//
//	scribe-backup-{timestamp}-{id}.tar.gz
//	├── store/{driver}.bak    (badger stream backup or sqlite VACUUM INTO copy)
//	├── media/...             (uploaded files, when enabled)
//	└── backup-metadata.json  (backup details and per-file SHA-256 checksums)
//
// Archives are written to a temporary file and renamed into place, so a
// crashed backup never leaves a truncated archive behind. After each backup
// only the newest Keep archives are retained.
//
// # Usage
//
//	m, err := backup.NewManager(backup.Config{Dir: "/data/backups", MediaDir: "/data/media", Keep: 7}, st)
//	if err != nil {
//		return err
//	}
//	b, err := m.Create(ctx)
//
// Restoring is an offline operation: extract the archive, then load
// store/badger.bak with "badger restore" or copy store/sqlite.bak over the
// database file.
package backup
