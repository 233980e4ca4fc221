// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package services

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/scribe/internal/backup"
	"github.com/tomtom215/scribe/internal/logging"
)

// BackupCreator writes one backup archive.
type BackupCreator interface {
	Create(ctx context.Context) (*backup.Backup, error)
}

// BackupService creates a backup on every tick. Like StoreGCService it
// logs failures and keeps running.
type BackupService struct {
	creator  BackupCreator
	interval time.Duration
	name     string
}

// NewBackupService wraps creator.
func NewBackupService(creator BackupCreator, interval time.Duration) *BackupService {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &BackupService{creator: creator, interval: interval, name: "backup-scheduler"}
}

// Serve implements suture.Service.
func (s *BackupService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			_, err := s.creator.Create(ctx)
			switch {
			case err == nil, ctx.Err() != nil:
			case errors.Is(err, backup.ErrInProgress):
				logging.Debug().Msg("Scheduled backup skipped, previous backup still running")
			default:
				logging.Error().Err(err).Msg("Scheduled backup failed")
			}
		}
	}
}

func (s *BackupService) String() string {
	return s.name
}
