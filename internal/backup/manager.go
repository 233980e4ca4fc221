// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/scribe/internal/logging"
	"github.com/tomtom215/scribe/internal/metrics"
)

// Archive naming.
const (
	filePrefix    = "scribe-backup-"
	fileSuffix    = ".tar.gz"
	timeLayout    = "20060102T150405Z"
	metadataName  = "backup-metadata.json"
	storeEntryDir = "store/"
	mediaEntryDir = "media/"
)

// ErrInProgress is returned when a backup is requested while one runs.
var ErrInProgress = errors.New("backup: already in progress")

// Snapshotter streams a consistent copy of a content store.
type Snapshotter interface {
	Snapshot(ctx context.Context, w io.Writer) error
}

// Config configures a Manager.
type Config struct {
	// Dir receives the archives.
	Dir string
	// Driver names the store snapshot inside the archive.
	Driver string
	// MediaDir is archived when non-empty.
	MediaDir string
	// Keep is how many archives survive pruning; zero keeps all.
	Keep int
	Now  func() time.Time
}

// Backup describes one archive.
type Backup struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Driver    string    `json:"driver"`
	FilePath  string    `json:"-"`
	FileSize  int64     `json:"-"`
	Duration  int64     `json:"duration_ms"`
	Files     []File    `json:"files"`
}

// File is one archived file with its checksum.
type File struct {
	Path     string `json:"path"`
	Size     int64  `json:"size"`
	Checksum string `json:"checksum"`
}

// Manager creates, lists and prunes backups.
type Manager struct {
	cfg Config
	src Snapshotter
	mu  sync.Mutex // one backup at a time
}

// NewManager creates the backup directory and returns a Manager.
func NewManager(cfg Config, src Snapshotter) (*Manager, error) {
	if cfg.Dir == "" {
		return nil, errors.New("backup: directory is required")
	}
	if src == nil {
		return nil, errors.New("backup: store does not support snapshots")
	}
	if cfg.Driver == "" {
		cfg.Driver = "store"
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("create backup dir: %w", err)
	}
	return &Manager{cfg: cfg, src: src}, nil
}

// Create writes a new archive and prunes old ones.
func (m *Manager) Create(ctx context.Context) (*Backup, error) {
	if !m.mu.TryLock() {
		return nil, ErrInProgress
	}
	defer m.mu.Unlock()

	began := time.Now()
	start := m.cfg.Now().UTC()
	b := &Backup{
		ID:        uuid.NewString(),
		CreatedAt: start,
		Driver:    m.cfg.Driver,
	}
	name := filePrefix + start.Format(timeLayout) + "-" + b.ID[:8] + fileSuffix
	b.FilePath = filepath.Join(m.cfg.Dir, name)

	if err := m.writeArchive(ctx, b); err != nil {
		metrics.RecordBackup(0, err)
		return nil, err
	}
	metrics.RecordBackup(b.FileSize, nil)
	b.Duration = time.Since(began).Milliseconds()

	logging.Info().
		Str("backup_id", b.ID).
		Str("path", b.FilePath).
		Int64("size", b.FileSize).
		Int("files", len(b.Files)).
		Msg("Backup created")

	if removed, err := m.Prune(); err != nil {
		logging.Warn().Err(err).Msg("Backup pruning failed")
	} else if removed > 0 {
		logging.Info().Int("removed", removed).Int("keep", m.cfg.Keep).Msg("Old backups pruned")
	}
	return b, nil
}

// List returns archive paths in the backup directory, newest first.
func (m *Manager) List() ([]string, error) {
	return List(m.cfg.Dir)
}

// List returns the archive paths in dir, newest first.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for i := len(entries) - 1; i >= 0; i-- {
		name := entries[i].Name()
		if entries[i].Type().IsRegular() && strings.HasPrefix(name, filePrefix) && strings.HasSuffix(name, fileSuffix) {
			paths = append(paths, filepath.Join(dir, name))
		}
	}
	return paths, nil
}
