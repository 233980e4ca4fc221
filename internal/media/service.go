// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

// Package media stores files uploaded to the media endpoint or attached to
// Micropub requests.
//
// Files are written under a directory tree of year/month with uuid names;
// the content type is sniffed from the bytes, not taken from the client.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/tomtom215/scribe/internal/logging"
	"github.com/tomtom215/scribe/internal/metrics"
	"github.com/tomtom215/scribe/internal/micropub"
	"github.com/tomtom215/scribe/internal/models"
	"github.com/tomtom215/scribe/internal/store"
)

// Upload sources, used as metric labels.
const (
	SourceEndpoint = "endpoint"
	SourceRemote   = "remote"
)

var (
	// ErrTooLarge is returned when a file exceeds the configured size limit.
	ErrTooLarge = errors.New("media: file too large")
	// ErrEmpty is returned for zero-length uploads.
	ErrEmpty = errors.New("media: empty file")
	// ErrFetch is returned when a remote file cannot be downloaded.
	ErrFetch = errors.New("media: fetch failed")
)

// Config configures a Service.
type Config struct {
	Dir          string
	BaseURL      string
	MaxSize      int64
	FetchTimeout time.Duration
	Client       *http.Client
	Now          func() time.Time
}

// Service writes uploads to disk and records them in the store.
type Service struct {
	cfg    Config
	store  store.MediaStore
	client *http.Client
}

var _ micropub.MediaUploader = (*Service)(nil)

// New creates the media directory and returns a Service.
func New(cfg Config, ms store.MediaStore) (*Service, error) {
	if cfg.Dir == "" {
		return nil, errors.New("media: directory is required")
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = 20 << 20
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 30 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/") + "/"

	if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}

	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.FetchTimeout}
	}
	return &Service{cfg: cfg, store: ms, client: client}, nil
}

// Dir returns the directory files are written to.
func (s *Service) Dir() string { return s.cfg.Dir }

// Upload stores a multipart file.
func (s *Service) Upload(ctx context.Context, userID string, fh *multipart.FileHeader) (*models.Media, error) {
	if fh.Size > s.cfg.MaxSize {
		metrics.RecordMediaUpload(SourceEndpoint, fh.Size, ErrTooLarge)
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, fh.Size)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	m, err := s.save(ctx, userID, fh.Filename, f)
	metrics.RecordMediaUpload(SourceEndpoint, sizeOf(m), err)
	return m, err
}

// UploadFromURL downloads rawURL and stores it.
func (s *Service) UploadFromURL(ctx context.Context, userID, rawURL string) (*models.Media, error) {
	m, err := s.fetch(ctx, userID, rawURL)
	metrics.RecordMediaUpload(SourceRemote, sizeOf(m), err)
	return m, err
}

func (s *Service) fetch(ctx context.Context, userID, rawURL string) (*models.Media, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: unsupported url %q", ErrFetch, rawURL)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	req.Header.Set("User-Agent", "Scribe")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned %d", ErrFetch, rawURL, resp.StatusCode)
	}
	if resp.ContentLength > s.cfg.MaxSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, resp.ContentLength)
	}
	return s.save(ctx, userID, path.Base(u.Path), resp.Body)
}

// save streams r into the media tree, enforcing the size limit.
func (s *Service) save(ctx context.Context, userID, name string, r io.Reader) (*models.Media, error) {
	now := s.cfg.Now().UTC()
	rel := path.Join(now.Format("2006"), now.Format("01"))
	dir := filepath.Join(s.cfg.Dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	keep := false
	defer func() {
		if !keep {
			_ = os.Remove(tmpName)
		}
	}()

	n, err := io.Copy(tmp, io.LimitReader(r, s.cfg.MaxSize+1))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("write upload: %w", err)
	}
	if n == 0 {
		return nil, ErrEmpty
	}
	if n > s.cfg.MaxSize {
		return nil, fmt.Errorf("%w: over %d bytes", ErrTooLarge, s.cfg.MaxSize)
	}

	mt, err := mimetype.DetectFile(tmpName)
	if err != nil {
		return nil, fmt.Errorf("detect type: %w", err)
	}
	ext := mt.Extension()
	if ext == "" {
		ext = strings.ToLower(filepath.Ext(name))
	}

	id := uuid.NewString()
	file := id + ext
	final := filepath.Join(dir, file)
	if err := os.Rename(tmpName, final); err != nil {
		return nil, fmt.Errorf("move upload: %w", err)
	}
	keep = true

	m := &models.Media{
		ID:        id,
		URL:       s.cfg.BaseURL + path.Join(rel, file),
		Type:      mt.String(),
		Path:      final,
		Size:      n,
		Name:      name,
		UserID:    userID,
		CreatedAt: now,
	}
	if err := s.store.PutMedia(ctx, m); err != nil {
		_ = os.Remove(final)
		return nil, fmt.Errorf("record media: %w", err)
	}

	logging.Ctx(ctx).Info().
		Str("media_id", m.ID).
		Str("type", m.Type).
		Int64("size", m.Size).
		Msg("Media stored")
	return m, nil
}

// Recent returns up to limit uploads, newest first.
func (s *Service) Recent(ctx context.Context, limit int) ([]*models.Media, error) {
	items, err := s.store.ListMedia(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list media: %w", err)
	}
	return items, nil
}

// FileServer serves stored files. Mount it under the path of BaseURL.
func (s *Service) FileServer() http.Handler {
	return http.FileServer(noListing{http.Dir(s.cfg.Dir)})
}

// noListing hides directory indexes and temp files.
type noListing struct{ fs http.FileSystem }

func (n noListing) Open(name string) (http.File, error) {
	if strings.HasPrefix(path.Base(name), ".") {
		return nil, os.ErrNotExist
	}
	f, err := n.fs.Open(name)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if st.IsDir() {
		_ = f.Close()
		return nil, os.ErrNotExist
	}
	return f, nil
}

func sizeOf(m *models.Media) int64 {
	if m == nil {
		return 0
	}
	return m.Size
}
