// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package backup

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
)

// archiveWriters holds the writer chain file -> gzip -> tar.
type archiveWriters struct {
	file *os.File
	gz   *gzip.Writer
	tw   *tar.Writer
}

// Close closes the chain innermost first and returns the first error.
func (aw *archiveWriters) Close() error {
	var firstErr error
	for _, c := range []io.Closer{aw.tw, aw.gz, aw.file} {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// writeArchive builds b.FilePath through a temporary file.
func (m *Manager) writeArchive(ctx context.Context, b *Backup) (err error) {
	tmp, err := os.CreateTemp(m.cfg.Dir, ".scribe-backup-*.tmp")
	if err != nil {
		return fmt.Errorf("create backup file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	gz := gzip.NewWriter(tmp)
	aw := &archiveWriters{file: tmp, gz: gz, tw: tar.NewWriter(gz)}

	if err = m.addStore(ctx, aw.tw, b); err == nil && m.cfg.MediaDir != "" {
		err = m.addMedia(ctx, aw.tw, b)
	}
	if err == nil {
		err = addMetadata(aw.tw, b)
	}
	if closeErr := aw.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}

	info, err := os.Stat(tmpName)
	if err != nil {
		return err
	}
	b.FileSize = info.Size()
	if err = os.Chmod(tmpName, 0o640); err != nil {
		return err
	}
	return os.Rename(tmpName, b.FilePath)
}

// addStore snapshots the store to a scratch file so its size is known for
// the tar header.
func (m *Manager) addStore(ctx context.Context, tw *tar.Writer, b *Backup) error {
	scratch, err := os.CreateTemp("", "scribe-snapshot-*")
	if err != nil {
		return err
	}
	defer os.Remove(scratch.Name())
	defer scratch.Close()

	if err := m.src.Snapshot(ctx, scratch); err != nil {
		return fmt.Errorf("snapshot store: %w", err)
	}
	if _, err := scratch.Seek(0, io.SeekStart); err != nil {
		return err
	}
	return addFile(tw, scratch, storeEntryDir+m.cfg.Driver+".bak", b)
}

// addMedia archives every regular, non-hidden file under MediaDir.
func (m *Manager) addMedia(ctx context.Context, tw *tar.Writer, b *Backup) error {
	root := m.cfg.MediaDir
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root && os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if strings.HasPrefix(d.Name(), ".") && path != root {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		f, err := os.Open(path) //nolint:gosec // G304: walking the configured media dir
		if err != nil {
			return err
		}
		defer f.Close()
		return addFile(tw, f, mediaEntryDir+filepath.ToSlash(rel), b)
	})
}

// addFile copies f into the archive as name and records its checksum.
func addFile(tw *tar.Writer, f *os.File, name string, b *Backup) error {
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", f.Name(), err)
	}
	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	header.Name = name
	header.Mode = 0o640
	if err := tw.WriteHeader(header); err != nil {
		return fmt.Errorf("write header for %s: %w", name, err)
	}

	hasher := sha256.New()
	n, err := io.Copy(io.MultiWriter(tw, hasher), f)
	if err != nil {
		return fmt.Errorf("archive %s: %w", name, err)
	}
	b.Files = append(b.Files, File{Path: name, Size: n, Checksum: hex.EncodeToString(hasher.Sum(nil))})
	return nil
}

func addMetadata(tw *tar.Writer, b *Backup) error {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return err
	}
	header := &tar.Header{
		Name:    metadataName,
		Mode:    0o640,
		Size:    int64(len(data)),
		ModTime: b.CreatedAt,
	}
	if err := tw.WriteHeader(header); err != nil {
		return err
	}
	_, err = tw.Write(data)
	return err
}
