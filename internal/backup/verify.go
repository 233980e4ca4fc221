// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package backup

import (
	"archive/tar"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
)

// ErrCorrupt is returned by Verify when an archive does not match its
// metadata.
var ErrCorrupt = errors.New("backup: archive is corrupt")

// Verify reads the archive at path, recomputes every file checksum and
// compares it with the metadata. It returns the metadata on success.
func Verify(path string) (*Backup, error) {
	f, err := os.Open(path) //nolint:gosec // G304: operator-supplied archive path
	if err != nil {
		return nil, err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	defer gz.Close()

	sums := make(map[string]string)
	var meta *Backup
	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}

		if header.Name == metadataName {
			meta = &Backup{}
			if err := json.NewDecoder(tr).Decode(meta); err != nil {
				return nil, fmt.Errorf("%w: metadata: %v", ErrCorrupt, err)
			}
			continue
		}

		hasher := sha256.New()
		if _, err := io.Copy(hasher, tr); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, header.Name, err)
		}
		sums[header.Name] = hex.EncodeToString(hasher.Sum(nil))
	}

	if meta == nil {
		return nil, fmt.Errorf("%w: missing %s", ErrCorrupt, metadataName)
	}
	for _, file := range meta.Files {
		got, ok := sums[file.Path]
		if !ok {
			return nil, fmt.Errorf("%w: missing %s", ErrCorrupt, file.Path)
		}
		if got != file.Checksum {
			return nil, fmt.Errorf("%w: checksum mismatch for %s", ErrCorrupt, file.Path)
		}
	}
	meta.FilePath = path
	return meta, nil
}
