// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tomtom215/scribe/internal/models"
	"github.com/tomtom215/scribe/internal/store"
)

// exportBatch is the page size used to walk the store.
const exportBatch = 100

// frontmatter is the YAML header of an exported entry.
type frontmatter struct {
	ID         string                 `yaml:"id"`
	Title      string                 `yaml:"title,omitempty"`
	Slug       string                 `yaml:"slug"`
	URL        string                 `yaml:"url,omitempty"`
	Date       time.Time              `yaml:"date"`
	Updated    time.Time              `yaml:"updated,omitempty"`
	Status     models.Status          `yaml:"status"`
	Author     string                 `yaml:"author,omitempty"`
	Excerpt    string                 `yaml:"excerpt,omitempty"`
	Categories []string               `yaml:"categories,omitempty"`
	Tags       []string               `yaml:"tags,omitempty"`
	Properties map[string]interface{} `yaml:"properties,omitempty"`
}

func newExportCmd(opts *globalOptions) *cobra.Command {
	var (
		outDir   string
		statuses []string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export entries as markdown files with YAML frontmatter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := opts.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			n, err := exportEntries(cmd.Context(), st, outDir, statuses)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d entries to %s\n", n, outDir)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "export", "Directory to write markdown files to")
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "Only export entries with these statuses (publish, draft, private)")
	return cmd
}

// exportEntries writes every non-trashed entry matching statuses (all when
// empty) to dir and returns how many were written.
func exportEntries(ctx context.Context, entries store.EntryStore, dir string, statuses []string) (int, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return 0, fmt.Errorf("create export dir: %w", err)
	}

	want := make(map[models.Status]bool, len(statuses))
	for _, s := range statuses {
		want[models.Status(strings.TrimSpace(s))] = true
	}

	written := 0
	for offset := 0; ; offset += exportBatch {
		page, err := entries.ListEntries(ctx, exportBatch, offset)
		if err != nil {
			return written, err
		}
		for _, e := range page {
			if len(want) > 0 && !want[e.Status] {
				continue
			}
			data, err := renderMarkdown(e)
			if err != nil {
				return written, fmt.Errorf("render %s: %w", e.ID, err)
			}
			path := filepath.Join(dir, exportFilename(e))
			if err := os.WriteFile(path, data, 0o640); err != nil {
				return written, fmt.Errorf("write %s: %w", path, err)
			}
			written++
		}
		if len(page) < exportBatch {
			return written, nil
		}
	}
}

// exportFilename is "YYYY-MM-DD-slug.md", falling back to the id when the
// entry has no slug.
func exportFilename(e *models.Entry) string {
	name := e.Slug
	if name == "" {
		name = e.ID
	}
	name = strings.ReplaceAll(name, string(filepath.Separator), "-")
	return e.Published.UTC().Format("2006-01-02") + "-" + name + ".md"
}

// renderMarkdown serializes e as frontmatter followed by its content.
func renderMarkdown(e *models.Entry) ([]byte, error) {
	fm := frontmatter{
		ID:         e.ID,
		Title:      e.Title,
		Slug:       e.Slug,
		URL:        e.URL,
		Date:       e.Published,
		Updated:    e.Updated,
		Status:     e.Status,
		Author:     e.AuthorID,
		Excerpt:    e.Excerpt,
		Categories: e.Categories,
		Tags:       e.Tags,
	}

	keys := e.MF2Keys()
	sort.Strings(keys)
	for _, k := range keys {
		var v interface{}
		if err := json.Unmarshal(e.Meta[models.MetaMF2Prefix+k], &v); err != nil {
			return nil, fmt.Errorf("decode property %s: %w", k, err)
		}
		if fm.Properties == nil {
			fm.Properties = make(map[string]interface{}, len(keys))
		}
		fm.Properties[k] = v
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(fm); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	buf.WriteString("---\n")
	buf.WriteString(e.Content)
	if e.Content != "" && !strings.HasSuffix(e.Content, "\n") {
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}
