// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomtom215/scribe/internal/backup"
	"github.com/tomtom215/scribe/internal/config"
	"github.com/tomtom215/scribe/internal/store/driver"
)

func newBackupCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Create, list and verify backup archives",
	}
	cmd.AddCommand(newBackupCreateCmd(opts), newBackupListCmd(opts), newBackupVerifyCmd())
	return cmd
}

// backupDir returns the --dir override or the configured directory.
func backupDir(cfg *config.Config, override string) string {
	if override != "" {
		return override
	}
	return cfg.Backup.Dir
}

func newBackupCreateCmd(opts *globalOptions) *cobra.Command {
	var (
		dir     string
		noMedia bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Archive the content store and media directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			st, err := driver.Open(cfg.Store)
			if err != nil {
				return err
			}
			defer st.Close()

			snap, ok := st.(backup.Snapshotter)
			if !ok {
				return fmt.Errorf("store driver %q does not support snapshots", driver.Name(cfg.Store))
			}
			bcfg := backup.Config{
				Dir:    backupDir(cfg, dir),
				Driver: driver.Name(cfg.Store),
				Keep:   cfg.Backup.Keep,
			}
			if !noMedia && cfg.Backup.IncludeMedia && cfg.Media.Enabled {
				bcfg.MediaDir = cfg.Media.Dir
			}
			mgr, err := backup.NewManager(bcfg, snap)
			if err != nil {
				return err
			}

			b, err := mgr.Create(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%d files, %d bytes)\n", b.FilePath, len(b.Files), b.FileSize)
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Backup directory (default: backup.dir from config)")
	cmd.Flags().BoolVar(&noMedia, "no-media", false, "Skip the media directory")
	return cmd
}

func newBackupListCmd(opts *globalOptions) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List archives, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCREATED\tFILES\tPATH")
			paths, err := backup.List(backupDir(cfg, dir))
			if err != nil {
				return err
			}
			for _, p := range paths {
				b, err := backup.Verify(p)
				if err != nil {
					fmt.Fprintf(tw, "-\t-\t-\t%s (%v)\n", p, err)
					continue
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", b.ID, b.CreatedAt.Format(time.RFC3339), len(b.Files), p)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Backup directory (default: backup.dir from config)")
	return cmd
}

func newBackupVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <archive>",
		Short: "Check every file in an archive against its recorded checksum",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := backup.Verify(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "OK %s: %d files from %s store, created %s\n",
				b.ID, len(b.Files), b.Driver, b.CreatedAt.Format(time.RFC3339))
			return nil
		},
	}
}
