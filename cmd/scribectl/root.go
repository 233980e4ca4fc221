// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package main

import (
	"github.com/spf13/cobra"

	"github.com/tomtom215/scribe/internal/config"
	"github.com/tomtom215/scribe/internal/logging"
	"github.com/tomtom215/scribe/internal/store"
	"github.com/tomtom215/scribe/internal/store/driver"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "scribectl",
		Short: "Operator tools for the Scribe Micropub server",
		Long: `scribectl manages a Scribe installation: it exports entries to
markdown, mints and hashes access tokens, seeds users and roles, and
creates and verifies backups.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := "warn"
			if opts.verbose {
				level = "debug"
			}
			logging.Init(logging.Config{
				Level:  level,
				Format: "console",
				Output: cmd.ErrOrStderr(),
			})
		},
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to config.yaml (default: CONFIG_PATH or the standard search paths)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose logging")

	root.AddCommand(
		newExportCmd(opts),
		newTokenCmd(opts),
		newHashTokenCmd(),
		newUserCmd(opts),
		newBackupCmd(opts),
	)
	return root
}

// loadConfig loads the server configuration the command operates on.
func (o *globalOptions) loadConfig() (*config.Config, error) {
	if o.configPath != "" {
		return config.LoadFile(o.configPath)
	}
	return config.Load()
}

// openStore opens the configured content store.
func (o *globalOptions) openStore() (store.Store, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	return driver.Open(cfg.Store)
}
