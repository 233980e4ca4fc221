// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomtom215/scribe/internal/indieauth"
)

func newTokenCmd(opts *globalOptions) *cobra.Command {
	var (
		me       string
		scope    string
		clientID string
		ttl      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an access token for INDIEAUTH_MODE=jwt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if me == "" {
				me = cfg.SiteURL()
			}
			scopes := indieauth.ParseScopes(scope)
			if len(scopes) == 0 {
				return errors.New("at least one scope is required")
			}

			v, err := indieauth.NewJWTVerifier(cfg.IndieAuth.JWTSecret, cfg.IndieAuth.JWTIssuer)
			if err != nil {
				return err
			}
			token, err := v.Issue(me, scopes, clientID, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&me, "me", "", "Profile URL the token is issued to (default: the site URL)")
	cmd.Flags().StringVar(&scope, "scope", "create update delete undelete media", "Space separated scopes")
	cmd.Flags().StringVar(&clientID, "client-id", "", "Client identifier recorded in the token")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime; 0 never expires")
	return cmd
}

func newHashTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-token [token]",
		Short: "Print the bcrypt hash of a personal token for INDIEAUTH_MODE=static",
		Long: `Print the bcrypt hash to put in indieauth.static_tokens. The token is
read from the first argument or, when omitted, from the first line of stdin.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var token string
			if len(args) == 1 {
				token = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read token: %w", err)
				}
				token = strings.TrimSpace(line)
			}

			hash, err := indieauth.HashToken(token)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
