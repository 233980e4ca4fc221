// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tomtom215/scribe/internal/models"
	"github.com/tomtom215/scribe/internal/validation"
)

func newUserCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage local users and their roles",
	}
	cmd.AddCommand(newUserAddCmd(opts), newUserListCmd(opts))
	return cmd
}

func newUserAddCmd(opts *globalOptions) *cobra.Command {
	u := &models.User{}

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create or replace a user",
		Long: `Create or replace a user. The login resolves IndieAuth profile URLs of
the form <site>/author/<login>/ and roles map to capabilities:
administrator, editor, author, contributor.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if u.ID == "" {
				u.ID = u.Login
			}
			if verr := validation.ValidateStruct(u); verr != nil {
				return validation.AsError(verr)
			}

			st, err := opts.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.PutUser(cmd.Context(), u); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved user %s (%s) with roles %s\n", u.Login, u.ID, strings.Join(u.Roles, ","))
			return nil
		},
	}

	cmd.Flags().StringVar(&u.ID, "id", "", "User id (default: the login)")
	cmd.Flags().StringVar(&u.Login, "login", "", "Login name")
	cmd.Flags().StringVar(&u.Name, "name", "", "Display name")
	cmd.Flags().StringVar(&u.ProfileURL, "profile-url", "", "IndieAuth profile URL owned by this user")
	cmd.Flags().StringSliceVar(&u.Roles, "role", []string{models.RoleAuthor}, "Roles to assign")
	_ = cmd.MarkFlagRequired("login")
	return cmd
}

func newUserListCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := opts.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			users, err := st.ListUsers(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tLOGIN\tNAME\tROLES")
			for _, u := range users {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", u.ID, u.Login, u.Name, strings.Join(u.Roles, ","))
			}
			return w.Flush()
		},
	}
}
