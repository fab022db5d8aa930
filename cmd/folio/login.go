package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bft-labs/folio/internal/adapters/fs"
	"github.com/bft-labs/folio/internal/auth"
	pkglog "github.com/bft-labs/folio/pkg/log"
)

func (c *cli) authenticator() *auth.Authenticator {
	return auth.New(auth.Config{
		Username: c.cfg.AdminUsername,
		Password: c.cfg.AdminPassword,
		Secret:   c.cfg.TokenSecret,
	}, fs.NewTokenFile(c.cfg.TokenFile), pkglog.NewZerologAdapterWithLogger(c.log))
}

func newLoginCmd(c *cli) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in as admin and store the token locally",
		Long: "Checks the admin credential and writes a fresh token to the token file.\n" +
			"A running server picks the new token up without a restart.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.load(cmd); err != nil {
				return err
			}
			if username == "" {
				username = c.cfg.AdminUsername
			}
			if password == "" {
				password = c.cfg.AdminPassword
			}
			token, err := c.authenticator().Login(cmd.Context(), username, password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "username to log in with (default: the configured admin username)")
	cmd.Flags().StringVar(&password, "password", "", "password to log in with (default: the configured admin password)")
	return cmd
}

func newLogoutCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the stored admin token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.load(cmd); err != nil {
				return err
			}
			if err := c.authenticator().Logout(cmd.Context()); err != nil {
				return err
			}
			c.log.Info().Str("token_file", c.cfg.TokenFile).Msg("logged out")
			return nil
		},
	}
}
