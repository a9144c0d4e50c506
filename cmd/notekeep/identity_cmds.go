package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kuitang/notekeep/internal/notes"
)

func newSignInCmd(opts *rootOptions) *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Sign in with an OAuth access token",
		Long: `Resolves the access token against the OIDC provider's userinfo endpoint and
switches to that identity's notes. The identity is remembered for later runs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				s, err := a.ws.SignInWithToken(cmd.Context(), token)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s)\n", s.Identity().Label(), notes.CountLabel(len(s.Notes())))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "OAuth access token")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}

func newSignOutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Forget the signed-in identity and use guest notes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				s := a.ws.SignOut()
				fmt.Fprintf(cmd.OutOrStdout(), "Signed out; using guest notes (%s)\n", notes.CountLabel(len(s.Notes())))
				return nil
			})
		},
	}
}

func newWhoAmICmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				s := a.ws.Current()
				id := s.Identity()
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, id.Label())
				if !id.IsGuest() && id.Email != "" {
					fmt.Fprintln(out, id.Email)
				}
				fmt.Fprintf(out, "repository: %s\n", s.RepositoryKey())
				return nil
			})
		},
	}
}
