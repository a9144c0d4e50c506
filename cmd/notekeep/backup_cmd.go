package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kuitang/notekeep/internal/notes"
)

func newBackupCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Push or pull the remote backup of the signed-in identity",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "push",
		Short: "Upload every local note, replacing the remote backup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				s := a.session()
				if err := s.Push(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Backed up %s\n", notes.CountLabel(len(s.Notes())))
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "pull",
		Short: "Replace local notes with the remote backup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				s := a.session()
				found, err := s.Pull(cmd.Context())
				if err != nil {
					return err
				}
				if !found {
					fmt.Fprintln(cmd.OutOrStdout(), "No remote backup; local notes unchanged")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Restored %s\n", notes.CountLabel(len(s.Notes())))
				return nil
			})
		},
	})
	return cmd
}
