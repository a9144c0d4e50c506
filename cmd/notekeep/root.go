package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kuitang/notekeep/internal/errs"
)

type rootOptions struct {
	configPath string
	dataDir    string
	logLevel   string
	verbose    bool
	noS3       bool
	memory     bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:   "notekeep",
		Short: "Take, tag and search rich-text notes",
		Long: `notekeep keeps rich-text notes per identity in a local encrypted store.
Signed-in identities can back their notes up to an S3-compatible bucket.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "YAML config file (default $NOTEKEEP_CONFIG)")
	flags.StringVar(&opts.dataDir, "data-dir", "", "Directory for the local store (overrides DATA_DIR)")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose logging")
	flags.BoolVar(&opts.noS3, "no-s3", false, "Use an in-memory S3 for remote backup; backups last only for this run")
	flags.BoolVar(&opts.memory, "memory", false, "Keep notes in memory only")

	rootCmd.AddCommand(
		newNewCmd(opts),
		newListCmd(opts),
		newShowCmd(opts),
		newEditCmd(opts),
		newDeleteCmd(opts),
		newTagsCmd(opts),
		newExportCmd(opts),
		newSignInCmd(opts),
		newSignOutCmd(opts),
		newWhoAmICmd(opts),
		newBackupCmd(opts),
	)
	return rootCmd
}

// execute runs the CLI and returns the process exit status.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return errs.ExitCode(errs.CodeOf(err))
	}
	return 0
}
