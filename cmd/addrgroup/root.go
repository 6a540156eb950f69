package main

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"
)

// rootFlags are the persistent flags shared by every subcommand.
type rootFlags struct {
	verbose bool
	quiet   bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "addrgroup",
		Short: "Group people who live at the same address",
		Long: `addrgroup reads "Name, Address" records, normalizes and translates the
addresses, and prints the people whose addresses match, one group per line.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			setupLogging(cmd.ErrOrStderr(), flags.verbose, flags.quiet)
		},
	}

	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flags.quiet, "quiet", "q", false, "only log warnings and errors")

	cmd.AddCommand(newGroupCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

// setupLogging configures the default slog logger based on verbosity flags.
// Output is written to w using slog.TextHandler.
func setupLogging(w io.Writer, verbose, quiet bool) {
	var level slog.Level
	switch {
	case quiet:
		level = slog.LevelWarn
	case verbose:
		level = slog.LevelDebug
	default:
		level = slog.LevelInfo
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}
