package commands

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/snapcal/snapcal/internal/observability/logging"
)

func NewRootCommand() *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:           "snapcal",
		Short:         "Extract calendar events from schedule photos",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			slog.SetDefault(logging.NewTextLogger(os.Stderr, logLevel))
		},
	}

	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	cmd.AddCommand(newExtractCommand())
	return cmd
}
