package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/webgrid/gridctl/internal/service/status"
)

// statusCmd reports per-artifact presence and staleness without mutating anything.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report which artifacts are installed, outdated or absent.",
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
		defer stop()

		cfg, err := buildConfig()
		if err != nil {
			return err
		}

		return status.Run(ctx, cfg)
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.AddCommand(statusCmd)
}
