package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/webgrid/gridctl/internal/config"
	"github.com/webgrid/gridctl/internal/logger"
	"github.com/webgrid/gridctl/internal/service/reconciler"
)

// updateCmd reconciles the selected artifacts against their configured versions.
var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Download and install missing or outdated artifacts.",
	Long: `Bring the output directory's artifact set in line with the configured
versions. Artifacts whose exact current file is already present are left
untouched; stale versions are replaced. Selection flags (--server, --chrome,
--gecko, --ie) restrict the pass to the named artifacts.`,
	Args: cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
		defer stop()

		cfg, err := buildConfig()
		if err != nil {
			return err
		}

		if err = reconciler.Run(ctx, cfg); err != nil {
			return err
		}

		// First successful run pins the effective settings to a file the
		// operator can edit; later runs never touch it.
		path := settingsPath()

		written, err := config.SaveIfMissing(path, cfg)
		if err != nil {
			logger.Warnf(ctx, "Unable to write settings file %s: %v", path, err)
		} else if written {
			logger.InfoKV(ctx, "Wrote settings file", "path", path)
		}

		return nil
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.AddCommand(updateCmd)
}
