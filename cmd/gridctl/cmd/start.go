package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/webgrid/gridctl/internal/service/launcher"
)

// startCmd launches and supervises the server process.
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Launch the server and supervise it until it exits.",
	Long: `Launch the server artifact and supervise its lifecycle. The server must
already be installed (run update first). Installed drivers are announced to
the server via system properties. Any input on standard input requests a
graceful shutdown over HTTP; an interrupt is forwarded to the server and the
supervisor keeps waiting for it to finish shutting down. gridctl exits with
the server's own exit code.`,
	Args: cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		// No signal-cancelled context here: the launcher owns interrupt
		// handling and must outlive the signal.
		cfg, err := buildConfig()
		if err != nil {
			return err
		}

		return launcher.Run(context.Background(), cfg)
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.AddCommand(startCmd)
}
