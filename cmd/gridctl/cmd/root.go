package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/webgrid/gridctl/internal/config"
	"github.com/webgrid/gridctl/internal/logger"
	"github.com/webgrid/gridctl/internal/service/launcher"
	"github.com/webgrid/gridctl/internal/version"
)

var (
	// configPath stores the path to the optional configuration YAML file.
	configPath string
	// outputDir overrides the artifact directory.
	outputDir string
	// port overrides the server port.
	port int
	// proxyURL is an explicit proxy overriding environment proxies.
	proxyURL string
	// insecure disables TLS certificate verification for downloads.
	insecure bool
	// logLevel sets the logging verbosity.
	logLevel string
	// Artifact selection flags. When none is set, the default set applies.
	withServer       bool
	withChromeDriver bool
	withGeckoDriver  bool
	withIEDriver     bool

	// rootCmd represents the base command managing the test environment artifacts.
	rootCmd = &cobra.Command{
		Use:   "gridctl",
		Short: "Manage the browser-automation server and driver artifacts.",
		Long: `gridctl keeps a browser-automation test environment's binaries in place:
the standalone server and the browser drivers it dispatches to.

It reports what is installed (status), downloads and installs missing or
outdated artifacts (update), and launches and supervises the server
process (start).`,
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			level, ok := logger.ParseLogLevel(logLevel)
			if !ok {
				return fmt.Errorf("unknown log level %q", logLevel)
			}

			logger.SetLevel(level)

			return nil
		},
	}
)

// Execute runs the gridctl CLI. It exits with the supervised server's own
// exit code when the server terminated, and with 1 on any other failure.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		var exitErr *launcher.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}

		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup persistent flags shared by every subcommand.
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "path to configuration file")
	flags.StringVarP(&outputDir, "output-dir", "o", "", "directory holding the managed artifacts")
	flags.IntVarP(&port, "port", "p", 0, "server port")
	flags.StringVar(&proxyURL, "proxy", "", "proxy URL overriding environment proxies")
	flags.BoolVar(&insecure, "insecure", false, "disable TLS certificate verification for downloads")
	flags.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flags.BoolVar(&withServer, "server", false, "select the server artifact")
	flags.BoolVar(&withChromeDriver, "chrome", false, "select the Chrome driver artifact")
	flags.BoolVar(&withGeckoDriver, "gecko", false, "select the Gecko (Firefox) driver artifact")
	flags.BoolVar(&withIEDriver, "ie", false, "select the Internet Explorer driver artifact")
}

// buildConfig assembles the explicit configuration value handed into every
// component: the settings file first, command-line overrides on top.
func buildConfig() (*config.Config, error) {
	cfg, err := loadBaseConfig()
	if err != nil {
		return nil, err
	}

	if outputDir != "" {
		cfg.OutputDir = outputDir
	}

	if port != 0 {
		cfg.Port = port
	}

	if proxyURL != "" {
		cfg.Proxy = proxyURL
	}

	if insecure {
		cfg.Insecure = true
	}

	cfg.Selected[config.ServerArtifact] = withServer
	cfg.Selected[config.ChromeDriverArtifact] = withChromeDriver
	cfg.Selected[config.GeckoDriverArtifact] = withGeckoDriver
	cfg.Selected[config.IEDriverArtifact] = withIEDriver

	if err = config.Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// settingsPath is the settings file location in effect: the --config flag
// when given, the default filename otherwise.
func settingsPath() string {
	if configPath != "" {
		return configPath
	}

	return config.DefaultConfigFilename
}

// loadBaseConfig reads the settings file. An explicitly requested file must
// exist; the default file is optional.
func loadBaseConfig() (*config.Config, error) {
	if configPath != "" {
		return config.Load(configPath)
	}

	cfg, err := config.Load(config.DefaultConfigFilename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return config.Default(), nil
		}

		return nil, err
	}

	return cfg, nil
}
