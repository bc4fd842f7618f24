package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every setting the artifact manager needs. It is built once by
// the CLI layer and passed by parameter into the scanner, fetcher, installer
// and supervisor; no component reads ambient state.
type Config struct {
	// OutputDir is the directory holding the managed artifacts.
	OutputDir string `yaml:"output_dir"`
	// Port is the port the supervised server listens on.
	Port int `yaml:"port"`
	// Proxy is an optional explicit proxy URL overriding environment proxies.
	Proxy string `yaml:"proxy"`
	// Insecure disables TLS certificate verification for downloads.
	Insecure bool `yaml:"insecure"`
	// Versions maps artifact names to the versions to install.
	Versions map[string]string `yaml:"versions"`
	// Timeout bounds every single download request.
	Timeout time.Duration `yaml:"timeout"`
	// Selected maps artifact names to explicit inclusion choices made on the
	// command line. It is assembled at runtime and not persisted to YAML.
	Selected map[string]bool `yaml:"-"`
}

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "gridctl-settings.yaml"

	// DefaultOutputDir is where artifacts are placed unless configured otherwise.
	DefaultOutputDir = "vendor-artifacts"

	// DefaultPort is the server's default listening and management port.
	DefaultPort = 4444

	// DefaultTimeout bounds a single artifact download. Server artifacts can
	// be tens of megabytes, so this is deliberately generous.
	DefaultTimeout = 10 * time.Minute

	// DefaultFilePermissions is the permission set for the settings file.
	DefaultFilePermissions = 0o600
)

// Default artifact versions, overridable per artifact via the settings file.
const (
	DefaultServerVersion       = "3.141.59"
	DefaultChromeDriverVersion = "114.0.5735.90"
	DefaultGeckoDriverVersion  = "0.34.0"
	DefaultIEDriverVersion     = "3.150.0"
)

// Artifact names used as keys in Versions and Selected.
const (
	ServerArtifact       = "selenium-server"
	ChromeDriverArtifact = "chromedriver"
	GeckoDriverArtifact  = "geckodriver"
	IEDriverArtifact     = "iedriver"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errInvalidPort is returned when the configured port is out of range.
	errInvalidPort = errors.New("port must be between 1 and 65535")
)

// Default returns a configuration populated with default values.
func Default() *Config {
	cfg := &Config{
		OutputDir: DefaultOutputDir,
		Port:      DefaultPort,
		Timeout:   DefaultTimeout,
		Versions:  make(map[string]string, 4),
		Selected:  make(map[string]bool, 4),
	}

	applyDefaults(cfg)

	return cfg
}

// Load reads configuration from the provided path and validates it.
// Missing fields are filled with defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// SaveIfMissing writes the configuration to the provided path unless a
// settings file already exists there. It reports whether the file was
// written. An existing file is never touched: it may carry operator edits.
func SaveIfMissing(path string, cfg *Config) (bool, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	if _, err := os.Stat(filepath.Clean(path)); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("stat settings: %w", err)
	}

	if err := Save(path, cfg); err != nil {
		return false, err
	}

	return true, nil
}

// Validate checks the provided configuration and applies defaults
// to unset fields.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("%w: %d", errInvalidPort, cfg.Port)
	}

	if cfg.Proxy != "" {
		if _, err := url.ParseRequestURI(cfg.Proxy); err != nil {
			return fmt.Errorf("invalid proxy URL: %w", err)
		}
	}

	if cfg.OutputDir == "" {
		cfg.OutputDir = DefaultOutputDir
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	applyDefaults(cfg)

	return nil
}

// Version returns the configured version for the named artifact.
func (c *Config) Version(artifact string) string {
	return c.Versions[artifact]
}

// applyDefaults fills in default versions for artifacts the settings file
// does not mention.
func applyDefaults(cfg *Config) {
	if cfg.Versions == nil {
		cfg.Versions = make(map[string]string, 4)
	}

	if cfg.Selected == nil {
		cfg.Selected = make(map[string]bool, 4)
	}

	defaults := map[string]string{
		ServerArtifact:       DefaultServerVersion,
		ChromeDriverArtifact: DefaultChromeDriverVersion,
		GeckoDriverArtifact:  DefaultGeckoDriverVersion,
		IEDriverArtifact:     DefaultIEDriverVersion,
	}

	for name, version := range defaults {
		if cfg.Versions[name] == "" {
			cfg.Versions[name] = version
		}
	}
}
