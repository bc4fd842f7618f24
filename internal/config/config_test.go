package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestValidate checks required fields and format validations for Config.
func TestValidate(t *testing.T) {
	t.Parallel()

	// Nil configuration.
	err := Validate(nil)
	require.Error(t, err)

	// Bad port.
	cfg := &Config{Port: 70000}

	err = Validate(cfg)
	require.Error(t, err)

	// Bad proxy URL.
	cfg = &Config{Proxy: "://not-a-url"}

	err = Validate(cfg)
	require.Error(t, err)

	// Empty config gets full defaults.
	cfg = new(Config)

	err = Validate(cfg)
	require.NoError(t, err)
	require.Equal(t, DefaultPort, cfg.Port)
	require.Equal(t, DefaultOutputDir, cfg.OutputDir)
	require.Equal(t, DefaultTimeout, cfg.Timeout)
	require.Equal(t, DefaultServerVersion, cfg.Version(ServerArtifact))
	require.Equal(t, DefaultChromeDriverVersion, cfg.Version(ChromeDriverArtifact))
}

// TestVersionOverride ensures explicit versions survive default application.
func TestVersionOverride(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		Versions: map[string]string{GeckoDriverArtifact: "0.31.0"},
	}

	require.NoError(t, Validate(cfg))
	require.Equal(t, "0.31.0", cfg.Version(GeckoDriverArtifact))
	require.Equal(t, DefaultServerVersion, cfg.Version(ServerArtifact))
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")

	cfg := &Config{
		OutputDir: filepath.Join(dir, "artifacts"),
		Port:      5555,
		Proxy:     "http://proxy.local:3128",
		Versions:  map[string]string{ServerArtifact: "3.9.1"},
	}

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.OutputDir, loaded.OutputDir)
	require.Equal(t, cfg.Port, loaded.Port)
	require.Equal(t, cfg.Proxy, loaded.Proxy)
	require.Equal(t, "3.9.1", loaded.Version(ServerArtifact))

	// File exists.
	_, err = os.Stat(path)
	require.NoError(t, err)
}

// TestSaveIfMissing writes an absent settings file once and never overwrites
// an existing one.
func TestSaveIfMissing(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")

	cfg := Default()
	cfg.Port = 5555

	written, err := SaveIfMissing(path, cfg)
	require.NoError(t, err)
	require.True(t, written)

	// Operator edits must survive later runs.
	cfg.Port = 6666

	written, err = SaveIfMissing(path, cfg)
	require.NoError(t, err)
	require.False(t, written)

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 5555, loaded.Port)
}
