package installer

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

// writeZip produces a zip archive containing the provided entries.
func writeZip(t *testing.T, path string, entries map[string][]byte) {
	t.Helper()

	var buf bytes.Buffer

	w := zip.NewWriter(&buf)
	for name, contents := range entries {
		entry, err := w.Create(name)
		require.NoError(t, err)

		_, err = entry.Write(contents)
		require.NoError(t, err)
	}

	require.NoError(t, w.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

// writeTarGz produces a tar.gz archive containing the provided entries.
func writeTarGz(t *testing.T, path string, entries map[string][]byte) {
	t.Helper()

	var buf bytes.Buffer

	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	for name, contents := range entries {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name: name,
			Mode: 0o644,
			Size: int64(len(contents)),
		}))

		_, err := tw.Write(contents)
		require.NoError(t, err)
	}

	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

// TestInstallZip extracts a zip, renames the executable entry to its
// installed name and sets the executable bit.
func TestInstallZip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	archive := filepath.Join(dir, "chromedriver_linux64.zip")
	out := filepath.Join(dir, "out")

	writeZip(t, archive, map[string][]byte{
		"chromedriver": []byte("binary-bytes"),
		"LICENSE":      []byte("license-text"),
	})

	err := Install(context.Background(), archive, out, "chromedriver", "chromedriver-114.0.5735.90")
	require.NoError(t, err)

	installed := filepath.Join(out, "chromedriver-114.0.5735.90")

	contents, err := os.ReadFile(installed)
	require.NoError(t, err)
	require.Equal(t, []byte("binary-bytes"), contents)

	if runtime.GOOS != "windows" {
		info, statErr := os.Stat(installed)
		require.NoError(t, statErr)
		require.NotZero(t, info.Mode()&0o111)
	}

	// Non-executable entries are extracted under their own names.
	_, err = os.Stat(filepath.Join(out, "LICENSE"))
	require.NoError(t, err)
}

// TestInstallTarGz extracts a tar.gz the same way.
func TestInstallTarGz(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	archive := filepath.Join(dir, "geckodriver-v0.34.0-linux64.tar.gz")
	out := filepath.Join(dir, "out")

	writeTarGz(t, archive, map[string][]byte{
		"geckodriver": []byte("gecko-bytes"),
	})

	err := Install(context.Background(), archive, out, "geckodriver", "geckodriver-v0.34.0")
	require.NoError(t, err)

	contents, err := os.ReadFile(filepath.Join(out, "geckodriver-v0.34.0"))
	require.NoError(t, err)
	require.Equal(t, []byte("gecko-bytes"), contents)
}

// TestInstallIntoEmptyOutputDir installs an executable whose target does not
// exist yet. Applying the update swaps the previous target aside first, so a
// first-time install must work without one.
func TestInstallIntoEmptyOutputDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	archive := filepath.Join(dir, "driver.zip")
	out := filepath.Join(dir, "out")

	writeZip(t, archive, map[string][]byte{"chromedriver": []byte("fresh-bytes")})

	require.NoError(t, Install(context.Background(), archive, out, "chromedriver", "chromedriver-1"))

	contents, err := os.ReadFile(filepath.Join(out, "chromedriver-1"))
	require.NoError(t, err)
	require.Equal(t, []byte("fresh-bytes"), contents)

	// The swap must not leave its backup behind.
	_, err = os.Stat(filepath.Join(out, ".chromedriver-1.old"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestInstallIsIdempotent re-runs extraction over an existing installation.
func TestInstallIsIdempotent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	archive := filepath.Join(dir, "driver.zip")
	out := filepath.Join(dir, "out")

	writeZip(t, archive, map[string][]byte{"chromedriver": []byte("v1")})

	require.NoError(t, Install(context.Background(), archive, out, "chromedriver", "chromedriver-1"))
	require.NoError(t, Install(context.Background(), archive, out, "chromedriver", "chromedriver-1"))

	contents, err := os.ReadFile(filepath.Join(out, "chromedriver-1"))
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), contents)
}

// TestInstallRejectsTraversal refuses archive entries escaping the output
// directory.
func TestInstallRejectsTraversal(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	archive := filepath.Join(dir, "evil.zip")
	out := filepath.Join(dir, "out")

	writeZip(t, archive, map[string][]byte{"../evil.txt": []byte("nope")})

	err := Install(context.Background(), archive, out, "chromedriver", "chromedriver-1")
	require.Error(t, err)
	require.ErrorIs(t, err, errUnsafeArchivePath)
}

// TestInstallUnsupportedFormat fails cleanly on unknown archive suffixes.
func TestInstallUnsupportedFormat(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	archive := filepath.Join(dir, "artifact.rar")
	require.NoError(t, os.WriteFile(archive, []byte("x"), 0o644))

	err := Install(context.Background(), archive, filepath.Join(dir, "out"), "a", "b")
	require.ErrorIs(t, err, errUnsupportedArchive)
}
