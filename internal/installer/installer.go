package installer

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	goupdate "github.com/doitdistributed/go-update"

	"github.com/webgrid/gridctl/internal/logger"
)

// ExecutableFileMode is applied to extracted executables. Archives do not
// reliably carry the executable bit across platforms.
const ExecutableFileMode os.FileMode = 0o755

var (
	errUnsupportedArchive = errors.New("unsupported archive format")
	errUnsafeArchivePath  = errors.New("archive entry escapes output directory")
)

// Install extracts the archive at archivePath into outputDir, overwriting
// entries of the same name. The entry named executableEntry is installed as
// installedName with the executable bit set. Re-running on the same archive
// re-extracts in place.
func Install(ctx context.Context, archivePath, outputDir, executableEntry, installedName string) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	switch {
	case strings.HasSuffix(archivePath, ".zip"):
		return installZip(ctx, archivePath, outputDir, executableEntry, installedName)
	case strings.HasSuffix(archivePath, ".tar.gz"), strings.HasSuffix(archivePath, ".tgz"):
		return installTarGz(ctx, archivePath, outputDir, executableEntry, installedName)
	default:
		return fmt.Errorf("%s: %w", archivePath, errUnsupportedArchive)
	}
}

func installZip(ctx context.Context, archivePath, outputDir, executableEntry, installedName string) error {
	reader, err := zip.OpenReader(filepath.Clean(archivePath))
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}

	defer func() {
		_ = reader.Close()
	}()

	for _, file := range reader.File {
		if file.FileInfo().IsDir() {
			continue
		}

		entry, err := file.Open()
		if err != nil {
			return fmt.Errorf("open archive entry %s: %w", file.Name, err)
		}

		err = placeEntry(ctx, entry, file.Name, outputDir, executableEntry, installedName)

		_ = entry.Close()

		if err != nil {
			return err
		}
	}

	return nil
}

func installTarGz(ctx context.Context, archivePath, outputDir, executableEntry, installedName string) error {
	archive, err := os.Open(filepath.Clean(archivePath))
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}

	defer func() {
		_ = archive.Close()
	}()

	gz, err := gzip.NewReader(archive)
	if err != nil {
		return fmt.Errorf("open gzip stream: %w", err)
	}

	defer func() {
		_ = gz.Close()
	}()

	tr := tar.NewReader(gz)

	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("read archive entry: %w", err)
		}

		if header.Typeflag != tar.TypeReg {
			continue
		}

		if err = placeEntry(ctx, tr, header.Name, outputDir, executableEntry, installedName); err != nil {
			return err
		}
	}
}

// placeEntry writes one archive entry into the output directory. The
// executable entry is renamed to its installed (version-carrying) name and
// applied via go-update; everything else is written as-is.
func placeEntry(ctx context.Context, entry io.Reader, entryName, outputDir, executableEntry, installedName string) error {
	name := filepath.FromSlash(entryName)

	if filepath.Base(name) == executableEntry {
		return applyExecutable(ctx, entry, filepath.Join(outputDir, installedName))
	}

	destPath, err := safeJoin(outputDir, name)
	if err != nil {
		return err
	}

	if err = os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("create entry directory: %w", err)
	}

	out, err := os.Create(filepath.Clean(destPath))
	if err != nil {
		return fmt.Errorf("create %s: %w", destPath, err)
	}

	if _, err = io.Copy(out, entry); err != nil {
		_ = out.Close()

		return fmt.Errorf("extract %s: %w", entryName, err)
	}

	return out.Close()
}

// applyExecutable installs executable bytes at targetPath with the
// executable bit set, swapping out any existing file in place.
func applyExecutable(ctx context.Context, contents io.Reader, targetPath string) error {
	logger.InfoKV(ctx, "Installing executable", "path", targetPath)

	// Apply swaps the existing target out of the way first, so a fresh
	// install needs a file to swap.
	if _, err := os.Stat(targetPath); err != nil && os.IsNotExist(err) {
		placeholder, createErr := os.Create(filepath.Clean(targetPath))
		if createErr != nil {
			return fmt.Errorf("create %s: %w", targetPath, createErr)
		}

		_ = placeholder.Close()
	}

	options := goupdate.Options{
		TargetPath: targetPath,
		TargetMode: ExecutableFileMode,
	}

	if err := goupdate.Apply(contents, options); err != nil {
		return fmt.Errorf("install executable %s: %w", targetPath, err)
	}

	// On Windows the previous binary survives as a hidden .old file; drop it
	// so the inventory never classifies it as a stale artifact.
	oldPath := filepath.Join(filepath.Dir(targetPath), "."+filepath.Base(targetPath)+".old")
	if _, err := os.Stat(oldPath); err == nil {
		_ = os.Remove(oldPath)
	}

	return nil
}

// safeJoin joins an archive entry path under dir, rejecting traversal.
func safeJoin(dir, name string) (string, error) {
	joined := filepath.Join(dir, name)

	if !strings.HasPrefix(joined, filepath.Clean(dir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("%s: %w", name, errUnsafeArchivePath)
	}

	return joined, nil
}
