package inventory

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/webgrid/gridctl/internal/config"
	"github.com/webgrid/gridctl/internal/platform"
	"github.com/webgrid/gridctl/internal/registry"
)

// Entry is the classification of one descriptor against a directory listing.
type Entry struct {
	// Present means the exact expected filename exists.
	Present bool
	// StaleAlternatePresent means another file sharing the descriptor's
	// prefix exists. Present takes priority over this flag downstream.
	StaleAlternatePresent bool
	// StaleFiles lists the stale same-prefix filenames found.
	StaleFiles []string
}

// Snapshot reads the output directory listing once. A missing directory is
// an empty listing, not an error: nothing has been installed yet.
func Snapshot(dir string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Clean(dir))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("read output directory: %w", err)
	}

	names := make([]string, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		names = append(names, entry.Name())
	}

	return names, nil
}

// Classify maps a descriptor onto a listing snapshot.
func Classify(listing []string, d registry.Descriptor, version string, p platform.Platform) Entry {
	expected := d.ExpectedFilename(version, p)

	var entry Entry

	for _, name := range listing {
		if name == expected {
			entry.Present = true
			continue
		}

		// Archives left by an interrupted run share the prefix and are
		// treated as stale too.
		if strings.Contains(name, d.FilePrefix) {
			entry.StaleAlternatePresent = true
			entry.StaleFiles = append(entry.StaleFiles, name)
		}
	}

	return entry
}

// Scan snapshots the output directory and classifies every provided
// descriptor against it.
func Scan(cfg *config.Config, descriptors []registry.Descriptor, p platform.Platform) (map[string]Entry, error) {
	listing, err := Snapshot(cfg.OutputDir)
	if err != nil {
		return nil, err
	}

	result := make(map[string]Entry, len(descriptors))

	for _, d := range descriptors {
		result[d.Name] = Classify(listing, d, cfg.Version(d.Name), p)
	}

	return result, nil
}
