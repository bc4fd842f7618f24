package status

import (
	"context"
	"fmt"

	"github.com/webgrid/gridctl/internal/config"
	"github.com/webgrid/gridctl/internal/inventory"
	"github.com/webgrid/gridctl/internal/logger"
	"github.com/webgrid/gridctl/internal/platform"
	"github.com/webgrid/gridctl/internal/registry"
)

// Run scans the output directory and logs the state of every selected
// artifact.
func Run(ctx context.Context, cfg *config.Config) error {
	ctx = logger.WithName(ctx, "status")

	p := platform.Detect()
	descriptors := registry.Selected(cfg)

	entries, err := inventory.Scan(cfg, descriptors, p)
	if err != nil {
		return fmt.Errorf("scan output directory: %w", err)
	}

	for _, d := range descriptors {
		entry := entries[d.Name]
		expected := d.ExpectedFilename(cfg.Version(d.Name), p)

		switch {
		case entry.Present && entry.StaleAlternatePresent:
			logger.InfoKV(ctx, "Artifact is current, stale versions remain",
				"artifact", d.Name, "file", expected, "stale", entry.StaleFiles)
		case entry.Present:
			logger.InfoKV(ctx, "Artifact is current", "artifact", d.Name, "file", expected)
		case entry.StaleAlternatePresent:
			logger.WarnKV(ctx, "Artifact is outdated",
				"artifact", d.Name, "expected", expected, "found", entry.StaleFiles)
		default:
			logger.WarnKV(ctx, "Artifact is absent", "artifact", d.Name, "expected", expected)
		}
	}

	return nil
}
