package reconciler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/mitchellh/go-ps"

	"github.com/webgrid/gridctl/internal/config"
	"github.com/webgrid/gridctl/internal/fetcher"
	"github.com/webgrid/gridctl/internal/installer"
	"github.com/webgrid/gridctl/internal/inventory"
	"github.com/webgrid/gridctl/internal/logger"
	"github.com/webgrid/gridctl/internal/platform"
	"github.com/webgrid/gridctl/internal/registry"
)

// Result classifies the outcome of reconciling one artifact.
type Result string

// Reconciliation outcomes.
const (
	AlreadyCurrent         Result = "already-current"
	Updated                Result = "updated"
	UnavailableForPlatform Result = "unavailable-for-platform"
	Failed                 Result = "failed"
)

// Outcome is the per-artifact reconciliation report.
type Outcome struct {
	// Artifact is the descriptor name.
	Artifact string
	// Result classifies what happened.
	Result Result
	// Err carries the failure detail when Result is Failed.
	Err error
}

// errReconcileFailed is returned by Run when any artifact failed.
var errReconcileFailed = errors.New("one or more artifacts failed to reconcile")

// Run reconciles the artifacts selected by the configuration and returns an
// error if any of them failed. Unavailable-for-platform artifacts are
// reported but do not fail the run.
func Run(ctx context.Context, cfg *config.Config) error {
	ctx = logger.WithName(ctx, "update")

	outcomes := Reconcile(ctx, cfg, registry.Selected(cfg), platform.Detect())

	failed := 0

	for _, outcome := range outcomes {
		switch outcome.Result {
		case AlreadyCurrent:
			logger.InfoKV(ctx, "Artifact is current", "artifact", outcome.Artifact)
		case Updated:
			logger.InfoKV(ctx, "Artifact updated", "artifact", outcome.Artifact)
		case UnavailableForPlatform:
			logger.WarnKV(ctx, "No build for this platform", "artifact", outcome.Artifact)
		case Failed:
			failed++

			logger.ErrorKV(ctx, "Artifact update failed",
				"artifact", outcome.Artifact, "error", outcome.Err)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%w (%d failed)", errReconcileFailed, failed)
	}

	return nil
}

// Reconcile brings every provided descriptor up to its configured version.
// Descriptors reconcile concurrently; each descriptor's own steps run in
// strict sequence, and one descriptor's failure never aborts the others.
// Their install filenames never collide, so the shared output directory
// needs no locking.
func Reconcile(ctx context.Context, cfg *config.Config, descriptors []registry.Descriptor, p platform.Platform) []Outcome {
	listing, err := inventory.Snapshot(cfg.OutputDir)
	if err != nil {
		outcomes := make([]Outcome, 0, len(descriptors))
		for _, d := range descriptors {
			outcomes = append(outcomes, Outcome{Artifact: d.Name, Result: Failed, Err: err})
		}

		return outcomes
	}

	outcomes := make([]Outcome, len(descriptors))

	var wg sync.WaitGroup

	for i, d := range descriptors {
		wg.Add(1)

		go func(i int, d registry.Descriptor) {
			defer wg.Done()

			outcomes[i] = reconcileOne(ctx, cfg, listing, d, p)
		}(i, d)
	}

	wg.Wait()

	return outcomes
}

// reconcileOne runs the per-artifact algorithm. The presence check is
// authoritative and short-circuits every later step, including stale
// cleanup.
func reconcileOne(ctx context.Context, cfg *config.Config, listing []string, d registry.Descriptor, p platform.Platform) Outcome {
	ctx = logger.WithKV(ctx, "artifact", d.Name)

	version := cfg.Version(d.Name)
	entry := inventory.Classify(listing, d, version, p)

	if entry.Present {
		return Outcome{Artifact: d.Name, Result: AlreadyCurrent}
	}

	if entry.StaleAlternatePresent {
		removeStaleFiles(ctx, cfg.OutputDir, entry.StaleFiles)
	}

	downloadURL, ok := d.DownloadURL(version, p)
	if !ok {
		// No build exists; do not attempt a network call.
		return Outcome{Artifact: d.Name, Result: UnavailableForPlatform}
	}

	destPath := filepath.Join(cfg.OutputDir, d.DownloadFilename(version, p))

	if err := fetcher.Fetch(ctx, downloadURL, destPath, cfg); err != nil {
		return Outcome{Artifact: d.Name, Result: Failed, Err: err}
	}

	if d.IsArchived(version, p) {
		installedName := d.ExpectedFilename(version, p)

		err := installer.Install(ctx, destPath, cfg.OutputDir, d.ArchiveExecutable(p), installedName)
		if err != nil {
			// The downloaded archive stays on disk for inspection.
			return Outcome{Artifact: d.Name, Result: Failed, Err: err}
		}

		if err = os.Remove(destPath); err != nil {
			logger.Warnf(ctx, "Unable to remove archive %s: %v", destPath, err)
		}
	}

	return Outcome{Artifact: d.Name, Result: Updated}
}

// removeStaleFiles terminates any process still running a stale binary and
// deletes every stale file. Replacing a binary that another process holds
// open fails on Windows, so the process is stopped first.
func removeStaleFiles(ctx context.Context, outputDir string, staleFiles []string) {
	for _, name := range staleFiles {
		if err := terminateProcessByName(name); err != nil {
			logger.Warnf(ctx, "Unable to stop processes running %s: %v", name, err)
		}

		path := filepath.Join(outputDir, name)
		if err := os.Remove(path); err != nil {
			logger.Warnf(ctx, "Unable to remove stale file %s: %v", path, err)
			continue
		}

		logger.InfoKV(ctx, "Removed stale file", "path", path)
	}
}

// terminateProcessByName kills processes whose executable name matches.
func terminateProcessByName(processName string) error {
	processList, err := ps.Processes()
	if err != nil {
		return err
	}

	thisProcessID := os.Getpid()

	for _, process := range processList {
		if process.Pid() == thisProcessID {
			continue
		}

		if process.Executable() != processName {
			continue
		}

		var runningProcess *os.Process

		runningProcess, err = os.FindProcess(process.Pid())
		if err != nil {
			return err
		}

		if err = runningProcess.Kill(); err != nil {
			return err
		}
	}

	return nil
}
