// Package reconciler brings the output directory's artifact set in line with
// the configured versions: it classifies each selected artifact against a
// single directory snapshot, removes stale versions, downloads the current
// build and installs it. Every mutating step is idempotent, so any failure
// is recovered by re-running the pass.
package reconciler
