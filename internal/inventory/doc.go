// Package inventory classifies the output directory's contents against the
// artifact registry: for each descriptor it reports whether the exact
// current file is present and whether stale files of other versions exist.
// Classification is pure and operates on a single listing snapshot.
package inventory
