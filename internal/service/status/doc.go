// Package status reports per-artifact presence and staleness without
// mutating anything.
package status
