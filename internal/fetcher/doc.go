// Package fetcher downloads artifact URLs straight to disk. It resolves the
// proxy policy (explicit override, then environment proxies keyed by the
// target scheme), streams the body without buffering, and removes partial
// files on any transport or status failure. Failures are never retried;
// reconciliation is idempotent and the operator re-runs it instead.
package fetcher
