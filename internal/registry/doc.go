// Package registry is the artifact descriptor registry: the static table of
// known artifacts (server and browser drivers), their on-disk naming and
// their download URL resolution per platform.
package registry
