// Package config defines the settings shared by every subsystem and provides
// helpers to load, validate and save them in YAML format.
//
// The Config type holds the output directory, artifact versions, proxy and
// TLS options, and the server port. It is constructed once by the CLI and
// passed explicitly into every component.
package config
