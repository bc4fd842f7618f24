// Package platform exposes the host operating system and CPU architecture as
// a closed enumeration so that download URL resolution and process spawning
// never branch on raw runtime strings.
package platform
