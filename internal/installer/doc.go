// Package installer unpacks downloaded artifact archives into the output
// directory. Extracted executables are applied with go-update so that
// replacing a binary that is currently mapped by a running process swaps it
// safely, and so the executable bit is guaranteed on platforms whose archive
// format does not preserve it.
package installer
