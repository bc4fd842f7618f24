// Package launcher supervises the server process: it refuses to start
// without a current server artifact, spawns the server with a
// driver-location property per installed driver, forwards standard streams,
// turns operator input into a graceful HTTP shutdown request, survives
// interrupts, and exits with the child's exact exit code.
package launcher
