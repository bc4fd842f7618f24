package launcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/webgrid/gridctl/internal/config"
	"github.com/webgrid/gridctl/internal/inventory"
	"github.com/webgrid/gridctl/internal/logger"
	"github.com/webgrid/gridctl/internal/platform"
	"github.com/webgrid/gridctl/internal/registry"
)

// shutdownPath is the server's well-known graceful shutdown endpoint.
const shutdownPath = "/selenium-server/driver/?cmd=shutDownSeleniumServer"

// shutdownRequestTimeout bounds the fire-and-forget shutdown GET.
const shutdownRequestTimeout = 5 * time.Second

// errServerArtifactMissing means start was invoked without a current server
// binary on disk. This is fatal before any spawn attempt.
var errServerArtifactMissing = errors.New("server artifact is not installed, run update first")

// ExitError reports that the supervised server exited with a non-zero code.
// The supervisor propagates this exact code as its own exit status.
type ExitError struct {
	// Code is the child's exit code.
	Code int
}

// Error implements the error interface.
func (e *ExitError) Error() string {
	return fmt.Sprintf("server exited with code %d", e.Code)
}

// Run launches the server artifact and supervises it until it exits. The
// returned error is nil when the child exited zero, an *ExitError carrying
// the child's code otherwise.
func Run(ctx context.Context, cfg *config.Config) error {
	ctx = logger.WithName(ctx, "start")
	p := platform.Detect()

	listing, err := inventory.Snapshot(cfg.OutputDir)
	if err != nil {
		return err
	}

	server := registry.Server()

	entry := inventory.Classify(listing, server, cfg.Version(server.Name), p)
	if !entry.Present {
		return fmt.Errorf("%s: %w",
			server.ExpectedFilename(cfg.Version(server.Name), p), errServerArtifactMissing)
	}

	invocation := serverInvocation(cfg, listing, p)
	logger.InfoKV(ctx, "Starting server", "command", invocation)

	cmd := exec.Command(invocation[0], invocation[1:]...) //nolint:gosec // Arguments come from our own registry.

	return supervise(ctx, cfg, cmd, os.Stdin, p)
}

// serverInvocation computes the full server command line: the Java
// invocation of the server jar, a driver-location system property for every
// other artifact whose exact current file is present, and the listening
// port. On Windows the whole thing is wrapped through the command
// interpreter.
func serverInvocation(cfg *config.Config, listing []string, p platform.Platform) []string {
	server := registry.Server()
	jarPath := filepath.Join(cfg.OutputDir, server.ExpectedFilename(cfg.Version(server.Name), p))

	args := []string{"java"}

	// Drivers are optional companions: the server learns the location of
	// each one only when it is actually installed.
	for _, d := range registry.Drivers() {
		entry := inventory.Classify(listing, d, cfg.Version(d.Name), p)
		if !entry.Present {
			continue
		}

		driverPath := filepath.Join(cfg.OutputDir, d.ExpectedFilename(cfg.Version(d.Name), p))
		args = append(args, fmt.Sprintf("-D%s=%s", d.ServerProperty, driverPath))
	}

	args = append(args, "-jar", jarPath, "-port", strconv.Itoa(cfg.Port))

	if p.IsWindows() {
		return append([]string{"cmd.exe", "/C"}, args...)
	}

	return args
}

// supervise runs the prepared command to completion, forwarding the child's
// standard streams, watching the supervisor's input for a graceful shutdown
// request, and keeping the process alive across operator interrupts.
func supervise(ctx context.Context, cfg *config.Config, cmd *exec.Cmd, input io.Reader, p platform.Platform) error {
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	childStdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("open child stdin: %w", err)
	}

	if err = cmd.Start(); err != nil {
		return fmt.Errorf("spawn server: %w", err)
	}

	done := make(chan struct{})
	defer close(done)

	// An interrupt must not kill the supervisor: the in-flight server
	// shutdown is allowed to finish, and control returns through the
	// child's own exit.
	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt, syscall.SIGTERM)

	defer signal.Stop(interrupts)

	go func() {
		for {
			select {
			case sig := <-interrupts:
				logger.Info(ctx, "Interrupt received, waiting for the server to exit")

				if !p.IsWindows() && cmd.Process != nil {
					// Forward so the server begins its own shutdown.
					_ = cmd.Process.Signal(sig)
				}
			case <-done:
				return
			}
		}
	}()

	go watchInput(ctx, cfg, input, childStdin, done)

	waitErr := cmd.Wait()
	if waitErr == nil {
		logger.Info(ctx, "Server exited cleanly")
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		code := exitErr.ExitCode()
		if code < 0 {
			// Killed by a signal; there is no code to propagate.
			code = 1
		}

		logger.InfoKV(ctx, "Server exited", "code", code)

		return &ExitError{Code: code}
	}

	return fmt.Errorf("wait for server: %w", waitErr)
}

// watchInput forwards operator input to the child and treats any input as a
// graceful shutdown request, fired at the server's shutdown endpoint without
// waiting for the response.
func watchInput(ctx context.Context, cfg *config.Config, input io.Reader, childStdin io.WriteCloser, done <-chan struct{}) {
	buf := make([]byte, 1024)

	for {
		n, err := input.Read(buf)
		if n > 0 {
			_, _ = childStdin.Write(buf[:n])

			go requestShutdown(ctx, cfg.Port)
		}

		if err != nil {
			// Operator input ended; pass the EOF on to the child.
			_ = childStdin.Close()
			return
		}

		select {
		case <-done:
			return
		default:
		}
	}
}

// requestShutdown fires the shutdown GET. Fire-and-forget: failures are
// logged and the supervisor keeps waiting on the child either way.
func requestShutdown(ctx context.Context, port int) {
	shutdownURL := fmt.Sprintf("http://localhost:%d%s", port, shutdownPath)
	logger.InfoKV(ctx, "Requesting server shutdown", "url", shutdownURL)

	client := &http.Client{Timeout: shutdownRequestTimeout}

	response, err := client.Get(shutdownURL) //nolint:noctx // Deliberately detached from the supervise loop.
	if err != nil {
		logger.Warnf(ctx, "Shutdown request failed: %v", err)
		return
	}

	_ = response.Body.Close()
}
