package launcher

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/webgrid/gridctl/internal/config"
	"github.com/webgrid/gridctl/internal/platform"
	"github.com/webgrid/gridctl/internal/registry"
)

var testPlatform = platform.Platform{OS: platform.Linux, Arch: platform.AMD64}

func skipOnWindows(t *testing.T) {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("test drives a POSIX shell child")
	}
}

// blockedReader blocks until the test ends, standing in for an idle stdin.
func blockedReader(t *testing.T) io.Reader {
	t.Helper()

	r, w := io.Pipe()
	t.Cleanup(func() {
		_ = w.Close()
	})

	return r
}

// TestRunPreconditionMissingServer refuses to spawn anything when the server
// artifact is absent.
func TestRunPreconditionMissingServer(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.OutputDir = t.TempDir()

	err := Run(context.Background(), cfg)
	require.Error(t, err)
	require.ErrorIs(t, err, errServerArtifactMissing)
}

// TestSuperviseExitCodePropagation checks the exact-code contract: a child
// exiting 3 surfaces as ExitError{Code: 3}.
func TestSuperviseExitCodePropagation(t *testing.T) {
	t.Parallel()
	skipOnWindows(t)

	cfg := config.Default()
	cmd := exec.Command("sh", "-c", "exit 3")

	err := supervise(context.Background(), cfg, cmd, blockedReader(t), testPlatform)
	require.Error(t, err)

	var exitErr *ExitError

	require.ErrorAs(t, err, &exitErr)
	require.Equal(t, 3, exitErr.Code)
}

// TestSuperviseCleanExit returns nil for a zero exit.
func TestSuperviseCleanExit(t *testing.T) {
	t.Parallel()
	skipOnWindows(t)

	cfg := config.Default()
	cmd := exec.Command("sh", "-c", "exit 0")

	err := supervise(context.Background(), cfg, cmd, blockedReader(t), testPlatform)
	require.NoError(t, err)
}

// TestSuperviseInputTriggersShutdownRequest: any operator input fires a GET
// at the well-known shutdown endpoint.
func TestSuperviseInputTriggersShutdownRequest(t *testing.T) {
	t.Parallel()
	skipOnWindows(t)

	var hits atomic.Int64

	ts := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/selenium-server/driver/" &&
			r.URL.Query().Get("cmd") == "shutDownSeleniumServer" {
			hits.Add(1)
		}
	}))
	defer ts.Close()

	serverURL, err := url.Parse(ts.URL)
	require.NoError(t, err)

	port, err := strconv.Atoi(serverURL.Port())
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Port = port

	// The child lives long enough for the fire-and-forget GET to land.
	cmd := exec.Command("sh", "-c", "sleep 1")

	err = supervise(context.Background(), cfg, cmd, strings.NewReader("\n"), testPlatform)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return hits.Load() >= 1
	}, 2*time.Second, 10*time.Millisecond)
}

// TestSuperviseSurvivesInterrupt: an interrupt never terminates the
// supervisor. It is forwarded to the child, and the supervisor keeps waiting
// so the child's own exit status still comes back.
//
//nolint:paralleltest // Sends a signal to the whole test process.
func TestSuperviseSurvivesInterrupt(t *testing.T) {
	skipOnWindows(t)

	cfg := config.Default()

	// The child converts the forwarded interrupt into a distinctive exit
	// code; without the interrupt it would run far past the test.
	cmd := exec.Command("sh", "-c", "trap 'exit 7' INT; while :; do sleep 0.1; done")

	go func() {
		// Give supervise time to install its signal handler.
		time.Sleep(300 * time.Millisecond)
		_ = syscall.Kill(os.Getpid(), syscall.SIGINT)
	}()

	err := supervise(context.Background(), cfg, cmd, blockedReader(t), testPlatform)
	require.Error(t, err)

	var exitErr *ExitError

	require.ErrorAs(t, err, &exitErr)
	require.Equal(t, 7, exitErr.Code)
}

// TestServerInvocation verifies command-line construction: jar, port, and a
// driver property only for drivers actually present.
func TestServerInvocation(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.OutputDir = "artifacts"
	cfg.Port = 5555

	server := registry.Server()
	jar := server.ExpectedFilename(cfg.Version(server.Name), testPlatform)

	var chrome registry.Descriptor

	for _, d := range registry.Drivers() {
		if d.Name == config.ChromeDriverArtifact {
			chrome = d
		}
	}

	chromeFile := chrome.ExpectedFilename(cfg.Version(chrome.Name), testPlatform)

	// Server plus an installed chromedriver.
	invocation := serverInvocation(cfg, []string{jar, chromeFile}, testPlatform)
	require.Equal(t, "java", invocation[0])
	require.Contains(t, invocation,
		"-Dwebdriver.chrome.driver="+filepath.Join("artifacts", chromeFile))
	require.Contains(t, invocation, "-jar")
	require.Contains(t, invocation, filepath.Join("artifacts", jar))
	require.Contains(t, invocation, "-port")
	require.Contains(t, invocation, "5555")

	// No drivers installed: no driver properties at all.
	invocation = serverInvocation(cfg, []string{jar}, testPlatform)
	for _, arg := range invocation {
		require.NotContains(t, arg, "-Dwebdriver.")
	}

	// Windows wraps through the command interpreter.
	winPlatform := platform.Platform{OS: platform.Windows, Arch: platform.AMD64}
	winJarListing := []string{server.ExpectedFilename(cfg.Version(server.Name), winPlatform)}
	invocation = serverInvocation(cfg, winJarListing, winPlatform)
	require.Equal(t, "cmd.exe", invocation[0])
	require.Equal(t, "/C", invocation[1])
	require.Equal(t, "java", invocation[2])
}

// TestSuperviseForwardsInputToChild: operator input reaches the child's
// stdin unmodified.
func TestSuperviseForwardsInputToChild(t *testing.T) {
	t.Parallel()
	skipOnWindows(t)

	dir := t.TempDir()
	outFile := filepath.Join(dir, "stdin-copy")

	cfg := config.Default()

	// The child copies its stdin to a file and exits on EOF.
	cmd := exec.Command("sh", "-c", "cat > "+outFile)

	err := supervise(context.Background(), cfg, cmd, strings.NewReader("hello\n"), testPlatform)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		contents, readErr := os.ReadFile(outFile)
		return readErr == nil && string(contents) == "hello\n"
	}, 2*time.Second, 10*time.Millisecond)
}
