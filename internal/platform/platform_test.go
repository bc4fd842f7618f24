package platform

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestDetect matches the running process's platform.
func TestDetect(t *testing.T) {
	t.Parallel()

	p := Detect()
	require.Equal(t, runtime.GOOS, string(p.OS))
	require.Equal(t, runtime.GOARCH, string(p.Arch))
}

// TestExecutableExtension checks the Windows naming convention.
func TestExecutableExtension(t *testing.T) {
	t.Parallel()

	require.Equal(t, ".exe", Platform{OS: Windows, Arch: AMD64}.ExecutableExtension())
	require.Equal(t, "", Platform{OS: Linux, Arch: AMD64}.ExecutableExtension())
	require.True(t, Platform{OS: Windows, Arch: AMD64}.IsWindows())
	require.False(t, Platform{OS: Darwin, Arch: ARM64}.IsWindows())
}
