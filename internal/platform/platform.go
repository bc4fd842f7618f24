package platform

import "runtime"

// OS is a supported operating system family.
type OS string

// Supported operating systems.
const (
	Linux   OS = "linux"
	Darwin  OS = "darwin"
	Windows OS = "windows"
)

// Arch is a supported CPU architecture.
type Arch string

// Supported architectures.
const (
	AMD64 Arch = "amd64"
	ARM64 Arch = "arm64"
	X86   Arch = "386"
)

// Platform is the host platform tuple consumed by URL resolvers and the
// supervisor. It is detected once at startup and passed by value.
type Platform struct {
	// OS is the operating system family.
	OS OS
	// Arch is the CPU architecture.
	Arch Arch
}

// Detect returns the platform of the running process.
func Detect() Platform {
	return Platform{
		OS:   OS(runtime.GOOS),
		Arch: Arch(runtime.GOARCH),
	}
}

// ExecutableExtension returns ".exe" on Windows and "" elsewhere.
func (p Platform) ExecutableExtension() string {
	if p.OS == Windows {
		return ".exe"
	}

	return ""
}

// IsWindows reports whether the platform requires command interpreter
// wrapping and Windows executable naming.
func (p Platform) IsWindows() bool {
	return p.OS == Windows
}
