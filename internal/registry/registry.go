package registry

import (
	"fmt"
	"path"
	"strings"

	"github.com/webgrid/gridctl/internal/config"
	"github.com/webgrid/gridctl/internal/platform"
)

// Descriptor is the static metadata describing one managed artifact: how it
// is named on disk, how any installed version of it is recognized, and how
// its download URL is computed for a given platform. Descriptors are fixed
// configuration; version values come from config at call time.
type Descriptor struct {
	// Name is the human-readable artifact label, also the config key.
	Name string
	// DefaultSelected marks artifacts included when no explicit selection is made.
	DefaultSelected bool
	// FilePrefix identifies any installed version of this artifact on disk.
	// It never embeds a version.
	FilePrefix string
	// ServerProperty is the Java system property through which the server is
	// told where this driver lives. Empty for the server itself.
	ServerProperty string

	filename func(version string, p platform.Platform) string
	url      func(version string, p platform.Platform) (string, bool)
}

// New builds a descriptor from its naming scheme and URL resolver.
func New(
	name string,
	defaultSelected bool,
	filePrefix string,
	filename func(version string, p platform.Platform) string,
	url func(version string, p platform.Platform) (string, bool),
) Descriptor {
	return Descriptor{
		Name:            name,
		DefaultSelected: defaultSelected,
		FilePrefix:      filePrefix,
		filename:        filename,
		url:             url,
	}
}

// ExpectedFilename returns the exact on-disk filename for the configured
// version of this artifact. The version is always embedded in the name so
// that a version bump is visible as a filename change.
func (d Descriptor) ExpectedFilename(version string, p platform.Platform) string {
	return d.filename(version, p)
}

// DownloadURL resolves the artifact's download URL for the given version and
// platform. It returns ok=false when no build exists for the platform.
func (d Descriptor) DownloadURL(version string, p platform.Platform) (string, bool) {
	return d.url(version, p)
}

// DownloadFilename returns the filename the artifact is fetched into:
// the archive's own name for archived artifacts, the final expected
// filename otherwise.
func (d Descriptor) DownloadFilename(version string, p platform.Platform) string {
	u, ok := d.url(version, p)
	if !ok {
		return ""
	}

	if isArchiveName(u) {
		return path.Base(u)
	}

	return d.filename(version, p)
}

// IsArchived reports whether the artifact's download for this platform is an
// archive that requires extraction.
func (d Descriptor) IsArchived(version string, p platform.Platform) bool {
	u, ok := d.url(version, p)

	return ok && isArchiveName(u)
}

// ArchiveExecutable returns the name of the executable entry inside the
// artifact's archive.
func (d Descriptor) ArchiveExecutable(p platform.Platform) string {
	return d.FilePrefix + p.ExecutableExtension()
}

const (
	seleniumReleaseBase = "https://selenium-release.storage.googleapis.com"
	chromeDriverBase    = "https://chromedriver.storage.googleapis.com"
	geckoDriverBase     = "https://github.com/mozilla/geckodriver/releases/download"
)

// All returns every known artifact descriptor. The server descriptor is
// always first.
func All() []Descriptor {
	return []Descriptor{
		{
			Name:            config.ServerArtifact,
			DefaultSelected: true,
			FilePrefix:      "selenium-server-standalone",
			filename: func(v string, _ platform.Platform) string {
				return fmt.Sprintf("selenium-server-standalone-%s.jar", v)
			},
			url: func(v string, _ platform.Platform) (string, bool) {
				// The jar is platform independent.
				return fmt.Sprintf("%s/%s/selenium-server-standalone-%s.jar",
					seleniumReleaseBase, majorMinor(v), v), true
			},
		},
		{
			Name:            config.ChromeDriverArtifact,
			DefaultSelected: true,
			FilePrefix:      "chromedriver",
			ServerProperty:  "webdriver.chrome.driver",
			filename: func(v string, p platform.Platform) string {
				return "chromedriver-" + v + p.ExecutableExtension()
			},
			url: func(v string, p platform.Platform) (string, bool) {
				suffix, ok := chromeDriverSuffix(p)
				if !ok {
					return "", false
				}

				return fmt.Sprintf("%s/%s/chromedriver_%s.zip", chromeDriverBase, v, suffix), true
			},
		},
		{
			Name:            config.GeckoDriverArtifact,
			DefaultSelected: true,
			FilePrefix:      "geckodriver",
			ServerProperty:  "webdriver.gecko.driver",
			filename: func(v string, p platform.Platform) string {
				return "geckodriver-v" + v + p.ExecutableExtension()
			},
			url: func(v string, p platform.Platform) (string, bool) {
				suffix, ok := geckoDriverSuffix(p)
				if !ok {
					return "", false
				}

				ext := ".tar.gz"
				if p.IsWindows() {
					ext = ".zip"
				}

				return fmt.Sprintf("%s/v%s/geckodriver-v%s-%s%s",
					geckoDriverBase, v, v, suffix, ext), true
			},
		},
		{
			Name:           config.IEDriverArtifact,
			FilePrefix:     "IEDriverServer",
			ServerProperty: "webdriver.ie.driver",
			filename: func(v string, p platform.Platform) string {
				return "IEDriverServer-" + v + p.ExecutableExtension()
			},
			url: func(v string, p platform.Platform) (string, bool) {
				// Internet Explorer only ships on Windows.
				if !p.IsWindows() {
					return "", false
				}

				return fmt.Sprintf("%s/%s/IEDriverServer_Win32_%s.zip",
					seleniumReleaseBase, majorMinor(v), v), true
			},
		},
	}
}

// Server returns the server artifact descriptor.
func Server() Descriptor {
	return All()[0]
}

// Drivers returns every descriptor except the server.
func Drivers() []Descriptor {
	return All()[1:]
}

// Selected returns the descriptors chosen by the configuration: the ones
// explicitly selected, or the default set when nothing was selected.
func Selected(cfg *config.Config) []Descriptor {
	all := All()

	explicit := false

	for _, d := range all {
		if cfg.Selected[d.Name] {
			explicit = true
			break
		}
	}

	result := make([]Descriptor, 0, len(all))

	for _, d := range all {
		if explicit && cfg.Selected[d.Name] || !explicit && d.DefaultSelected {
			result = append(result, d)
		}
	}

	return result
}

// majorMinor reduces "3.141.59" to "3.141" for release folder paths.
func majorMinor(version string) string {
	parts := strings.Split(version, ".")
	if len(parts) <= 2 {
		return version
	}

	return strings.Join(parts[:2], ".")
}

func chromeDriverSuffix(p platform.Platform) (string, bool) {
	switch p.OS {
	case platform.Linux:
		if p.Arch == platform.AMD64 {
			return "linux64", true
		}

		return "", false
	case platform.Darwin:
		if p.Arch == platform.ARM64 {
			return "mac_arm64", true
		}

		return "mac64", true
	case platform.Windows:
		return "win32", true
	default:
		return "", false
	}
}

func geckoDriverSuffix(p platform.Platform) (string, bool) {
	switch p.OS {
	case platform.Linux:
		if p.Arch == platform.ARM64 {
			return "linux-aarch64", true
		}

		return "linux64", true
	case platform.Darwin:
		if p.Arch == platform.ARM64 {
			return "macos-aarch64", true
		}

		return "macos", true
	case platform.Windows:
		if p.Arch == platform.X86 {
			return "win32", true
		}

		return "win64", true
	default:
		return "", false
	}
}

func isArchiveName(name string) bool {
	return strings.HasSuffix(name, ".zip") ||
		strings.HasSuffix(name, ".tar.gz") ||
		strings.HasSuffix(name, ".tgz")
}
