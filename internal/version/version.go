// Package version provides build-time version information for devsyncd.
//
// Variables are set at build time via ldflags:
//
//	go build -ldflags "-X github.com/rcarver/devsync/internal/version.Version=0.3.0 \
//	                   -X github.com/rcarver/devsync/internal/version.Commit=$(git rev-parse --short HEAD) \
//	                   -X github.com/rcarver/devsync/internal/version.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
//
// devsyncd reports these in its startup log and via the -version flag.
package version

// Build-time variables (set via ldflags)
var (
	// Version is the semantic version (e.g., "0.3.0")
	Version = "dev"

	// Commit is the git commit hash (short form)
	Commit = "unknown"

	// BuildTime is the UTC build timestamp (ISO 8601)
	BuildTime = "unknown"
)

// String returns a formatted version string.
func String() string {
	return Version + " (" + Commit + ") built " + BuildTime
}
