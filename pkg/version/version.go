// Package version exposes build metadata stamped in at link time.
package version

// Set via -ldflags at build time.
var (
	// Version is the semantic release version.
	Version = "dev"

	// Commit is the git commit the binary was built from.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)
