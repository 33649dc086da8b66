// Package version exposes build version information.
package version

// Version is the codesift release version, overridden at build time via
// -ldflags "-X github.com/Aman-CERP/codesift/pkg/version.Version=...".
var Version = "0.1.0-dev"

// Commit is the git commit the binary was built from.
var Commit = "unknown"
