// Package version holds the simon build version.
package version

// Version is set at build time with
// -ldflags "-X github.com/soapbox/simon/internal/version.Version=v1.0.0".
var Version = "dev"
