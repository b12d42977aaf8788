// Package version holds the build version, set with
// -ldflags "-X github.com/Tobito320/ryxsurf/internal/version.Version=...".
package version

var Version = "dev"
