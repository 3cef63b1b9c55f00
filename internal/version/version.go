// Package version holds the build identifier main.go logs at startup.
package version

// Value is overridden at build time via -ldflags "-X ...version.Value=...".
var Value = "dev"
