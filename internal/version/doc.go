// Package version exposes build metadata for forge-installer.
//
// Variables Version, Commit, and BuildTime are injected at build time via
// Go ldflags. UserAgent renders the identifying header sent to the release host.
package version
