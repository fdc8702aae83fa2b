// Package archive unpacks downloaded artifacts into an install directory.
//
// Archive formats are delegated to the platform tools (unzip or PowerShell
// Expand-Archive for zip, tar for the tar family). Anything else is a
// standalone artifact placed atomically with go-update, verified against the
// host-provided SHA-256 digest when there is one.
package archive
