// Package release contains the core domain types of the installer.
//
// It defines Release (a snapshot of release metadata), Choice (the artifact
// picked for download, a tagged variant over asset, source zip and source
// tar), Target (the two fixed install targets) and Record (the cache record
// persisted after a successful acquisition).
package release
