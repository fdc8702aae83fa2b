// Package resolver queries the release host for release metadata and picks
// the artifact to download.
//
// Client talks to the host's "releases" endpoints (latest or a fixed tag) and
// returns domain Release snapshots. PickDownload applies the fixed preference
// order: preferred extension, compressed tar, first asset, source zip,
// source tar.
package resolver
