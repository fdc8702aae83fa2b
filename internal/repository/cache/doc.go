// Package cache persists the last acquired release of a cacheable install
// target.
//
// The FileRepository stores a single Record as JSON on disk and exposes the
// Repository interface the installer service depends on.
package cache
