// Package common holds helpers shared by several services.
//
// It provides the gRPC client of the installer service and detects the
// current system actor (hostname/username) sent along with every call for
// audit logging.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
