// Package integration runs the installer end to end: a real gRPC server,
// a fake release host and the typed client.
package integration
