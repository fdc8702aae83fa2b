// Package client opens the installer for the command line.
//
// Commands run the installer in-process by default. When a server address
// is given they call a running installer server over gRPC instead, so the
// same commands drive a local install or a remote one.
package client
