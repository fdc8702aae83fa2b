// Package installer implements the operations offered to the UI shell:
// acquiring the compose-based "api" target with a release cache, bringing it
// up, downloading and launching the standalone "game" target, and managing
// the secrets injected into the generated environment file.
//
// Transports (the CLI and the gRPC server) call the Service directly.
package installer
