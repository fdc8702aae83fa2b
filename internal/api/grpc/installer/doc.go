// Package installer exposes the installer operations over gRPC.
//
// Messages are google.protobuf.Struct values carrying the JSON shape of the
// service results, so the service descriptor is declared here by hand instead
// of being generated from a .proto file.
package installer
