// Package progress carries one-way download notifications from the pipeline
// to whoever watches it.
//
// Producers see only the Sink interface. Throttle rate-limits intermediate
// events, Multi fans out, LogSink writes debug lines and Broadcaster feeds any
// number of subscribers (the gRPC WatchProgress stream) without blocking.
package progress
