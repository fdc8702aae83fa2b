// Package download streams release artifacts to local files.
//
// Redirects are followed by hand so that every hop gets an Accept header
// matching the kind of URL it points at (source zip, source tar or binary
// asset). The number of hops is bounded. A failed download never leaves a
// partial file behind.
package download
