// Package envfile creates and merges KEY=VALUE environment files.
//
// Merging never overwrites values the operator edited, except for the
// configured secret key which follows the keystore. Applying the same merge
// twice produces a byte-identical file.
package envfile
