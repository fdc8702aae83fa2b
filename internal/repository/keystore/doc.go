// Package keystore persists the process-wide secret mapping as a flat JSON
// document.
package keystore
