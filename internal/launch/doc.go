// Package launch finds the standalone executable inside an install directory
// and opens it with the operating system's default handler.
package launch
