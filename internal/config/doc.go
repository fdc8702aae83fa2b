// Package config defines installer settings and provides helpers to load,
// validate and save them in YAML format.
//
// Settings name the base directory, the two release streams, the compose
// command, the environment-file baseline and transport limits. A missing
// settings file yields the built-in defaults.
package config
