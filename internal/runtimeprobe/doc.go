// Package runtimeprobe reports whether the container runtime is installed and
// its engine is reachable.
//
// Provisioning the runtime is not handled here; callers only use the Status
// to decide whether orchestration can start.
package runtimeprobe
