package runtimeprobe

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/docker/docker/client"

	"github.com/npcforge/forge-installer/internal/logger"
	"github.com/npcforge/forge-installer/internal/process"
)

// defaultPingTimeout bounds the engine ping.
const defaultPingTimeout = 5 * time.Second

// DaemonProcessNames are executables that indicate a started engine.
//
//nolint:gochecknoglobals // Read-only list.
var DaemonProcessNames = []string{"dockerd", "Docker Desktop", "com.docker.backend"}

// Status describes the container runtime.
type Status struct {
	// Installed is true when the CLI is on PATH.
	Installed bool `json:"installed"`
	// Running is true when the engine answered a ping.
	Running bool `json:"running"`
	// Detail explains the status for humans.
	Detail string `json:"detail"`
}

// Available reports whether orchestration can run.
func (s Status) Available() bool {
	return s.Installed && s.Running
}

// Checker reports the runtime status.
type Checker interface {
	Check(ctx context.Context) Status
}

// PingFunc asks the engine whether it is up.
type PingFunc func(ctx context.Context) error

// Probe checks the docker CLI, engine and daemon processes.
type Probe struct {
	// lookPath finds the CLI executable.
	lookPath func(file string) (string, error)
	// ping queries the engine API.
	ping PingFunc
	// processes lists running processes.
	processes process.Lister
	// pingTimeout bounds ping.
	pingTimeout time.Duration
}

// Option configures the probe.
type Option func(*Probe)

// WithLookPath replaces PATH lookup.
func WithLookPath(lookPath func(file string) (string, error)) Option {
	return func(p *Probe) {
		if lookPath != nil {
			p.lookPath = lookPath
		}
	}
}

// WithPing replaces the engine ping.
func WithPing(ping PingFunc) Option {
	return func(p *Probe) {
		if ping != nil {
			p.ping = ping
		}
	}
}

// WithProcessLister replaces the process lister.
func WithProcessLister(list process.Lister) Option {
	return func(p *Probe) {
		if list != nil {
			p.processes = list
		}
	}
}

// New creates a probe talking to the engine configured by the environment
// (DOCKER_HOST and friends).
func New(opts ...Option) *Probe {
	p := &Probe{
		lookPath:    exec.LookPath,
		ping:        pingEngine,
		processes:   process.System,
		pingTimeout: defaultPingTimeout,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Check implements Checker.
func (p *Probe) Check(ctx context.Context) Status {
	ctx = logger.WithName(ctx, "runtimeprobe")

	path, err := p.lookPath("docker")
	if err != nil {
		logger.DebugKV(ctx, "Docker CLI not found", "error", err)

		return Status{Detail: "docker is not installed or not on PATH"}
	}

	pingCtx, cancel := context.WithTimeout(ctx, p.pingTimeout)
	defer cancel()

	pingErr := p.ping(pingCtx)
	if pingErr == nil {
		return Status{Installed: true, Running: true, Detail: "docker engine is running (" + path + ")"}
	}

	logger.DebugKV(ctx, "Docker engine ping failed", "error", pingErr)

	name, found, err := process.Find(p.processes, DaemonProcessNames...)
	if err != nil {
		logger.DebugKV(ctx, "Could not list processes", "error", err)
	}

	if found {
		return Status{
			Installed: true,
			Detail:    fmt.Sprintf("%s is running but the engine does not answer yet: %v", name, pingErr),
		}
	}

	return Status{
		Installed: true,
		Detail:    fmt.Sprintf("docker is installed but the engine is not running: %v", pingErr),
	}
}

// pingEngine pings the engine with a client built from the environment.
func pingEngine(ctx context.Context) error {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return fmt.Errorf("create docker client: %w", err)
	}

	defer func() {
		_ = cli.Close()
	}()

	if _, err = cli.Ping(ctx); err != nil {
		return fmt.Errorf("ping docker engine: %w", err)
	}

	return nil
}
