package compose

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/npcforge/forge-installer/internal/config"
	"github.com/npcforge/forge-installer/internal/logger"
	"github.com/npcforge/forge-installer/internal/runtimeprobe"
)

// errEmptyCommand is returned when no bring-up command is configured.
var errEmptyCommand = errors.New("compose command is empty")

// Result is the outcome of a bring-up attempt.
type Result struct {
	// OK is true when the command exited successfully.
	OK bool `json:"ok"`
	// Stdout is the trimmed standard output of the command.
	Stdout string `json:"stdout"`
	// Stderr is the trimmed standard error of the command.
	Stderr string `json:"stderr"`
	// Error describes the failure, if any.
	Error string `json:"error,omitempty"`
	// ComposeDir is the directory the command ran in, or the searched root.
	ComposeDir string `json:"composeDir"`
}

// Runner runs command in dir and returns its separate outputs.
type Runner func(ctx context.Context, dir string, command []string) (stdout, stderr []byte, err error)

// Orchestrator brings a deployment up from its descriptor directory.
type Orchestrator struct {
	// command is the bring-up command line.
	command []string
	// maxDepth bounds the descriptor search.
	maxDepth int
	// probe checks the container runtime; nil skips the check.
	probe runtimeprobe.Checker
	// run executes the command.
	run Runner
}

// OrchestratorOption configures the orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithRunner replaces the command runner.
func WithRunner(run Runner) OrchestratorOption {
	return func(o *Orchestrator) {
		if run != nil {
			o.run = run
		}
	}
}

// WithRuntimeProbe checks the container runtime before running the command.
func WithRuntimeProbe(probe runtimeprobe.Checker) OrchestratorOption {
	return func(o *Orchestrator) {
		o.probe = probe
	}
}

// NewOrchestrator creates an orchestrator for the configured command.
func NewOrchestrator(cfg config.Compose, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		command:  append([]string(nil), cfg.Command...),
		maxDepth: cfg.MaxDepth,
		run:      runCommand,
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Up re-resolves the descriptor directory under root and runs the bring-up
// command there. A missing descriptor or runtime is reported in the Result;
// an error is returned only when root itself cannot be inspected.
func (o *Orchestrator) Up(ctx context.Context, root string) (*Result, error) {
	ctx = logger.WithName(ctx, "compose")

	exists, err := isDir(root)
	if err != nil {
		return nil, fmt.Errorf("inspect %s: %w", root, err)
	}

	dir, found := "", false
	if exists {
		dir, found = FindDir(root, o.maxDepth)
	}

	if !found {
		logger.WarnKV(ctx, "No compose file found", "root", root)

		return &Result{
			Error:      "no compose file found under " + root,
			ComposeDir: root,
		}, nil
	}

	if len(o.command) == 0 {
		return nil, errEmptyCommand
	}

	if o.probe != nil {
		if status := o.probe.Check(ctx); !status.Available() {
			logger.WarnKV(ctx, "Container runtime is not available", "detail", status.Detail)

			return &Result{
				Error:      "container runtime is not available: " + status.Detail,
				ComposeDir: dir,
			}, nil
		}
	}

	logger.InfoKV(ctx, "Running compose command", "dir", dir, "command", strings.Join(o.command, " "))

	stdout, stderr, runErr := o.run(ctx, dir, o.command)

	result := &Result{
		OK:         runErr == nil,
		Stdout:     strings.TrimSpace(string(stdout)),
		Stderr:     strings.TrimSpace(string(stderr)),
		ComposeDir: dir,
	}

	if runErr != nil {
		result.Error = runErr.Error()
		logger.ErrorKV(ctx, "Compose command failed", "dir", dir, "error", runErr)
	}

	return result, nil
}

func runCommand(ctx context.Context, dir string, command []string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer

	//nolint:gosec // The command comes from the operator's settings.
	cmd := exec.CommandContext(ctx, command[0], command[1:]...)
	cmd.Dir = dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	return stdout.Bytes(), stderr.Bytes(), err
}
