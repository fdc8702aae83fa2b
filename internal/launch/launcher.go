package launch

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/npcforge/forge-installer/internal/logger"
	"github.com/npcforge/forge-installer/internal/process"
)

// DefaultMaxDepth bounds the candidate search below the install directory.
const DefaultMaxDepth = 3

// Result is the outcome of a launch attempt.
type Result struct {
	// OK is true when the file was opened or is already running.
	OK bool `json:"ok"`
	// File is the launched candidate.
	File string `json:"file,omitempty"`
	// Error describes the failure, if any.
	Error string `json:"error,omitempty"`
	// AlreadyRunning is true when the launch was skipped because the program runs.
	AlreadyRunning bool `json:"alreadyRunning,omitempty"`
}

// Opener opens file with the default handler of the operating system.
type Opener func(ctx context.Context, goos, file string) error

// Launcher opens the standalone artifact.
type Launcher struct {
	// goos selects the candidate rules and the opener command.
	goos string
	// maxDepth bounds the search.
	maxDepth int
	// open starts the file.
	open Opener
	// processes lists running processes.
	processes process.Lister
}

// Option configures the launcher.
type Option func(*Launcher)

// WithGOOS overrides the platform.
func WithGOOS(goos string) Option {
	return func(l *Launcher) {
		if goos != "" {
			l.goos = goos
		}
	}
}

// WithOpener replaces the file opener.
func WithOpener(open Opener) Option {
	return func(l *Launcher) {
		if open != nil {
			l.open = open
		}
	}
}

// WithProcessLister replaces the process lister used to detect a running program.
func WithProcessLister(list process.Lister) Option {
	return func(l *Launcher) {
		if list != nil {
			l.processes = list
		}
	}
}

// New creates a launcher for the running platform.
func New(opts ...Option) *Launcher {
	l := &Launcher{
		goos:      runtime.GOOS,
		maxDepth:  DefaultMaxDepth,
		open:      openFile,
		processes: process.System,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Launch opens the best candidate found in dir. A missing directory or
// candidate is reported in the Result rather than as an error.
func (l *Launcher) Launch(ctx context.Context, dir string) *Result {
	ctx = logger.WithName(ctx, "launch")

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return &Result{Error: "install directory does not exist: " + dir}
	}

	candidates := Candidates(dir, l.goos, l.maxDepth)
	if len(candidates) == 0 {
		return &Result{Error: "no executable found under " + dir}
	}

	file := candidates[0]

	name, running, err := process.Find(l.processes, programName(file))
	if err != nil {
		logger.DebugKV(ctx, "Could not check running processes", "error", err)
	}

	if running {
		logger.InfoKV(ctx, "Program is already running", "process", name)

		return &Result{OK: true, File: file, AlreadyRunning: true}
	}

	logger.InfoKV(ctx, "Opening program", "file", file)

	if err = l.open(ctx, l.goos, file); err != nil {
		return &Result{File: file, Error: err.Error()}
	}

	return &Result{OK: true, File: file}
}

// Candidates walks dir breadth-first down to maxDepth and returns launchable
// files, platform-specific matches first, then any regular file.
func Candidates(dir, goos string, maxDepth int) []string {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	type entry struct {
		path  string
		depth int
	}

	var (
		preferred []string
		fallback  []string
		queue     = []entry{{path: filepath.Clean(dir)}}
	)

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		entries, err := os.ReadDir(current.path)
		if err != nil {
			continue
		}

		sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

		for _, e := range entries {
			path := filepath.Join(current.path, e.Name())

			if e.IsDir() {
				if goos == "darwin" && strings.HasSuffix(strings.ToLower(e.Name()), ".app") {
					preferred = append(preferred, path)

					continue
				}

				if current.depth < maxDepth {
					queue = append(queue, entry{path: path, depth: current.depth + 1})
				}

				continue
			}

			info, infoErr := e.Info()
			if infoErr != nil || !info.Mode().IsRegular() {
				continue
			}

			if platformMatch(goos, e.Name(), info.Mode()) {
				preferred = append(preferred, path)
			} else {
				fallback = append(fallback, path)
			}
		}
	}

	return append(preferred, fallback...)
}

func platformMatch(goos, name string, mode os.FileMode) bool {
	switch goos {
	case "windows":
		return strings.HasSuffix(strings.ToLower(name), ".exe")
	case "darwin":
		return false
	default:
		return mode.Perm()&0o111 != 0
	}
}

// programName is the process name a launched candidate runs under.
func programName(file string) string {
	name := filepath.Base(file)
	if strings.HasSuffix(strings.ToLower(name), ".app") {
		return name[:len(name)-len(".app")]
	}

	return name
}

// openerCommand returns the command that opens file on goos.
func openerCommand(goos, file string) []string {
	switch goos {
	case "windows":
		return []string{"cmd", "/c", "start", "", file}
	case "darwin":
		return []string{"open", file}
	default:
		return []string{"xdg-open", file}
	}
}

func openFile(ctx context.Context, goos, file string) error {
	command := openerCommand(goos, file)

	//nolint:gosec // The file comes from the install directory.
	output, err := exec.CommandContext(ctx, command[0], command[1:]...).CombinedOutput()
	if err != nil {
		text := strings.TrimSpace(string(output))
		if text == "" {
			return fmt.Errorf("run %s: %w", command[0], err)
		}

		return fmt.Errorf("run %s: %w: %s", command[0], err, text)
	}

	return nil
}
