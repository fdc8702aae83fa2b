package archive

import (
	"context"
	"crypto"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	goupdate "github.com/doitdistributed/go-update"

	"github.com/npcforge/forge-installer/internal/config"
	domain "github.com/npcforge/forge-installer/internal/domain/release"
	"github.com/npcforge/forge-installer/internal/logger"

	// Register SHA-256 for digest verification.
	_ "crypto/sha256"
)

const (
	// StandaloneFileMode is the mode of placed standalone artifacts.
	StandaloneFileMode os.FileMode = 0o755

	// sha256Prefix is the algorithm prefix of host digests we can verify.
	sha256Prefix = "sha256:"

	// maxToolOutput bounds the diagnostic output kept from a failed tool.
	maxToolOutput = 2048
)

// errInvalidDigest is returned when a sha256 digest is not valid hex.
var errInvalidDigest = errors.New("invalid sha256 digest")

// ExtractionError is returned when an extraction tool exits with a failure.
type ExtractionError struct {
	// Tool is the executable that failed.
	Tool string
	// Output is the combined diagnostic output of the tool.
	Output string
	// Err is the process error.
	Err error
}

// Error implements error.
func (e *ExtractionError) Error() string {
	if e.Output == "" {
		return fmt.Sprintf("%s failed: %v", e.Tool, e.Err)
	}

	return fmt.Sprintf("%s failed: %v: %s", e.Tool, e.Err, e.Output)
}

// Unwrap returns the process error.
func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// CommandRunner runs an external tool and returns its combined output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Extractor unpacks artifacts.
type Extractor struct {
	// goos selects the platform tools.
	goos string
	// run executes external tools.
	run CommandRunner
}

// Option configures the extractor.
type Option func(*Extractor)

// WithCommandRunner replaces the external tool runner.
func WithCommandRunner(run CommandRunner) Option {
	return func(e *Extractor) {
		if run != nil {
			e.run = run
		}
	}
}

// WithGOOS overrides the platform used to pick tools.
func WithGOOS(goos string) Option {
	return func(e *Extractor) {
		if goos != "" {
			e.goos = goos
		}
	}
}

// New creates an extractor for the running platform.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		goos: runtime.GOOS,
		run:  runCommand,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Extract unpacks file into destDir according to the choice and removes file
// afterwards. Standalone artifacts end up at destDir/<choice name>.
func (e *Extractor) Extract(ctx context.Context, file, destDir string, choice domain.Choice) error {
	if err := os.MkdirAll(destDir, config.DefaultDirPermissions); err != nil {
		return fmt.Errorf("create %s: %w", destDir, err)
	}

	format := choice.Format()
	logger.InfoKV(ctx, "Extracting artifact", "file", file, "dest", destDir, "format", format.String())

	var err error

	switch format {
	case domain.FormatZip:
		err = e.extractZip(ctx, file, destDir)
	case domain.FormatTar:
		err = e.extractTar(ctx, file, destDir)
	default:
		err = placeStandalone(file, destDir, choice)
	}

	if err != nil {
		return err
	}

	// Best-effort cleanup.
	if removeErr := os.Remove(file); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
		logger.DebugKV(ctx, "Could not remove downloaded file", "file", file, "error", removeErr)
	}

	return nil
}

func (e *Extractor) extractZip(ctx context.Context, file, destDir string) error {
	if e.goos == "windows" {
		script := fmt.Sprintf("Expand-Archive -Force -LiteralPath %s -DestinationPath %s",
			powershellQuote(file), powershellQuote(destDir))

		return e.tool(ctx, "powershell", "-NoProfile", "-NonInteractive", "-Command", script)
	}

	return e.tool(ctx, "unzip", "-o", "-q", file, "-d", destDir)
}

func (e *Extractor) extractTar(ctx context.Context, file, destDir string) error {
	return e.tool(ctx, "tar", "-xf", file, "-C", destDir)
}

// tool runs an extraction tool and converts failures into ExtractionError.
func (e *Extractor) tool(ctx context.Context, name string, args ...string) error {
	output, err := e.run(ctx, name, args...)
	if err == nil {
		return nil
	}

	text := strings.TrimSpace(string(output))
	if len(text) > maxToolOutput {
		text = text[:maxToolOutput]
	}

	return &ExtractionError{Tool: name, Output: text, Err: err}
}

// placeStandalone atomically puts the artifact at destDir/<name>.
func placeStandalone(file, destDir string, choice domain.Choice) error {
	checksum, err := parseDigest(choice.Digest)
	if err != nil {
		return err
	}

	source, err := os.Open(filepath.Clean(file))
	if err != nil {
		return fmt.Errorf("open %s: %w", file, err)
	}

	defer func() {
		_ = source.Close()
	}()

	target := filepath.Join(destDir, filepath.Base(choice.Name))

	// go-update renames the current target aside, so one must exist.
	created := false

	if _, err = os.Stat(target); errors.Is(err, os.ErrNotExist) {
		placeholder, createErr := os.OpenFile(target, os.O_CREATE|os.O_WRONLY, StandaloneFileMode)
		if createErr != nil {
			return fmt.Errorf("create %s: %w", target, createErr)
		}

		_ = placeholder.Close()
		created = true
	}

	options := goupdate.Options{
		TargetPath: target,
		TargetMode: StandaloneFileMode,
		Checksum:   checksum,
		Hash:       crypto.SHA256,
	}

	if err = goupdate.Apply(source, options); err != nil {
		if created {
			_ = os.Remove(target)
		}

		return fmt.Errorf("place %s: %w", target, err)
	}

	return nil
}

// parseDigest decodes a "sha256:<hex>" digest. Other algorithms are not verified.
func parseDigest(digest string) ([]byte, error) {
	digest = strings.TrimSpace(digest)
	if !strings.HasPrefix(strings.ToLower(digest), sha256Prefix) {
		return nil, nil
	}

	checksum, err := hex.DecodeString(digest[len(sha256Prefix):])
	if err != nil || len(checksum) != crypto.SHA256.Size() {
		return nil, fmt.Errorf("%q: %w", digest, errInvalidDigest)
	}

	return checksum, nil
}

func powershellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}
