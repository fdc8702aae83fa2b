package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/npcforge/forge-installer/internal/archive"
	"github.com/npcforge/forge-installer/internal/compose"
	"github.com/npcforge/forge-installer/internal/config"
	domain "github.com/npcforge/forge-installer/internal/domain/release"
	"github.com/npcforge/forge-installer/internal/download"
	"github.com/npcforge/forge-installer/internal/envfile"
	"github.com/npcforge/forge-installer/internal/launch"
	"github.com/npcforge/forge-installer/internal/logger"
	"github.com/npcforge/forge-installer/internal/progress"
	"github.com/npcforge/forge-installer/internal/repository/cache"
	"github.com/npcforge/forge-installer/internal/repository/keystore"
	"github.com/npcforge/forge-installer/internal/resolver"
	"github.com/npcforge/forge-installer/internal/runtimeprobe"
)

const (
	// CacheFilename is the cache record of the api target inside the base directory.
	CacheFilename = "api-cache.json"
	// KeystoreFilename is the secret mapping inside the base directory.
	KeystoreFilename = "keystore.json"
)

// errConfigRequired is returned when New is called without settings.
var errConfigRequired = errors.New("installer configuration is required")

// ReleaseSource resolves release metadata. An empty tag means the latest release.
type ReleaseSource interface {
	Get(ctx context.Context, owner, repo, tag string) (*domain.Release, error)
}

// Fetcher streams an artifact to a local file.
type Fetcher interface {
	Download(ctx context.Context, rawURL, dest, step string, sink progress.Sink) error
}

// Unpacker places a downloaded artifact into an install directory.
type Unpacker interface {
	Extract(ctx context.Context, file, destDir string, choice domain.Choice) error
}

// Orchestrator brings the deployment up.
type Orchestrator interface {
	Up(ctx context.Context, root string) (*compose.Result, error)
}

// Launcher opens the standalone artifact.
type Launcher interface {
	Launch(ctx context.Context, dir string) *launch.Result
}

// Paths lists the install directories.
type Paths struct {
	// BaseDir is the process-wide base directory.
	BaseDir string `json:"baseDir"`
	// APIDir is the install directory of the api target.
	APIDir string `json:"apiDir"`
	// GameDir is the install directory of the game target.
	GameDir string `json:"gameDir"`
}

// Dir returns the install directory of target.
func (p Paths) Dir(target domain.Target) string {
	if target == domain.TargetGame {
		return p.GameDir
	}

	return p.APIDir
}

// Service implements the installer operations.
type Service struct {
	// cfg holds validated settings.
	cfg *config.Config
	// paths are the install directories.
	paths Paths

	releases     ReleaseSource
	fetcher      Fetcher
	unpacker     Unpacker
	merger       *envfile.Merger
	cache        cache.Repository
	keys         keystore.Repository
	probe        runtimeprobe.Checker
	orchestrator Orchestrator
	launcher     Launcher

	// broadcaster feeds progress watchers.
	broadcaster *progress.Broadcaster
	// extraSinks receive progress next to the log and the broadcaster.
	extraSinks []progress.Sink

	// locks serialize operations per target.
	locks map[domain.Target]*sync.Mutex
}

// Option replaces a collaborator of the service.
type Option func(*Service)

// WithReleaseSource replaces the release metadata client.
func WithReleaseSource(source ReleaseSource) Option {
	return func(s *Service) { s.releases = source }
}

// WithFetcher replaces the artifact downloader.
func WithFetcher(fetcher Fetcher) Option {
	return func(s *Service) { s.fetcher = fetcher }
}

// WithUnpacker replaces the archive extractor.
func WithUnpacker(unpacker Unpacker) Option {
	return func(s *Service) { s.unpacker = unpacker }
}

// WithCacheRepository replaces the cache record storage.
func WithCacheRepository(repository cache.Repository) Option {
	return func(s *Service) { s.cache = repository }
}

// WithKeyStore replaces the secret storage.
func WithKeyStore(repository keystore.Repository) Option {
	return func(s *Service) { s.keys = repository }
}

// WithRuntimeProbe replaces the container runtime probe.
func WithRuntimeProbe(probe runtimeprobe.Checker) Option {
	return func(s *Service) { s.probe = probe }
}

// WithOrchestrator replaces the compose orchestrator.
func WithOrchestrator(orchestrator Orchestrator) Option {
	return func(s *Service) { s.orchestrator = orchestrator }
}

// WithLauncher replaces the standalone launcher.
func WithLauncher(launcher Launcher) Option {
	return func(s *Service) { s.launcher = launcher }
}

// WithProgressSink adds a progress sink.
func WithProgressSink(sink progress.Sink) Option {
	return func(s *Service) {
		if sink != nil {
			s.extraSinks = append(s.extraSinks, sink)
		}
	}
}

// New creates the install directories and returns a ready service.
// Collaborators not replaced by options are built from cfg.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Service, error) {
	if cfg == nil {
		return nil, errConfigRequired
	}

	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate settings: %w", err)
	}

	base := filepath.Clean(cfg.BaseDir)
	s := &Service{
		cfg: cfg,
		paths: Paths{
			BaseDir: base,
			APIDir:  filepath.Join(base, string(domain.TargetAPI)),
			GameDir: filepath.Join(base, string(domain.TargetGame)),
		},
		broadcaster: progress.NewBroadcaster(),
		locks:       make(map[domain.Target]*sync.Mutex),
	}

	for _, target := range domain.Targets() {
		s.locks[target] = new(sync.Mutex)
	}

	for _, opt := range opts {
		opt(s)
	}

	s.fillDefaults()

	for _, dir := range []string{s.paths.BaseDir, s.paths.APIDir, s.paths.GameDir} {
		if err := os.MkdirAll(dir, config.DefaultDirPermissions); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}

	logger.DebugKV(ctx, "Installer ready", "base_dir", s.paths.BaseDir)

	return s, nil
}

// fillDefaults builds the collaborators left unset by options.
func (s *Service) fillDefaults() {
	cfg := s.cfg

	if s.releases == nil {
		s.releases = resolver.New(cfg.Host.APIURL,
			resolver.WithTimeout(cfg.Host.Timeout),
			resolver.WithUserAgent(cfg.Host.UserAgent),
			resolver.WithToken(cfg.Host.Token))
	}

	if s.fetcher == nil {
		s.fetcher = download.New(
			download.WithUserAgent(cfg.Host.UserAgent),
			download.WithMaxRedirects(cfg.Download.MaxRedirects))
	}

	if s.unpacker == nil {
		s.unpacker = archive.New()
	}

	s.merger = envfile.New(cfg.Env)

	if s.cache == nil {
		s.cache = cache.NewFileRepository(filepath.Join(s.paths.BaseDir, CacheFilename))
	}

	if s.keys == nil {
		s.keys = keystore.NewFileRepository(filepath.Join(s.paths.BaseDir, KeystoreFilename))
	}

	if s.probe == nil {
		s.probe = runtimeprobe.New()
	}

	if s.orchestrator == nil {
		s.orchestrator = compose.NewOrchestrator(cfg.Compose, compose.WithRuntimeProbe(s.probe))
	}

	if s.launcher == nil {
		s.launcher = launch.New()
	}
}

// Paths returns the install directories.
func (s *Service) Paths() Paths {
	return s.paths
}

// Progress returns the broadcaster of download progress.
func (s *Service) Progress() *progress.Broadcaster {
	return s.broadcaster
}

// RuntimeStatus reports whether the container runtime can be used.
func (s *Service) RuntimeStatus(ctx context.Context) runtimeprobe.Status {
	return s.probe.Check(ctx)
}

// lock acquires the per-target mutex and returns its release.
func (s *Service) lock(target domain.Target) func() {
	mu := s.locks[target]
	mu.Lock()

	return mu.Unlock
}

// sink builds the progress sink of a download.
func (s *Service) sink(ctx context.Context) progress.Sink {
	sinks := append([]progress.Sink{progress.LogSink(ctx), s.broadcaster}, s.extraSinks...)

	return progress.Throttle(progress.Multi(sinks...), s.cfg.Progress.Rate, s.cfg.Progress.Burst)
}

// acquire downloads choice into a scratch directory and unpacks it into dest.
func (s *Service) acquire(ctx context.Context, choice domain.Choice, dest, step string) error {
	scratch, err := os.MkdirTemp("", "forge-installer-*")
	if err != nil {
		return fmt.Errorf("create scratch directory: %w", err)
	}

	defer func() {
		_ = os.RemoveAll(scratch)
	}()

	file := filepath.Join(scratch, filepath.Base(choice.Name))

	logger.InfoKV(ctx, "Downloading artifact", "kind", choice.Kind.String(), "name", choice.Name, "url", choice.URL)

	if err = s.fetcher.Download(ctx, choice.URL, file, step, s.sink(ctx)); err != nil {
		return fmt.Errorf("download %s: %w", choice.Name, err)
	}

	if err = s.unpacker.Extract(ctx, file, dest, choice); err != nil {
		return fmt.Errorf("extract %s: %w", choice.Name, err)
	}

	return nil
}
