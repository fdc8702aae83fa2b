package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/npcforge/forge-installer/internal/archive"
	"github.com/npcforge/forge-installer/internal/compose"
	domain "github.com/npcforge/forge-installer/internal/domain/release"
	"github.com/npcforge/forge-installer/internal/logger"
	"github.com/npcforge/forge-installer/internal/repository/cache"
	"github.com/npcforge/forge-installer/internal/repository/keystore"
	"github.com/npcforge/forge-installer/internal/resolver"
)

const (
	// StepAPIDownload names progress events of the api download.
	StepAPIDownload = "api-download"
	// stagingPattern names the per-install staging directory in the base directory.
	stagingPattern = ".api-staging-*"
)

// APIResult is the outcome of an api acquisition.
type APIResult struct {
	OK           bool   `json:"ok"`
	CacheHit     bool   `json:"cacheHit"`
	DestDir      string `json:"destDir"`
	ComposeDir   string `json:"composeDir"`
	EnvPath      string `json:"envPath"`
	Tag          string `json:"tag"`
	Name         string `json:"name"`
	DownloadKind string `json:"downloadKind,omitempty"`
}

// ResolveAndDownloadLatest makes sure the latest api release is installed.
// Unless force is set, a cached install of the same tag whose descriptor
// directory is still valid is reused without downloading anything; the
// environment file is merged again in both cases.
func (s *Service) ResolveAndDownloadLatest(ctx context.Context, force bool) (*APIResult, error) {
	ctx = logger.WithName(ctx, "api")

	defer s.lock(domain.TargetAPI)()

	stream := s.cfg.API

	rel, err := s.releases.Get(ctx, stream.Owner, stream.Repo, stream.Tag)
	if err != nil {
		return nil, fmt.Errorf("resolve api release: %w", err)
	}

	record := s.loadRecord(ctx)

	if !force {
		if result, hit := s.reuse(ctx, rel, record); hit {
			return result, nil
		}
	}

	logTransition(ctx, record, rel.Tag, force)

	choice, ok := resolver.PickDownload(rel, stream.PreferredExtension)
	if !ok {
		return nil, fmt.Errorf("api release %s: %w", rel.Tag, resolver.ErrNoDownloadableArtifact)
	}

	composeDir, err := s.installAPI(ctx, choice)
	if err != nil {
		return nil, err
	}

	envPath, err := s.merger.Ensure(composeDir, s.secret(ctx))
	if err != nil {
		return nil, fmt.Errorf("ensure env file: %w", err)
	}

	newRecord := &domain.Record{Tag: rel.Tag, Name: rel.Name, ComposeDir: composeDir}
	if err = s.cache.Save(ctx, newRecord); err != nil {
		return nil, fmt.Errorf("save cache record: %w", err)
	}

	logger.InfoKV(ctx, "API release installed", "tag", rel.Tag, "compose_dir", composeDir)

	return &APIResult{
		OK:           true,
		DestDir:      s.paths.APIDir,
		ComposeDir:   composeDir,
		EnvPath:      envPath,
		Tag:          rel.Tag,
		Name:         rel.Name,
		DownloadKind: choice.Kind.String(),
	}, nil
}

// installAPI unpacks choice into a staging directory, locates the descriptor
// of this release there and moves the tree over the install directory. Trees
// of earlier releases stay in place but are never picked.
func (s *Service) installAPI(ctx context.Context, choice domain.Choice) (string, error) {
	staging, err := os.MkdirTemp(s.paths.BaseDir, stagingPattern)
	if err != nil {
		return "", fmt.Errorf("create staging directory: %w", err)
	}

	defer func() {
		_ = os.RemoveAll(staging)
	}()

	if err = s.acquire(ctx, choice, staging, StepAPIDownload); err != nil {
		return "", err
	}

	relative := "."

	if found, ok := compose.FindDir(staging, s.cfg.Compose.MaxDepth); ok {
		if relative, err = filepath.Rel(staging, found); err != nil {
			return "", fmt.Errorf("locate compose file: %w", err)
		}
	} else {
		logger.WarnKV(ctx, "No compose file found after extraction, using install directory", "dir", s.paths.APIDir)
	}

	if err = archive.Overlay(staging, s.paths.APIDir); err != nil {
		return "", fmt.Errorf("install %s: %w", choice.Name, err)
	}

	return filepath.Join(s.paths.APIDir, relative), nil
}

// reuse returns a cache hit when record matches rel and its descriptor
// directory is still valid.
func (s *Service) reuse(ctx context.Context, rel *domain.Release, record *domain.Record) (*APIResult, bool) {
	if record == nil || record.Tag != rel.Tag {
		return nil, false
	}

	composeDir := record.ComposeDir
	if composeDir == "" || !compose.HasDescriptor(composeDir) {
		dir, found := compose.FindDir(s.paths.APIDir, s.cfg.Compose.MaxDepth)
		if !found {
			logger.InfoKV(ctx, "Cached install is stale, downloading again", "tag", record.Tag)

			return nil, false
		}

		composeDir = dir
	}

	envPath, err := s.merger.Ensure(composeDir, s.secret(ctx))
	if err != nil {
		// The full sequence below rewrites the tree and tries again.
		logger.WarnKV(ctx, "Could not merge env file of cached install", "error", err)

		return nil, false
	}

	if composeDir != record.ComposeDir {
		updated := record.Clone()
		updated.ComposeDir = composeDir

		if err = s.cache.Save(ctx, updated); err != nil {
			logger.WarnKV(ctx, "Could not update cache record", "error", err)
		}
	}

	logger.InfoKV(ctx, "API release already installed", "tag", rel.Tag, "compose_dir", composeDir)

	return &APIResult{
		OK:         true,
		CacheHit:   true,
		DestDir:    s.paths.APIDir,
		ComposeDir: composeDir,
		EnvPath:    envPath,
		Tag:        rel.Tag,
		Name:       record.Name,
	}, true
}

// loadRecord returns the cache record, or nil when it is missing or unreadable.
func (s *Service) loadRecord(ctx context.Context) *domain.Record {
	record, err := s.cache.Load(ctx)
	switch {
	case err == nil:
		return record
	case errors.Is(err, cache.ErrNotFound):
		return nil
	default:
		logger.WarnKV(ctx, "Ignoring unreadable cache record", "error", err)

		return nil
	}
}

// secret returns the keystore value injected into the env file, or "".
func (s *Service) secret(ctx context.Context) string {
	key := s.merger.SecretKey()
	if key == "" {
		return ""
	}

	value, err := s.keys.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, keystore.ErrNotFound) {
			logger.WarnKV(ctx, "Could not read secret", "key", key, "error", err)
		}

		return ""
	}

	return value
}

// logTransition explains why a download happens.
func logTransition(ctx context.Context, record *domain.Record, tag string, force bool) {
	if record == nil {
		logger.InfoKV(ctx, "Installing API release", "tag", tag)

		return
	}

	cmp, ok := resolver.CompareTags(tag, record.Tag)

	switch {
	case !ok:
		logger.InfoKV(ctx, "Replacing API release", "from", record.Tag, "to", tag)
	case cmp > 0:
		logger.InfoKV(ctx, "Upgrading API release", "from", record.Tag, "to", tag)
	case cmp < 0:
		logger.WarnKV(ctx, "Latest API release is older than the installed one, downgrading", "from", record.Tag, "to", tag)
	default:
		logger.InfoKV(ctx, "Reinstalling API release", "tag", tag, "forced", force)
	}
}

// ComposeUp brings the api deployment up from its re-resolved descriptor directory.
func (s *Service) ComposeUp(ctx context.Context) (*compose.Result, error) {
	ctx = logger.WithName(ctx, "api")

	defer s.lock(domain.TargetAPI)()

	// The recorded directory belongs to the installed tag; older trees may
	// still sit next to it.
	root := s.paths.APIDir
	if record := s.loadRecord(ctx); record != nil && record.ComposeDir != "" && compose.HasDescriptor(record.ComposeDir) {
		root = record.ComposeDir
	}

	result, err := s.orchestrator.Up(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("compose up: %w", err)
	}

	return result, nil
}
