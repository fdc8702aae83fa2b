package installer

import (
	"context"
	"fmt"

	domain "github.com/npcforge/forge-installer/internal/domain/release"
	"github.com/npcforge/forge-installer/internal/launch"
	"github.com/npcforge/forge-installer/internal/logger"
	"github.com/npcforge/forge-installer/internal/resolver"
)

// StepGameDownload names progress events of the game download.
const StepGameDownload = "game-download"

// GameResult is the outcome of a game download.
type GameResult struct {
	OK           bool   `json:"ok"`
	DestDir      string `json:"destDir"`
	Tag          string `json:"tag"`
	Name         string `json:"name"`
	DownloadKind string `json:"downloadKind"`
}

// DownloadGame downloads the pinned game release. Nothing is cached: every
// call downloads again.
func (s *Service) DownloadGame(ctx context.Context) (*GameResult, error) {
	ctx = logger.WithName(ctx, "game")

	defer s.lock(domain.TargetGame)()

	stream := s.cfg.Game

	rel, err := s.releases.Get(ctx, stream.Owner, stream.Repo, stream.Tag)
	if err != nil {
		return nil, fmt.Errorf("resolve game release: %w", err)
	}

	choice, ok := resolver.PickDownload(rel, stream.PreferredExtension)
	if !ok {
		return nil, fmt.Errorf("game release %s: %w", rel.Tag, resolver.ErrNoDownloadableArtifact)
	}

	if err = s.acquire(ctx, choice, s.paths.GameDir, StepGameDownload); err != nil {
		return nil, err
	}

	logger.InfoKV(ctx, "Game release installed", "tag", rel.Tag, "kind", choice.Kind.String())

	return &GameResult{
		OK:           true,
		DestDir:      s.paths.GameDir,
		Tag:          rel.Tag,
		Name:         rel.Name,
		DownloadKind: choice.Kind.String(),
	}, nil
}

// LaunchGame opens the installed game. Failures are reported in the result.
func (s *Service) LaunchGame(ctx context.Context) *launch.Result {
	ctx = logger.WithName(ctx, "game")

	defer s.lock(domain.TargetGame)()

	return s.launcher.Launch(ctx, s.paths.GameDir)
}
