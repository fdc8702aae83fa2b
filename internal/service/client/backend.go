package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/npcforge/forge-installer/internal/compose"
	"github.com/npcforge/forge-installer/internal/config"
	"github.com/npcforge/forge-installer/internal/launch"
	"github.com/npcforge/forge-installer/internal/logger"
	"github.com/npcforge/forge-installer/internal/runtimeprobe"
	"github.com/npcforge/forge-installer/internal/service/common"
	"github.com/npcforge/forge-installer/internal/service/installer"
)

// Options configures how commands reach the installer.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string
	// ServerAddress selects a remote installer server when not empty.
	ServerAddress string
	// BaseDir overrides the base directory from the settings.
	BaseDir string
}

// Backend is the set of installer operations available to commands.
type Backend interface {
	ResolveAndDownloadLatest(ctx context.Context, force bool) (*installer.APIResult, error)
	ComposeUp(ctx context.Context) (*compose.Result, error)
	DownloadGame(ctx context.Context) (*installer.GameResult, error)
	LaunchGame(ctx context.Context) (*launch.Result, error)
	SetSecret(ctx context.Context, key, value string) error
	GetSecret(ctx context.Context, key string) (*installer.SecretResult, error)
	Secrets(ctx context.Context) (map[string]string, error)
	Paths(ctx context.Context) (installer.Paths, error)
	RuntimeStatus(ctx context.Context) (runtimeprobe.Status, error)
	Close() error
}

var (
	_ Backend = (*common.Client)(nil)
	_ Backend = (*local)(nil)
)

// Open returns a remote backend when a server address is set, a local one otherwise.
func Open(ctx context.Context, opts *Options) (Backend, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	if opts.BaseDir != "" {
		cfg.BaseDir = opts.BaseDir
	}

	if opts.ServerAddress == "" {
		service, newErr := installer.New(ctx, cfg)
		if newErr != nil {
			return nil, newErr
		}

		return &local{service: service}, nil
	}

	return Remote(ctx, opts.ServerAddress)
}

// Remote connects to an installer server. Calls carry no timeout since an
// install streams large artifacts.
func Remote(ctx context.Context, address string) (*common.Client, error) {
	options := make([]common.Option, 0, 1)

	actor, err := common.DetectActor()
	if err != nil {
		logger.WarnKV(ctx, "Could not identify the caller", "error", err)
	} else {
		options = append(options, common.WithActor(actor))
	}

	client, err := common.Dial(ctx, address, options...)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", address, err)
	}

	logger.DebugKV(ctx, "Using installer server", "server_address", address)

	return client, nil
}

// local adapts the in-process service to Backend.
type local struct {
	service *installer.Service
}

func (l *local) ResolveAndDownloadLatest(ctx context.Context, force bool) (*installer.APIResult, error) {
	return l.service.ResolveAndDownloadLatest(ctx, force)
}

func (l *local) ComposeUp(ctx context.Context) (*compose.Result, error) {
	return l.service.ComposeUp(ctx)
}

func (l *local) DownloadGame(ctx context.Context) (*installer.GameResult, error) {
	return l.service.DownloadGame(ctx)
}

func (l *local) LaunchGame(ctx context.Context) (*launch.Result, error) {
	return l.service.LaunchGame(ctx), nil
}

func (l *local) SetSecret(ctx context.Context, key, value string) error {
	return l.service.SetSecret(ctx, key, value)
}

func (l *local) GetSecret(ctx context.Context, key string) (*installer.SecretResult, error) {
	return l.service.GetSecret(ctx, key)
}

func (l *local) Secrets(ctx context.Context) (map[string]string, error) {
	return l.service.Secrets(ctx)
}

func (l *local) Paths(context.Context) (installer.Paths, error) {
	return l.service.Paths(), nil
}

func (l *local) RuntimeStatus(ctx context.Context) (runtimeprobe.Status, error) {
	return l.service.RuntimeStatus(ctx), nil
}

func (l *local) Close() error {
	return nil
}

// Print writes v as indented JSON followed by a newline.
func Print(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("print result: %w", err)
	}

	return nil
}
