package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/npcforge/forge-installer/internal/version"
)

// Config holds the installer settings.
type Config struct {
	// BaseDir is the process-wide directory holding both install targets and the JSON documents.
	BaseDir string `yaml:"base_dir"`
	// LogLevel is the minimum level of log messages (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`
	// Host configures access to the release metadata host.
	Host Host `yaml:"host"`
	// API is the release stream of the compose-based "api" target.
	API ReleaseStream `yaml:"api"`
	// Game is the release stream of the standalone "game" target.
	Game ReleaseStream `yaml:"game"`
	// Compose configures descriptor lookup and the bring-up command.
	Compose Compose `yaml:"compose"`
	// Env configures the generated environment file.
	Env Env `yaml:"env"`
	// Download configures artifact streaming.
	Download Download `yaml:"download"`
	// Progress configures progress notifications.
	Progress Progress `yaml:"progress"`
	// Server configures the gRPC endpoint used by the UI shell.
	Server Server `yaml:"server"`
}

// Host describes the release metadata host.
type Host struct {
	// APIURL is the base URL of the host REST API.
	APIURL string `yaml:"api_url"`
	// UserAgent is the identifying client header required by the host.
	UserAgent string `yaml:"user_agent"`
	// Token is an optional bearer token to raise rate limits.
	Token string `yaml:"token,omitempty"`
	// Timeout bounds metadata requests. Artifact downloads are not bounded.
	Timeout time.Duration `yaml:"timeout"`
}

// ReleaseStream identifies a repository publishing releases.
type ReleaseStream struct {
	// Owner is the repository owner on the host.
	Owner string `yaml:"owner"`
	// Repo is the repository name on the host.
	Repo string `yaml:"repo"`
	// Tag pins a release; empty means "latest".
	Tag string `yaml:"tag,omitempty"`
	// PreferredExtension is tried first when picking an uploaded asset.
	PreferredExtension string `yaml:"preferred_extension"`
}

// Compose configures the orchestration step.
type Compose struct {
	// Command is the bring-up command run inside the descriptor directory.
	Command []string `yaml:"command"`
	// MaxDepth bounds the descriptor search below the install directory.
	MaxDepth int `yaml:"max_depth"`
}

// Env configures the environment file merged into the descriptor directory.
type Env struct {
	// FileName is the environment file name.
	FileName string `yaml:"file_name"`
	// SecretKey is the key whose value is injected from the keystore.
	SecretKey string `yaml:"secret_key"`
	// Baseline lists the keys every environment file must contain, with defaults.
	Baseline []EnvEntry `yaml:"baseline"`
}

// EnvEntry is a single baseline key with its default value.
type EnvEntry struct {
	Key   string `yaml:"key"`
	Value string `yaml:"value"`
}

// Download configures the artifact downloader.
type Download struct {
	// MaxRedirects is the maximum number of redirect hops followed per download.
	MaxRedirects int `yaml:"max_redirects"`
}

// Progress configures progress notifications.
type Progress struct {
	// Rate is the maximum number of intermediate events per second.
	Rate float64 `yaml:"rate"`
	// Burst is the number of events allowed at once.
	Burst int `yaml:"burst"`
}

// Server configures the gRPC endpoint.
type Server struct {
	// ListenAddress is the address the gRPC server listens on.
	ListenAddress string `yaml:"listen_address"`
}

const (
	// DefaultConfigFilename is the default filename for installer settings.
	DefaultConfigFilename = "forge-installer.yaml"

	// DefaultHostURL is the release metadata host.
	DefaultHostURL = "https://api.github.com"

	// DefaultTimeout bounds metadata requests.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxDepth is the default descriptor search depth.
	DefaultMaxDepth = 3

	// DefaultMaxRedirects is the default redirect hop bound.
	DefaultMaxRedirects = 10

	// DefaultListenAddress is the default gRPC listen address.
	DefaultListenAddress = "127.0.0.1:50071"

	// DefaultFilePermissions is the permission of every file written by the installer.
	DefaultFilePermissions = 0o600

	// DefaultDirPermissions is the permission of directories created by the installer.
	DefaultDirPermissions = 0o755

	// baseDirName is the directory created under the user config dir.
	baseDirName = "npcforge"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errRepositoryRequired is returned when a release stream misses owner or repo.
	errRepositoryRequired = errors.New("release stream owner and repo must be provided")
	// errGameTagRequired is returned when the standalone stream is not pinned.
	errGameTagRequired = errors.New("game release tag must be provided")
	// errComposeCommandRequired is returned when the bring-up command is empty.
	errComposeCommandRequired = errors.New("compose command must be provided")
	// errInvalidEnvFileName is returned when the environment file name is a path.
	errInvalidEnvFileName = errors.New("env file name must be a plain file name")
)

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Host: Host{
			APIURL:    DefaultHostURL,
			UserAgent: version.UserAgent(),
			Timeout:   DefaultTimeout,
		},
		API: ReleaseStream{
			Owner:              "NPCForge",
			Repo:               "API_AI",
			PreferredExtension: ".zip",
		},
		Game: ReleaseStream{
			Owner:              "NPCForge",
			Repo:               "Plugin",
			Tag:                "v1.1",
			PreferredExtension: ".exe",
		},
		Compose: Compose{
			Command:  []string{"docker", "compose", "up", "-d"},
			MaxDepth: DefaultMaxDepth,
		},
		Env: Env{
			FileName:  ".env",
			SecretKey: "OPENAI_API_KEY",
			Baseline: []EnvEntry{
				{Key: "POSTGRES_USER", Value: "npcforge"},
				{Key: "POSTGRES_PASSWORD", Value: "changeme"},
				{Key: "POSTGRES_DB", Value: "npcforge"},
				{Key: "POSTGRES_HOST", Value: "db"},
				{Key: "POSTGRES_PORT", Value: "5432"},
				{Key: "API_PORT", Value: "8080"},
				{Key: "DATA_DIR", Value: "/app/data"},
				{Key: "OPENAI_API_KEY", Value: ""},
			},
		},
		Download: Download{
			MaxRedirects: DefaultMaxRedirects,
		},
		Progress: Progress{
			Rate:  10,
			Burst: 1,
		},
		Server: Server{
			ListenAddress: DefaultListenAddress,
		},
	}
}

// Load reads settings from path on top of the defaults.
// A missing file is not an error: the defaults are returned.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	cfg := Default()

	contents, err := os.ReadFile(filepath.Clean(path))
	switch {
	case errors.Is(err, os.ErrNotExist):
		// Keep defaults.
	case err != nil:
		return nil, fmt.Errorf("read settings: %w", err)
	default:
		if err = yaml.Unmarshal(contents, cfg); err != nil {
			return nil, fmt.Errorf("unmarshal settings: %w", err)
		}
	}

	if err = Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err = os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks required fields and fills zero values with defaults.
//
//nolint:cyclop // A flat list of checks reads better than helpers here.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.BaseDir == "" {
		dir, err := defaultBaseDir()
		if err != nil {
			return err
		}

		cfg.BaseDir = dir
	}

	if cfg.Host.APIURL == "" {
		cfg.Host.APIURL = DefaultHostURL
	}

	if _, err := url.ParseRequestURI(cfg.Host.APIURL); err != nil {
		return fmt.Errorf("invalid host api url: %w", err)
	}

	if cfg.Host.UserAgent == "" {
		cfg.Host.UserAgent = version.UserAgent()
	}

	if cfg.Host.Timeout <= 0 {
		cfg.Host.Timeout = DefaultTimeout
	}

	for _, stream := range []ReleaseStream{cfg.API, cfg.Game} {
		if stream.Owner == "" || stream.Repo == "" {
			return errRepositoryRequired
		}
	}

	if cfg.Game.Tag == "" {
		return errGameTagRequired
	}

	if len(cfg.Compose.Command) == 0 {
		return errComposeCommandRequired
	}

	if cfg.Compose.MaxDepth <= 0 {
		cfg.Compose.MaxDepth = DefaultMaxDepth
	}

	if cfg.Env.FileName == "" {
		cfg.Env.FileName = ".env"
	}

	if strings.ContainsAny(cfg.Env.FileName, `/\`) {
		return fmt.Errorf("%q: %w", cfg.Env.FileName, errInvalidEnvFileName)
	}

	if cfg.Download.MaxRedirects <= 0 {
		cfg.Download.MaxRedirects = DefaultMaxRedirects
	}

	if cfg.Progress.Burst <= 0 {
		cfg.Progress.Burst = 1
	}

	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}

	return nil
}

// defaultBaseDir returns <user config dir>/npcforge.
func defaultBaseDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}

	return filepath.Join(dir, baseDirName), nil
}
