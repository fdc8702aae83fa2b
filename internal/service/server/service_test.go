package server

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/metadata"

	"github.com/npcforge/forge-installer/internal/config"
	"github.com/npcforge/forge-installer/internal/runtimeprobe"
	"github.com/npcforge/forge-installer/internal/service/common"
	"github.com/npcforge/forge-installer/internal/service/installer"
)

type stubProbe struct{}

func (stubProbe) Check(context.Context) runtimeprobe.Status {
	return runtimeprobe.Status{Installed: true, Running: false, Detail: "stub"}
}

// TestResolveListenAddress covers override, config and invalid values.
func TestResolveListenAddress(t *testing.T) {
	t.Parallel()

	got, err := resolveListenAddress("127.0.0.1:50071", "")
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:50071", got)

	got, err = resolveListenAddress("127.0.0.1:50071", ":9090")
	require.NoError(t, err)
	require.Equal(t, ":9090", got)

	_, err = resolveListenAddress("", "")
	require.ErrorIs(t, err, ErrNoServerAddress)

	_, err = resolveListenAddress("localhost", "")
	require.Error(t, err)
}

// TestWithCaller attaches the actor from incoming metadata.
func TestWithCaller(t *testing.T) {
	t.Parallel()

	md := metadata.Pairs(common.HostnameMetadataKey, "desk", common.UsernameMetadataKey, "o.shokin")
	ctx := metadata.NewIncomingContext(context.Background(), md)

	require.NotNil(t, withCaller(ctx, "/forge.installer.v1.Installer/GetPaths"))
	require.NotNil(t, withCaller(context.Background(), "/forge.installer.v1.Installer/GetPaths"))
}

// TestRun_ServesUntilCancelled starts the server, calls it and shuts it down.
func TestRun_ServesUntilCancelled(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	configPath := filepath.Join(dir, config.DefaultConfigFilename)

	cfg := config.Default()
	cfg.BaseDir = filepath.Join(dir, "npcforge")
	require.NoError(t, config.Save(configPath, cfg))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addresses := make(chan net.Addr, 1)
	done := make(chan error, 1)

	go func() {
		done <- Run(ctx, &Options{
			ConfigPath:     configPath,
			ListenAddress:  "127.0.0.1:0",
			Listening:      func(addr net.Addr) { addresses <- addr },
			ServiceOptions: []installer.Option{installer.WithRuntimeProbe(stubProbe{})},
		})
	}()

	var addr net.Addr
	select {
	case addr = <-addresses:
	case err := <-done:
		require.FailNow(t, "server stopped early", "error: %v", err)
	case <-time.After(5 * time.Second):
		require.FailNow(t, "server did not start")
	}

	client, err := common.Dial(ctx, addr.String(),
		common.WithCallTimeout(5*time.Second),
		common.WithActor(&common.Actor{Hostname: "desk", Username: "o.shokin"}))
	require.NoError(t, err)

	defer func() {
		_ = client.Close()
	}()

	paths, err := client.Paths(ctx)
	require.NoError(t, err)
	require.Equal(t, cfg.BaseDir, paths.BaseDir)

	status, err := client.RuntimeStatus(ctx)
	require.NoError(t, err)
	require.False(t, status.Available())

	cancel()

	select {
	case err = <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		require.FailNow(t, "server did not stop")
	}
}
