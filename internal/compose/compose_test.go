package compose

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/npcforge/forge-installer/internal/config"
	"github.com/npcforge/forge-installer/internal/runtimeprobe"
)

// touch creates a file and its parent directories.
func touch(t *testing.T, path string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("services: {}\n"), 0o600))
}

// TestFindDir_DepthBound finds a descriptor at exactly maxDepth but not one level deeper.
func TestFindDir_DepthBound(t *testing.T) {
	t.Parallel()

	atBound := t.TempDir()
	touch(t, filepath.Join(atBound, "a", "b", "c", "compose.yaml"))

	dir, found := FindDir(atBound, 3)
	require.True(t, found)
	require.Equal(t, filepath.Join(atBound, "a", "b", "c"), dir)

	tooDeep := t.TempDir()
	touch(t, filepath.Join(tooDeep, "a", "b", "c", "d", "compose.yaml"))

	_, found = FindDir(tooDeep, 3)
	require.False(t, found)
}

// TestFindDir_RootFirst returns root when it holds a descriptor itself.
func TestFindDir_RootFirst(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	touch(t, filepath.Join(root, "docker-compose.yml"))
	touch(t, filepath.Join(root, "nested", "compose.yml"))

	dir, found := FindDir(root, 3)
	require.True(t, found)
	require.Equal(t, root, dir)
}

// TestFindDir_SkipsDeniedDirectories ignores dependency caches and build output.
func TestFindDir_SkipsDeniedDirectories(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	for _, denied := range []string{".git", ".github", "node_modules", "dist", "build"} {
		touch(t, filepath.Join(root, denied, "compose.yaml"))
	}

	_, found := FindDir(root, 3)
	require.False(t, found)

	touch(t, filepath.Join(root, "deploy", "docker-compose.yaml"))

	dir, found := FindDir(root, 3)
	require.True(t, found)
	require.Equal(t, filepath.Join(root, "deploy"), dir)
}

// TestFindDir_MissingRoot never fails.
func TestFindDir_MissingRoot(t *testing.T) {
	t.Parallel()

	_, found := FindDir(filepath.Join(t.TempDir(), "absent"), 3)
	require.False(t, found)
}

// TestHasDescriptor ignores directories named like descriptors.
func TestHasDescriptor(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "compose.yaml"), 0o755))
	require.False(t, HasDescriptor(dir))

	touch(t, filepath.Join(dir, "compose.yml"))
	require.True(t, HasDescriptor(dir))
}

type stubProbe runtimeprobe.Status

func (s stubProbe) Check(context.Context) runtimeprobe.Status {
	return runtimeprobe.Status(s)
}

func testComposeConfig() config.Compose {
	return config.Compose{Command: []string{"docker", "compose", "up", "-d"}, MaxDepth: 3}
}

// TestUp_MissingDescriptor reports a structured failure naming the root.
func TestUp_MissingDescriptor(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	o := NewOrchestrator(testComposeConfig(), WithRunner(func(context.Context, string, []string) ([]byte, []byte, error) {
		t.Fatal("command must not run")

		return nil, nil, nil
	}))

	result, err := o.Up(context.Background(), root)
	require.NoError(t, err)
	require.False(t, result.OK)
	require.Equal(t, root, result.ComposeDir)
	require.Contains(t, result.Error, root)

	result, err = o.Up(context.Background(), filepath.Join(root, "missing"))
	require.NoError(t, err)
	require.False(t, result.OK)
}

// TestUp_RunsInDescriptorDirectory runs the command where the descriptor lives.
func TestUp_RunsInDescriptorDirectory(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	touch(t, filepath.Join(root, "API_AI-main", "compose.yaml"))

	var (
		gotDir     string
		gotCommand []string
	)

	runner := func(_ context.Context, dir string, command []string) ([]byte, []byte, error) {
		gotDir, gotCommand = dir, command

		return []byte("started\n"), []byte("  pulling\n"), nil
	}

	o := NewOrchestrator(testComposeConfig(),
		WithRunner(runner),
		WithRuntimeProbe(stubProbe{Installed: true, Running: true}))

	result, err := o.Up(context.Background(), root)
	require.NoError(t, err)
	require.Equal(t, &Result{
		OK:         true,
		Stdout:     "started",
		Stderr:     "pulling",
		ComposeDir: filepath.Join(root, "API_AI-main"),
	}, result)
	require.Equal(t, filepath.Join(root, "API_AI-main"), gotDir)
	require.Equal(t, []string{"docker", "compose", "up", "-d"}, gotCommand)
}

// TestUp_CommandFailure keeps the outputs alongside the error.
func TestUp_CommandFailure(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	touch(t, filepath.Join(root, "compose.yaml"))

	runner := func(context.Context, string, []string) ([]byte, []byte, error) {
		return nil, []byte("port is already allocated"), errors.New("exit status 1")
	}

	result, err := NewOrchestrator(testComposeConfig(), WithRunner(runner)).Up(context.Background(), root)
	require.NoError(t, err)
	require.False(t, result.OK)
	require.Equal(t, "exit status 1", result.Error)
	require.Equal(t, "port is already allocated", result.Stderr)
}

// TestUp_RuntimeUnavailable does not run the command without an engine.
func TestUp_RuntimeUnavailable(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	touch(t, filepath.Join(root, "compose.yaml"))

	o := NewOrchestrator(testComposeConfig(),
		WithRunner(func(context.Context, string, []string) ([]byte, []byte, error) {
			t.Fatal("command must not run")

			return nil, nil, nil
		}),
		WithRuntimeProbe(stubProbe{Installed: true, Detail: "engine stopped"}))

	result, err := o.Up(context.Background(), root)
	require.NoError(t, err)
	require.False(t, result.OK)
	require.Contains(t, result.Error, "engine stopped")
	require.Equal(t, root, result.ComposeDir)
}
