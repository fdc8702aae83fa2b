package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	domain "github.com/npcforge/forge-installer/internal/domain/release"
)

// writeTarGz creates a .tar.gz archive with the provided files.
func writeTarGz(t *testing.T, path string, files map[string]string) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)

	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)

	for name, body := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     name,
			Mode:     0o644,
			Size:     int64(len(body)),
			Typeflag: tar.TypeReg,
		}))
		_, err = tw.Write([]byte(body))
		require.NoError(t, err)
	}

	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
}

// writeZip creates a .zip archive with the provided files.
func writeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)

	zw := zip.NewWriter(f)

	for name, body := range files {
		w, createErr := zw.Create(name)
		require.NoError(t, createErr)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}

	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

// TestExtract_Tar unpacks a tar.gz asset with the tar tool and removes the download.
func TestExtract_Tar(t *testing.T) {
	t.Parallel()

	if _, err := exec.LookPath("tar"); err != nil {
		t.Skip("tar is not available")
	}

	dir := t.TempDir()
	file := filepath.Join(dir, "app.tar.gz")
	dest := filepath.Join(dir, "api")

	writeTarGz(t, file, map[string]string{"app/deploy/compose.yaml": "services: {}\n"})

	choice := domain.Choice{Kind: domain.KindAsset, Name: "app.tar.gz"}
	require.NoError(t, New().Extract(context.Background(), file, dest, choice))

	got, err := os.ReadFile(filepath.Join(dest, "app", "deploy", "compose.yaml"))
	require.NoError(t, err)
	require.Equal(t, "services: {}\n", string(got))

	_, err = os.Stat(file)
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestExtract_SourceZip unpacks a source snapshot with unzip.
func TestExtract_SourceZip(t *testing.T) {
	t.Parallel()

	if _, err := exec.LookPath("unzip"); err != nil {
		t.Skip("unzip is not available")
	}

	dir := t.TempDir()
	file := filepath.Join(dir, "v1.0.0.zip")
	dest := filepath.Join(dir, "api")

	writeZip(t, file, map[string]string{"NPCForge-API_AI-abc123/docker-compose.yml": "version: '3'\n"})

	choice := domain.Choice{Kind: domain.KindSourceZip, Name: "v1.0.0.zip"}
	require.NoError(t, New().Extract(context.Background(), file, dest, choice))

	_, err := os.Stat(filepath.Join(dest, "NPCForge-API_AI-abc123", "docker-compose.yml"))
	require.NoError(t, err)
}

// TestExtract_ToolFailure surfaces the tool output and keeps the download.
func TestExtract_ToolFailure(t *testing.T) {
	t.Parallel()

	errExit := errors.New("exit status 9")

	var gotName string

	var gotArgs []string

	runner := func(_ context.Context, name string, args ...string) ([]byte, error) {
		gotName = name
		gotArgs = args

		return []byte("  End-of-central-directory signature not found.\n"), errExit
	}

	dir := t.TempDir()
	file := filepath.Join(dir, "broken.zip")
	require.NoError(t, os.WriteFile(file, []byte("not a zip"), 0o600))

	choice := domain.Choice{Kind: domain.KindAsset, Name: "broken.zip"}
	err := New(WithCommandRunner(runner), WithGOOS("linux")).
		Extract(context.Background(), file, filepath.Join(dir, "api"), choice)

	var extractionErr *ExtractionError
	require.True(t, errors.As(err, &extractionErr))
	require.Equal(t, "unzip", extractionErr.Tool)
	require.Equal(t, "End-of-central-directory signature not found.", extractionErr.Output)
	require.ErrorIs(t, err, errExit)
	require.Equal(t, "unzip", gotName)
	require.Contains(t, gotArgs, file)

	_, err = os.Stat(file)
	require.NoError(t, err)
}

// TestExtract_WindowsZipUsesPowerShell checks tool selection and quoting on Windows.
func TestExtract_WindowsZipUsesPowerShell(t *testing.T) {
	t.Parallel()

	var gotName string

	var gotArgs []string

	runner := func(_ context.Context, name string, args ...string) ([]byte, error) {
		gotName = name
		gotArgs = args

		return nil, nil
	}

	dir := t.TempDir()
	file := filepath.Join(dir, "it's.zip")
	require.NoError(t, os.WriteFile(file, []byte("zip"), 0o600))

	choice := domain.Choice{Kind: domain.KindSourceZip, Name: "it's.zip"}
	require.NoError(t, New(WithCommandRunner(runner), WithGOOS("windows")).
		Extract(context.Background(), file, filepath.Join(dir, "api"), choice))

	require.Equal(t, "powershell", gotName)
	require.Contains(t, gotArgs[len(gotArgs)-1], "Expand-Archive -Force -LiteralPath '")
	require.Contains(t, gotArgs[len(gotArgs)-1], "it''s.zip'")
}

// TestExtract_StandaloneVerifiesDigest places a standalone artifact and checks its digest.
func TestExtract_StandaloneVerifiesDigest(t *testing.T) {
	t.Parallel()

	body := []byte("MZ-fake-executable")
	sum := sha256.Sum256(body)

	dir := t.TempDir()
	file := filepath.Join(dir, "download-Game.exe")
	dest := filepath.Join(dir, "game")
	require.NoError(t, os.WriteFile(file, body, 0o600))

	choice := domain.Choice{
		Kind:   domain.KindAsset,
		Name:   "Game.exe",
		Digest: "sha256:" + hex.EncodeToString(sum[:]),
	}
	require.NoError(t, New().Extract(context.Background(), file, dest, choice))

	got, err := os.ReadFile(filepath.Join(dest, "Game.exe"))
	require.NoError(t, err)
	require.Equal(t, body, got)

	_, err = os.Stat(file)
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestExtract_StandaloneDigestMismatch refuses a corrupted artifact and leaves nothing behind.
func TestExtract_StandaloneDigestMismatch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "Game.exe")
	dest := filepath.Join(dir, "game")
	require.NoError(t, os.WriteFile(file, []byte("tampered"), 0o600))

	sum := sha256.Sum256([]byte("original"))
	choice := domain.Choice{
		Kind:   domain.KindAsset,
		Name:   "Game.exe",
		Digest: "sha256:" + hex.EncodeToString(sum[:]),
	}

	require.Error(t, New().Extract(context.Background(), file, dest, choice))

	_, err := os.Stat(filepath.Join(dest, "Game.exe"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestParseDigest accepts sha256 digests, ignores other algorithms and rejects garbage.
func TestParseDigest(t *testing.T) {
	t.Parallel()

	sum := sha256.Sum256([]byte("x"))

	got, err := parseDigest("sha256:" + hex.EncodeToString(sum[:]))
	require.NoError(t, err)
	require.Equal(t, sum[:], got)

	got, err = parseDigest("sha512:abcd")
	require.NoError(t, err)
	require.Nil(t, got)

	got, err = parseDigest("")
	require.NoError(t, err)
	require.Nil(t, got)

	_, err = parseDigest("sha256:zz")
	require.ErrorIs(t, err, errInvalidDigest)
}
