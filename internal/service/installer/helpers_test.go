package installer

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/npcforge/forge-installer/internal/archive"
	"github.com/npcforge/forge-installer/internal/config"
	"github.com/npcforge/forge-installer/internal/progress"
	"github.com/npcforge/forge-installer/internal/runtimeprobe"
)

var errUnexpectedTool = errors.New("unexpected tool")

// hostRelease is what the fake host publishes for one repository.
type hostRelease struct {
	tag    string
	name   string
	assets map[string][]byte
	order  []string
	status int
}

// fakeHost serves release metadata and artifacts.
type fakeHost struct {
	server *httptest.Server

	mu       sync.Mutex
	releases map[string]*hostRelease

	artifactHits atomic.Int32
	metadataHits atomic.Int32
}

func newFakeHost(t *testing.T) *fakeHost {
	t.Helper()

	h := &fakeHost{releases: map[string]*hostRelease{}}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/{owner}/{repo}/releases/latest", h.serveRelease)
	mux.HandleFunc("GET /repos/{owner}/{repo}/releases/tags/{tag}", h.serveRelease)
	mux.HandleFunc("GET /download/{repo}/{name}", h.serveArtifact)

	h.server = httptest.NewServer(mux)
	t.Cleanup(h.server.Close)

	return h
}

// publish replaces the release of repo. Assets keep the given order.
func (h *fakeHost) publish(repo, tag string, assets ...namedBody) {
	h.mu.Lock()
	defer h.mu.Unlock()

	rel := &hostRelease{tag: tag, name: "Release " + tag, assets: map[string][]byte{}, status: http.StatusOK}
	for _, a := range assets {
		rel.assets[a.name] = a.body
		rel.order = append(rel.order, a.name)
	}

	h.releases[repo] = rel
}

// fail makes metadata requests of repo answer with status.
func (h *fakeHost) fail(repo string, status int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.releases[repo] = &hostRelease{status: status}
}

func (h *fakeHost) serveRelease(w http.ResponseWriter, r *http.Request) {
	h.metadataHits.Add(1)

	repo := r.PathValue("repo")

	h.mu.Lock()
	rel, ok := h.releases[repo]
	h.mu.Unlock()

	if !ok {
		http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)

		return
	}

	if rel.status != http.StatusOK {
		http.Error(w, `{"message":"boom"}`, rel.status)

		return
	}

	type asset struct {
		Name   string `json:"name"`
		URL    string `json:"browser_download_url"`
		Size   int    `json:"size"`
		Digest string `json:"digest"`
	}

	assets := make([]asset, 0, len(rel.order))
	for _, name := range rel.order {
		sum := sha256.Sum256(rel.assets[name])
		assets = append(assets, asset{
			Name:   name,
			URL:    h.server.URL + "/download/" + repo + "/" + name,
			Size:   len(rel.assets[name]),
			Digest: "sha256:" + hex.EncodeToString(sum[:]),
		})
	}

	_ = json.NewEncoder(w).Encode(map[string]any{
		"tag_name": rel.tag,
		"name":     rel.name,
		"assets":   assets,
	})
}

func (h *fakeHost) serveArtifact(w http.ResponseWriter, r *http.Request) {
	h.artifactHits.Add(1)

	h.mu.Lock()
	rel, ok := h.releases[r.PathValue("repo")]

	var body []byte
	if ok {
		body, ok = rel.assets[r.PathValue("name")]
	}
	h.mu.Unlock()

	if !ok {
		http.NotFound(w, r)

		return
	}

	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	_, _ = w.Write(body)
}

type namedBody struct {
	name string
	body []byte
}

// zipOf builds a zip archive in memory.
func zipOf(t *testing.T, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer

	zw := zip.NewWriter(&buf)
	for name, contents := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)

		_, err = io.WriteString(w, contents)
		require.NoError(t, err)
	}

	require.NoError(t, zw.Close())

	return buf.Bytes()
}

// unzipTool stands in for the unzip executable: unzip -o -q FILE -d DEST.
func unzipTool(_ context.Context, name string, args ...string) ([]byte, error) {
	if name != "unzip" || len(args) != 5 {
		return nil, errUnexpectedTool
	}

	file, dest := args[2], args[4]

	zr, err := zip.OpenReader(file)
	if err != nil {
		return []byte(err.Error()), err
	}

	defer func() {
		_ = zr.Close()
	}()

	for _, f := range zr.File {
		target := filepath.Join(dest, filepath.FromSlash(f.Name))
		if !strings.HasPrefix(target, filepath.Clean(dest)+string(os.PathSeparator)) {
			return nil, errUnexpectedTool
		}

		if f.FileInfo().IsDir() {
			if err = os.MkdirAll(target, 0o755); err != nil {
				return nil, err
			}

			continue
		}

		if err = os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return nil, err
		}

		if err = writeZipEntry(f, target); err != nil {
			return nil, err
		}
	}

	return nil, nil
}

func writeZipEntry(f *zip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}

	defer func() {
		_ = rc.Close()
	}()

	contents, err := io.ReadAll(rc)
	if err != nil {
		return err
	}

	return os.WriteFile(target, contents, 0o644)
}

type stubProbe struct{}

func (stubProbe) Check(context.Context) runtimeprobe.Status {
	return runtimeprobe.Status{Installed: true, Running: true, Detail: "stub"}
}

// recorder keeps progress events.
type recorder struct {
	mu     sync.Mutex
	events []progress.Event
}

func (r *recorder) Report(event progress.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, event)
}

func (r *recorder) last() progress.Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.events) == 0 {
		return progress.Event{}
	}

	return r.events[len(r.events)-1]
}

// testConfig points the installer at the fake host and a temporary base dir.
func testConfig(t *testing.T, host *fakeHost) *config.Config {
	t.Helper()

	cfg := config.Default()
	cfg.BaseDir = filepath.Join(t.TempDir(), "npcforge")
	cfg.Host.APIURL = host.server.URL
	cfg.Progress.Rate = 0

	return cfg
}

// newTestService builds a service with the fake unzip tool and a stub probe.
func newTestService(t *testing.T, cfg *config.Config, opts ...Option) *Service {
	t.Helper()

	base := []Option{
		WithUnpacker(archive.New(archive.WithGOOS("linux"), archive.WithCommandRunner(unzipTool))),
		WithRuntimeProbe(stubProbe{}),
	}

	svc, err := New(context.Background(), cfg, append(base, opts...)...)
	require.NoError(t, err)

	return svc
}
