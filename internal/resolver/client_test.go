package resolver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const releaseJSON = `{
  "tag_name": "v2.3.0",
  "name": "Release 2.3.0",
  "published_at": "2025-05-01T10:00:00Z",
  "zipball_url": "https://api.example.com/repos/NPCForge/API_AI/zipball/v2.3.0",
  "tarball_url": "https://api.example.com/repos/NPCForge/API_AI/tarball/v2.3.0",
  "assets": [
    {
      "name": "app-v2.3.0.zip",
      "browser_download_url": "https://example.com/app-v2.3.0.zip",
      "size": 1024,
      "digest": "sha256:abcd"
    }
  ]
}`

// TestClient_Latest verifies the latest endpoint, request headers and decoding.
func TestClient_Latest(t *testing.T) {
	t.Parallel()

	var gotPath, gotAccept, gotAgent, gotAuth string

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAccept = r.Header.Get("Accept")
		gotAgent = r.Header.Get("User-Agent")
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(releaseJSON))
	}))
	defer ts.Close()

	client := New(ts.URL+"/", WithUserAgent("test-agent/1.0"), WithToken("secret"))

	rel, err := client.Latest(context.Background(), "NPCForge", "API_AI")
	require.NoError(t, err)

	require.Equal(t, "/repos/NPCForge/API_AI/releases/latest", gotPath)
	require.Equal(t, "application/vnd.github+json", gotAccept)
	require.Equal(t, "test-agent/1.0", gotAgent)
	require.Equal(t, "Bearer secret", gotAuth)

	require.Equal(t, "v2.3.0", rel.Tag)
	require.Equal(t, "Release 2.3.0", rel.Name)
	require.Len(t, rel.Assets, 1)
	require.Equal(t, "app-v2.3.0.zip", rel.Assets[0].Name)
	require.Equal(t, "https://example.com/app-v2.3.0.zip", rel.Assets[0].DownloadURL)
	require.Equal(t, "sha256:abcd", rel.Assets[0].Digest)
	require.Contains(t, rel.SourceZipURL, "/zipball/")
	require.Contains(t, rel.SourceTarURL, "/tarball/")
	require.Equal(t, 2025, rel.PublishedAt.Year())
}

// TestClient_ByTag verifies that the tag is escaped into the tag endpoint.
func TestClient_ByTag(t *testing.T) {
	t.Parallel()

	var gotPath string

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		_, _ = w.Write([]byte(`{"tag_name":"release/1.1","assets":[]}`))
	}))
	defer ts.Close()

	rel, err := New(ts.URL).ByTag(context.Background(), "NPCForge", "Plugin", "release/1.1")
	require.NoError(t, err)
	require.Equal(t, "/repos/NPCForge/Plugin/releases/tags/release%2F1.1", gotPath)
	require.Equal(t, "release/1.1", rel.Tag)
	require.Empty(t, rel.Assets)
}

// TestClient_RemoteError checks status code, message and body truncation of failures.
func TestClient_RemoteError(t *testing.T) {
	t.Parallel()

	body := `{"message":"Not Found","documentation_url":"` + strings.Repeat("x", 500) + `"}`

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(body))
	}))
	defer ts.Close()

	_, err := New(ts.URL).Latest(context.Background(), "NPCForge", "missing")
	require.Error(t, err)

	var remoteErr *RemoteError
	require.True(t, errors.As(err, &remoteErr))
	require.Equal(t, http.StatusNotFound, remoteErr.StatusCode)
	require.Equal(t, "Not Found", remoteErr.Message)
	require.Len(t, remoteErr.Body, maxErrorBody)
	require.Contains(t, err.Error(), "404")
}

// TestClient_RequiresRepository rejects empty owner or repo before any request.
func TestClient_RequiresRepository(t *testing.T) {
	t.Parallel()

	_, err := New("http://127.0.0.1:1").Latest(context.Background(), "", "repo")
	require.ErrorIs(t, err, errEmptyRepository)
}

// TestClient_TransportError propagates connection failures as plain errors.
func TestClient_TransportError(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	_, err := New(url).Latest(context.Background(), "NPCForge", "API_AI")
	require.Error(t, err)

	var remoteErr *RemoteError
	require.False(t, errors.As(err, &remoteErr))
}
