package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	domain "github.com/npcforge/forge-installer/internal/domain/release"
)

const (
	// releaseMediaType is the host media type for release metadata.
	releaseMediaType = "application/vnd.github+json"

	// apiVersionHeader pins the host REST API version.
	apiVersionHeader = "X-GitHub-Api-Version"

	// apiVersion is the pinned host REST API version.
	apiVersion = "2022-11-28"

	// maxErrorBody is how much of a failed response body is kept for diagnostics.
	maxErrorBody = 200

	// maxMetadataBody bounds the size of a metadata document.
	maxMetadataBody = 8 << 20
)

// errEmptyRepository is returned when owner or repo is missing.
var errEmptyRepository = errors.New("owner and repo must be provided")

// RemoteError is returned for any non-success response of the release host.
type RemoteError struct {
	// URL is the requested metadata URL.
	URL string
	// StatusCode is the HTTP status code of the response.
	StatusCode int
	// Body is the beginning of the response body.
	Body string
	// Message is the host error message, when the body carries one.
	Message string
}

// Error implements error.
func (e *RemoteError) Error() string {
	detail := e.Message
	if detail == "" {
		detail = e.Body
	}

	return fmt.Sprintf("release host returned HTTP %d for %s: %s", e.StatusCode, e.URL, detail)
}

// Client fetches release metadata from the host REST API.
type Client struct {
	// baseURL is the API root, without a trailing slash.
	baseURL string
	// userAgent is sent as the identifying client header.
	userAgent string
	// token is an optional bearer token.
	token string
	// httpClient performs the requests.
	httpClient *http.Client
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client used for metadata requests.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithTimeout bounds every metadata request.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// WithUserAgent sets the identifying client header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		if userAgent != "" {
			c.userAgent = userAgent
		}
	}
}

// WithToken authenticates requests with a bearer token.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = strings.TrimSpace(token)
	}
}

// New creates a client for the host API rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  "forge-installer",
		httpClient: http.DefaultClient,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Latest returns the latest published release of owner/repo.
func (c *Client) Latest(ctx context.Context, owner, repo string) (*domain.Release, error) {
	return c.Get(ctx, owner, repo, "")
}

// ByTag returns the release of owner/repo tagged tag.
func (c *Client) ByTag(ctx context.Context, owner, repo, tag string) (*domain.Release, error) {
	return c.Get(ctx, owner, repo, tag)
}

// Get returns the release tagged tag, or the latest one when tag is empty.
func (c *Client) Get(ctx context.Context, owner, repo, tag string) (*domain.Release, error) {
	if owner == "" || repo == "" {
		return nil, errEmptyRepository
	}

	endpoint := c.releaseURL(owner, repo, tag)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", releaseMediaType)
	req.Header.Set(apiVersionHeader, apiVersion)

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	response, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request release metadata: %w", err)
	}

	defer func() {
		_ = response.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(response.Body, maxMetadataBody))
	if err != nil {
		return nil, fmt.Errorf("read release metadata: %w", err)
	}

	if response.StatusCode != http.StatusOK {
		return nil, newRemoteError(endpoint, response.StatusCode, body)
	}

	var payload releasePayload
	if err = json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode release metadata: %w", err)
	}

	return payload.toDomain(), nil
}

// releaseURL builds the tag-specific or latest endpoint.
func (c *Client) releaseURL(owner, repo, tag string) string {
	base := c.baseURL + "/repos/" + url.PathEscape(owner) + "/" + url.PathEscape(repo) + "/releases"
	if tag == "" {
		return base + "/latest"
	}

	return base + "/tags/" + url.PathEscape(tag)
}

// newRemoteError keeps a truncated body and the host "message" field.
func newRemoteError(endpoint string, statusCode int, body []byte) *RemoteError {
	truncated := body
	if len(truncated) > maxErrorBody {
		truncated = truncated[:maxErrorBody]
	}

	return &RemoteError{
		URL:        endpoint,
		StatusCode: statusCode,
		Body:       string(truncated),
		Message:    gjson.GetBytes(body, "message").String(),
	}
}

// releasePayload mirrors the fields of the host release document we use.
type releasePayload struct {
	TagName     string         `json:"tag_name"`
	Name        string         `json:"name"`
	Assets      []assetPayload `json:"assets"`
	ZipballURL  string         `json:"zipball_url"`
	TarballURL  string         `json:"tarball_url"`
	PublishedAt time.Time      `json:"published_at"`
}

type assetPayload struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
	Size               int64  `json:"size"`
	Digest             string `json:"digest"`
}

func (p *releasePayload) toDomain() *domain.Release {
	assets := make([]domain.Asset, 0, len(p.Assets))
	for _, a := range p.Assets {
		assets = append(assets, domain.Asset{
			Name:        a.Name,
			DownloadURL: a.BrowserDownloadURL,
			Size:        a.Size,
			Digest:      a.Digest,
		})
	}

	return &domain.Release{
		Tag:          p.TagName,
		Name:         p.Name,
		Assets:       assets,
		SourceZipURL: p.ZipballURL,
		SourceTarURL: p.TarballURL,
		PublishedAt:  p.PublishedAt,
	}
}
