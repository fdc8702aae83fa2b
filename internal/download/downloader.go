package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/npcforge/forge-installer/internal/config"
	"github.com/npcforge/forge-installer/internal/progress"
)

const (
	acceptZip    = "application/zip"
	acceptTar    = "application/x-gzip"
	acceptBinary = "application/octet-stream"

	// drainLimit caps how much of a redirect body is read before closing it.
	drainLimit = 64 << 10
)

// ErrTooManyRedirects is wrapped by DownloadError when the hop bound is exceeded.
var ErrTooManyRedirects = errors.New("too many redirects")

// DownloadError is returned for non-success terminal responses and redirect failures.
//
//nolint:revive // The name mirrors the error taxonomy used across the installer.
type DownloadError struct {
	// URL is the URL that produced the failure.
	URL string
	// StatusCode is the HTTP status of the last response.
	StatusCode int
	// Err is the underlying cause, if any.
	Err error
}

// Error implements error.
func (e *DownloadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("download %s: HTTP %d: %v", e.URL, e.StatusCode, e.Err)
	}

	return fmt.Sprintf("download %s: HTTP %d", e.URL, e.StatusCode)
}

// Unwrap returns the underlying cause.
func (e *DownloadError) Unwrap() error {
	return e.Err
}

// Downloader streams URLs to files.
type Downloader struct {
	// httpClient never follows redirects on its own.
	httpClient *http.Client
	// userAgent is sent on every hop.
	userAgent string
	// maxRedirects bounds the number of followed redirects.
	maxRedirects int
}

// Option configures the downloader.
type Option func(*Downloader)

// WithUserAgent sets the identifying client header.
func WithUserAgent(userAgent string) Option {
	return func(d *Downloader) {
		if userAgent != "" {
			d.userAgent = userAgent
		}
	}
}

// WithMaxRedirects sets the redirect hop bound.
func WithMaxRedirects(maxRedirects int) Option {
	return func(d *Downloader) {
		if maxRedirects > 0 {
			d.maxRedirects = maxRedirects
		}
	}
}

// WithTransport replaces the HTTP transport.
func WithTransport(transport http.RoundTripper) Option {
	return func(d *Downloader) {
		if transport != nil {
			d.httpClient.Transport = transport
		}
	}
}

// New creates a downloader.
func New(opts ...Option) *Downloader {
	d := &Downloader{
		httpClient: &http.Client{
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		userAgent:    "forge-installer",
		maxRedirects: config.DefaultMaxRedirects,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Download streams rawURL into dest, reporting progress under step when the
// response declares its length. The file is flushed and closed on success and
// removed on any failure.
func (d *Downloader) Download(ctx context.Context, rawURL, dest, step string, sink progress.Sink) (err error) {
	if sink == nil {
		sink = progress.Discard
	}

	dest = filepath.Clean(dest)

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}

	defer func() {
		if err != nil {
			_ = out.Close()
			_ = os.Remove(dest)
		}
	}()

	response, err := d.follow(ctx, rawURL)
	if err != nil {
		return err
	}

	defer func() {
		_ = response.Body.Close()
	}()

	counter := &countingWriter{
		step:  step,
		total: response.ContentLength,
		sink:  sink,
	}

	if _, err = io.Copy(out, io.TeeReader(response.Body, counter)); err != nil {
		return fmt.Errorf("stream %s: %w", rawURL, err)
	}

	if err = out.Sync(); err != nil {
		return fmt.Errorf("flush %s: %w", dest, err)
	}

	if err = out.Close(); err != nil {
		return fmt.Errorf("close %s: %w", dest, err)
	}

	return nil
}

// follow issues GET requests until a non-redirect response arrives.
func (d *Downloader) follow(ctx context.Context, rawURL string) (*http.Response, error) {
	current := rawURL

	for hop := 0; ; hop++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, current, http.NoBody)
		if err != nil {
			return nil, fmt.Errorf("build request for %s: %w", current, err)
		}

		req.Header.Set("User-Agent", d.userAgent)
		req.Header.Set("Accept", acceptFor(current))

		response, err := d.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("request %s: %w", current, err)
		}

		if isRedirect(response.StatusCode) && response.Header.Get("Location") != "" {
			next, locErr := response.Location()
			discard(response)

			if locErr != nil {
				return nil, &DownloadError{URL: current, StatusCode: response.StatusCode, Err: locErr}
			}

			if hop >= d.maxRedirects {
				return nil, &DownloadError{URL: rawURL, StatusCode: response.StatusCode, Err: ErrTooManyRedirects}
			}

			current = next.String()

			continue
		}

		if response.StatusCode != http.StatusOK {
			discard(response)

			return nil, &DownloadError{URL: current, StatusCode: response.StatusCode}
		}

		return response, nil
	}
}

// acceptFor picks the Accept header from the shape of the URL.
func acceptFor(rawURL string) string {
	switch {
	case strings.Contains(rawURL, "/zipball"):
		return acceptZip
	case strings.Contains(rawURL, "/tarball"):
		return acceptTar
	default:
		return acceptBinary
	}
}

func isRedirect(statusCode int) bool {
	return statusCode >= http.StatusMultipleChoices && statusCode < http.StatusBadRequest
}

// discard drains a little of the body so the connection can be reused, then closes it.
func discard(response *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(response.Body, drainLimit))
	_ = response.Body.Close()
}

// countingWriter reports the running byte count of a transfer.
type countingWriter struct {
	step     string
	received int64
	total    int64
	sink     progress.Sink
}

// Write implements io.Writer.
func (w *countingWriter) Write(p []byte) (int, error) {
	w.received += int64(len(p))

	if w.total > 0 {
		w.sink.Report(progress.Event{Step: w.step, Received: w.received, Total: w.total})
	}

	return len(p), nil
}
