package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"imageharvest/internal/model"
)

// Validation errors. Both are per-candidate: the pipeline falls back to
// the next candidate in rank order rather than failing the keyword.
var (
	// ErrTooSmall marks payloads under MinImageBytes.
	ErrTooSmall = errors.New("image payload too small")

	// ErrInvalidFormat marks payloads that do not decode as an image.
	ErrInvalidFormat = errors.New("payload is not a decodable image")
)

// MinImageBytes is the minimum accepted payload size. Anything smaller is
// rejected before decode is attempted.
const MinImageBytes = 1024

const (
	defaultTimeout   = 10 * time.Second
	defaultMaxBytes  = 20 * 1024 * 1024
	defaultUserAgent = "imageharvest/1.0"
	downloadAttempts = 2
)

// Fetcher downloads and normalizes candidate images.
type Fetcher struct {
	httpClient *http.Client
	timeout    time.Duration
	maxBytes   int64
	userAgent  string
	logger     *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.httpClient = c }
}

// WithTimeout bounds each download request.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithMaxBytes limits the response body size read per download.
func WithMaxBytes(n int64) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxBytes = n
		}
	}
}

// WithUserAgent sets the User-Agent header for downloads.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) { f.logger = logger }
}

// New creates a Fetcher with the given options.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		httpClient: http.DefaultClient,
		timeout:    defaultTimeout,
		maxBytes:   defaultMaxBytes,
		userAgent:  defaultUserAgent,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	return f
}

// Fetch downloads the image at rawURL and runs it through the validation
// pipeline. The outcome is never an "error return": validation failures
// come back as OK=false with Err set, and the caller decides whether to
// try the next candidate.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) model.DownloadOutcome {
	data, err := f.download(ctx, rawURL)
	if err != nil {
		return model.DownloadOutcome{Err: err}
	}

	if len(data) < MinImageBytes {
		return model.DownloadOutcome{
			Err: fmt.Errorf("%w: %d bytes", ErrTooSmall, len(data)),
		}
	}

	jpegData, img, format, err := Normalize(data)
	if err != nil {
		if looksLikeHTML(data) {
			return model.DownloadOutcome{
				Err: fmt.Errorf("%w: payload is an HTML page", ErrInvalidFormat),
			}
		}
		return model.DownloadOutcome{
			Err: fmt.Errorf("%w: %v", ErrInvalidFormat, err),
		}
	}

	return model.DownloadOutcome{
		OK:           true,
		Data:         jpegData,
		Image:        img,
		SourceFormat: format,
	}
}

// download fetches raw bytes with a bounded timeout and body size.
// Network-level failures get one immediate re-attempt; image hosts drop
// connections often enough that a single retry recovers many downloads.
func (f *Fetcher) download(ctx context.Context, rawURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < downloadAttempts; attempt++ {
		data, err := f.doDownload(ctx, rawURL)
		if err == nil {
			return data, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		f.logger.Debug("download attempt failed",
			"url", rawURL,
			"attempt", attempt+1,
			"error", err,
		)
	}
	return nil, lastErr
}

// doDownload issues a single GET for the image bytes.
func (f *Fetcher) doDownload(ctx context.Context, rawURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build download request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	res, err := f.httpClient.Do(req) //nolint:gosec // G704: candidate URLs come from the search API
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download returned HTTP %d", res.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(res.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read image body: %w", err)
	}
	return data, nil
}
