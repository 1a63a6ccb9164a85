package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"imageharvest/internal/model"
	"imageharvest/internal/retry"
)

// DefaultBaseURL is the Custom Search JSON API endpoint.
const DefaultBaseURL = "https://www.googleapis.com/customsearch/v1"

const (
	// pageSize is the API's per-request result cap.
	pageSize = 10

	// maxTotalResults is the API's cap across all pages of one query.
	maxTotalResults = 100

	// pageDelay spaces successive pagination requests of one query.
	pageDelay = 300 * time.Millisecond

	// errorBodyLimit bounds how much of an error response body is read.
	errorBodyLimit = 64 * 1024
)

// watermarkExclusions are appended to queries to suppress stock-photo
// results at search time.
const watermarkExclusions = ` -watermark -"stock photo" -shutterstock -getty -istockphoto -alamy`

// ErrQuotaExceeded is returned when the API reports the daily quota is
// exhausted. It is never retried: the whole run must stop, and keywords
// not yet processed remain retryable on the next run.
var ErrQuotaExceeded = errors.New("search API daily quota exceeded")

// quotaReasons are the error reasons Google's API returns with HTTP 403
// when the daily quota is spent.
var quotaReasons = map[string]bool{
	"dailyLimitExceeded": true,
	"quotaExceeded":      true,
}

// Client issues paginated image searches against the Custom Search API.
type Client struct {
	apiKey   string
	engineID string
	baseURL  string

	httpClient *http.Client
	clock      retry.Clock
	logger     *slog.Logger

	filters          Filters
	excludeWatermark bool
	backoff          retry.Policy
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Client) { s.httpClient = c }
}

// WithBaseURL overrides the API endpoint.
func WithBaseURL(u string) Option {
	return func(s *Client) { s.baseURL = u }
}

// WithClock sets the clock used for backoff and pagination delays.
func WithClock(clock retry.Clock) Option {
	return func(s *Client) { s.clock = clock }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Client) { s.logger = logger }
}

// WithFilters sets the image filters sent with every query.
// Filters are validated on the first Search call.
func WithFilters(f Filters) Option {
	return func(s *Client) { s.filters = f }
}

// WithExcludeWatermark toggles the stock-photo exclusion terms.
func WithExcludeWatermark(exclude bool) Option {
	return func(s *Client) { s.excludeWatermark = exclude }
}

// WithRetries sets the attempt count per page request.
func WithRetries(attempts int) Option {
	return func(s *Client) {
		if attempts > 0 {
			s.backoff.Attempts = attempts
		}
	}
}

// NewClient creates a search client authenticated by apiKey and engineID.
func NewClient(apiKey, engineID string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		engineID:   engineID,
		baseURL:    DefaultBaseURL,
		httpClient: http.DefaultClient,
		clock:      retry.SystemClock{},
		filters:    Filters{Size: "xlarge", Type: "photo"},
		backoff: retry.Policy{
			Base:     time.Second,
			Cap:      30 * time.Second,
			Attempts: 3,
		},
		excludeWatermark: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// apiResponse is the subset of the Custom Search response we consume.
type apiResponse struct {
	Items []struct {
		Link        string `json:"link"`
		Title       string `json:"title"`
		DisplayLink string `json:"displayLink"`
	} `json:"items"`
}

// apiError is the error payload shape of a non-200 response.
type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Errors  []struct {
			Reason string `json:"reason"`
		} `json:"errors"`
	} `json:"error"`
}

// statusError represents a non-200 API response.
type statusError struct {
	status int
	reason string
}

// Error implements error.
func (e *statusError) Error() string {
	if e.reason != "" {
		return fmt.Sprintf("search API returned HTTP %d (%s)", e.status, e.reason)
	}
	return fmt.Sprintf("search API returned HTTP %d", e.status)
}

// Search returns up to count candidates for query, in the API's relevance
// order. Counts above 10 are collected through sequential pagination;
// when the API runs out of results early, the partial list is returned
// without error. Zero results with no error means the query simply
// matched nothing.
func (c *Client) Search(ctx context.Context, query string, count int) ([]model.Candidate, error) {
	if err := c.filters.Validate(); err != nil {
		return nil, err
	}
	if count < 1 {
		return nil, fmt.Errorf("invalid candidate count %d", count)
	}
	if count > maxTotalResults {
		count = maxTotalResults
	}

	q := query
	if c.excludeWatermark {
		q += watermarkExclusions
	}

	var candidates []model.Candidate
	pages := (count + pageSize - 1) / pageSize

	for page := 0; page < pages; page++ {
		remaining := count - len(candidates)
		if remaining <= 0 {
			break
		}
		num := remaining
		if num > pageSize {
			num = pageSize
		}
		start := page*pageSize + 1

		if page > 0 {
			if err := c.clock.Sleep(ctx, pageDelay); err != nil {
				return candidates, err
			}
		}

		resp, err := c.fetchPage(ctx, q, num, start)
		if err != nil {
			if errors.Is(err, ErrQuotaExceeded) || len(candidates) == 0 {
				return nil, err
			}
			// Later pages failing is a partial result, not a failure.
			c.logger.Warn("search pagination stopped early",
				"query", query,
				"page", page+1,
				"collected", len(candidates),
				"error", err,
			)
			break
		}

		if len(resp.Items) == 0 {
			break
		}
		for _, item := range resp.Items {
			candidates = append(candidates, model.Candidate{
				URL:    item.Link,
				Rank:   len(candidates),
				Title:  item.Title,
				Source: item.DisplayLink,
			})
		}
		if len(resp.Items) < num {
			break
		}
	}

	return candidates, nil
}

// fetchPage issues one page request with retry on transient failures.
func (c *Client) fetchPage(ctx context.Context, query string, num, start int) (*apiResponse, error) {
	var resp *apiResponse
	err := retry.Do(ctx, c.clock, c.backoff, isTransient, func() error {
		var err error
		resp, err = c.doRequest(ctx, query, num, start)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// doRequest issues a single search request and classifies failures.
func (c *Client) doRequest(ctx context.Context, query string, num, start int) (*apiResponse, error) {
	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("cx", c.engineID)
	params.Set("q", query)
	params.Set("searchType", "image")
	params.Set("num", strconv.Itoa(num))
	params.Set("start", strconv.Itoa(start))
	params.Set("imgSize", c.filters.Size)
	params.Set("imgType", c.filters.Type)
	params.Set("safe", "off")
	if c.filters.ColorType != "" {
		params.Set("imgColorType", c.filters.ColorType)
	}
	if c.filters.DominantColor != "" {
		params.Set("imgDominantColor", c.filters.DominantColor)
	}
	if c.filters.FileType != "" {
		params.Set("fileType", c.filters.FileType)
	}
	if c.filters.DateRestrict != "" {
		params.Set("dateRestrict", c.filters.DateRestrict)
	}
	if c.filters.SortByDate {
		params.Set("sort", "date")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, classifyStatus(res)
	}

	var parsed apiResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	return &parsed, nil
}

// classifyStatus turns a non-200 response into either ErrQuotaExceeded or
// a statusError carrying the API's reason code.
func classifyStatus(res *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(res.Body, errorBodyLimit)) //nolint:errcheck // Best effort error detail

	var payload apiError
	reason := ""
	if err := json.Unmarshal(body, &payload); err == nil && len(payload.Error.Errors) > 0 {
		reason = payload.Error.Errors[0].Reason
	}

	if res.StatusCode == http.StatusForbidden && quotaReasons[reason] {
		return fmt.Errorf("%w (%s)", ErrQuotaExceeded, reason)
	}
	return &statusError{status: res.StatusCode, reason: reason}
}

// isTransient reports whether a page request failure is worth retrying.
// Server errors and rate-limit responses are transient; quota exhaustion
// and other client errors are permanent.
func isTransient(err error) bool {
	if errors.Is(err, ErrQuotaExceeded) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.status >= http.StatusInternalServerError ||
			se.status == http.StatusTooManyRequests
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	// Network-level failures (timeout, connection reset) are transient.
	return true
}
