package evaluate

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"imageharvest/internal/retry"
)

// DefaultBaseURL is the Gemini REST API root.
const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// DefaultModel is the vision-capable model used for evaluation.
const DefaultModel = "gemini-2.5-flash"

// geminiErrorBodyLimit bounds how much of an error response body is read.
const geminiErrorBodyLimit = 64 * 1024

// GeminiClient calls the generateContent endpoint with a text prompt and
// inline JPEG images.
type GeminiClient struct {
	apiKey  string
	baseURL string
	model   string

	httpClient *http.Client
	clock      retry.Clock
	logger     *slog.Logger
	backoff    retry.Policy
}

// GeminiOption configures a GeminiClient.
type GeminiOption func(*GeminiClient)

// WithGeminiHTTPClient sets a custom HTTP client.
func WithGeminiHTTPClient(c *http.Client) GeminiOption {
	return func(g *GeminiClient) { g.httpClient = c }
}

// WithGeminiBaseURL overrides the API root.
func WithGeminiBaseURL(u string) GeminiOption {
	return func(g *GeminiClient) { g.baseURL = u }
}

// WithGeminiModel overrides the model name.
func WithGeminiModel(model string) GeminiOption {
	return func(g *GeminiClient) { g.model = model }
}

// WithGeminiClock sets the clock used for backoff delays.
func WithGeminiClock(clock retry.Clock) GeminiOption {
	return func(g *GeminiClient) { g.clock = clock }
}

// WithGeminiLogger sets a custom logger.
func WithGeminiLogger(logger *slog.Logger) GeminiOption {
	return func(g *GeminiClient) { g.logger = logger }
}

// NewGeminiClient creates a Gemini client authenticated by apiKey.
func NewGeminiClient(apiKey string, opts ...GeminiOption) *GeminiClient {
	g := &GeminiClient{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		model:      DefaultModel,
		httpClient: http.DefaultClient,
		clock:      retry.SystemClock{},
		backoff: retry.Policy{
			Base:     2 * time.Second,
			Cap:      16 * time.Second,
			Attempts: 3,
		},
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	return g
}

// Request/response shapes for generateContent. Only the fields this
// pipeline consumes are declared.
type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiInlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// geminiStatusError represents a non-200 Gemini response.
type geminiStatusError struct {
	status int
}

// Error implements error.
func (e *geminiStatusError) Error() string {
	return fmt.Sprintf("evaluation API returned HTTP %d", e.status)
}

// GenerateChoice sends prompt plus the given JPEG images and returns the
// model's text response. Rate-limit and server errors are retried with
// the client's own backoff schedule.
func (g *GeminiClient) GenerateChoice(ctx context.Context, prompt string, images [][]byte) (string, error) {
	parts := make([]geminiPart, 0, len(images)+1)
	parts = append(parts, geminiPart{Text: prompt})
	for _, img := range images {
		parts = append(parts, geminiPart{
			InlineData: &geminiInlineData{
				MIMEType: "image/jpeg",
				Data:     base64.StdEncoding.EncodeToString(img),
			},
		})
	}

	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: parts}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode evaluation request: %w", err)
	}

	var text string
	err = retry.Do(ctx, g.clock, g.backoff, isRetryable, func() error {
		var err error
		text, err = g.doRequest(ctx, body)
		return err
	})
	return text, err
}

// doRequest issues one generateContent call.
func (g *GeminiClient) doRequest(ctx context.Context, body []byte) (string, error) {
	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, g.model, g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build evaluation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("evaluation request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, geminiErrorBodyLimit)) //nolint:errcheck // Drain for connection reuse
		return "", &geminiStatusError{status: res.StatusCode}
	}

	var parsed geminiResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode evaluation response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("evaluation response carried no content")
	}
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}

// isRetryable reports whether an evaluation call failure is transient.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *geminiStatusError
	if errors.As(err, &se) {
		return se.status >= http.StatusInternalServerError ||
			se.status == http.StatusTooManyRequests
	}
	return true
}
