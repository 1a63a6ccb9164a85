package evaluate

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// TestGenerateChoice tests the generateContent call and its retry policy.
func TestGenerateChoice(t *testing.T) {
	t.Parallel()

	t.Run("calls the configured model with the API key", func(t *testing.T) {
		t.Parallel()

		var gotPath, gotKey string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotKey = r.URL.Query().Get("key")
			fmt.Fprint(w, geminiReply("1"))
		}))
		defer server.Close()

		client := NewGeminiClient("gemini-key",
			WithGeminiBaseURL(server.URL),
			WithGeminiModel("gemini-2.5-flash"),
			WithGeminiClock(&fakeClock{}),
		)

		text, err := client.GenerateChoice(context.Background(), "pick one", [][]byte{[]byte("img")})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if text != "1" {
			t.Errorf("text = %q, want 1", text)
		}
		if !strings.Contains(gotPath, "models/gemini-2.5-flash:generateContent") {
			t.Errorf("unexpected path: %s", gotPath)
		}
		if gotKey != "gemini-key" {
			t.Errorf("key = %q, want gemini-key", gotKey)
		}
	})

	t.Run("retries rate limits with doubling backoff", func(t *testing.T) {
		t.Parallel()

		requests := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			requests++
			if requests < 3 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			fmt.Fprint(w, geminiReply("2"))
		}))
		defer server.Close()

		clock := &fakeClock{}
		client := NewGeminiClient("gemini-key",
			WithGeminiBaseURL(server.URL),
			WithGeminiClock(clock),
		)

		text, err := client.GenerateChoice(context.Background(), "pick one", nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if text != "2" {
			t.Errorf("text = %q, want 2", text)
		}
		if requests != 3 {
			t.Errorf("expected 3 requests, got %d", requests)
		}
		want := []time.Duration{2 * time.Second, 4 * time.Second}
		if len(clock.sleeps) != 2 || clock.sleeps[0] != want[0] || clock.sleeps[1] != want[1] {
			t.Errorf("expected sleeps %v, got %v", want, clock.sleeps)
		}
	})

	t.Run("empty candidate list is an error", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, `{"candidates": []}`)
		}))
		defer server.Close()

		client := NewGeminiClient("gemini-key",
			WithGeminiBaseURL(server.URL),
			WithGeminiClock(&fakeClock{}),
		)

		if _, err := client.GenerateChoice(context.Background(), "pick one", nil); err == nil {
			t.Fatal("expected error")
		}
	})
}
