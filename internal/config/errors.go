package config

import "errors"

// Configuration validation errors returned by Config.Validate.
// They are package-level sentinels so callers can use errors.Is while
// still getting human-readable messages.
var (
	// ErrMissingSearchKey is returned when no Custom Search API key is
	// configured via flag, config file, or GOOGLE_CUSTOM_API_KEY.
	ErrMissingSearchKey = errors.New("missing search API key: set --search-key, the config file, or GOOGLE_CUSTOM_API_KEY")

	// ErrMissingEngineID is returned when no search engine ID (cx) is
	// configured.
	ErrMissingEngineID = errors.New("missing search engine ID: set --engine-id, the config file, or GOOGLE_CX")

	// ErrMissingGeminiKey is returned when evaluation is enabled without
	// a Gemini API key.
	ErrMissingGeminiKey = errors.New("missing Gemini API key: evaluation is enabled but no key is set")

	// ErrInvalidNumResults is returned when the candidate count is out of
	// the API's 1..100 range.
	ErrInvalidNumResults = errors.New("invalid result count: must be between 1 and 100")

	// ErrInvalidIndexRange is returned when the start index is negative
	// or not below the end index.
	ErrInvalidIndexRange = errors.New("invalid index range: start must be non-negative and below end")

	// ErrInvalidCooldown is returned for negative cooldown settings.
	// Use zero to disable cooldowns entirely.
	ErrInvalidCooldown = errors.New("invalid cooldown: batch size and duration must be non-negative")

	// ErrInvalidTimeout is returned when the request timeout is not
	// positive.
	ErrInvalidTimeout = errors.New("invalid request timeout: must be positive")

	// ErrInvalidRetries is returned when the search retry count is below 1.
	ErrInvalidRetries = errors.New("invalid retry count: must be at least 1")
)
