// Package log provides structured logging with automatic masking of API
// credentials, built on top of the standard slog package.
//
// Both external services are authenticated through query parameters
// (Custom Search) or key-bearing URLs (Gemini), so raw request URLs must
// never reach the log output. The MaskHandler redacts credential-carrying
// attribute keys and strips key parameters out of URL-valued attributes
// before the record reaches the underlying text or JSON handler.
package log
