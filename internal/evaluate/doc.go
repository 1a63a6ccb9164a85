// Package evaluate selects the best candidate image for a keyword using
// the Gemini generateContent API.
//
// Evaluation is strictly best-effort: a failed call, an unparseable
// response, or an out-of-range index falls back to the first candidate
// with a warning, never aborting the keyword. The client keeps its own
// backoff state, independent of the search client, because the two
// services have separate quota windows.
package evaluate
