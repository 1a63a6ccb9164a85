// Package search implements the image search client against the Google
// Custom Search JSON API.
//
// The API returns at most 10 results per request, so larger counts are
// collected through start-offset pagination. Each request is retried on
// transient failures with capped exponential backoff; a quota-exhausted
// response is surfaced immediately as ErrQuotaExceeded because retrying
// cannot help and the whole run must stop.
package search
