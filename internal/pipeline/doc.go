// Package pipeline orchestrates keyword processing: skip-if-done,
// search, candidate evaluation, download with fallback, dual-output
// persistence, and quota-aware cooldown pacing.
//
// Keywords are processed strictly sequentially. Both external services
// enforce tight per-minute quotas, and sequential processing keeps quota
// tracking and backoff deterministic. The filesystem is the only
// durability mechanism: a keyword's primary output file existing is the
// complete record that it is done, which makes interrupted runs safely
// resumable without duplicate work.
package pipeline
