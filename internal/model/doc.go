// Package model defines the core data types shared across the imageharvest
// pipeline: keywords, search candidates, download outcomes, per-keyword
// processing results, and the end-of-run summary.
//
// Types in this package carry no behavior beyond derivation helpers
// (output paths, counters) so that every other package can depend on it
// without import cycles.
package model
