// Package verify audits the primary output directory against a keyword
// list. It reports which keywords are missing their output and which
// outputs are corrupted, and can optionally remove corrupted files so a
// following fetch run regenerates them.
//
// Verification is pure filesystem work with no API quota involved, so
// unlike the fetch pipeline it checks keywords concurrently.
package verify
