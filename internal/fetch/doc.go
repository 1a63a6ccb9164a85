// Package fetch downloads candidate images and normalizes them to JPEG.
//
// Every accepted payload passes the same validation pipeline: minimum
// size check (HTML error pages and truncated downloads are almost always
// under 1KB), image decode, and re-encode to JPEG at quality 95 with any
// alpha channel flattened onto an opaque white background. The output
// directory therefore only ever contains valid JPEG files.
package fetch
