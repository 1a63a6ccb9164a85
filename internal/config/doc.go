// Package config holds the runtime configuration for imageharvest.
//
// A Config is built from defaults, then an optional YAML configuration
// file, then environment variables for credentials, then CLI flags.
// Validation happens once after assembly, before any network call.
package config
