// Package main provides the entry point for the imageharvest CLI.
//
// imageharvest fetches one representative image per keyword from Google
// Custom Search, optionally letting Gemini pick the best candidate, and
// stores normalized JPEGs plus a full candidate archive on disk.
//
// Usage:
//
//	imageharvest fetch
//	imageharvest fetch --ids 3-2:3-9 --evaluate
//	imageharvest evaluate --parts 3
//	imageharvest verify --remove
//
// See --help for all available options.
package main

// main is the entry point for imageharvest.
func main() {
	Execute()
}
