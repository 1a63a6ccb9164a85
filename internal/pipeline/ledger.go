package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"imageharvest/internal/model"
)

// AlreadyDone reports whether kw's primary output file exists under
// outputDir. It is consulted before any network call for the keyword,
// which guarantees re-run safety without external state.
func AlreadyDone(outputDir string, kw model.Keyword) bool {
	info, err := os.Stat(kw.PrimaryPath(outputDir))
	return err == nil && info.Mode().IsRegular()
}

// writePrimary persists data as kw's primary output. The file is created
// exclusively: an output written by an earlier or concurrent run is never
// overwritten.
func writePrimary(outputDir string, kw model.Keyword, data []byte) error {
	if err := os.MkdirAll(outputDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	path := kw.PrimaryPath(outputDir)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644) //nolint:gosec // Image outputs are meant to be shareable
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			// Another run finished this keyword first; its output stands.
			return nil
		}
		return fmt.Errorf("failed to create primary output %s: %w", path, err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("failed to write primary output %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("failed to write primary output %s: %w", path, err)
	}
	return nil
}

// writeCandidate persists data into kw's candidate directory at the
// 1-indexed slot matching the candidate's search rank.
func writeCandidate(candidatesDir string, kw model.Keyword, rank int, data []byte) error {
	dir := kw.CandidateDir(candidatesDir)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create candidate directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("candidate_%d.jpg", rank+1))
	if err := os.WriteFile(path, data, 0644); err != nil { //nolint:gosec // Image outputs are meant to be shareable
		return fmt.Errorf("failed to write candidate %s: %w", path, err)
	}
	return nil
}
