package model

import (
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Keyword is a single entry from the keyword list file.
// Entries are immutable once loaded; the ID uniquely identifies all
// output artifacts for the keyword.
type Keyword struct {
	// ID identifies the keyword in "<part>-<index>" form, e.g. "3-2".
	ID string `json:"id"`

	// Keyword is the raw search phrase.
	Keyword string `json:"keyword"`

	// KeywordFormatted is the display/filename form of the keyword.
	KeywordFormatted string `json:"keyword_formatted"`

	// PromptCN is an optional Chinese prompt carried alongside the keyword.
	PromptCN string `json:"prompt_cn,omitempty"`

	// PromptEN is an optional English prompt carried alongside the keyword.
	PromptEN string `json:"prompt_en,omitempty"`
}

// Part returns the part prefix of the keyword ID ("3" for "3-2").
// Returns the whole ID if it carries no dash.
func (k Keyword) Part() string {
	if i := strings.IndexByte(k.ID, '-'); i >= 0 {
		return k.ID[:i]
	}
	return k.ID
}

// OutputBase returns the base name shared by all output artifacts of this
// keyword: "{id}_{keyword_formatted}" with the formatted keyword
// NFC-normalized and spaces replaced by underscores. Keyword lists carry
// CJK text, so normalization keeps filenames byte-stable across platforms
// that decompose Unicode differently.
func (k Keyword) OutputBase() string {
	kw := norm.NFC.String(k.KeywordFormatted)
	kw = strings.ReplaceAll(kw, " ", "_")
	return k.ID + "_" + kw
}

// PrimaryPath returns the primary output file path under outputDir.
func (k Keyword) PrimaryPath(outputDir string) string {
	return filepath.Join(outputDir, k.OutputBase()+".jpg")
}

// CandidateDir returns the per-keyword candidate directory under
// candidatesDir. Candidate files for one keyword never leave this directory.
func (k Keyword) CandidateDir(candidatesDir string) string {
	return filepath.Join(candidatesDir, k.OutputBase())
}
