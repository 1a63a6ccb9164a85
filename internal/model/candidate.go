package model

import "image"

// Candidate is one image URL returned by a search query.
// Candidates are ephemeral: they exist only while their keyword is being
// processed and are never persisted as structured data.
type Candidate struct {
	// URL is the direct image URL.
	URL string

	// Rank is the zero-based position in the search API's relevance
	// ordering. Candidate archive slots are numbered Rank+1.
	Rank int

	// Title is the image/page title reported by the search API.
	Title string

	// Source is the display host of the page carrying the image.
	Source string
}

// CandidateImage pairs a candidate's rank with its normalized JPEG bytes,
// for submission to the evaluation service.
type CandidateImage struct {
	// Rank is the candidate's zero-based search rank.
	Rank int

	// Data holds the normalized JPEG bytes.
	Data []byte
}

// EvaluationResult is the outcome of a candidate evaluation call.
type EvaluationResult struct {
	// ChosenIndex is the zero-based index of the preferred candidate.
	// It is always a valid index; evaluation failures fall back to 0.
	ChosenIndex int

	// Fallback reports that the index was not produced by the evaluation
	// service (evaluation disabled, call failed, or response unusable).
	Fallback bool
}

// DownloadOutcome is the result of downloading and normalizing one
// candidate image.
type DownloadOutcome struct {
	// OK reports that the payload passed validation and normalization.
	OK bool

	// Data holds the normalized JPEG bytes when OK.
	Data []byte

	// Image is the decoded, background-flattened image when OK.
	// Used for perceptual duplicate checks without re-decoding.
	Image image.Image

	// SourceFormat is the decoded source format ("jpeg", "png", "webp", ...).
	SourceFormat string

	// Err describes the validation failure when not OK. It wraps one of
	// the fetch package's sentinel errors so callers can classify it.
	Err error
}
