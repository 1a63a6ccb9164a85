package config

import (
	"os"
	"time"
)

// Default configuration values. Network-facing defaults mirror the quota
// characteristics of the Google Custom Search and Gemini APIs: both are
// rate-limited per minute and per day, so the pipeline leans conservative.
const (
	// DefaultKeywordsFile is the keyword list consumed by every command.
	DefaultKeywordsFile = "keywords.json"

	// DefaultOutputDir receives one primary image per keyword.
	DefaultOutputDir = "output"

	// DefaultCandidatesDir receives the full candidate archive, one
	// subdirectory per keyword.
	DefaultCandidatesDir = "output_candidates"

	// DefaultNumResults is the number of search candidates per keyword.
	DefaultNumResults = 5

	// MaxNumResults is the Custom Search API's hard cap across pagination.
	MaxNumResults = 100

	// DefaultImgSize requests extra-large images.
	DefaultImgSize = "xlarge"

	// DefaultImgType restricts results to photographs.
	DefaultImgType = "photo"

	// DefaultRequestTimeout bounds each image download request.
	DefaultRequestTimeout = 10 * time.Second

	// DefaultMaxBodySize limits how many bytes are read from one image
	// response. 20MB covers xlarge photos with margin.
	DefaultMaxBodySize = 20 * 1024 * 1024

	// DefaultCooldownEvery is the number of processed (not skipped)
	// keywords between cooldown pauses.
	DefaultCooldownEvery = 10

	// DefaultCooldown is the pause duration between keyword batches.
	DefaultCooldown = 30 * time.Second

	// DefaultSearchRetries is the attempt count per search request.
	DefaultSearchRetries = 3

	// AppName is the application name used for XDG directory paths.
	AppName = "imageharvest"
)

// Environment variable names for API credentials. These match the
// variables the original batch scripts read from their .env file, so an
// existing deployment keeps working without a config file.
const (
	EnvSearchAPIKey = "GOOGLE_CUSTOM_API_KEY"
	EnvSearchCX     = "GOOGLE_CX"
	EnvGeminiAPIKey = "GOOGLE_AI_API_KEY"
)

// Config holds all configuration options for imageharvest.
// It is populated from flags, config file, and environment, then passed
// through the application by value injection rather than global state.
type Config struct {
	// SearchAPIKey is the Google Custom Search API key.
	SearchAPIKey string

	// SearchEngineID is the Custom Search Engine identifier (cx).
	SearchEngineID string

	// GeminiAPIKey is the Gemini API key. Required only when
	// UseEvaluation is true.
	GeminiAPIKey string

	// UseEvaluation enables AI candidate evaluation. When false the
	// first candidate is always chosen and no evaluation calls happen.
	UseEvaluation bool

	// KeywordsFile is the path to the keyword list JSON file.
	KeywordsFile string

	// OutputDir is the primary output directory.
	OutputDir string

	// CandidatesDir is the candidate archive directory.
	CandidatesDir string

	// NumResults is the number of candidates requested per keyword,
	// 1..MaxNumResults. Values above 10 trigger paginated search requests.
	NumResults int

	// ImgSize, ImgType, ImgColorType, ImgDominantColor, and FileType are
	// search filters passed to the Custom Search API. Size and type carry
	// defaults; the rest are optional and empty means unset.
	ImgSize          string
	ImgType          string
	ImgColorType     string
	ImgDominantColor string
	FileType         string

	// DateRestrict limits results to a recent period in the API's
	// d/w/m/y<number> notation (e.g. "m6"). Empty means unrestricted.
	DateRestrict string

	// SortByDate requests newest-first result ordering.
	SortByDate bool

	// ExcludeWatermark appends stock-photo exclusion terms to every query.
	ExcludeWatermark bool

	// StartIndex and EndIndex select a half-open [start, end) slice of
	// the keyword list. EndIndex 0 means "through the end of the list".
	// Ignored when ProcessIDs or ProcessParts is set.
	StartIndex int
	EndIndex   int

	// ProcessIDs selects keywords by explicit ID tokens: single IDs
	// ("3-2") or inclusive ranges within one part ("3-2:3-9").
	ProcessIDs []string

	// ProcessParts selects all keywords whose ID carries one of these
	// part prefixes. Ignored when ProcessIDs is set.
	ProcessParts []string

	// CooldownEvery is the number of processed keywords per batch before
	// a cooldown pause. Zero disables cooldowns.
	CooldownEvery int

	// Cooldown is the pause duration between batches.
	Cooldown time.Duration

	// RequestTimeout bounds individual image download requests.
	RequestTimeout time.Duration

	// MaxBodySize is the maximum image response size read, in bytes.
	MaxBodySize int64

	// SearchRetries is the attempt count per search request before the
	// keyword is marked failed.
	SearchRetries int

	// Verbose enables slog.LevelDebug output.
	Verbose bool

	// MarkdownReport renders the run summary as Markdown instead of the
	// human-readable format.
	MarkdownReport bool

	// ReportFile writes the run summary to this path instead of stdout.
	ReportFile string

	// ConfigFilePath is an explicitly requested configuration file. When
	// empty the standard search locations are tried.
	ConfigFilePath string
}

// NewConfig creates a Config with default values. Defaults are
// non-zero for most fields, so relying on zero values would misconfigure
// the pipeline.
func NewConfig() *Config {
	return &Config{
		KeywordsFile:     DefaultKeywordsFile,
		OutputDir:        DefaultOutputDir,
		CandidatesDir:    DefaultCandidatesDir,
		NumResults:       DefaultNumResults,
		ImgSize:          DefaultImgSize,
		ImgType:          DefaultImgType,
		ExcludeWatermark: true,
		CooldownEvery:    DefaultCooldownEvery,
		Cooldown:         DefaultCooldown,
		RequestTimeout:   DefaultRequestTimeout,
		MaxBodySize:      DefaultMaxBodySize,
		SearchRetries:    DefaultSearchRetries,
	}
}

// ApplyEnv fills empty credential fields from the environment.
// Values already set (from flags or config file) win over the environment.
func (c *Config) ApplyEnv() {
	if c.SearchAPIKey == "" {
		c.SearchAPIKey = os.Getenv(EnvSearchAPIKey)
	}
	if c.SearchEngineID == "" {
		c.SearchEngineID = os.Getenv(EnvSearchCX)
	}
	if c.GeminiAPIKey == "" {
		c.GeminiAPIKey = os.Getenv(EnvGeminiAPIKey)
	}
}

// Validate checks the assembled configuration and returns the first
// problem found. It runs once before any network call so that selection
// or credential mistakes never consume API quota.
func (c *Config) Validate() error {
	if c.SearchAPIKey == "" {
		return ErrMissingSearchKey
	}
	if c.SearchEngineID == "" {
		return ErrMissingEngineID
	}
	if c.UseEvaluation && c.GeminiAPIKey == "" {
		return ErrMissingGeminiKey
	}
	if c.NumResults < 1 || c.NumResults > MaxNumResults {
		return ErrInvalidNumResults
	}
	if c.StartIndex < 0 {
		return ErrInvalidIndexRange
	}
	if c.EndIndex != 0 && c.StartIndex >= c.EndIndex {
		return ErrInvalidIndexRange
	}
	if c.CooldownEvery < 0 || c.Cooldown < 0 {
		return ErrInvalidCooldown
	}
	if c.RequestTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.SearchRetries < 1 {
		return ErrInvalidRetries
	}
	return nil
}
