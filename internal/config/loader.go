package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".imageharvest.yaml"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// File represents the structure of the .imageharvest.yaml configuration
// file. All fields are optional; unset fields leave the corresponding
// Config value untouched so that defaults and flags still apply.
type File struct {
	// API credentials.
	SearchKey string `yaml:"searchKey,omitempty"`
	EngineID  string `yaml:"engineID,omitempty"`
	GeminiKey string `yaml:"geminiKey,omitempty"`

	// Evaluate enables AI candidate evaluation.
	Evaluate *bool `yaml:"evaluate,omitempty"`

	// Search filters.
	NumResults       int    `yaml:"numResults,omitempty"`
	ImgSize          string `yaml:"imgSize,omitempty"`
	ImgType          string `yaml:"imgType,omitempty"`
	ImgColorType     string `yaml:"imgColorType,omitempty"`
	ImgDominantColor string `yaml:"imgDominantColor,omitempty"`
	FileType         string `yaml:"fileType,omitempty"`
	DateRestrict     string `yaml:"dateRestrict,omitempty"`
	SortByDate       *bool  `yaml:"sortByDate,omitempty"`
	ExcludeWatermark *bool  `yaml:"excludeWatermark,omitempty"`

	// Keyword selection.
	StartIndex   *int     `yaml:"startIndex,omitempty"`
	EndIndex     *int     `yaml:"endIndex,omitempty"`
	ProcessIDs   []string `yaml:"processIDs,omitempty"`
	ProcessParts []string `yaml:"processParts,omitempty"`

	// Paths.
	KeywordsFile  string `yaml:"keywordsFile,omitempty"`
	OutputDir     string `yaml:"outputDir,omitempty"`
	CandidatesDir string `yaml:"candidatesDir,omitempty"`

	// Rate limiting.
	CooldownEvery   *int `yaml:"cooldownEvery,omitempty"`
	CooldownSeconds *int `yaml:"cooldownSeconds,omitempty"`
	SearchRetries   *int `yaml:"searchRetries,omitempty"`
}

// LoadConfigFile loads a configuration file from path.
// If the file does not exist, it returns ErrConfigNotFound; callers decide
// whether that is fatal based on whether the path was explicit.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}
	return &cf, nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. .imageharvest.yaml in the current directory
// 3. .imageharvest.yaml in the user's home directory
// 4. The XDG config directory (e.g. ~/.config/imageharvest/.imageharvest.yaml)
//
// Returns the path if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	var candidates []string
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, DefaultConfigFile))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, DefaultConfigFile))
	}
	candidates = append(candidates, filepath.Join(xdg.ConfigHome, AppName, DefaultConfigFile))

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// Apply copies every set field of the file onto cfg. Flag values are
// applied after this, so explicit flags override file contents.
func (f *File) Apply(cfg *Config) {
	if f.SearchKey != "" {
		cfg.SearchAPIKey = f.SearchKey
	}
	if f.EngineID != "" {
		cfg.SearchEngineID = f.EngineID
	}
	if f.GeminiKey != "" {
		cfg.GeminiAPIKey = f.GeminiKey
	}
	if f.Evaluate != nil {
		cfg.UseEvaluation = *f.Evaluate
	}
	if f.NumResults > 0 {
		cfg.NumResults = f.NumResults
	}
	if f.ImgSize != "" {
		cfg.ImgSize = f.ImgSize
	}
	if f.ImgType != "" {
		cfg.ImgType = f.ImgType
	}
	if f.ImgColorType != "" {
		cfg.ImgColorType = f.ImgColorType
	}
	if f.ImgDominantColor != "" {
		cfg.ImgDominantColor = f.ImgDominantColor
	}
	if f.FileType != "" {
		cfg.FileType = f.FileType
	}
	if f.DateRestrict != "" {
		cfg.DateRestrict = f.DateRestrict
	}
	if f.SortByDate != nil {
		cfg.SortByDate = *f.SortByDate
	}
	if f.ExcludeWatermark != nil {
		cfg.ExcludeWatermark = *f.ExcludeWatermark
	}
	if f.StartIndex != nil {
		cfg.StartIndex = *f.StartIndex
	}
	if f.EndIndex != nil {
		cfg.EndIndex = *f.EndIndex
	}
	if len(f.ProcessIDs) > 0 {
		cfg.ProcessIDs = f.ProcessIDs
	}
	if len(f.ProcessParts) > 0 {
		cfg.ProcessParts = f.ProcessParts
	}
	if f.KeywordsFile != "" {
		cfg.KeywordsFile = f.KeywordsFile
	}
	if f.OutputDir != "" {
		cfg.OutputDir = f.OutputDir
	}
	if f.CandidatesDir != "" {
		cfg.CandidatesDir = f.CandidatesDir
	}
	if f.CooldownEvery != nil {
		cfg.CooldownEvery = *f.CooldownEvery
	}
	if f.CooldownSeconds != nil {
		cfg.Cooldown = time.Duration(*f.CooldownSeconds) * time.Second
	}
	if f.SearchRetries != nil {
		cfg.SearchRetries = *f.SearchRetries
	}
}
