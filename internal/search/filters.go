package search

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrInvalidFilter is returned when a filter value is not one the API
// recognizes. Filter validation happens before any network call.
var ErrInvalidFilter = errors.New("invalid search filter")

// Recognized values for each Custom Search image filter parameter.
var (
	validSizes = map[string]bool{
		"icon": true, "small": true, "medium": true, "large": true,
		"xlarge": true, "xxlarge": true, "huge": true,
	}
	validTypes = map[string]bool{
		"clipart": true, "face": true, "lineart": true, "stock": true,
		"photo": true, "animated": true,
	}
	validColorTypes = map[string]bool{
		"color": true, "gray": true, "mono": true, "trans": true,
	}
	validDominantColors = map[string]bool{
		"black": true, "blue": true, "brown": true, "gray": true,
		"green": true, "orange": true, "pink": true, "purple": true,
		"red": true, "teal": true, "white": true, "yellow": true,
	}
	validFileTypes = map[string]bool{
		"jpg": true, "gif": true, "png": true, "bmp": true,
		"svg": true, "webp": true, "ico": true,
	}
)

// dateRestrictRe matches the API's d/w/m/y<number> period notation.
var dateRestrictRe = regexp.MustCompile(`^[dwmy][0-9]+$`)

// Filters configures the image filter parameters of a search.
// Empty optional fields are omitted from the request.
type Filters struct {
	// Size is the imgSize parameter (icon..huge). Required.
	Size string

	// Type is the imgType parameter (photo, clipart, ...). Required.
	Type string

	// ColorType is the optional imgColorType parameter.
	ColorType string

	// DominantColor is the optional imgDominantColor parameter.
	DominantColor string

	// FileType is the optional fileType parameter.
	FileType string

	// DateRestrict limits results to a recent period, e.g. "d7", "m6".
	DateRestrict string

	// SortByDate requests newest-first ordering.
	SortByDate bool
}

// Validate checks every filter value against the API's recognized sets.
// It returns an error wrapping ErrInvalidFilter naming the offending
// parameter and value.
func (f Filters) Validate() error {
	if !validSizes[f.Size] {
		return fmt.Errorf("%w: imgSize %q", ErrInvalidFilter, f.Size)
	}
	if !validTypes[f.Type] {
		return fmt.Errorf("%w: imgType %q", ErrInvalidFilter, f.Type)
	}
	if f.ColorType != "" && !validColorTypes[f.ColorType] {
		return fmt.Errorf("%w: imgColorType %q", ErrInvalidFilter, f.ColorType)
	}
	if f.DominantColor != "" && !validDominantColors[f.DominantColor] {
		return fmt.Errorf("%w: imgDominantColor %q", ErrInvalidFilter, f.DominantColor)
	}
	if f.FileType != "" && !validFileTypes[f.FileType] {
		return fmt.Errorf("%w: fileType %q", ErrInvalidFilter, f.FileType)
	}
	if f.DateRestrict != "" && !dateRestrictRe.MatchString(f.DateRestrict) {
		return fmt.Errorf("%w: dateRestrict %q", ErrInvalidFilter, f.DateRestrict)
	}
	return nil
}
