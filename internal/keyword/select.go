package keyword

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"imageharvest/internal/model"
)

// Selection errors. All of them abort the run before any network call.
var (
	// ErrUnknownID is returned when a selected ID does not exist in the
	// keyword list.
	ErrUnknownID = errors.New("unknown keyword ID")

	// ErrUnknownPart is returned when a selected part prefix matches no
	// keyword.
	ErrUnknownPart = errors.New("unknown keyword part")

	// ErrInvalidIDToken is returned for ID tokens that do not parse as
	// "<part>-<index>" or "<part>-<start>:<part>-<end>".
	ErrInvalidIDToken = errors.New("invalid keyword ID token")

	// ErrRangeSpansParts is returned when an ID range's endpoints carry
	// different part prefixes. Such a range has no defined expansion.
	ErrRangeSpansParts = errors.New("keyword ID range spans multiple parts")

	// ErrEmptyIndexRange is returned when the index range selects nothing.
	ErrEmptyIndexRange = errors.New("index range selects no keywords")
)

// Selection describes which subset of the keyword list to process.
// IDs takes precedence over Parts, which takes precedence over the index
// range. The zero value selects the whole list.
type Selection struct {
	// IDs holds explicit ID tokens: "3-2" or the inclusive range
	// "3-2:3-9". Ranges must stay within one part.
	IDs []string

	// Parts holds part prefixes; each expands to every keyword whose ID
	// starts with "<part>-".
	Parts []string

	// StartIndex and EndIndex bound a half-open [start, end) slice of the
	// list. EndIndex 0 means the end of the list.
	StartIndex int
	EndIndex   int
}

// Resolve returns the ordered subset of keywords selected by sel.
// The result preserves source-list order and contains no duplicate IDs;
// overlapping tokens keep the first occurrence.
func Resolve(keywords []model.Keyword, sel Selection) ([]model.Keyword, error) {
	switch {
	case len(sel.IDs) > 0:
		return resolveIDs(keywords, sel.IDs)
	case len(sel.Parts) > 0:
		return resolveParts(keywords, sel.Parts)
	default:
		return resolveIndexRange(keywords, sel.StartIndex, sel.EndIndex)
	}
}

// resolveIDs expands ID tokens into a set and filters the list against it.
func resolveIDs(keywords []model.Keyword, tokens []string) ([]model.Keyword, error) {
	available := make(map[string]bool, len(keywords))
	// byNumber maps parsed (part, index) pairs back to the list's own ID
	// spelling, so zero-padded IDs like "3-02" stay reachable from range
	// tokens. First occurrence wins.
	byNumber := make(map[[2]int]string, len(keywords))
	for _, k := range keywords {
		available[k.ID] = true
		if part, num, err := parseID(k.ID); err == nil {
			if _, ok := byNumber[[2]int{part, num}]; !ok {
				byNumber[[2]int{part, num}] = k.ID
			}
		}
	}

	selected := make(map[string]bool)
	for _, raw := range tokens {
		token := strings.TrimSpace(raw)
		if token == "" {
			continue
		}

		if !strings.Contains(token, ":") {
			if _, _, err := parseID(token); err != nil {
				return nil, err
			}
			if !available[token] {
				return nil, fmt.Errorf("%w: %s", ErrUnknownID, token)
			}
			selected[token] = true
			continue
		}

		start, end, ok := strings.Cut(token, ":")
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrInvalidIDToken, token)
		}
		startPart, startNum, err := parseID(strings.TrimSpace(start))
		if err != nil {
			return nil, err
		}
		endPart, endNum, err := parseID(strings.TrimSpace(end))
		if err != nil {
			return nil, err
		}
		if startPart != endPart {
			return nil, fmt.Errorf("%w: %s", ErrRangeSpansParts, token)
		}
		if startNum > endNum {
			return nil, fmt.Errorf("%w: %s (start above end)", ErrInvalidIDToken, token)
		}

		// Both endpoints must exist; gaps inside the range are allowed
		// because exported lists may skip numbers.
		for _, endpoint := range [][2]int{{startPart, startNum}, {endPart, endNum}} {
			if _, ok := byNumber[endpoint]; !ok {
				return nil, fmt.Errorf("%w: %d-%d (in range %s)", ErrUnknownID, endpoint[0], endpoint[1], token)
			}
		}
		for num := startNum; num <= endNum; num++ {
			if id, ok := byNumber[[2]int{startPart, num}]; ok {
				selected[id] = true
			}
		}
	}

	return filterByID(keywords, selected), nil
}

// resolveParts selects all keywords whose part prefix is listed.
func resolveParts(keywords []model.Keyword, parts []string) ([]model.Keyword, error) {
	wanted := make(map[string]bool, len(parts))
	matched := make(map[string]bool, len(parts))
	for _, raw := range parts {
		part := strings.TrimSpace(raw)
		if part != "" {
			wanted[part] = true
		}
	}

	var result []model.Keyword
	seen := make(map[string]bool)
	for _, k := range keywords {
		if !wanted[k.Part()] || seen[k.ID] {
			continue
		}
		matched[k.Part()] = true
		seen[k.ID] = true
		result = append(result, k)
	}

	for part := range wanted {
		if !matched[part] {
			return nil, fmt.Errorf("%w: %s", ErrUnknownPart, part)
		}
	}
	return result, nil
}

// resolveIndexRange slices the list by [start, end). end 0 means len.
func resolveIndexRange(keywords []model.Keyword, start, end int) ([]model.Keyword, error) {
	if end == 0 || end > len(keywords) {
		end = len(keywords)
	}
	if start < 0 || start >= end {
		return nil, fmt.Errorf("%w: [%d, %d) of %d keywords", ErrEmptyIndexRange, start, end, len(keywords))
	}

	result := make([]model.Keyword, end-start)
	copy(result, keywords[start:end])
	return result, nil
}

// filterByID returns the keywords whose ID is in selected, preserving
// source order and dropping duplicates.
func filterByID(keywords []model.Keyword, selected map[string]bool) []model.Keyword {
	var result []model.Keyword
	seen := make(map[string]bool, len(selected))
	for _, k := range keywords {
		if selected[k.ID] && !seen[k.ID] {
			seen[k.ID] = true
			result = append(result, k)
		}
	}
	return result
}

// parseID splits "<part>-<index>" into its numeric components.
func parseID(id string) (part, num int, err error) {
	p, n, ok := strings.Cut(id, "-")
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidIDToken, id)
	}
	part, err = strconv.Atoi(p)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidIDToken, id)
	}
	num, err = strconv.Atoi(n)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidIDToken, id)
	}
	return part, num, nil
}
