package keyword

import (
	"encoding/json"
	"fmt"
	"os"

	"imageharvest/internal/model"
)

// headerID marks the spreadsheet header row that keyword exports carry as
// a regular entry ("编号" is the column title, "number").
const headerID = "编号"

// Load reads the keyword list JSON file at path.
// Entries with an empty ID and the exported header row are dropped.
// The returned slice preserves file order.
func Load(path string) ([]model.Keyword, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided keyword list path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to read keyword list: %w", err)
	}

	var entries []model.Keyword
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse keyword list %s: %w", path, err)
	}

	keywords := make([]model.Keyword, 0, len(entries))
	for _, k := range entries {
		if k.ID == "" || k.ID == headerID {
			continue
		}
		keywords = append(keywords, k)
	}
	return keywords, nil
}
