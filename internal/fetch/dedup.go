package fetch

import (
	"image"

	"github.com/corona10/goimagehash"
)

// dedupThreshold is the maximum Hamming distance between two dHash
// values below which images count as perceptually identical.
const dedupThreshold = 10

// DedupFilter detects perceptually duplicate images within one keyword's
// candidate set. Search engines frequently return the same photo rehosted
// at several URLs; flagging the copies lets the pipeline count them for
// the run report while still archiving every download.
//
// The filter is scoped to a single keyword and used from the sequential
// pipeline, so it needs no locking.
type DedupFilter struct {
	hashes []*goimagehash.ImageHash
}

// IsDuplicate reports whether img is perceptually identical to an image
// already seen by this filter. New unique images are recorded for future
// comparisons. If hashing fails, the image is accepted.
func (d *DedupFilter) IsDuplicate(img image.Image) bool {
	hash, err := goimagehash.DifferenceHash(img)
	if err != nil {
		return false
	}

	for _, h := range d.hashes {
		dist, err := hash.Distance(h)
		if err == nil && dist < dedupThreshold {
			return true
		}
	}

	d.hashes = append(d.hashes, hash)
	return false
}
