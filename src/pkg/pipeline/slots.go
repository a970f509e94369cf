package pipeline

import (
	"fmt"

	"github.com/tuumbleweed/xerr"

	"handover/src/pkg/compress"
	"handover/src/pkg/layout"
)

/*
Slots holds the processed photos of one handover in capture order. Replace
updates one slot in place without touching the others.

Slots is not safe for concurrent use; the owner serializes access.
*/
type Slots struct {
	photos []compress.EncodedImage
}

// Append stores photo in the next slot and returns its index.
func (s *Slots) Append(photo compress.EncodedImage) int {
	s.photos = append(s.photos, photo)
	return len(s.photos) - 1
}

func (s *Slots) Replace(index int, photo compress.EncodedImage) (e *xerr.Error) {
	if index < 0 || index >= len(s.photos) {
		e = xerr.NewError(fmt.Errorf("slot %d out of range [0, %d)", index, len(s.photos)), "replace photo slot", "")
		return e
	}
	s.photos[index] = photo
	return nil
}

// Photos returns a copy of the slot list.
func (s *Slots) Photos() []compress.EncodedImage {
	photos := make([]compress.EncodedImage, len(s.photos))
	copy(photos, s.photos)
	return photos
}

func (s *Slots) Len() int { return len(s.photos) }

// PrimaryComplete reports whether every primary grid slot is filled.
func (s *Slots) PrimaryComplete() bool {
	return len(s.photos) >= layout.PrimaryGridSize
}
