package pipeline

import (
	"errors"

	"github.com/ternarybob/kapture/internal/browser"
)

// IsFatal reports whether a per-target error should abort the whole batch.
// A required interactive login cannot resolve itself on later targets; every
// navigation would hit the same wall.
func IsFatal(err error) bool {
	return errors.Is(err, browser.ErrInteractionRequired)
}

// ThinContentFloor is the readiness floor below which a capture is flagged
// WARN_THIN_CONTENT. The floor never drops under 200 visible characters no
// matter how permissive min_chars is.
func ThinContentFloor(minChars int) int {
	floor := minChars / 2
	if floor < 200 {
		floor = 200
	}
	return floor
}
