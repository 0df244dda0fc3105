package schedule

import (
	"time"

	"github.com/satanowski/tvfeed/internal/tvprogram"
)

// Current returns the show airing at now: the latest one that started at or
// before now. Ties go to the first in input order. It returns nil when no
// show has started yet.
func Current(shows []tvprogram.Show, now time.Time) *tvprogram.Show {
	best := -1
	for i := range shows {
		if shows[i].StartsAt.After(now) {
			continue
		}
		if best < 0 || shows[i].StartsAt.After(shows[best].StartsAt) {
			best = i
		}
	}
	if best < 0 {
		return nil
	}
	show := shows[best]
	return &show
}
