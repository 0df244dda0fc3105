// Package tvprogram turns remote TV schedule sources into flat lists of Show records.
package tvprogram

import (
	"time"
)

// Show is one scheduled airing. Optional fields are nil when the source
// does not expose them and serialize as JSON null.
type Show struct {
	Channel string  `json:"channel"`
	Date    string  `json:"date"`
	Start   string  `json:"start"`
	Title   string  `json:"title"`
	Rating  *string `json:"rating"`
	Year    *string `json:"year"`
	Season  *string `json:"season"`
	Episode *string `json:"episode"`

	// StartsAt is Date+Start in the service's local zone.
	StartsAt time.Time `json:"-"`
}

// Channel is one tracked station and the page its schedule is scraped from.
type Channel struct {
	Key string
	URL string
}

// Details holds the optional fields read from a show's detail page.
type Details struct {
	Year    *string
	Season  *string
	Episode *string
	Rating  *string
}

func (s *Show) apply(d Details) {
	s.Year = d.Year
	s.Season = d.Season
	s.Episode = d.Episode
	s.Rating = d.Rating
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
