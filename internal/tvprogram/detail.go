package tvprogram

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Selectors maps the schedule site's markup onto the fields we extract.
type Selectors struct {
	DayColumn string
	Time      string
	Title     string

	DetailInfo    string
	Muted         string
	SeasonEpisode string
	RatingBox     string
	RatingValue   string
}

// DefaultSelectors matches tv-program.sk.
var DefaultSelectors = Selectors{
	DayColumn: "div.programme-list",
	Time:      "time.programme-list__time",
	Title:     "a.programme-list__title",

	DetailInfo:    "div.adspace-program-detail",
	Muted:         "span.text-muted",
	SeasonEpisode: "h1.page__title span.text-muted.fs-medium",
	RatingBox:     "div.text-center.bg-warning",
	RatingValue:   "div.h3.mb-0",
}

var yearRgx = regexp.MustCompile(`^\d{4}$`)

// parseDetail reads year, season/episode and rating from a detail page.
// Each field is looked up independently; a missing one stays nil.
func parseDetail(doc *goquery.Selection, sel Selectors) Details {
	var d Details

	doc.Find(sel.DetailInfo).Find(sel.Muted).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if yearRgx.MatchString(text) {
			d.Year = &text
			return false
		}
		return true
	})

	if heading := doc.Find(sel.SeasonEpisode).First(); heading.Length() > 0 {
		d.Season, d.Episode = splitSeasonEpisode(heading.Text())
	}

	if box := doc.Find(sel.RatingBox).First(); box.Length() > 0 {
		d.Rating = strPtr(strings.TrimSpace(box.Find(sel.RatingValue).First().Text()))
	}
	return d
}

// splitSeasonEpisode turns "3/12 - Title" into ("3", "12").
func splitSeasonEpisode(heading string) (*string, *string) {
	main, _, _ := strings.Cut(heading, "-")
	parts := strings.Split(strings.TrimSpace(main), "/")
	if len(parts) < 2 {
		return nil, nil
	}
	season := strings.TrimSpace(parts[0])
	episode := strings.TrimSpace(parts[1])
	return &season, &episode
}
