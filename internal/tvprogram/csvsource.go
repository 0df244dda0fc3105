package tvprogram

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gocolly/colly"
)

// DefaultCSVURL is the repository contents endpoint of the published shows.csv.
const DefaultCSVURL = "https://api.github.com/repos/stilecdaniel/DI-scraper/contents/shows.csv"

var csvColumns = []string{"channel", "date", "start", "title", "rating", "year", "season", "episode"}

// RepoCSV reads a pre-scraped schedule published as a base64 encoded CSV
// through a repository contents API.
type RepoCSV struct {
	URL      string
	Channels []Channel
	Location *time.Location
	Timeout  time.Duration
	Logger   *log.Logger
}

type repoContent struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

// Fetch downloads and decodes the CSV, keeping rows of configured channels.
func (r *RepoCSV) Fetch(ctx context.Context) ([]Show, error) {
	body, err := r.download()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var content repoContent
	if err := json.Unmarshal(body, &content); err != nil {
		return nil, &ParseError{URL: r.URL, Reason: "invalid contents response: " + err.Error()}
	}
	if content.Content == "" {
		return nil, &ParseError{URL: r.URL, Reason: "empty content"}
	}
	if content.Encoding != "" && content.Encoding != "base64" {
		return nil, &ParseError{URL: r.URL, Reason: "unsupported encoding " + content.Encoding}
	}
	raw, err := base64.StdEncoding.DecodeString(strings.NewReplacer("\n", "", "\r", "").Replace(content.Content))
	if err != nil {
		return nil, &ParseError{URL: r.URL, Reason: "invalid base64 content: " + err.Error()}
	}
	return r.parse(raw)
}

func (r *RepoCSV) download() ([]byte, error) {
	c := colly.NewCollector(colly.AllowURLRevisit())
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c.SetRequestTimeout(timeout)

	var (
		body     []byte
		fetchErr error
	)
	c.OnRequest(func(req *colly.Request) {
		req.Headers.Set("Accept", "application/vnd.github+json")
	})
	c.OnResponse(func(resp *colly.Response) {
		body = resp.Body
	})
	c.OnError(func(resp *colly.Response, err error) {
		fetchErr = &FetchError{URL: r.URL, Status: resp.StatusCode, Err: err}
	})

	if err := c.Visit(r.URL); err != nil && fetchErr == nil {
		fetchErr = &FetchError{URL: r.URL, Err: err}
	}
	if fetchErr != nil {
		return nil, fetchErr
	}
	return body, nil
}

func (r *RepoCSV) parse(raw []byte) ([]Show, error) {
	reader := csv.NewReader(bytes.NewReader(raw))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, &ParseError{URL: r.URL, Reason: "missing csv header"}
	}
	index := map[string]int{}
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, col := range csvColumns[:4] {
		if _, ok := index[col]; !ok {
			return nil, &ParseError{URL: r.URL, Reason: "missing csv column " + col}
		}
	}

	known := map[string]bool{}
	for _, ch := range r.Channels {
		known[ch.Key] = true
	}
	loc := r.Location
	if loc == nil {
		loc = time.Local
	}
	logger := r.Logger
	if logger == nil {
		logger = log.Default()
	}

	var shows []Show
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &ParseError{URL: r.URL, Reason: err.Error()}
		}
		field := func(name string) string {
			i, ok := index[name]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		channel := field("channel")
		if len(known) > 0 && !known[channel] {
			continue
		}
		start, err := normalizeClock(field("start"))
		if err != nil {
			logger.Warn("skipping csv row", "channel", channel, "err", err)
			continue
		}
		startsAt, err := parseStart(field("date"), start, loc)
		if err != nil {
			logger.Warn("skipping csv row", "channel", channel, "err", err)
			continue
		}
		show := Show{
			Channel:  channel,
			Date:     field("date"),
			Start:    start,
			Title:    field("title"),
			StartsAt: startsAt,
		}
		show.apply(Details{
			Rating:  strPtr(field("rating")),
			Year:    strPtr(field("year")),
			Season:  strPtr(field("season")),
			Episode: strPtr(field("episode")),
		})
		if (show.Season == nil) != (show.Episode == nil) {
			show.Season, show.Episode = nil, nil
		}
		shows = append(shows, show)
	}
	if len(shows) == 0 {
		return nil, &ParseError{URL: r.URL, Reason: "no rows for configured channels"}
	}
	return shows, nil
}
