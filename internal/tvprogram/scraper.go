package tvprogram

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gocolly/colly"
	"golang.org/x/sync/errgroup"
)

const (
	defaultTimeout     = 20 * time.Second
	defaultParallelism = 4
	detailIndexKey     = "idx"
)

// Scraper reads channel schedule pages and their per-show detail pages.
// A page is organized into one column per visible day, starting today.
type Scraper struct {
	Channels       []Channel
	Selectors      Selectors
	AllowedDomains []string
	Location       *time.Location
	Timeout        time.Duration
	Parallelism    int
	Now            func() time.Time
	Logger         *log.Logger
}

type listing struct {
	show Show
	link string
}

// Fetch scrapes every configured channel concurrently. Any channel failing
// fails the whole call.
func (s *Scraper) Fetch(ctx context.Context) ([]Show, error) {
	perChannel := make([][]Show, len(s.Channels))
	g, gctx := errgroup.WithContext(ctx)
	for i, ch := range s.Channels {
		g.Go(func() error {
			shows, err := s.ScrapeChannel(gctx, ch)
			if err != nil {
				return err
			}
			perChannel[i] = shows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []Show
	for _, shows := range perChannel {
		all = append(all, shows...)
	}
	return all, nil
}

// ScrapeChannel returns all shows listed on one channel page, each enriched
// with its detail page. Detail pages are fetched concurrently and all of them
// must succeed.
func (s *Scraper) ScrapeChannel(ctx context.Context, ch Channel) ([]Show, error) {
	today := s.now().In(s.location())

	entries, err := s.collectListing(ch, today)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	details, err := s.collectDetails(entries)
	if err != nil {
		return nil, err
	}

	shows := make([]Show, len(entries))
	for i, entry := range entries {
		shows[i] = entry.show
		shows[i].apply(details[i])
	}
	s.logger().Debug("channel scraped", "channel", ch.Key, "shows", len(shows))
	return shows, nil
}

func (s *Scraper) collectListing(ch Channel, today time.Time) ([]listing, error) {
	c := s.newCollector(false)

	var (
		entries  []listing
		columns  int
		fetchErr error
	)

	c.OnHTML(s.selectors().DayColumn, func(e *colly.HTMLElement) {
		date := dayOffset(today, columns)
		columns++

		times := e.DOM.Find(s.selectors().Time)
		titles := e.DOM.Find(s.selectors().Title)
		n := min(times.Length(), titles.Length())
		for i := 0; i < n; i++ {
			raw := times.Eq(i).Text()
			start, err := normalizeClock(raw)
			if err != nil {
				s.logger().Warn("cannot parse start time", "channel", ch.Key, "value", strings.TrimSpace(raw))
				continue
			}
			startsAt, err := parseStart(date, start, today.Location())
			if err != nil {
				s.logger().Warn("cannot parse start instant", "channel", ch.Key, "err", err)
				continue
			}
			link := titles.Eq(i)
			href, _ := link.Attr("href")
			if href != "" {
				href = e.Request.AbsoluteURL(href)
			}
			entries = append(entries, listing{
				show: Show{
					Channel:  ch.Key,
					Date:     date,
					Start:    start,
					Title:    strings.TrimSpace(link.Text()),
					StartsAt: startsAt,
				},
				link: href,
			})
		}
	})
	c.OnError(func(r *colly.Response, err error) {
		fetchErr = &FetchError{URL: ch.URL, Status: r.StatusCode, Err: err}
	})

	if err := c.Visit(ch.URL); err != nil && fetchErr == nil {
		fetchErr = &FetchError{URL: ch.URL, Err: err}
	}
	if fetchErr != nil {
		return nil, fetchErr
	}
	if columns == 0 {
		return nil, &ParseError{URL: ch.URL, Reason: "no day columns found"}
	}
	if len(entries) == 0 {
		return nil, &ParseError{URL: ch.URL, Reason: "no programme entries found"}
	}
	return entries, nil
}

func (s *Scraper) collectDetails(entries []listing) ([]Details, error) {
	c := s.newCollector(true)

	var (
		mu      sync.Mutex
		details = make([]Details, len(entries))
		errs    []error
	)

	c.OnHTML("html", func(e *colly.HTMLElement) {
		idx, ok := e.Request.Ctx.GetAny(detailIndexKey).(int)
		if !ok {
			return
		}
		d := parseDetail(e.DOM, s.selectors())
		mu.Lock()
		details[idx] = d
		mu.Unlock()
	})
	c.OnError(func(r *colly.Response, err error) {
		mu.Lock()
		errs = append(errs, &FetchError{URL: r.Request.URL.String(), Status: r.StatusCode, Err: err})
		mu.Unlock()
	})

	for i, entry := range entries {
		if entry.link == "" {
			continue
		}
		reqCtx := colly.NewContext()
		reqCtx.Put(detailIndexKey, i)
		if err := c.Request(http.MethodGet, entry.link, nil, reqCtx, nil); err != nil {
			mu.Lock()
			errs = append(errs, &FetchError{URL: entry.link, Err: err})
			mu.Unlock()
		}
	}
	c.Wait()

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return details, nil
}

func (s *Scraper) newCollector(async bool) *colly.Collector {
	options := []func(*colly.Collector){colly.AllowURLRevisit()}
	if len(s.AllowedDomains) > 0 {
		options = append(options, colly.AllowedDomains(s.AllowedDomains...))
	}
	if async {
		options = append(options, colly.Async(true))
	}
	c := colly.NewCollector(options...)
	c.SetRequestTimeout(s.timeout())
	if async {
		_ = c.Limit(&colly.LimitRule{DomainGlob: "*", Parallelism: s.parallelism()})
	}
	return c
}

func (s *Scraper) selectors() Selectors {
	if s.Selectors.DayColumn == "" {
		return DefaultSelectors
	}
	return s.Selectors
}

func (s *Scraper) location() *time.Location {
	if s.Location == nil {
		return time.Local
	}
	return s.Location
}

func (s *Scraper) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *Scraper) timeout() time.Duration {
	if s.Timeout <= 0 {
		return defaultTimeout
	}
	return s.Timeout
}

func (s *Scraper) parallelism() int {
	if s.Parallelism <= 0 {
		return defaultParallelism
	}
	return s.Parallelism
}

func (s *Scraper) logger() *log.Logger {
	if s.Logger == nil {
		return log.Default()
	}
	return s.Logger
}
