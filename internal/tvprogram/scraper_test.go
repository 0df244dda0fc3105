package tvprogram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

var testZone = time.FixedZone("CET", 3600)

const listingPage = `<html><body>
<div class="programme-list">
  <time class="programme-list__time">09:00</time><a class="programme-list__title" href="/show/1">News</a>
  <time class="programme-list__time">10:00</time><a class="programme-list__title" href="/show/2">Movie</a>
</div>
<div class="programme-list">
  <time class="programme-list__time">8:30</time><a class="programme-list__title" href="/show/3">Morning</a>
  <time class="programme-list__time">xx</time><a class="programme-list__title" href="/show/4">Broken</a>
</div>
</body></html>`

func newScheduleSite(t *testing.T, pages map[string]string, failing map[string]int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status, ok := failing[r.URL.Path]; ok {
			w.WriteHeader(status)
			return
		}
		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testScraper(srv *httptest.Server) *Scraper {
	return &Scraper{
		Channels: []Channel{{Key: "dajto", URL: srv.URL + "/dajto/"}},
		Location: testZone,
		Timeout:  5 * time.Second,
		Now:      func() time.Time { return time.Date(2026, 10, 15, 8, 0, 0, 0, testZone) },
	}
}

func TestScrapeChannel(t *testing.T) {
	srv := newScheduleSite(t, map[string]string{
		"/dajto/": listingPage,
		"/show/1": `<html><body><h1 class="page__title"><span class="text-muted fs-medium">1/3 - Start</span></h1>
<div class="adspace-program-detail"><span class="text-muted">2021</span></div></body></html>`,
		"/show/2": `<html><body><div class="text-center bg-warning"><div class="h3 mb-0">71%</div></div></body></html>`,
		"/show/3": `<html><body></body></html>`,
	}, nil)

	s := testScraper(srv)
	shows, err := s.ScrapeChannel(context.Background(), s.Channels[0])
	if err != nil {
		t.Fatalf("ScrapeChannel() error = %v", err)
	}
	if len(shows) != 3 {
		t.Fatalf("got %d shows, want 3", len(shows))
	}

	news := shows[0]
	if news.Channel != "dajto" || news.Date != "2026-10-15" || news.Start != "09:00" || news.Title != "News" {
		t.Fatalf("unexpected first show: %+v", news)
	}
	if news.Year == nil || *news.Year != "2021" || news.Season == nil || *news.Season != "1" || *news.Episode != "3" {
		t.Fatalf("first show details not applied: %+v", news)
	}
	if news.Rating != nil {
		t.Fatalf("first show rating = %q, want nil", *news.Rating)
	}
	if want := time.Date(2026, 10, 15, 9, 0, 0, 0, testZone); !news.StartsAt.Equal(want) {
		t.Fatalf("StartsAt = %v, want %v", news.StartsAt, want)
	}

	if shows[1].Rating == nil || *shows[1].Rating != "71%" {
		t.Fatalf("second show rating = %v, want 71%%", shows[1].Rating)
	}

	morning := shows[2]
	if morning.Date != "2026-10-16" || morning.Start != "08:30" {
		t.Fatalf("second column should map to tomorrow, got %+v", morning)
	}
}

func TestScrapeChannelDetailFailureFailsBatch(t *testing.T) {
	srv := newScheduleSite(t, map[string]string{
		"/dajto/": listingPage,
		"/show/1": `<html></html>`,
		"/show/3": `<html></html>`,
	}, map[string]int{"/show/2": http.StatusInternalServerError})

	s := testScraper(srv)
	_, err := s.ScrapeChannel(context.Background(), s.Channels[0])
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if fetchErr.Status != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", fetchErr.Status)
	}
}

func TestScrapeChannelListingUnavailable(t *testing.T) {
	srv := newScheduleSite(t, nil, map[string]int{"/dajto/": http.StatusBadGateway})

	s := testScraper(srv)
	_, err := s.Fetch(context.Background())
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected FetchError, got %v", err)
	}
}

func TestScrapeChannelWithoutColumns(t *testing.T) {
	srv := newScheduleSite(t, map[string]string{"/dajto/": `<html><body><p>maintenance</p></body></html>`}, nil)

	s := testScraper(srv)
	_, err := s.ScrapeChannel(context.Background(), s.Channels[0])
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}

func TestFetchMergesChannels(t *testing.T) {
	single := `<html><body><div class="programme-list">
<time class="programme-list__time">20:15</time><a class="programme-list__title">Evening</a>
</div></body></html>`
	srv := newScheduleSite(t, map[string]string{"/a/": single, "/b/": single}, nil)

	s := testScraper(srv)
	s.Channels = []Channel{{Key: "a", URL: srv.URL + "/a/"}, {Key: "b", URL: srv.URL + "/b/"}}
	shows, err := s.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(shows) != 2 || shows[0].Channel != "a" || shows[1].Channel != "b" {
		t.Fatalf("unexpected merged shows: %+v", shows)
	}
}
