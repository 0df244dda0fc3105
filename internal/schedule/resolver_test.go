package schedule

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/satanowski/tvfeed/internal/tvprogram"
)

var zone = time.FixedZone("CET", 3600)

func at(day, hour, minute int) time.Time {
	return time.Date(2026, 10, day, hour, minute, 0, 0, zone)
}

func show(channel, title string, start time.Time) tvprogram.Show {
	return tvprogram.Show{
		Channel:  channel,
		Date:     start.Format("2006-01-02"),
		Start:    start.Format("15:04"),
		Title:    title,
		StartsAt: start,
	}
}

func TestCurrentScenarios(t *testing.T) {
	shows := []tvprogram.Show{
		show("dajto", "Movie", at(15, 10, 0)),
		show("dajto", "News", at(15, 9, 0)),
	}

	if got := Current(shows, at(15, 9, 30)); got == nil || got.Title != "News" {
		t.Fatalf("Current(09:30) = %v, want News", got)
	}
	if got := Current(shows, at(15, 10, 0)); got == nil || got.Title != "Movie" {
		t.Fatalf("Current(10:00) = %v, want Movie", got)
	}
	if got := Current(shows, at(15, 8, 59)); got != nil {
		t.Fatalf("Current(08:59) = %v, want nil", got)
	}
	if got := Current(nil, at(15, 8, 59)); got != nil {
		t.Fatalf("Current(empty) = %v, want nil", got)
	}
}

func TestCurrentAcrossDays(t *testing.T) {
	shows := []tvprogram.Show{
		show("dajto", "Late", at(15, 23, 30)),
		show("dajto", "Tomorrow", at(16, 6, 0)),
	}
	if got := Current(shows, at(16, 1, 0)); got == nil || got.Title != "Late" {
		t.Fatalf("Current(after midnight) = %v, want Late", got)
	}
}

func TestCurrentTieKeepsFirst(t *testing.T) {
	shows := []tvprogram.Show{
		show("dajto", "First", at(15, 9, 0)),
		show("dajto", "Second", at(15, 9, 0)),
	}
	if got := Current(shows, at(15, 9, 5)); got == nil || got.Title != "First" {
		t.Fatalf("Current(tie) = %v, want First", got)
	}
}

func TestCurrentReturnsCopy(t *testing.T) {
	shows := []tvprogram.Show{show("dajto", "News", at(15, 9, 0))}
	got := Current(shows, at(15, 9, 5))
	got.Title = "changed"
	if shows[0].Title != "News" {
		t.Fatal("Current must not hand out a reference into the schedule")
	}
}

func TestCurrentIsLatestStarted(t *testing.T) {
	rnd := rand.New(rand.NewPCG(1, 2))
	base := at(15, 0, 0)
	for round := 0; round < 200; round++ {
		shows := make([]tvprogram.Show, rnd.IntN(12))
		for i := range shows {
			shows[i] = show("c", "t", base.Add(time.Duration(rnd.IntN(48*60))*time.Minute))
		}
		now := base.Add(time.Duration(rnd.IntN(48*60)) * time.Minute)

		got := Current(shows, now)
		if got == nil {
			for _, s := range shows {
				if !s.StartsAt.After(now) {
					t.Fatalf("round %d: nil result but %v started before %v", round, s.StartsAt, now)
				}
			}
			continue
		}
		if got.StartsAt.After(now) {
			t.Fatalf("round %d: result starts after now", round)
		}
		for _, s := range shows {
			if !s.StartsAt.After(now) && s.StartsAt.After(got.StartsAt) {
				t.Fatalf("round %d: %v started later than result %v", round, s.StartsAt, got.StartsAt)
			}
		}
	}
}
