package main

import (
	"strings"
	"testing"
	"time"

	"github.com/satanowski/tvfeed/internal/tvprogram"
)

func TestRenderScheduleMarksCurrent(t *testing.T) {
	year, season, episode := "1999", "2", "5"
	start := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	shows := []tvprogram.Show{
		{Channel: "dajto", Start: "09:00", Title: "News", Year: &year, StartsAt: start},
		{Channel: "dajto", Start: "10:00", Title: "Series", Season: &season, Episode: &episode, StartsAt: start.Add(time.Hour)},
	}

	out := renderSchedule("dajto", shows, &shows[0])
	for _, want := range []string{"dajto", "News", "1999", "S2 E5", "▶"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Count(out, "▶") != 1 {
		t.Fatalf("exactly one show should be marked:\n%s", out)
	}
}

func TestRenderScheduleEmpty(t *testing.T) {
	if out := renderSchedule("dajto", nil, nil); !strings.Contains(out, "no shows today") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}
