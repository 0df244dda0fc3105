package feed

import (
	"io"
	"math/rand/v2"
	"time"

	"github.com/charmbracelet/log"

	"github.com/satanowski/tvfeed/internal/schedule"
	"github.com/satanowski/tvfeed/internal/tvprogram"
	"github.com/satanowski/tvfeed/internal/viewership"
)

var zone = time.FixedZone("CET", 3600)

func at(hour, minute int) time.Time {
	return time.Date(2026, 10, 15, hour, minute, 0, 0, zone)
}

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

func loadedStore() *schedule.Store {
	store := schedule.NewStore()
	store.Replace(schedule.NewSnapshot([]tvprogram.Show{
		{Channel: "dajto", Date: "2026-10-15", Start: "09:00", Title: "News", StartsAt: at(9, 0)},
		{Channel: "dajto", Date: "2026-10-15", Start: "10:00", Title: "Movie", StartsAt: at(10, 0)},
	}, at(8, 0)))
	return store
}

func newTestService(store *schedule.Store, now time.Time) *Service {
	return NewService(store, viewership.New(rand.NewPCG(1, 1)), func() time.Time { return now })
}

// twoChannelStore adds prima-sk, whose first show starts at 09:45.
func twoChannelStore() *schedule.Store {
	store := schedule.NewStore()
	store.Replace(schedule.NewSnapshot([]tvprogram.Show{
		{Channel: "prima-sk", Date: "2026-10-15", Start: "09:45", Title: "Cooking", StartsAt: at(9, 45)},
		{Channel: "dajto", Date: "2026-10-15", Start: "09:00", Title: "News", StartsAt: at(9, 0)},
		{Channel: "dajto", Date: "2026-10-15", Start: "10:00", Title: "Movie", StartsAt: at(10, 0)},
	}, at(8, 0)))
	return store
}
