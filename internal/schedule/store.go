// Package schedule holds the current per-channel program table and keeps it fresh.
package schedule

import (
	"errors"
	"sort"
	"sync/atomic"
	"time"

	"github.com/satanowski/tvfeed/internal/tvprogram"
)

// ErrNotInitialized is returned for a channel whose schedule was never loaded.
var ErrNotInitialized = errors.New("channel data not initialized")

// Snapshot is one complete view of all channel schedules. It is never
// modified after being installed.
type Snapshot struct {
	Channels    map[string][]tvprogram.Show
	RefreshedAt time.Time
}

// NewSnapshot partitions shows by channel, each ordered by start instant.
// Shows starting at the same instant keep their input order.
func NewSnapshot(shows []tvprogram.Show, refreshedAt time.Time) *Snapshot {
	channels := map[string][]tvprogram.Show{}
	for _, show := range shows {
		channels[show.Channel] = append(channels[show.Channel], show)
	}
	for _, list := range channels {
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].StartsAt.Before(list[j].StartsAt)
		})
	}
	return &Snapshot{Channels: channels, RefreshedAt: refreshedAt}
}

// Today returns the channel's shows dated on now's calendar day.
func (s *Snapshot) Today(channel string, now time.Time) []tvprogram.Show {
	day := now.Format("2006-01-02")
	var today []tvprogram.Show
	for _, show := range s.Channels[channel] {
		if show.Date == day {
			today = append(today, show)
		}
	}
	return today
}

// Store publishes snapshots to readers. Replace is the only write and swaps
// the whole snapshot at once.
type Store struct {
	current atomic.Pointer[Snapshot]
}

func NewStore() *Store {
	return &Store{}
}

// Snapshot returns the installed snapshot or nil before the first refresh.
func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

func (s *Store) Replace(snap *Snapshot) {
	s.current.Store(snap)
}

// Channel returns the schedule of one channel from the current snapshot.
func (s *Store) Channel(key string) ([]tvprogram.Show, error) {
	snap := s.current.Load()
	if snap == nil {
		return nil, ErrNotInitialized
	}
	shows, ok := snap.Channels[key]
	if !ok {
		return nil, ErrNotInitialized
	}
	return shows, nil
}
