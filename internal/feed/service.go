// Package feed serves current-show and viewership samples, both on request
// and as periodic pushes to long-lived subscribers.
package feed

import (
	"errors"
	"maps"
	"slices"
	"time"

	"github.com/satanowski/tvfeed/internal/schedule"
	"github.com/satanowski/tvfeed/internal/tvprogram"
	"github.com/satanowski/tvfeed/internal/viewership"
)

// Kind selects which sample a request or subscription carries.
type Kind int

const (
	KindShow Kind = iota
	KindViewership
)

func (k Kind) String() string {
	if k == KindViewership {
		return "viewership"
	}
	return "show"
}

// ErrNoCurrentShow is returned for viewership while nothing has started airing.
var ErrNoCurrentShow = errors.New("no show currently airing")

// ViewershipSample is the wire form of a viewership count.
type ViewershipSample struct {
	Viewership int `json:"viewership"`
}

// Service answers channel data questions against the current schedule snapshot.
type Service struct {
	store *schedule.Store
	sim   *viewership.Simulator
	now   func() time.Time
}

func NewService(store *schedule.Store, sim *viewership.Simulator, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, sim: sim, now: now}
}

// Ready reports schedule.ErrNotInitialized until the channel has been loaded.
func (s *Service) Ready(channel string) error {
	_, err := s.store.Channel(channel)
	return err
}

// CurrentShow resolves the show airing now. A nil show with a nil error
// means nothing has started yet.
func (s *Service) CurrentShow(channel string) (*tvprogram.Show, error) {
	shows, err := s.store.Channel(channel)
	if err != nil {
		return nil, err
	}
	return schedule.Current(shows, s.now()), nil
}

// Viewership samples the simulated audience of the show airing now.
func (s *Service) Viewership(channel string) (int, error) {
	show, err := s.CurrentShow(channel)
	if err != nil {
		return 0, err
	}
	if show == nil {
		return 0, ErrNoCurrentShow
	}
	return s.sim.Sample(channel, show.Title), nil
}

// ChannelCurrentData returns the JSON payload for kind: the current show
// (possibly nil) or a ViewershipSample.
func (s *Service) ChannelCurrentData(channel string, kind Kind) (any, error) {
	if kind == KindViewership {
		n, err := s.Viewership(channel)
		if err != nil {
			return nil, err
		}
		return ViewershipSample{Viewership: n}, nil
	}
	return s.CurrentShow(channel)
}

// CurrentShows resolves the show airing now on every loaded channel,
// ordered by channel key. Channels with nothing started yet are left out.
func (s *Service) CurrentShows() ([]tvprogram.Show, error) {
	snap := s.store.Snapshot()
	if snap == nil {
		return nil, schedule.ErrNotInitialized
	}
	now := s.now()
	shows := []tvprogram.Show{}
	for _, key := range slices.Sorted(maps.Keys(snap.Channels)) {
		if show := schedule.Current(snap.Channels[key], now); show != nil {
			shows = append(shows, *show)
		}
	}
	return shows, nil
}

// Programs lists the whole loaded schedule, channel by channel.
func (s *Service) Programs() ([]tvprogram.Show, error) {
	snap := s.store.Snapshot()
	if snap == nil {
		return nil, schedule.ErrNotInitialized
	}
	shows := []tvprogram.Show{}
	for _, key := range slices.Sorted(maps.Keys(snap.Channels)) {
		shows = append(shows, snap.Channels[key]...)
	}
	return shows, nil
}
