// Package viewership simulates a per-channel audience count as a bounded random walk.
package viewership

import (
	"math"
	"math/rand/v2"
	"sync"
)

const (
	MinViewers = 500
	MaxViewers = 100000

	// drift is the largest relative change between two samples of the same show.
	drift = 0.005
)

// State is what the simulator remembers about one channel.
type State struct {
	LastShowTitle string
	LastCount     int
}

// Simulator keeps one State per channel for the life of the process.
type Simulator struct {
	mu     sync.Mutex
	rnd    *rand.Rand
	states map[string]State
}

// New returns a Simulator drawing from src, or from a randomly seeded
// source when src is nil.
func New(src rand.Source) *Simulator {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Simulator{
		rnd:    rand.New(src),
		states: map[string]State{},
	}
}

// Sample returns the next count for channel given the title now airing.
// While the title stays the same the count moves at most 0.5% per sample;
// a new title starts from a fresh uniform draw.
func (s *Simulator) Sample(channel, title string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.states[channel]
	var count int
	if ok && prev.LastShowTitle == title {
		variation := float64(prev.LastCount) * drift
		lo := int(math.Ceil(math.Max(float64(prev.LastCount)-variation, MinViewers)))
		hi := int(math.Floor(math.Min(float64(prev.LastCount)+variation, MaxViewers)))
		count = s.between(lo, hi)
	} else {
		count = s.between(MinViewers, MaxViewers)
	}
	s.states[channel] = State{LastShowTitle: title, LastCount: count}
	return count
}

// State reports the remembered state of channel.
func (s *Simulator) State(channel string) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[channel]
	return st, ok
}

func (s *Simulator) between(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + s.rnd.IntN(hi-lo+1)
}
