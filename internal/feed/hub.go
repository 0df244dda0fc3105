package feed

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// DefaultPushInterval is how often a subscriber gets a fresh sample.
const DefaultPushInterval = 5 * time.Minute

// DataSource produces one sample payload.
type DataSource interface {
	ChannelCurrentData(channel string, kind Kind) (any, error)
}

// Subscription is one connected client. Its pump goroutine owns a ticker and
// stops when the subscription's context is cancelled.
type Subscription struct {
	ID      string
	Channel string
	Kind    Kind

	events chan []byte
	cancel context.CancelFunc
	done   chan struct{}
}

// Events yields JSON payloads; it is closed once the pump has stopped.
func (s *Subscription) Events() <-chan []byte {
	return s.events
}

// Hub tracks subscriptions. Every subscription has its own timer; pushes are
// never batched across subscribers.
type Hub struct {
	data     DataSource
	interval time.Duration
	logger   *log.Logger

	mu   sync.Mutex
	subs map[string]*Subscription
}

func NewHub(data DataSource, interval time.Duration, logger *log.Logger) *Hub {
	if interval <= 0 {
		interval = DefaultPushInterval
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{
		data:     data,
		interval: interval,
		logger:   logger,
		subs:     map[string]*Subscription{},
	}
}

// Subscribe starts pushing samples: one right away, then one per interval.
// Cancelling ctx ends the subscription just like Unsubscribe.
func (h *Hub) Subscribe(ctx context.Context, channel string, kind Kind) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		ID:      uuid.NewString(),
		Channel: channel,
		Kind:    kind,
		events:  make(chan []byte, 1),
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	h.mu.Lock()
	h.subs[sub.ID] = sub
	h.mu.Unlock()

	h.logger.Debug("subscriber connected", "id", sub.ID, "channel", channel, "kind", kind)
	go h.pump(ctx, sub)
	return sub
}

// Unsubscribe stops the subscription's pump and waits for it to exit.
// Calling it more than once is harmless.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	sub, ok := h.subs[id]
	delete(h.subs, id)
	h.mu.Unlock()
	if !ok {
		return
	}
	sub.cancel()
	<-sub.done
	h.logger.Debug("subscriber disconnected", "id", id, "channel", sub.Channel)
}

// Count returns the number of live subscriptions.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close ends every subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	ids := make([]string, 0, len(h.subs))
	for id := range h.subs {
		ids = append(ids, id)
	}
	h.mu.Unlock()
	for _, id := range ids {
		h.Unsubscribe(id)
	}
}

func (h *Hub) pump(ctx context.Context, sub *Subscription) {
	defer close(sub.done)
	defer h.forget(sub.ID)
	defer close(sub.events)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	h.push(ctx, sub)
	for {
		select {
		case <-ticker.C:
			h.push(ctx, sub)
		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) forget(id string) {
	h.mu.Lock()
	delete(h.subs, id)
	h.mu.Unlock()
}

func (h *Hub) push(ctx context.Context, sub *Subscription) {
	payload, err := h.data.ChannelCurrentData(sub.Channel, sub.Kind)
	// A failed sample (ErrNoCurrentShow for viewership) sends nothing, so a new
	// subscription may get no immediate first event.
	if err != nil {
		h.logger.Warn("skipping push", "id", sub.ID, "channel", sub.Channel, "kind", sub.Kind, "err", err)
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("cannot encode sample", "channel", sub.Channel, "err", err)
		return
	}
	select {
	case sub.events <- data:
	case <-ctx.Done():
	}
}
