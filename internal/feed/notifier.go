package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"maps"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gocolly/colly"

	"github.com/satanowski/tvfeed/internal/schedule"
	"github.com/satanowski/tvfeed/internal/tvprogram"
)

const (
	DefaultCheckInterval  = time.Minute
	DefaultWebhookTimeout = 10 * time.Second

	EventProgramStarted = "program_started"
)

// ProgramStarted is the body POSTed to a webhook.
type ProgramStarted struct {
	Event     string         `json:"event"`
	Timestamp time.Time      `json:"timestamp"`
	Program   tvprogram.Show `json:"program"`
}

// Notifier watches the schedule and POSTs a ProgramStarted event to every
// webhook subscribed to the title of a show that is airing. Each webhook
// hears about one airing once, including an airing already in progress when
// the subscription or the monitor starts.
type Notifier struct {
	Store    *schedule.Store
	Registry Registry
	Interval time.Duration
	Timeout  time.Duration
	Now      func() time.Time
	Logger   *log.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	airings map[string]*airing
}

// airing tracks which webhooks were told about a channel's current show.
type airing struct {
	key  string
	sent map[string]bool
}

// Start launches the check loop. It reports false when already running.
func (n *Notifier) Start() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.cancel != nil {
		n.logger().Info("monitoring is already active")
		return false
	}
	ctx, cancel := context.WithCancel(context.Background())
	n.cancel = cancel
	n.done = make(chan struct{})
	go n.run(ctx, n.done)
	n.logger().Info("monitoring started", "interval", n.interval())
	return true
}

// Stop ends the check loop and waits for an in-flight check to finish.
// It reports false when the loop was not running.
func (n *Notifier) Stop() bool {
	n.mu.Lock()
	cancel, done := n.cancel, n.done
	n.cancel, n.done = nil, nil
	n.mu.Unlock()
	if cancel == nil {
		return false
	}
	cancel()
	<-done
	n.logger().Info("monitoring stopped")
	return true
}

func (n *Notifier) Active() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.cancel != nil
}

func (n *Notifier) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(n.interval())
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			n.Check(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Check resolves the current show of every loaded channel and notifies the
// webhooks subscribed to its title that have not heard about this airing.
// It returns the number of delivery attempts.
func (n *Notifier) Check(ctx context.Context) int {
	snap := n.Store.Snapshot()
	if snap == nil {
		n.logger().Debug("schedule not loaded yet, skipping check")
		return 0
	}
	subs, err := n.Registry.Subscriptions(ctx)
	if err != nil {
		n.logger().Error("cannot list subscriptions", "err", err)
		return 0
	}

	now := n.now()
	attempts := 0
	for _, channel := range slices.Sorted(maps.Keys(snap.Channels)) {
		show := schedule.Current(snap.Channels[channel], now)
		if show == nil {
			continue
		}
		for _, webhookURL := range n.pending(channel, *show, subs[show.Title]) {
			if ctx.Err() != nil {
				return attempts
			}
			n.deliver(ctx, *show, webhookURL)
			attempts++
		}
	}
	return attempts
}

// pending marks and returns the webhooks not yet told about show.
func (n *Notifier) pending(channel string, show tvprogram.Show, urls []string) []string {
	key := show.StartsAt.Format(time.RFC3339) + "|" + show.Title

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.airings == nil {
		n.airings = map[string]*airing{}
	}
	a := n.airings[channel]
	if a == nil || a.key != key {
		a = &airing{key: key, sent: map[string]bool{}}
		n.airings[channel] = a
	}
	var out []string
	for _, u := range urls {
		if !a.sent[u] {
			a.sent[u] = true
			out = append(out, u)
		}
	}
	return out
}

func (n *Notifier) deliver(ctx context.Context, show tvprogram.Show, webhookURL string) {
	entry := Notification{
		ProgramTitle: show.Title,
		Channel:      show.Channel,
		StartTime:    show.Start,
		WebhookURL:   webhookURL,
		SentAt:       n.now(),
	}

	body, err := json.Marshal(ProgramStarted{Event: EventProgramStarted, Timestamp: entry.SentAt, Program: show})
	if err != nil {
		n.logger().Error("cannot encode event", "title", show.Title, "err", err)
		return
	}

	var postErr error
	c := colly.NewCollector(colly.AllowURLRevisit())
	c.SetRequestTimeout(n.timeout())
	c.OnResponse(func(r *colly.Response) {
		entry.ResponseCode = r.StatusCode
	})
	c.OnError(func(r *colly.Response, err error) {
		entry.ResponseCode = r.StatusCode
		postErr = err
	})
	hdr := http.Header{"Content-Type": []string{"application/json"}}
	if err := c.Request(http.MethodPost, webhookURL, bytes.NewReader(body), colly.NewContext(), hdr); err != nil && postErr == nil {
		postErr = err
	}

	switch {
	case entry.ResponseCode == http.StatusOK:
		entry.Status = StatusSuccess
		n.logger().Info("notification sent", "url", webhookURL, "title", show.Title, "channel", show.Channel)
	case entry.ResponseCode != 0:
		entry.Status = StatusFailed
		n.logger().Warn("webhook rejected notification", "url", webhookURL, "status", entry.ResponseCode)
	default:
		entry.Status = StatusError
		n.logger().Error("cannot send notification", "url", webhookURL, "err", postErr)
	}

	if err := n.Registry.Record(ctx, entry); err != nil {
		n.logger().Error("cannot record notification", "url", webhookURL, "err", err)
	}
}

func (n *Notifier) interval() time.Duration {
	if n.Interval <= 0 {
		return DefaultCheckInterval
	}
	return n.Interval
}

func (n *Notifier) timeout() time.Duration {
	if n.Timeout <= 0 {
		return DefaultWebhookTimeout
	}
	return n.Timeout
}

func (n *Notifier) now() time.Time {
	if n.Now == nil {
		return time.Now()
	}
	return n.Now()
}

func (n *Notifier) logger() *log.Logger {
	if n.Logger == nil {
		return log.Default()
	}
	return n.Logger
}
