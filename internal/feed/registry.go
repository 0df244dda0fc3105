package feed

import (
	"context"
	"slices"
	"sync"
	"time"
)

// Notification is one webhook delivery attempt.
type Notification struct {
	ID           int64     `json:"id"`
	ProgramTitle string    `json:"program_title"`
	Channel      string    `json:"channel"`
	StartTime    string    `json:"start_time"`
	WebhookURL   string    `json:"webhook_url"`
	Status       string    `json:"status"`
	ResponseCode int       `json:"response_code"`
	SentAt       time.Time `json:"sent_at"`
}

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusError   = "error"
)

// Registry keeps webhook subscriptions by program title and the log of
// deliveries made to them.
type Registry interface {
	Subscribe(ctx context.Context, title, webhookURL string) error
	Unsubscribe(ctx context.Context, title, webhookURL string) error
	// Subscriptions maps each subscribed title to its webhook URLs in
	// subscription order.
	Subscriptions(ctx context.Context) (map[string][]string, error)
	Record(ctx context.Context, n Notification) error
	// Logs returns up to limit deliveries, newest first.
	Logs(ctx context.Context, limit int) ([]Notification, error)
}

const defaultLogCapacity = 1000

// MemoryRegistry is a process-local Registry. It keeps the newest
// deliveries up to its capacity.
type MemoryRegistry struct {
	mu       sync.Mutex
	subs     map[string][]string
	logs     []Notification
	capacity int
	nextID   int64
}

func NewMemoryRegistry(capacity int) *MemoryRegistry {
	if capacity <= 0 {
		capacity = defaultLogCapacity
	}
	return &MemoryRegistry{subs: map[string][]string{}, capacity: capacity}
}

func (m *MemoryRegistry) Subscribe(_ context.Context, title, webhookURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !slices.Contains(m.subs[title], webhookURL) {
		m.subs[title] = append(m.subs[title], webhookURL)
	}
	return nil
}

func (m *MemoryRegistry) Unsubscribe(_ context.Context, title, webhookURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	urls := slices.DeleteFunc(m.subs[title], func(u string) bool { return u == webhookURL })
	if len(urls) == 0 {
		delete(m.subs, title)
	} else {
		m.subs[title] = urls
	}
	return nil
}

func (m *MemoryRegistry) Subscriptions(context.Context) (map[string][]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string][]string, len(m.subs))
	for title, urls := range m.subs {
		out[title] = slices.Clone(urls)
	}
	return out, nil
}

func (m *MemoryRegistry) Record(_ context.Context, n Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	n.ID = m.nextID
	m.logs = append(m.logs, n)
	if over := len(m.logs) - m.capacity; over > 0 {
		m.logs = slices.Delete(m.logs, 0, over)
	}
	return nil
}

func (m *MemoryRegistry) Logs(_ context.Context, limit int) ([]Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := min(limit, len(m.logs))
	out := make([]Notification, 0, max(n, 0))
	for i := len(m.logs) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, m.logs[i])
	}
	return out, nil
}
