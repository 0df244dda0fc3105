package feed

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type countingData struct {
	calls atomic.Int32
	fail  atomic.Bool
}

func (d *countingData) ChannelCurrentData(channel string, kind Kind) (any, error) {
	n := d.calls.Add(1)
	if d.fail.Load() {
		return nil, errors.New("unavailable")
	}
	return map[string]any{"channel": channel, "n": n}, nil
}

func receive(t *testing.T, sub *Subscription) []byte {
	t.Helper()
	select {
	case data, ok := <-sub.Events():
		if !ok {
			t.Fatal("events closed")
		}
		return data
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}
	return nil
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSubscribePushesImmediately(t *testing.T) {
	hub := NewHub(&countingData{}, time.Hour, quietLogger())
	sub := hub.Subscribe(context.Background(), "dajto", KindShow)
	defer hub.Unsubscribe(sub.ID)

	if got := string(receive(t, sub)); got != `{"channel":"dajto","n":1}` {
		t.Fatalf("first event = %s", got)
	}
	if hub.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", hub.Count())
	}
}

func TestSubscribePushesPeriodically(t *testing.T) {
	hub := NewHub(&countingData{}, 10*time.Millisecond, quietLogger())
	sub := hub.Subscribe(context.Background(), "dajto", KindViewership)
	defer hub.Unsubscribe(sub.ID)

	for i := 0; i < 3; i++ {
		receive(t, sub)
	}
}

func TestUnsubscribeStopsPump(t *testing.T) {
	data := &countingData{}
	hub := NewHub(data, 5*time.Millisecond, quietLogger())
	sub := hub.Subscribe(context.Background(), "dajto", KindShow)
	receive(t, sub)

	hub.Unsubscribe(sub.ID)
	hub.Unsubscribe(sub.ID)
	if hub.Count() != 0 {
		t.Fatalf("Count() = %d after unsubscribe", hub.Count())
	}

	for range sub.Events() {
	}
	calls := data.calls.Load()
	time.Sleep(30 * time.Millisecond)
	if data.calls.Load() != calls {
		t.Fatal("pump kept sampling after unsubscribe")
	}
}

func TestContextCancelEndsSubscription(t *testing.T) {
	hub := NewHub(&countingData{}, time.Hour, quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	sub := hub.Subscribe(ctx, "dajto", KindShow)
	receive(t, sub)

	cancel()
	waitFor(t, func() bool { return hub.Count() == 0 })
	if _, ok := <-sub.Events(); ok {
		t.Fatal("events should be closed after cancel")
	}
}

func TestSlowSubscriberDoesNotBlockOthers(t *testing.T) {
	hub := NewHub(&countingData{}, 5*time.Millisecond, quietLogger())
	defer hub.Close()

	hub.Subscribe(context.Background(), "dajto", KindShow)
	fast := hub.Subscribe(context.Background(), "dajto", KindShow)
	for i := 0; i < 5; i++ {
		receive(t, fast)
	}
}

func TestFailedSampleKeepsSubscription(t *testing.T) {
	data := &countingData{}
	data.fail.Store(true)
	hub := NewHub(data, 5*time.Millisecond, quietLogger())
	sub := hub.Subscribe(context.Background(), "dajto", KindViewership)
	defer hub.Unsubscribe(sub.ID)

	waitFor(t, func() bool { return data.calls.Load() >= 2 })
	data.fail.Store(false)
	receive(t, sub)
}

func TestFailedFirstSampleSendsNothing(t *testing.T) {
	data := &countingData{}
	data.fail.Store(true)
	hub := NewHub(data, time.Hour, quietLogger())
	sub := hub.Subscribe(context.Background(), "dajto", KindViewership)
	defer hub.Unsubscribe(sub.ID)

	waitFor(t, func() bool { return data.calls.Load() >= 1 })
	select {
	case ev := <-sub.Events():
		t.Fatalf("got event %s from a failed sample", ev)
	case <-time.After(50 * time.Millisecond):
	}
	if hub.Count() != 1 {
		t.Fatalf("Count() = %d, subscription should stay open", hub.Count())
	}
}

func TestCloseEndsAll(t *testing.T) {
	hub := NewHub(&countingData{}, time.Hour, quietLogger())
	a := hub.Subscribe(context.Background(), "a", KindShow)
	b := hub.Subscribe(context.Background(), "b", KindShow)
	hub.Close()

	if hub.Count() != 0 {
		t.Fatalf("Count() = %d after Close", hub.Count())
	}
	for _, sub := range []*Subscription{a, b} {
		for range sub.Events() {
		}
	}
}
