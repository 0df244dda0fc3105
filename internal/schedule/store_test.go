package schedule

import (
	"errors"
	"testing"

	"github.com/satanowski/tvfeed/internal/tvprogram"
)

func TestStoreUninitialized(t *testing.T) {
	store := NewStore()
	if store.Snapshot() != nil {
		t.Fatal("new store should have no snapshot")
	}
	if _, err := store.Channel("dajto"); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("Channel() error = %v, want ErrNotInitialized", err)
	}
}

func TestStoreReplacePartitionsAndSorts(t *testing.T) {
	store := NewStore()
	store.Replace(NewSnapshot([]tvprogram.Show{
		show("dajto", "Later", at(15, 12, 0)),
		show("prima-sk", "Other", at(15, 8, 0)),
		show("dajto", "Early", at(15, 6, 0)),
	}, at(15, 7, 0)))

	dajto, err := store.Channel("dajto")
	if err != nil {
		t.Fatalf("Channel() error = %v", err)
	}
	if len(dajto) != 2 || dajto[0].Title != "Early" || dajto[1].Title != "Later" {
		t.Fatalf("unexpected dajto schedule: %+v", dajto)
	}
	for _, s := range dajto {
		if s.Channel != "dajto" {
			t.Fatalf("foreign show in dajto schedule: %+v", s)
		}
	}
	if _, err := store.Channel("markiza-krimi"); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("missing channel error = %v, want ErrNotInitialized", err)
	}
}

func TestSnapshotToday(t *testing.T) {
	snap := NewSnapshot([]tvprogram.Show{
		show("dajto", "Today", at(15, 20, 0)),
		show("dajto", "Tomorrow", at(16, 20, 0)),
	}, at(15, 7, 0))

	today := snap.Today("dajto", at(15, 9, 0))
	if len(today) != 1 || today[0].Title != "Today" {
		t.Fatalf("Today() = %+v", today)
	}
}
