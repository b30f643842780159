package memory

import (
	"context"
	"errors"
	"testing"

	"dormcore/pkg/domain"
)

func TestStoreSaveIsolatesCallerMutations(t *testing.T) {
	ctx := context.Background()
	desc := "initial"
	snap := domain.Snapshot{
		Rooms: []domain.Room{{ID: 1, Number: "P401", Capacity: 4}},
		Fees:  []domain.Fee{{ID: 1, Description: &desc}},
	}
	store := NewStore(domain.Snapshot{})
	if err := store.Save(ctx, snap); err != nil {
		t.Fatalf("save: %v", err)
	}
	snap.Rooms[0].Number = "mutated"
	*snap.Fees[0].Description = "mutated"

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Rooms[0].Number != "P401" || *got.Fees[0].Description != "initial" {
		t.Fatalf("store shares memory with caller: %+v", got)
	}
}

func TestStoreSavesNamedKindsOnly(t *testing.T) {
	ctx := context.Background()
	store := NewStore(domain.Snapshot{Students: []domain.Student{{ID: 1}}})
	if err := store.Save(ctx, domain.Snapshot{Rooms: []domain.Room{{ID: 7}}}, domain.KindRoom); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, _ := store.Load(ctx)
	if len(got.Students) != 1 || len(got.Rooms) != 1 {
		t.Fatalf("unexpected snapshot %+v", got)
	}
	n, kinds := store.Saves()
	if n != 1 || len(kinds) != 1 || kinds[0] != domain.KindRoom {
		t.Fatalf("unexpected save bookkeeping %d %v", n, kinds)
	}
}

func TestStoreFailureInjection(t *testing.T) {
	ctx := context.Background()
	store := NewStore(domain.Snapshot{})
	boom := errors.New("boom")
	store.FailSaves(boom)
	if err := store.Save(ctx, domain.Snapshot{}); !errors.Is(err, boom) {
		t.Fatalf("expected injected save error, got %v", err)
	}
	store.FailLoads(boom)
	if _, err := store.Load(ctx); !errors.Is(err, boom) {
		t.Fatalf("expected injected load error, got %v", err)
	}
	store.FailSaves(nil)
	store.FailLoads(nil)
	if err := store.Save(ctx, domain.Snapshot{}); err != nil {
		t.Fatalf("save after reset: %v", err)
	}
	if n, _ := store.Saves(); n != 1 {
		t.Fatalf("failed saves must not be counted, got %d", n)
	}
}
