// Package memory provides a volatile backend used by tests and ephemeral
// environments. It keeps deep copies of the last saved snapshot.
package memory

import (
	"context"
	"sync"

	"dormcore/internal/infra/persistence"
	"dormcore/pkg/domain"
)

var _ domain.Backend = (*Store)(nil)

// Store holds snapshots in memory.
type Store struct {
	mu        sync.Mutex
	state     domain.Snapshot
	saveErr   error
	loadErr   error
	saves     int
	lastKinds []domain.Kind
}

// NewStore returns a store pre-populated with a copy of initial.
func NewStore(initial domain.Snapshot) *Store {
	return &Store{state: cloneSnapshot(initial)}
}

// Load returns a copy of the stored snapshot.
func (s *Store) Load(context.Context) (domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return domain.Snapshot{}, s.loadErr
	}
	out := cloneSnapshot(s.state)
	out.Sort()
	return out, nil
}

// Save replaces the named collections with copies from snapshot.
func (s *Store) Save(_ context.Context, snapshot domain.Snapshot, kinds ...domain.Kind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	kinds = persistence.Kinds(kinds)
	next := cloneSnapshot(snapshot)
	for _, kind := range kinds {
		switch kind {
		case domain.KindStudent:
			s.state.Students = next.Students
		case domain.KindRoom:
			s.state.Rooms = next.Rooms
		case domain.KindContract:
			s.state.Contracts = next.Contracts
		case domain.KindFee:
			s.state.Fees = next.Fees
		}
	}
	s.saves++
	s.lastKinds = append([]domain.Kind(nil), kinds...)
	return nil
}

// FailSaves makes every subsequent Save return err; nil restores normal saves.
func (s *Store) FailSaves(err error) {
	s.mu.Lock()
	s.saveErr = err
	s.mu.Unlock()
}

// FailLoads makes every subsequent Load return err; nil restores normal loads.
func (s *Store) FailLoads(err error) {
	s.mu.Lock()
	s.loadErr = err
	s.mu.Unlock()
}

// Saves reports how many saves succeeded and which kinds the last one wrote.
func (s *Store) Saves() (int, []domain.Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves, append([]domain.Kind(nil), s.lastKinds...)
}

func cloneSnapshot(in domain.Snapshot) domain.Snapshot {
	out := domain.Snapshot{
		Students:  append([]domain.Student(nil), in.Students...),
		Rooms:     append([]domain.Room(nil), in.Rooms...),
		Contracts: append([]domain.Contract(nil), in.Contracts...),
		Fees:      make([]domain.Fee, 0, len(in.Fees)),
	}
	for _, f := range in.Fees {
		out.Fees = append(out.Fees, domain.CloneFee(f))
	}
	if len(out.Fees) == 0 {
		out.Fees = nil
	}
	return out
}
