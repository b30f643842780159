// Package core implements the dormitory entity repository: id-keyed
// collections of students, rooms, contracts and fees with referential
// integrity, synchronous persistence through a domain.Backend, and the
// operational hooks (logging, metrics, tracing) around every call.
package core

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"dormcore/pkg/domain"
)

// Repository is the process-wide entity store.
//
// A single RWMutex guards all four collections, so every exported call is
// atomic with respect to the others, including the check-then-act inside
// AssignStudentToRoom. Sequences of calls are not atomic as a whole.
//
// Every mutating call rewrites the touched collections through the backend
// before returning. When that write fails the in-memory change stays in
// place and the call returns a domain.PersistError.
type Repository struct {
	backend domain.Backend
	logger  Logger
	clock   Clock
	metrics MetricsRecorder
	tracer  Tracer
	seed    bool

	mu    sync.RWMutex
	state state

	// persistMu is taken before mu is released so backend writes happen in
	// mutation order.
	persistMu sync.Mutex

	studentSeq  atomic.Int64
	roomSeq     atomic.Int64
	contractSeq atomic.Int64
	feeSeq      atomic.Int64
}

type state struct {
	students  map[int]domain.Student
	rooms     map[int]domain.Room
	contracts map[int]domain.Contract
	fees      map[int]domain.Fee
}

func newState() state {
	return state{
		students:  make(map[int]domain.Student),
		rooms:     make(map[int]domain.Room),
		contracts: make(map[int]domain.Contract),
		fees:      make(map[int]domain.Fee),
	}
}

// Open loads every collection from backend and, when the student collection
// is empty and seeding is enabled, inserts the sample dataset and persists it.
func Open(ctx context.Context, backend domain.Backend, opts ...Option) (*Repository, error) {
	if backend == nil {
		return nil, fmt.Errorf("open repository: nil backend")
	}
	r := &Repository{
		backend: backend,
		logger:  noopLogger{},
		clock:   systemClock{},
		metrics: noopMetrics{},
		tracer:  noopTracer{},
		seed:    true,
		state:   newState(),
	}
	for _, opt := range opts {
		opt(r)
	}
	err := r.run(ctx, "open", func(ctx context.Context) error {
		snapshot, err := backend.Load(ctx)
		if err != nil {
			return fmt.Errorf("load: %w", err)
		}
		r.importSnapshot(snapshot)
		r.logger.Info("repository loaded",
			"students", len(snapshot.Students),
			"rooms", len(snapshot.Rooms),
			"contracts", len(snapshot.Contracts),
			"fees", len(snapshot.Fees))
		if r.seed && len(r.state.students) == 0 {
			return r.seedSampleData(ctx)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Repository) importSnapshot(snapshot domain.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = newState()
	for _, s := range snapshot.Students {
		r.state.students[s.ID] = s
		raiseTo(&r.studentSeq, s.ID)
	}
	for _, room := range snapshot.Rooms {
		room.Occupancy, room.Status = 0, ""
		r.state.rooms[room.ID] = room
		raiseTo(&r.roomSeq, room.ID)
	}
	for _, c := range snapshot.Contracts {
		r.state.contracts[c.ID] = c
		raiseTo(&r.contractSeq, c.ID)
	}
	for _, f := range snapshot.Fees {
		r.state.fees[f.ID] = domain.CloneFee(f)
		raiseTo(&r.feeSeq, f.ID)
	}
	for id, s := range r.state.students {
		if s.RoomID != 0 {
			if _, ok := r.state.rooms[s.RoomID]; !ok {
				r.logger.Warn("student references missing room, unassigning", "student_id", id, "room_id", s.RoomID)
				s.RoomID = 0
				r.state.students[id] = s
			}
		}
	}
}

func raiseTo(seq *atomic.Int64, id int) {
	for {
		cur := seq.Load()
		if int64(id) <= cur || seq.CompareAndSwap(cur, int64(id)) {
			return
		}
	}
}

func nextID(seq *atomic.Int64) int { return int(seq.Add(1)) }

// today returns the repository clock's current date.
func (r *Repository) today() time.Time { return domain.Date(r.clock.Now()) }

// Clock returns the repository clock.
func (r *Repository) Clock() Clock { return r.clock }

// run wraps an operation with tracing, metrics and failure logging.
func (r *Repository) run(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	start := time.Now()
	ctx, span := r.tracer.Start(ctx, op)
	err := fn(ctx)
	span.End(err)
	r.metrics.Observe(ctx, op, err == nil, time.Since(start))
	if err != nil {
		r.logger.Debug("repository operation failed", "operation", op, "error", err)
	}
	return err
}

// commit is called with r.mu held for writing. It snapshots the touched kinds,
// releases r.mu and writes them through the backend.
func (r *Repository) commit(ctx context.Context, op string, kinds ...domain.Kind) error {
	snapshot := r.snapshotLocked(kinds...)
	r.persistMu.Lock()
	r.mu.Unlock()
	defer r.persistMu.Unlock()
	if err := r.backend.Save(ctx, snapshot, kinds...); err != nil {
		r.logger.Error("persist failed", "operation", op, "kinds", kindNames(kinds), "error", err)
		return domain.PersistError{Op: op, Kinds: kinds, Err: err}
	}
	return nil
}

// mutate runs fn under the write lock and persists the kinds it reports as
// touched. When fn fails nothing is persisted.
func (r *Repository) mutate(ctx context.Context, op string, fn func(st *state) ([]domain.Kind, error)) error {
	return r.run(ctx, op, func(ctx context.Context) error {
		r.mu.Lock()
		touched, err := fn(&r.state)
		if err != nil {
			r.mu.Unlock()
			return err
		}
		if len(touched) == 0 {
			r.mu.Unlock()
			return nil
		}
		return r.commit(ctx, op, touched...)
	})
}

func kindNames(kinds []domain.Kind) []string {
	out := make([]string, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, string(k))
	}
	return out
}

// Snapshot returns a copy of every collection. Rooms carry derived occupancy
// and status.
func (r *Repository) Snapshot() domain.Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLocked()
}

func (r *Repository) snapshotLocked(kinds ...domain.Kind) domain.Snapshot {
	want := func(k domain.Kind) bool {
		if len(kinds) == 0 {
			return true
		}
		for _, candidate := range kinds {
			if candidate == k {
				return true
			}
		}
		return false
	}
	var out domain.Snapshot
	if want(domain.KindStudent) {
		out.Students = r.state.listStudents()
	}
	if want(domain.KindRoom) {
		out.Rooms = r.state.listRooms()
	}
	if want(domain.KindContract) {
		out.Contracts = r.state.listContracts()
	}
	if want(domain.KindFee) {
		out.Fees = r.state.listFees()
	}
	return out
}

// SaveAll rewrites all four collections.
func (r *Repository) SaveAll(ctx context.Context) error {
	return r.run(ctx, "save_all", func(ctx context.Context) error {
		r.mu.Lock()
		return r.commit(ctx, "save_all", domain.Kinds()...)
	})
}

func (st *state) occupancy() map[int]int {
	counts := make(map[int]int, len(st.rooms))
	for _, s := range st.students {
		if s.RoomID != 0 {
			counts[s.RoomID]++
		}
	}
	return counts
}

func (st *state) occupancyOf(roomID int) int {
	n := 0
	for _, s := range st.students {
		if s.RoomID == roomID {
			n++
		}
	}
	return n
}

func decorateRoom(room domain.Room, occupancy int) domain.Room {
	room.Occupancy = occupancy
	room.Status = domain.DeriveRoomStatus(occupancy, room.Capacity)
	return room
}

func (st *state) listStudents() []domain.Student {
	out := make([]domain.Student, 0, len(st.students))
	for _, s := range st.students {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (st *state) listRooms() []domain.Room {
	counts := st.occupancy()
	out := make([]domain.Room, 0, len(st.rooms))
	for _, room := range st.rooms {
		out = append(out, decorateRoom(room, counts[room.ID]))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (st *state) listContracts() []domain.Contract {
	out := make([]domain.Contract, 0, len(st.contracts))
	for _, c := range st.contracts {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (st *state) listFees() []domain.Fee {
	out := make([]domain.Fee, 0, len(st.fees))
	for _, f := range st.fees {
		out = append(out, domain.CloneFee(f))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
