package core

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"dormcore/internal/infra/persistence/textfile"
	"dormcore/pkg/domain"
)

func TestDeleteStudentCascadesContractsAndFees(t *testing.T) {
	ctx := context.Background()
	repo, store := newTestRepository(t)
	room := mustAddRoom(t, repo, "P401", 4)
	s := mustAddStudent(t, repo, 1)
	other := mustAddStudent(t, repo, 2)
	mustAddContract(t, repo, s.ID, room.ID)
	keepContract := mustAddContract(t, repo, other.ID, room.ID)
	mustAddFee(t, repo, s.ID, domain.FeeWater, 500, fixedNow)
	keepFee := mustAddFee(t, repo, other.ID, domain.FeeWater, 500, fixedNow)

	if err := repo.DeleteStudent(ctx, s.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := repo.GetStudent(s.ID); ok {
		t.Fatalf("student still present")
	}
	contracts := repo.ListContracts()
	if len(contracts) != 1 || contracts[0].ID != keepContract.ID {
		t.Fatalf("unexpected contracts after cascade: %+v", contracts)
	}
	fees := repo.ListFees()
	if len(fees) != 1 || fees[0].ID != keepFee.ID {
		t.Fatalf("unexpected fees after cascade: %+v", fees)
	}
	_, kinds := store.Saves()
	if len(kinds) != 3 || kinds[0] != domain.KindStudent || kinds[1] != domain.KindContract || kinds[2] != domain.KindFee {
		t.Fatalf("cascade must persist every touched kind, got %v", kinds)
	}
	persisted, _ := store.Load(ctx)
	if len(persisted.Contracts) != 1 || len(persisted.Fees) != 1 {
		t.Fatalf("cascade not persisted: %+v", persisted)
	}
}

func TestDeleteRoomUnassignsStudentsAndRemovesContracts(t *testing.T) {
	ctx := context.Background()
	repo, store := newTestRepository(t)
	room := mustAddRoom(t, repo, "P401", 4)
	otherRoom := mustAddRoom(t, repo, "P402", 4)
	s1 := mustAddStudent(t, repo, 1)
	s2 := mustAddStudent(t, repo, 2)
	if err := repo.AssignStudentToRoom(ctx, s1.ID, room.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if err := repo.AssignStudentToRoom(ctx, s2.ID, otherRoom.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}
	mustAddContract(t, repo, s1.ID, room.ID)
	keep := mustAddContract(t, repo, s2.ID, otherRoom.ID)
	fee := mustAddFee(t, repo, s1.ID, domain.FeeRoom, 12000, fixedNow)

	if err := repo.DeleteRoom(ctx, room.ID); err != nil {
		t.Fatalf("delete room: %v", err)
	}
	if _, ok := repo.GetRoom(room.ID); ok {
		t.Fatalf("room still present")
	}
	got, _ := repo.GetStudent(s1.ID)
	if got.RoomID != 0 {
		t.Fatalf("student must be unassigned, got room %d", got.RoomID)
	}
	if got2, _ := repo.GetStudent(s2.ID); got2.RoomID != otherRoom.ID {
		t.Fatalf("unrelated student changed")
	}
	contracts := repo.ListContracts()
	if len(contracts) != 1 || contracts[0].ID != keep.ID {
		t.Fatalf("unexpected contracts %+v", contracts)
	}
	if _, ok := repo.GetFee(fee.ID); !ok {
		t.Fatalf("fees are not tied to rooms")
	}
	persisted, _ := store.Load(ctx)
	for _, s := range persisted.Students {
		if s.ID == s1.ID && s.RoomID != 0 {
			t.Fatalf("unassignment not persisted")
		}
	}
}

func TestCapacityScenario(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepository(t)
	room := mustAddRoom(t, repo, "P401", 4)
	if room.ID != 1 {
		t.Fatalf("expected room id 1, got %d", room.ID)
	}
	var students []domain.Student
	for i := 1; i <= 5; i++ {
		students = append(students, mustAddStudent(t, repo, i))
	}
	for i, s := range students[:4] {
		if s.ID != i+1 {
			t.Fatalf("expected student id %d, got %d", i+1, s.ID)
		}
		if err := repo.AssignStudentToRoom(ctx, s.ID, room.ID); err != nil {
			t.Fatalf("assign %d: %v", s.ID, err)
		}
	}
	full, _ := repo.GetRoom(room.ID)
	if full.Status != domain.RoomFull || full.Occupancy != 4 {
		t.Fatalf("expected FULL with 4, got %s %d", full.Status, full.Occupancy)
	}
	if err := repo.AssignStudentToRoom(ctx, students[4].ID, room.ID); !errors.Is(err, domain.ErrRoomFull) {
		t.Fatalf("expected room full, got %v", err)
	}
	if occ, _ := repo.Occupancy(room.ID); occ != 4 {
		t.Fatalf("occupancy changed after rejected assign: %d", occ)
	}
	if isFull, _ := repo.IsRoomFull(room.ID); !isFull {
		t.Fatalf("expected IsRoomFull")
	}
	if len(repo.AvailableRooms()) != 0 {
		t.Fatalf("full room must not be available")
	}

	if err := repo.RemoveStudentFromRoom(ctx, students[0].ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	after, _ := repo.GetRoom(room.ID)
	if after.Status != domain.RoomOccupied {
		t.Fatalf("expected OCCUPIED after removal, got %s", after.Status)
	}
	if beds, _ := repo.AvailableBeds(room.ID); beds != 1 {
		t.Fatalf("expected one free bed, got %d", beds)
	}
	if err := repo.AssignStudentToRoom(ctx, students[4].ID, room.ID); err != nil {
		t.Fatalf("assign after removal: %v", err)
	}

	if err := repo.DeleteRoom(ctx, room.ID); err != nil {
		t.Fatalf("delete room: %v", err)
	}
	for _, s := range repo.ListStudents() {
		if s.RoomID != 0 {
			t.Fatalf("student %d still assigned to %d", s.ID, s.RoomID)
		}
	}
}

func TestAssignmentPreconditions(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepository(t)
	a := mustAddRoom(t, repo, "A", 2)
	b := mustAddRoom(t, repo, "B", 2)
	s := mustAddStudent(t, repo, 1)
	if err := repo.RemoveStudentFromRoom(ctx, s.ID); !errors.Is(err, domain.ErrNotAssigned) {
		t.Fatalf("expected not assigned, got %v", err)
	}
	if err := repo.AssignStudentToRoom(ctx, s.ID, a.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if err := repo.AssignStudentToRoom(ctx, s.ID, b.ID); !errors.Is(err, domain.ErrAlreadyAssigned) {
		t.Fatalf("expected already assigned, got %v", err)
	}
	if _, err := repo.UpdateRoom(ctx, domain.Room{ID: a.ID, Number: "A", Capacity: 0}); !errors.Is(err, domain.ErrInvalid) {
		t.Fatalf("expected invalid capacity, got %v", err)
	}
	mustAddStudent(t, repo, 2)
	if err := repo.AssignStudentToRoom(ctx, 2, a.ID); err != nil {
		t.Fatalf("assign second: %v", err)
	}
	if _, err := repo.UpdateRoom(ctx, domain.Room{ID: a.ID, Number: "A", Capacity: 1}); !errors.Is(err, domain.ErrInvalid) {
		t.Fatalf("capacity below occupancy must be rejected, got %v", err)
	}
	moved := s
	moved.RoomID = b.ID
	if _, err := repo.UpdateStudent(ctx, moved); err != nil {
		t.Fatalf("move via update: %v", err)
	}
	if occ, _ := repo.Occupancy(b.ID); occ != 1 {
		t.Fatalf("expected derived occupancy to follow update, got %d", occ)
	}
	third := newStudent(3)
	third.RoomID = 999
	if _, err := repo.AddStudent(ctx, third); !domain.IsNotFound(err) {
		t.Fatalf("expected missing room rejection, got %v", err)
	}
}

func TestConcurrentAssignsNeverOverfill(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepository(t)
	room := mustAddRoom(t, repo, "Single", 1)
	const n = 12
	for i := 1; i <= n; i++ {
		mustAddStudent(t, repo, i)
	}
	var ok atomic.Int32
	var wg sync.WaitGroup
	for i := 1; i <= n; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if err := repo.AssignStudentToRoom(ctx, id, room.ID); err == nil {
				ok.Add(1)
			} else if !errors.Is(err, domain.ErrRoomFull) {
				t.Errorf("unexpected error %v", err)
			}
		}(i)
	}
	wg.Wait()
	if ok.Load() != 1 {
		t.Fatalf("expected exactly one successful assignment, got %d", ok.Load())
	}
	if occ, _ := repo.Occupancy(room.ID); occ != 1 {
		t.Fatalf("room overfilled: %d", occ)
	}
}

func TestRoomsFileFollowsStudentRoomLinks(t *testing.T) {
	ctx := context.Background()
	backend, err := textfile.New(t.TempDir())
	if err != nil {
		t.Fatalf("text backend: %v", err)
	}
	repo, err := Open(ctx, backend, WithSeed(false), WithClock(fixedClock()))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	roomLine := func() string {
		t.Helper()
		raw, err := os.ReadFile(backend.Path(domain.KindRoom))
		if err != nil {
			t.Fatalf("read rooms file: %v", err)
		}
		return strings.TrimSpace(string(raw))
	}

	single := mustAddRoom(t, repo, "P401", 1)
	s := newStudent(1)
	s.RoomID = single.ID
	s, err = repo.AddStudent(ctx, s)
	if err != nil {
		t.Fatalf("add student: %v", err)
	}
	if got := roomLine(); got != "1,P401,1-Person,1,120.00,1,FULL" {
		t.Fatalf("rooms file after add = %q", got)
	}

	s.RoomID = 0
	if _, err := repo.UpdateStudent(ctx, s); err != nil {
		t.Fatalf("update student: %v", err)
	}
	if got := roomLine(); got != "1,P401,1-Person,1,120.00,0,AVAILABLE" {
		t.Fatalf("rooms file after moving out = %q", got)
	}

	s.RoomID = single.ID
	if _, err := repo.UpdateStudent(ctx, s); err != nil {
		t.Fatalf("move back: %v", err)
	}
	if err := repo.DeleteStudent(ctx, s.ID); err != nil {
		t.Fatalf("delete student: %v", err)
	}
	if got := roomLine(); got != "1,P401,1-Person,1,120.00,0,AVAILABLE" {
		t.Fatalf("rooms file after delete = %q", got)
	}
}
