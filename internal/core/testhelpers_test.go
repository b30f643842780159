package core

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"dormcore/internal/infra/persistence/memory"
	"dormcore/pkg/domain"
)

var fixedNow = time.Date(2024, 9, 1, 10, 30, 0, 0, time.UTC)

func fixedClock() Clock {
	return ClockFunc(func() time.Time { return fixedNow })
}

type movableClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *movableClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *movableClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestRepository(t *testing.T, opts ...Option) (*Repository, *memory.Store) {
	t.Helper()
	store := memory.NewStore(domain.Snapshot{})
	base := []Option{WithSeed(false), WithClock(fixedClock())}
	repo, err := Open(context.Background(), store, append(base, opts...)...)
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	return repo, store
}

func mustAddRoom(t *testing.T, repo *Repository, number string, capacity int) domain.Room {
	t.Helper()
	room, err := repo.AddRoom(context.Background(), domain.Room{Number: number, Capacity: capacity, Price: 12000})
	if err != nil {
		t.Fatalf("add room %s: %v", number, err)
	}
	return room
}

func newStudent(n int) domain.Student {
	return domain.Student{
		Code:      fmt.Sprintf("ST%03d", n),
		Name:      fmt.Sprintf("Student %d", n),
		BirthDate: time.Date(2004, 1, n%28+1, 0, 0, 0, 0, time.UTC),
		Gender:    "Female",
		Email:     fmt.Sprintf("s%d@example.com", n),
	}
}

func mustAddStudent(t *testing.T, repo *Repository, n int) domain.Student {
	t.Helper()
	s, err := repo.AddStudent(context.Background(), newStudent(n))
	if err != nil {
		t.Fatalf("add student %d: %v", n, err)
	}
	return s
}

func mustAddContract(t *testing.T, repo *Repository, studentID, roomID int) domain.Contract {
	t.Helper()
	start := domain.Date(fixedNow)
	c, err := repo.AddContract(context.Background(), domain.Contract{
		StudentID: studentID,
		RoomID:    roomID,
		StartDate: start,
		EndDate:   start.AddDate(0, 6, 0),
		Price:     12000,
		Deposit:   12000,
	})
	if err != nil {
		t.Fatalf("add contract: %v", err)
	}
	return c
}

func mustAddFee(t *testing.T, repo *Repository, studentID int, kind domain.FeeKind, amount domain.Money, due time.Time) domain.Fee {
	t.Helper()
	f, err := repo.AddFee(context.Background(), domain.Fee{StudentID: studentID, Kind: kind, Amount: amount, DueDate: due})
	if err != nil {
		t.Fatalf("add fee: %v", err)
	}
	return f
}

type countingBackend struct {
	domain.Backend
	mu    sync.Mutex
	loads int
}

func (b *countingBackend) Load(ctx context.Context) (domain.Snapshot, error) {
	b.mu.Lock()
	b.loads++
	b.mu.Unlock()
	time.Sleep(5 * time.Millisecond)
	return b.Backend.Load(ctx)
}
