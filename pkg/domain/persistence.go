package domain

import (
	"context"
	"sort"
)

// Snapshot is a point-in-time copy of every entity collection.
type Snapshot struct {
	Students  []Student  `json:"students"`
	Rooms     []Room     `json:"rooms"`
	Contracts []Contract `json:"contracts"`
	Fees      []Fee      `json:"fees"`
}

// Empty reports whether the snapshot holds no entities at all.
func (s Snapshot) Empty() bool {
	return len(s.Students) == 0 && len(s.Rooms) == 0 && len(s.Contracts) == 0 && len(s.Fees) == 0
}

// Sort orders every collection by id so encodings are deterministic.
func (s *Snapshot) Sort() {
	sort.Slice(s.Students, func(i, j int) bool { return s.Students[i].ID < s.Students[j].ID })
	sort.Slice(s.Rooms, func(i, j int) bool { return s.Rooms[i].ID < s.Rooms[j].ID })
	sort.Slice(s.Contracts, func(i, j int) bool { return s.Contracts[i].ID < s.Contracts[j].ID })
	sort.Slice(s.Fees, func(i, j int) bool { return s.Fees[i].ID < s.Fees[j].ID })
}

// Backend is the durable storage contract used by the repository. Save
// rewrites the named collections in full from the snapshot; collections not
// named are left untouched.
type Backend interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, snapshot Snapshot, kinds ...Kind) error
}

// Logger is the structured logging contract shared by the repository and its
// collaborators. Args are alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// NopLogger discards all log output.
type NopLogger struct{}

func (NopLogger) Debug(string, ...any) {}
func (NopLogger) Info(string, ...any)  {}
func (NopLogger) Warn(string, ...any)  {}
func (NopLogger) Error(string, ...any) {}
