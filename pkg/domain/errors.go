package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors returned by repository operations. Callers match them with errors.Is.
var (
	// ErrInvalid marks malformed input rejected before any state mutation.
	ErrInvalid = errors.New("invalid entity")
	// ErrAlreadyAssigned is returned when assigning a student that already has a room.
	ErrAlreadyAssigned = errors.New("student already assigned to a room")
	// ErrNotAssigned is returned when removing a student that has no room.
	ErrNotAssigned = errors.New("student is not assigned to a room")
	// ErrRoomFull is returned when an assignment would exceed room capacity.
	ErrRoomFull = errors.New("room is full")
	// ErrInvalidTransition is returned when a status change is not allowed.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrDuplicateCode is returned when a student code is already taken.
	ErrDuplicateCode = errors.New("duplicate code")
)

// ErrNotFound reports an unknown id for the given kind.
type ErrNotFound struct {
	Kind Kind
	ID   int
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %d not found", e.Kind, e.ID)
}

// IsNotFound reports whether err wraps an ErrNotFound.
func IsNotFound(err error) bool {
	var nf ErrNotFound
	return errors.As(err, &nf)
}

// FieldError describes a single rejected field.
type FieldError struct {
	Field string
	Rule  string
	Param string
}

func (f FieldError) String() string {
	if f.Param != "" {
		return fmt.Sprintf("%s:%s=%s", f.Field, f.Rule, f.Param)
	}
	return fmt.Sprintf("%s:%s", f.Field, f.Rule)
}

// ValidationError lists the fields that failed validation. It unwraps to ErrInvalid.
type ValidationError struct {
	Kind   Kind
	Fields []FieldError
}

func (e ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.String())
	}
	return fmt.Sprintf("invalid %s: %s", e.Kind, strings.Join(parts, ", "))
}

func (e ValidationError) Unwrap() error { return ErrInvalid }

// PersistError reports a durable write failure after the in-memory state was
// already changed. The in-memory change is not rolled back.
type PersistError struct {
	Op    string
	Kinds []Kind
	Err   error
}

func (e PersistError) Error() string {
	names := make([]string, 0, len(e.Kinds))
	for _, k := range e.Kinds {
		names = append(names, string(k))
	}
	return fmt.Sprintf("%s: persist %s: %v", e.Op, strings.Join(names, ","), e.Err)
}

func (e PersistError) Unwrap() error { return e.Err }
