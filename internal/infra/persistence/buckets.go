// Package persistence holds helpers shared by the snapshot-table backends,
// which store each entity kind as one JSON payload keyed by bucket name.
package persistence

import (
	"encoding/json"
	"fmt"

	"dormcore/pkg/domain"
)

// Bucket returns the state-table key for kind.
func Bucket(kind domain.Kind) string { return string(kind) + "s" }

// KindForBucket maps a state-table key back to its kind.
func KindForBucket(bucket string) (domain.Kind, bool) {
	for _, kind := range domain.Kinds() {
		if Bucket(kind) == bucket {
			return kind, true
		}
	}
	return "", false
}

// MarshalKind encodes the collection for kind as a JSON array.
func MarshalKind(snapshot domain.Snapshot, kind domain.Kind) ([]byte, error) {
	var v any
	switch kind {
	case domain.KindStudent:
		v = nonNil(snapshot.Students)
	case domain.KindRoom:
		v = nonNil(snapshot.Rooms)
	case domain.KindContract:
		v = nonNil(snapshot.Contracts)
	case domain.KindFee:
		v = nonNil(snapshot.Fees)
	default:
		return nil, fmt.Errorf("unknown kind %q", kind)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", Bucket(kind), err)
	}
	return data, nil
}

// UnmarshalKind decodes payload into the collection for kind on snapshot.
func UnmarshalKind(snapshot *domain.Snapshot, kind domain.Kind, payload []byte) error {
	var target any
	switch kind {
	case domain.KindStudent:
		target = &snapshot.Students
	case domain.KindRoom:
		target = &snapshot.Rooms
	case domain.KindContract:
		target = &snapshot.Contracts
	case domain.KindFee:
		target = &snapshot.Fees
	default:
		return fmt.Errorf("unknown kind %q", kind)
	}
	if err := json.Unmarshal(payload, target); err != nil {
		return fmt.Errorf("decode %s: %w", Bucket(kind), err)
	}
	return nil
}

// Kinds returns kinds, or every kind when none are given.
func Kinds(kinds []domain.Kind) []domain.Kind {
	if len(kinds) == 0 {
		return domain.Kinds()
	}
	return kinds
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
