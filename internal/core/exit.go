package core

import (
	"context"
	"fmt"
	"strings"
)

// ExitChoice is the answer to the save prompt shown before shutdown.
type ExitChoice int

const (
	// ExitSave persists all four collections, then allows shutdown.
	ExitSave ExitChoice = iota
	// ExitDiscard allows shutdown without an extra write.
	ExitDiscard
	// ExitCancel keeps the process running.
	ExitCancel
)

func (c ExitChoice) String() string {
	switch c {
	case ExitSave:
		return "save"
	case ExitDiscard:
		return "discard"
	case ExitCancel:
		return "cancel"
	default:
		return fmt.Sprintf("ExitChoice(%d)", int(c))
	}
}

// ParseExitChoice accepts save, discard or cancel in any case.
func ParseExitChoice(raw string) (ExitChoice, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "save", "":
		return ExitSave, nil
	case "discard":
		return ExitDiscard, nil
	case "cancel":
		return ExitCancel, nil
	default:
		return ExitCancel, fmt.Errorf("unknown exit choice %q", raw)
	}
}

// HandleExit applies choice and reports whether the process may terminate.
// A failed save keeps the process running so the caller can retry.
func (r *Repository) HandleExit(ctx context.Context, choice ExitChoice) (bool, error) {
	switch choice {
	case ExitSave:
		if err := r.SaveAll(ctx); err != nil {
			return false, err
		}
		return true, nil
	case ExitDiscard:
		r.logger.Info("exiting without final save")
		return true, nil
	default:
		return false, nil
	}
}
