package core

import (
	"context"
	"fmt"

	"dormcore/pkg/domain"
)

// AssignStudentToRoom links an unassigned student to a room with a free bed
// and persists the student and room collections.
func (r *Repository) AssignStudentToRoom(ctx context.Context, studentID, roomID int) error {
	return r.mutate(ctx, "assign_student_to_room", func(st *state) ([]domain.Kind, error) {
		s, ok := st.students[studentID]
		if !ok {
			return nil, domain.ErrNotFound{Kind: domain.KindStudent, ID: studentID}
		}
		if _, ok := st.rooms[roomID]; !ok {
			return nil, domain.ErrNotFound{Kind: domain.KindRoom, ID: roomID}
		}
		if s.RoomID != 0 {
			return nil, fmt.Errorf("student %s in room %d: %w", s.Code, s.RoomID, domain.ErrAlreadyAssigned)
		}
		if err := st.checkRoomLink(roomID); err != nil {
			return nil, err
		}
		s.RoomID = roomID
		st.students[studentID] = s
		return []domain.Kind{domain.KindStudent, domain.KindRoom}, nil
	})
}

// RemoveStudentFromRoom clears the student's room link and persists the
// student and room collections.
func (r *Repository) RemoveStudentFromRoom(ctx context.Context, studentID int) error {
	return r.mutate(ctx, "remove_student_from_room", func(st *state) ([]domain.Kind, error) {
		s, ok := st.students[studentID]
		if !ok {
			return nil, domain.ErrNotFound{Kind: domain.KindStudent, ID: studentID}
		}
		if s.RoomID == 0 {
			return nil, fmt.Errorf("student %s: %w", s.Code, domain.ErrNotAssigned)
		}
		s.RoomID = 0
		st.students[studentID] = s
		return []domain.Kind{domain.KindStudent, domain.KindRoom}, nil
	})
}
