package core

import (
	"context"
	"fmt"
	"strings"

	"dormcore/pkg/domain"
)

// ListStudents returns a copy of every student ordered by id.
func (r *Repository) ListStudents() []domain.Student {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.listStudents()
}

// GetStudent returns the student with id.
func (r *Repository) GetStudent(id int) (domain.Student, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.state.students[id]
	return s, ok
}

func normalizeStudent(s *domain.Student) {
	s.Code = strings.TrimSpace(s.Code)
	s.Name = strings.TrimSpace(s.Name)
	s.Email = strings.TrimSpace(s.Email)
	s.BirthDate = domain.Date(s.BirthDate)
	if s.Status == "" {
		s.Status = domain.StudentActive
	}
}

func (st *state) codeTaken(code string, except int) bool {
	for id, s := range st.students {
		if id != except && strings.EqualFold(s.Code, code) {
			return true
		}
	}
	return false
}

// checkRoomLink verifies that roomID exists and has a free bed for a student
// not already counted in it.
func (st *state) checkRoomLink(roomID int) error {
	room, ok := st.rooms[roomID]
	if !ok {
		return domain.ErrNotFound{Kind: domain.KindRoom, ID: roomID}
	}
	if st.occupancyOf(roomID) >= room.Capacity {
		return fmt.Errorf("room %s: %w", room.Number, domain.ErrRoomFull)
	}
	return nil
}

// studentTouched lists the kinds to persist after a student write. The rooms
// file carries derived occupancy, so it is rewritten when the room link moves.
func studentTouched(oldRoom, newRoom int) []domain.Kind {
	if oldRoom != newRoom {
		return []domain.Kind{domain.KindStudent, domain.KindRoom}
	}
	return []domain.Kind{domain.KindStudent}
}

// AddStudent validates s, assigns the next student id and persists the
// student collection. Any caller-supplied id is ignored. A non-zero RoomID
// must reference a room with a free bed.
func (r *Repository) AddStudent(ctx context.Context, s domain.Student) (domain.Student, error) {
	normalizeStudent(&s)
	var created domain.Student
	err := r.mutate(ctx, "add_student", func(st *state) ([]domain.Kind, error) {
		if err := domain.ValidateStudent(s); err != nil {
			return nil, err
		}
		if st.codeTaken(s.Code, 0) {
			return nil, fmt.Errorf("student code %q: %w", s.Code, domain.ErrDuplicateCode)
		}
		if s.RoomID != 0 {
			if err := st.checkRoomLink(s.RoomID); err != nil {
				return nil, err
			}
		}
		s.ID = nextID(&r.studentSeq)
		st.students[s.ID] = s
		created = s
		return studentTouched(0, s.RoomID), nil
	})
	return created, err
}

// UpdateStudent replaces the stored student with the same id. Moving the
// student to another room is subject to the same capacity check as an
// assignment.
func (r *Repository) UpdateStudent(ctx context.Context, s domain.Student) (domain.Student, error) {
	normalizeStudent(&s)
	err := r.mutate(ctx, "update_student", func(st *state) ([]domain.Kind, error) {
		current, ok := st.students[s.ID]
		if !ok {
			return nil, domain.ErrNotFound{Kind: domain.KindStudent, ID: s.ID}
		}
		if err := domain.ValidateStudent(s); err != nil {
			return nil, err
		}
		if st.codeTaken(s.Code, s.ID) {
			return nil, fmt.Errorf("student code %q: %w", s.Code, domain.ErrDuplicateCode)
		}
		if s.RoomID != 0 && s.RoomID != current.RoomID {
			if err := st.checkRoomLink(s.RoomID); err != nil {
				return nil, err
			}
		}
		st.students[s.ID] = s
		return studentTouched(current.RoomID, s.RoomID), nil
	})
	return s, err
}

// DeleteStudent removes the student and every contract and fee that
// references it.
func (r *Repository) DeleteStudent(ctx context.Context, id int) error {
	return r.deleteEntity(ctx, "delete_student", domain.KindStudent, id)
}

// SearchStudents returns students whose code, name, email or hometown
// contains term, case-insensitively. An empty term matches everyone.
func (r *Repository) SearchStudents(term string) []domain.Student {
	needle := strings.ToLower(strings.TrimSpace(term))
	all := r.ListStudents()
	if needle == "" {
		return all
	}
	out := all[:0]
	for _, s := range all {
		if containsFold(needle, s.Code, s.Name, s.Email, s.Hometown) {
			out = append(out, s)
		}
	}
	return out
}

// StudentsInRoom returns the students currently assigned to roomID.
func (r *Repository) StudentsInRoom(roomID int) []domain.Student {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Student
	for _, s := range r.state.listStudents() {
		if s.RoomID == roomID {
			out = append(out, s)
		}
	}
	return out
}

func containsFold(needle string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}
