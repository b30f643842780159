package core

import (
	"context"
	"fmt"
	"strings"

	"dormcore/pkg/domain"
)

// ListRooms returns every room with derived occupancy and status.
func (r *Repository) ListRooms() []domain.Room {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.listRooms()
}

// GetRoom returns the room with id, decorated with derived occupancy and status.
func (r *Repository) GetRoom(id int) (domain.Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.state.rooms[id]
	if !ok {
		return domain.Room{}, false
	}
	return decorateRoom(room, r.state.occupancyOf(id)), true
}

func normalizeRoom(room *domain.Room) {
	room.Number = strings.TrimSpace(room.Number)
	room.Occupancy, room.Status = 0, ""
}

// AddRoom validates room, assigns the next room id and persists the room
// collection. Occupancy and status on the input are ignored.
func (r *Repository) AddRoom(ctx context.Context, room domain.Room) (domain.Room, error) {
	normalizeRoom(&room)
	var created domain.Room
	err := r.mutate(ctx, "add_room", func(st *state) ([]domain.Kind, error) {
		if err := domain.ValidateRoom(room); err != nil {
			return nil, err
		}
		room.ID = nextID(&r.roomSeq)
		st.rooms[room.ID] = room
		created = decorateRoom(room, 0)
		return []domain.Kind{domain.KindRoom}, nil
	})
	return created, err
}

// UpdateRoom replaces the stored room with the same id. Capacity may not drop
// below the current occupancy.
func (r *Repository) UpdateRoom(ctx context.Context, room domain.Room) (domain.Room, error) {
	normalizeRoom(&room)
	var updated domain.Room
	err := r.mutate(ctx, "update_room", func(st *state) ([]domain.Kind, error) {
		if _, ok := st.rooms[room.ID]; !ok {
			return nil, domain.ErrNotFound{Kind: domain.KindRoom, ID: room.ID}
		}
		if err := domain.ValidateRoom(room); err != nil {
			return nil, err
		}
		occ := st.occupancyOf(room.ID)
		if room.Capacity < occ {
			return nil, fmt.Errorf("%w: capacity %d below occupancy %d", domain.ErrInvalid, room.Capacity, occ)
		}
		st.rooms[room.ID] = room
		updated = decorateRoom(room, occ)
		return []domain.Kind{domain.KindRoom}, nil
	})
	return updated, err
}

// DeleteRoom removes the room and its contracts and unassigns its students.
func (r *Repository) DeleteRoom(ctx context.Context, id int) error {
	return r.deleteEntity(ctx, "delete_room", domain.KindRoom, id)
}

// AvailableRooms returns rooms with at least one free bed.
func (r *Repository) AvailableRooms() []domain.Room {
	rooms := r.ListRooms()
	out := rooms[:0]
	for _, room := range rooms {
		if room.Status != domain.RoomFull {
			out = append(out, room)
		}
	}
	return out
}

// SearchRooms returns rooms whose number or type label contains term.
func (r *Repository) SearchRooms(term string) []domain.Room {
	needle := strings.ToLower(strings.TrimSpace(term))
	rooms := r.ListRooms()
	if needle == "" {
		return rooms
	}
	out := rooms[:0]
	for _, room := range rooms {
		if containsFold(needle, room.Number, room.TypeLabel()) {
			out = append(out, room)
		}
	}
	return out
}

// Occupancy returns the number of students assigned to roomID.
func (r *Repository) Occupancy(roomID int) (int, error) {
	room, ok := r.GetRoom(roomID)
	if !ok {
		return 0, domain.ErrNotFound{Kind: domain.KindRoom, ID: roomID}
	}
	return room.Occupancy, nil
}

// IsRoomFull reports whether roomID has no free bed.
func (r *Repository) IsRoomFull(roomID int) (bool, error) {
	room, ok := r.GetRoom(roomID)
	if !ok {
		return false, domain.ErrNotFound{Kind: domain.KindRoom, ID: roomID}
	}
	return room.Status == domain.RoomFull, nil
}

// AvailableBeds returns the free beds in roomID.
func (r *Repository) AvailableBeds(roomID int) (int, error) {
	room, ok := r.GetRoom(roomID)
	if !ok {
		return 0, domain.ErrNotFound{Kind: domain.KindRoom, ID: roomID}
	}
	return room.AvailableBeds(), nil
}
