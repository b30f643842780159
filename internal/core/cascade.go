package core

import (
	"context"
	"sort"

	"dormcore/pkg/domain"
)

type cascadeAction int

const (
	// cascadeDelete removes the dependent entity (and its own dependents).
	cascadeDelete cascadeAction = iota
	// cascadeUnlink clears the referencing field on the dependent entity.
	cascadeUnlink
)

// referentialRule declares that child entities whose field references a
// deleted parent are handled with action.
type referentialRule struct {
	parent domain.Kind
	child  domain.Kind
	field  string
	action cascadeAction
}

var referentialRules = []referentialRule{
	{parent: domain.KindStudent, child: domain.KindContract, field: "student_id", action: cascadeDelete},
	{parent: domain.KindStudent, child: domain.KindFee, field: "student_id", action: cascadeDelete},
	{parent: domain.KindRoom, child: domain.KindStudent, field: "room_id", action: cascadeUnlink},
	{parent: domain.KindRoom, child: domain.KindContract, field: "room_id", action: cascadeDelete},
}

func (st *state) exists(kind domain.Kind, id int) bool {
	var ok bool
	switch kind {
	case domain.KindStudent:
		_, ok = st.students[id]
	case domain.KindRoom:
		_, ok = st.rooms[id]
	case domain.KindContract:
		_, ok = st.contracts[id]
	case domain.KindFee:
		_, ok = st.fees[id]
	}
	return ok
}

func (st *state) remove(kind domain.Kind, id int) {
	switch kind {
	case domain.KindStudent:
		delete(st.students, id)
	case domain.KindRoom:
		delete(st.rooms, id)
	case domain.KindContract:
		delete(st.contracts, id)
	case domain.KindFee:
		delete(st.fees, id)
	}
}

// referencing returns, in id order, the kind entities whose field equals id.
func (st *state) referencing(kind domain.Kind, field string, id int) []int {
	var out []int
	switch {
	case kind == domain.KindStudent && field == "room_id":
		for sid, s := range st.students {
			if s.RoomID == id {
				out = append(out, sid)
			}
		}
	case kind == domain.KindContract && field == "student_id":
		for cid, c := range st.contracts {
			if c.StudentID == id {
				out = append(out, cid)
			}
		}
	case kind == domain.KindContract && field == "room_id":
		for cid, c := range st.contracts {
			if c.RoomID == id {
				out = append(out, cid)
			}
		}
	case kind == domain.KindFee && field == "student_id":
		for fid, f := range st.fees {
			if f.StudentID == id {
				out = append(out, fid)
			}
		}
	}
	sort.Ints(out)
	return out
}

func (st *state) unlink(kind domain.Kind, field string, id int) {
	if kind == domain.KindStudent && field == "room_id" {
		s := st.students[id]
		s.RoomID = 0
		st.students[id] = s
	}
}

// cascade applies every rule whose parent is kind to the entity id, recording
// each kind it changes in touched.
func (st *state) cascade(kind domain.Kind, id int, touched map[domain.Kind]bool) {
	for _, rule := range referentialRules {
		if rule.parent != kind {
			continue
		}
		for _, childID := range st.referencing(rule.child, rule.field, id) {
			touched[rule.child] = true
			switch rule.action {
			case cascadeDelete:
				st.remove(rule.child, childID)
				st.cascade(rule.child, childID, touched)
			case cascadeUnlink:
				st.unlink(rule.child, rule.field, childID)
			}
		}
	}
}

func (r *Repository) deleteEntity(ctx context.Context, op string, kind domain.Kind, id int) error {
	return r.mutate(ctx, op, func(st *state) ([]domain.Kind, error) {
		if !st.exists(kind, id) {
			return nil, domain.ErrNotFound{Kind: kind, ID: id}
		}
		touched := map[domain.Kind]bool{kind: true}
		if s, ok := st.students[id]; kind == domain.KindStudent && ok && s.RoomID != 0 {
			touched[domain.KindRoom] = true
		}
		st.remove(kind, id)
		st.cascade(kind, id, touched)
		out := make([]domain.Kind, 0, len(touched))
		for _, k := range domain.Kinds() {
			if touched[k] {
				out = append(out, k)
			}
		}
		return out, nil
	})
}
