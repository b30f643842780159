package core

import (
	"context"
	"fmt"

	"dormcore/pkg/domain"
)

type seedStudent struct {
	code, name, birth, gender, phone, email, hometown string
}

var (
	seedRooms = []domain.Room{
		{Number: "P401", Capacity: 4, Price: 12000},
		{Number: "P402", Capacity: 4, Price: 12000},
		{Number: "P801", Capacity: 8, Price: 8000},
		{Number: "P802", Capacity: 8, Price: 8000},
	}
	seedStudents = []seedStudent{
		{"ST001", "Nguyen Van A", "2005-05-15", "Male", "0123456789", "A@email.com", "Ha Noi"},
		{"ST002", "Nguyen Van B", "2004-09-20", "Male", "0987654321", "B@email.com", "Hai Phong"},
		{"ST003", "Nguyen Thi C", "2005-04-25", "Female", "0916627268", "C@email.com", "Ho Chi Minh"},
		{"ST004", "Nguyen Thi D", "2004-08-12", "Female", "0945123456", "D@email.com", "Nghe An"},
	}
	// the first two students live in the first room, each with a contract and a room fee
	seedPaymentMethods = []string{"Bank Transfer", "Cash"}
)

// seedSampleData inserts the sample dataset through the id allocators and
// persists every collection.
func (r *Repository) seedSampleData(ctx context.Context) error {
	today := r.today()
	r.mu.Lock()
	st := &r.state
	roomIDs := make([]int, 0, len(seedRooms))
	for _, room := range seedRooms {
		room.ID = nextID(&r.roomSeq)
		st.rooms[room.ID] = room
		roomIDs = append(roomIDs, room.ID)
	}
	studentIDs := make([]int, 0, len(seedStudents))
	for _, s := range seedStudents {
		birth, _ := domain.ParseDate(s.birth)
		student := domain.Student{
			ID:        nextID(&r.studentSeq),
			Code:      s.code,
			Name:      s.name,
			BirthDate: birth,
			Gender:    s.gender,
			Phone:     s.phone,
			Email:     s.email,
			Hometown:  s.hometown,
			Status:    domain.StudentActive,
		}
		st.students[student.ID] = student
		studentIDs = append(studentIDs, student.ID)
	}
	for i, method := range seedPaymentMethods {
		sid := studentIDs[i]
		s := st.students[sid]
		s.RoomID = roomIDs[0]
		st.students[sid] = s

		contract := domain.Contract{
			ID:            nextID(&r.contractSeq),
			StudentID:     sid,
			RoomID:        roomIDs[0],
			StartDate:     today,
			EndDate:       today.AddDate(0, 6, 0),
			Price:         seedRooms[0].Price,
			PaymentMethod: method,
			Status:        domain.ContractActive,
			Deposit:       seedRooms[0].Price,
		}
		contract.Code = seqCode("C", contract.ID)
		st.contracts[contract.ID] = contract

		fee := domain.Fee{
			ID:            nextID(&r.feeSeq),
			StudentID:     sid,
			Kind:          domain.FeeRoom,
			Amount:        seedRooms[0].Price,
			PaymentMethod: method,
			Status:        domain.PaymentPending,
			DueDate:       today.AddDate(0, 1, 0),
		}
		fee.Code = seqCode("F", fee.ID)
		st.fees[fee.ID] = fee
	}
	r.logger.Info("seeded sample data", "rooms", len(seedRooms), "students", len(seedStudents))
	return r.commit(ctx, "seed", domain.Kinds()...)
}

func seqCode(prefix string, id int) string {
	return fmt.Sprintf("%s%03d", prefix, id)
}
