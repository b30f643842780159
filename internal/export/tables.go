// Package export writes reports and entity listings as Excel workbooks or
// plain text files and records each export in the reports index.
package export

import (
	"strconv"

	"dormcore/internal/report"
	"dormcore/pkg/domain"
)

// Table is one sheet of tabular export data.
type Table struct {
	Name    string
	Headers []string
	Rows    [][]string
}

// DocumentTable flattens a computed report into a single table.
func DocumentTable(doc report.Document) Table {
	return Table{Name: sheetName(doc.Title), Headers: report.RowHeaders, Rows: doc.Rows()}
}

// StudentsTable lists students with their room number.
func StudentsTable(snap domain.Snapshot) Table {
	rooms := roomNumbers(snap.Rooms)
	t := Table{Name: "Students", Headers: []string{"ID", "Code", "Name", "Birth Date", "Gender", "Phone", "Email", "Hometown", "Room", "Status"}}
	for _, s := range snap.Students {
		t.Rows = append(t.Rows, []string{
			strconv.Itoa(s.ID), s.Code, s.Name, domain.FormatDate(s.BirthDate), s.Gender,
			s.Phone, s.Email, s.Hometown, rooms[s.RoomID], string(s.Status),
		})
	}
	return t
}

// RoomsTable lists rooms with occupancy derived from student links.
func RoomsTable(snap domain.Snapshot) Table {
	occ := make(map[int]int)
	for _, s := range snap.Students {
		if s.RoomID != 0 {
			occ[s.RoomID]++
		}
	}
	t := Table{Name: "Rooms", Headers: []string{"ID", "Number", "Type", "Beds", "Price", "Occupied", "Available", "Status"}}
	for _, r := range snap.Rooms {
		r.Occupancy = occ[r.ID]
		r.Status = domain.DeriveRoomStatus(r.Occupancy, r.Capacity)
		t.Rows = append(t.Rows, []string{
			strconv.Itoa(r.ID), r.Number, r.TypeLabel(), strconv.Itoa(r.Capacity), r.Price.String(),
			strconv.Itoa(r.Occupancy), strconv.Itoa(r.AvailableBeds()), string(r.Status),
		})
	}
	return t
}

// ContractsTable lists contracts with student codes and room numbers.
func ContractsTable(snap domain.Snapshot) Table {
	students := studentCodes(snap.Students)
	rooms := roomNumbers(snap.Rooms)
	t := Table{Name: "Contracts", Headers: []string{"ID", "Code", "Student", "Room", "Start Date", "End Date", "Price", "Deposit", "Payment Method", "Status"}}
	for _, c := range snap.Contracts {
		t.Rows = append(t.Rows, []string{
			strconv.Itoa(c.ID), c.Code, students[c.StudentID], rooms[c.RoomID],
			domain.FormatDate(c.StartDate), domain.FormatDate(c.EndDate), c.Price.String(), c.Deposit.String(),
			c.PaymentMethod, string(c.Status),
		})
	}
	return t
}

// FeesTable lists fees with student codes.
func FeesTable(snap domain.Snapshot) Table {
	students := studentCodes(snap.Students)
	t := Table{Name: "Fees", Headers: []string{"ID", "Code", "Student", "Type", "Amount", "Due Date", "Paid Date", "Payment Method", "Status", "Description"}}
	for _, f := range snap.Fees {
		paid, desc := "", ""
		if f.PaidDate != nil {
			paid = domain.FormatDate(*f.PaidDate)
		}
		if f.Description != nil {
			desc = *f.Description
		}
		t.Rows = append(t.Rows, []string{
			strconv.Itoa(f.ID), f.Code, students[f.StudentID], f.Kind.DisplayName(), f.Amount.String(),
			domain.FormatDate(f.DueDate), paid, f.PaymentMethod, string(f.Status), desc,
		})
	}
	return t
}

// EntityTables returns the listing for kind.
func EntityTables(kind domain.Kind, snap domain.Snapshot) (Table, bool) {
	switch kind {
	case domain.KindStudent:
		return StudentsTable(snap), true
	case domain.KindRoom:
		return RoomsTable(snap), true
	case domain.KindContract:
		return ContractsTable(snap), true
	case domain.KindFee:
		return FeesTable(snap), true
	}
	return Table{}, false
}

func roomNumbers(rooms []domain.Room) map[int]string {
	out := make(map[int]string, len(rooms))
	for _, r := range rooms {
		out[r.ID] = r.Number
	}
	return out
}

func studentCodes(students []domain.Student) map[int]string {
	out := make(map[int]string, len(students))
	for _, s := range students {
		out[s.ID] = s.Code
	}
	return out
}

// sheetName trims a title to the 31 characters a worksheet name allows.
func sheetName(title string) string {
	const limit = 31
	clean := make([]rune, 0, len(title))
	for _, r := range title {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			r = ' '
		}
		clean = append(clean, r)
	}
	if len(clean) > limit {
		clean = clean[:limit]
	}
	if len(clean) == 0 {
		return "Report"
	}
	return string(clean)
}
