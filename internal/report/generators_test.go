package report

import (
	"strings"
	"sync"
	"testing"
	"time"

	"dormcore/pkg/domain"
)

var reportNow = time.Date(2024, 9, 1, 9, 0, 0, 0, time.UTC)

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func fixtureSnapshot() domain.Snapshot {
	student := func(id, room int, gender string, status domain.StudentStatus) domain.Student {
		return domain.Student{ID: id, Code: "ST00" + string(rune('0'+id)), Name: "S", Gender: gender, RoomID: room, Status: status}
	}
	return domain.Snapshot{
		Rooms: []domain.Room{
			{ID: 1, Number: "P401", Capacity: 4, Price: 12000},
			{ID: 2, Number: "P402", Capacity: 4, Price: 12000},
			{ID: 3, Number: "P801", Capacity: 8, Price: 8000},
			{ID: 4, Number: "S101", Capacity: 1, Price: 20000},
		},
		Students: []domain.Student{
			student(1, 1, "Female", domain.StudentActive),
			student(2, 1, "Female", domain.StudentActive),
			student(3, 3, "Male", domain.StudentActive),
			student(4, 3, "Male", domain.StudentActive),
			student(5, 4, "Male", domain.StudentGraduated),
			student(6, 0, "Female", domain.StudentInactive),
		},
		Contracts: []domain.Contract{
			{ID: 1, StudentID: 1, RoomID: 1, EndDate: day(2024, 9, 20), PaymentMethod: "Cash", Status: domain.ContractActive, Deposit: 12000},
			{ID: 2, StudentID: 2, RoomID: 1, EndDate: day(2025, 3, 1), PaymentMethod: "Bank Transfer", Status: domain.ContractActive, Deposit: 10000},
			{ID: 3, StudentID: 3, RoomID: 3, EndDate: day(2024, 9, 10), PaymentMethod: "Cash", Status: domain.ContractTerminated, Deposit: 5000},
		},
		Fees: []domain.Fee{
			{ID: 1, StudentID: 1, Kind: domain.FeeRoom, Amount: 12000, Status: domain.PaymentPaid, DueDate: day(2024, 9, 5)},
			{ID: 2, StudentID: 2, Kind: domain.FeeWater, Amount: 1500, Status: domain.PaymentPending, DueDate: day(2024, 8, 20)},
			{ID: 3, StudentID: 2, Kind: domain.FeeWater, Amount: 500, Status: domain.PaymentCancelled, DueDate: day(2024, 9, 10)},
			{ID: 4, StudentID: 3, Kind: domain.FeeElectricity, Amount: 3000, Status: domain.PaymentOverdue, DueDate: day(2024, 8, 10)},
		},
	}
}

func mustGenerate(t *testing.T, kind Kind, snap domain.Snapshot) Document {
	t.Helper()
	doc, err := Generate(kind, snap, reportNow)
	if err != nil {
		t.Fatalf("generate %s: %v", kind, err)
	}
	return doc
}

// value finds a line by section heading, group name and label.
func value(t *testing.T, doc Document, heading, group, label string) string {
	t.Helper()
	for _, row := range doc.Rows() {
		if row[0] == heading && row[1] == group && row[2] == label {
			return row[3]
		}
	}
	t.Fatalf("no %q/%q/%q in %s", heading, group, label, doc.Kind)
	return ""
}

func TestOccupancyReportLayout(t *testing.T) {
	doc := mustGenerate(t, KindOccupancy, fixtureSnapshot())
	title := "ROOM OCCUPANCY REPORT"
	want := title + "\n" + strings.Repeat("=", len(title)) + "\n\n" +
		"Total Rooms: 4\n" +
		"Total Beds: 17\n" +
		"Occupied Beds: 5\n" +
		"Overall Occupancy Rate: 29%\n" +
		"\n" +
		"ROOM TYPE ANALYSIS:\n" + strings.Repeat("-", len("ROOM TYPE ANALYSIS")+1) + "\n" +
		"\n1-Person Rooms:\n" +
		"- Count: 1 (25.0% of total)\n" +
		"- Total Beds: 1\n" +
		"- Occupied Beds: 1\n" +
		"- Occupancy Rate: 100%\n" +
		"\n4-Person Rooms:\n" +
		"- Count: 2 (50.0% of total)\n" +
		"- Total Beds: 8\n" +
		"- Occupied Beds: 2\n" +
		"- Occupancy Rate: 25%\n" +
		"\n8-Person Rooms:\n" +
		"- Count: 1 (25.0% of total)\n" +
		"- Total Beds: 8\n" +
		"- Occupied Beds: 2\n" +
		"- Occupancy Rate: 25%\n"
	if got := doc.Text(); got != want {
		t.Fatalf("unexpected occupancy report:\n%s\nwant:\n%s", got, want)
	}
}

func TestFinancialReportTotals(t *testing.T) {
	doc := mustGenerate(t, KindFinancial, fixtureSnapshot())
	checks := []struct{ heading, group, label, want string }{
		{"FINANCIAL OVERVIEW", "", "Total Fees Billed", "165.00"},
		{"FINANCIAL OVERVIEW", "", "Total Collected", "120.00"},
		{"FINANCIAL OVERVIEW", "", "Total Pending", "45.00"},
		{"FINANCIAL OVERVIEW", "", "Collection Rate", "73%"},
		{"FEE TYPE ANALYSIS", "Water", "Total Billed", "15.00"},
		{"FEE TYPE ANALYSIS", "Water", "Collection Rate", "0%"},
		{"FEE TYPE ANALYSIS", "Room", "Collection Rate", "100%"},
		{"MONTHLY ANALYSIS", "08/2024", "Total Fees", "45.00"},
		{"MONTHLY ANALYSIS", "08/2024", "Number of Fees", "2"},
		{"MONTHLY ANALYSIS", "09/2024", "Number of Fees", "1"},
		{"DEPOSIT ANALYSIS", "", "Total Deposits Held", "270.00"},
		{"DEPOSIT ANALYSIS", "", "Active Deposits", "220.00"},
	}
	for _, c := range checks {
		if got := value(t, doc, c.heading, c.group, c.label); got != c.want {
			t.Fatalf("%s/%s/%s: got %q want %q", c.heading, c.group, c.label, got, c.want)
		}
	}
	var groups []string
	for _, g := range doc.Sections[1].Groups {
		groups = append(groups, g.Name)
	}
	if strings.Join(groups, ",") != "Room,Electricity,Water" {
		t.Fatalf("fee kinds must follow declaration order, got %v", groups)
	}
}

func TestStudentAndContractReports(t *testing.T) {
	students := mustGenerate(t, KindStudents, fixtureSnapshot())
	if got := value(t, students, "", "Gender Distribution", "Female"); got != "3" {
		t.Fatalf("unexpected female count %q", got)
	}
	if got := value(t, students, "", "Student Status", "ACTIVE"); got != "4" {
		t.Fatalf("unexpected active count %q", got)
	}
	if got := value(t, students, "", "Room Assignment", "Unassigned"); got != "1" {
		t.Fatalf("unexpected unassigned count %q", got)
	}
	if !strings.Contains(students.Text(), "\nGender Distribution:\n- Female: 3\n- Male: 3\n") {
		t.Fatalf("unexpected student layout:\n%s", students.Text())
	}

	contracts := mustGenerate(t, KindContracts, fixtureSnapshot())
	if got := value(t, contracts, "", "Payment Methods", "Cash"); got != "2" {
		t.Fatalf("unexpected cash count %q", got)
	}
	if got := value(t, contracts, "", "", "Contracts Expiring in 30 Days"); got != "1" {
		t.Fatalf("only active contracts inside the window count, got %q", got)
	}
}

func TestSummaryReportAlerts(t *testing.T) {
	doc := mustGenerate(t, KindSummary, fixtureSnapshot())
	if got := value(t, doc, "STUDENT STATISTICS", "", "Active Students"); got != "4 (67%)" {
		t.Fatalf("unexpected active students %q", got)
	}
	if got := value(t, doc, "OCCUPANCY STATISTICS", "", "Occupied Beds"); got != "5 (29%)" {
		t.Fatalf("unexpected occupied beds %q", got)
	}
	text := doc.Text()
	for _, want := range []string{
		"- 1 rooms are at or above 90% capacity\n",
		"- 1 contracts expiring within 30 days\n",
		"- 2 overdue fee payments\n",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("missing alert %q in:\n%s", want, text)
		}
	}
}

func TestEmptySnapshotNeverDividesByZero(t *testing.T) {
	for _, kind := range Kinds() {
		doc := mustGenerate(t, kind, domain.Snapshot{})
		if doc.Text() == "" {
			t.Fatalf("%s: empty text", kind)
		}
	}
	if doc := mustGenerate(t, KindOccupancy, domain.Snapshot{}); doc.Notice == "" {
		t.Fatalf("expected notice for roomless occupancy report")
	}
	fin := mustGenerate(t, KindFinancial, domain.Snapshot{})
	if got := value(t, fin, "FINANCIAL OVERVIEW", "", "Collection Rate"); got != "N/A" {
		t.Fatalf("expected N/A collection rate, got %q", got)
	}
	sum := mustGenerate(t, KindSummary, domain.Snapshot{})
	if got := value(t, sum, "OCCUPANCY STATISTICS", "", "Occupied Beds"); got != "0 (N/A)" {
		t.Fatalf("unexpected empty occupancy %q", got)
	}
	if !strings.Contains(sum.Text(), "No alerts.") {
		t.Fatalf("expected no alerts line")
	}
	if Percent(1, 0) != "N/A" || Share(3, 0) != "0.0%" {
		t.Fatalf("zero denominators must not fault")
	}
}

func TestGenerateIsDeterministicAndConcurrent(t *testing.T) {
	snap := fixtureSnapshot()
	for _, kind := range Kinds() {
		first := mustGenerate(t, kind, snap).Text()
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				doc, err := Generate(kind, snap, reportNow)
				if err != nil || doc.Text() != first {
					t.Errorf("%s: nondeterministic output", kind)
				}
			}()
		}
		wg.Wait()
	}
	if _, err := Generate("weekly", snap, reportNow); err == nil {
		t.Fatalf("expected unknown report error")
	}
}

func TestParseKind(t *testing.T) {
	if k, err := ParseKind(" Summary "); err != nil || k != KindSummary {
		t.Fatalf("parse: %v %v", k, err)
	}
	if _, err := ParseKind("weekly"); err == nil {
		t.Fatalf("expected error")
	}
}
