package report

import (
	"fmt"
	"sort"
	"time"

	"dormcore/pkg/domain"
)

// ExpiryWindowDays is the look-ahead used for contract expiry counts.
const ExpiryWindowDays = 30

type generator func(snap domain.Snapshot, now time.Time) Document

var generators = map[Kind]generator{
	KindOccupancy: occupancyReport,
	KindFinancial: financialReport,
	KindStudents:  studentReport,
	KindContracts: contractReport,
	KindSummary:   summaryReport,
}

// Generate computes the report of the given kind from snap. It never mutates
// snap and returns the same document for the same inputs.
func Generate(kind Kind, snap domain.Snapshot, now time.Time) (Document, error) {
	gen, ok := generators[kind]
	if !ok {
		return Document{}, fmt.Errorf("%w: unknown report %q", domain.ErrInvalid, kind)
	}
	doc := gen(snap, now)
	doc.Kind = kind
	doc.Title = kind.Title()
	doc.GeneratedAt = now
	return doc, nil
}

func occupancyByRoom(students []domain.Student) map[int]int {
	occ := make(map[int]int)
	for _, s := range students {
		if s.RoomID != 0 {
			occ[s.RoomID]++
		}
	}
	return occ
}

type bedTotals struct {
	rooms, beds, occupied int
}

func (t *bedTotals) add(r domain.Room, occupied int) {
	t.rooms++
	t.beds += r.Capacity
	t.occupied += occupied
}

func occupancyReport(snap domain.Snapshot, _ time.Time) Document {
	if len(snap.Rooms) == 0 {
		return Document{Notice: "No rooms available in the system."}
	}
	occ := occupancyByRoom(snap.Students)
	var total bedTotals
	byCapacity := make(map[int]*bedTotals)
	for _, r := range snap.Rooms {
		total.add(r, occ[r.ID])
		t := byCapacity[r.Capacity]
		if t == nil {
			t = &bedTotals{}
			byCapacity[r.Capacity] = t
		}
		t.add(r, occ[r.ID])
	}
	overview := Section{Lines: []Line{
		line("Total Rooms", "%d", total.rooms),
		line("Total Beds", "%d", total.beds),
		line("Occupied Beds", "%d", total.occupied),
		line("Overall Occupancy Rate", "%s", Percent(int64(total.occupied), int64(total.beds))),
	}}
	types := Section{Heading: "ROOM TYPE ANALYSIS"}
	for _, capacity := range sortedKeys(byCapacity) {
		t := byCapacity[capacity]
		label := domain.Room{Capacity: capacity}.TypeLabel()
		types.Groups = append(types.Groups, Group{
			Name: label + " Rooms",
			Lines: []Line{
				line("Count", "%d (%s of total)", t.rooms, Share(t.rooms, total.rooms)),
				line("Total Beds", "%d", t.beds),
				line("Occupied Beds", "%d", t.occupied),
				line("Occupancy Rate", "%s", Percent(int64(t.occupied), int64(t.beds))),
			},
		})
	}
	return Document{Sections: []Section{overview, types}}
}

// billed reports whether a fee counts towards billing totals.
func billed(f domain.Fee) bool { return f.Status != domain.PaymentCancelled }

func unpaid(f domain.Fee) bool {
	return f.Status == domain.PaymentPending || f.Status == domain.PaymentOverdue
}

type feeTotals struct {
	billed, collected, pending domain.Money
	count                      int
}

func (t *feeTotals) add(f domain.Fee) {
	if !billed(f) {
		return
	}
	t.count++
	t.billed += f.Amount
	if f.Status == domain.PaymentPaid {
		t.collected += f.Amount
	}
	if unpaid(f) {
		t.pending += f.Amount
	}
}

func depositTotals(contracts []domain.Contract) (all, active domain.Money) {
	for _, c := range contracts {
		all += c.Deposit
		if c.Status == domain.ContractActive {
			active += c.Deposit
		}
	}
	return all, active
}

func financialReport(snap domain.Snapshot, _ time.Time) Document {
	var total feeTotals
	byKind := make(map[domain.FeeKind]*feeTotals)
	byMonth := make(map[time.Time]*feeTotals)
	for _, f := range snap.Fees {
		total.add(f)
		if byKind[f.Kind] == nil {
			byKind[f.Kind] = &feeTotals{}
		}
		byKind[f.Kind].add(f)
		month := time.Date(f.DueDate.Year(), f.DueDate.Month(), 1, 0, 0, 0, 0, time.UTC)
		if byMonth[month] == nil {
			byMonth[month] = &feeTotals{}
		}
		byMonth[month].add(f)
	}
	overview := Section{Heading: "FINANCIAL OVERVIEW", Lines: []Line{
		line("Total Fees Billed", "%s", total.billed),
		line("Total Collected", "%s", total.collected),
		line("Total Pending", "%s", total.pending),
		line("Collection Rate", "%s", Percent(total.collected.Cents(), total.billed.Cents())),
	}}
	kinds := Section{Heading: "FEE TYPE ANALYSIS"}
	for _, k := range domain.FeeKinds() {
		t, ok := byKind[k]
		if !ok || t.count == 0 {
			continue
		}
		kinds.Groups = append(kinds.Groups, Group{Name: k.DisplayName(), Lines: []Line{
			line("Total Billed", "%s", t.billed),
			line("Collected", "%s", t.collected),
			line("Collection Rate", "%s", Percent(t.collected.Cents(), t.billed.Cents())),
		}})
	}
	months := Section{Heading: "MONTHLY ANALYSIS"}
	monthKeys := make([]time.Time, 0, len(byMonth))
	for m, t := range byMonth {
		if t.count > 0 {
			monthKeys = append(monthKeys, m)
		}
	}
	sort.Slice(monthKeys, func(i, j int) bool { return monthKeys[i].Before(monthKeys[j]) })
	for _, m := range monthKeys {
		t := byMonth[m]
		months.Groups = append(months.Groups, Group{Name: m.Format("01/2006"), Lines: []Line{
			line("Total Fees", "%s", t.billed),
			line("Number of Fees", "%d", t.count),
		}})
	}
	all, active := depositTotals(snap.Contracts)
	deposits := Section{Heading: "DEPOSIT ANALYSIS", Lines: []Line{
		line("Total Deposits Held", "%s", all),
		line("Active Deposits", "%s", active),
	}}
	return Document{Sections: []Section{overview, kinds, months, deposits}}
}

func countLines[K ~string](counts map[K]int) []Line {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	out := make([]Line, 0, len(keys))
	for _, k := range keys {
		out = append(out, line(k, "%d", counts[K(k)]))
	}
	return out
}

func studentReport(snap domain.Snapshot, _ time.Time) Document {
	genders := make(map[string]int)
	statuses := make(map[domain.StudentStatus]int)
	assigned := 0
	for _, s := range snap.Students {
		genders[s.Gender]++
		statuses[s.Status]++
		if s.RoomID != 0 {
			assigned++
		}
	}
	return Document{Sections: []Section{{
		Lines: []Line{line("Total Students", "%d", len(snap.Students))},
		Groups: []Group{
			{Name: "Gender Distribution", Lines: countLines(genders)},
			{Name: "Student Status", Lines: countLines(statuses)},
			{Name: "Room Assignment", Lines: []Line{
				line("Assigned", "%d", assigned),
				line("Unassigned", "%d", len(snap.Students)-assigned),
			}},
		},
	}}}
}

// expiring reports whether c is active and ends within the window starting
// at today, bounds inclusive.
func expiring(c domain.Contract, today time.Time) bool {
	if c.Status != domain.ContractActive {
		return false
	}
	end := domain.Date(c.EndDate)
	return !end.Before(today) && !end.After(today.AddDate(0, 0, ExpiryWindowDays))
}

func contractReport(snap domain.Snapshot, now time.Time) Document {
	today := domain.Date(now)
	statuses := make(map[domain.ContractStatus]int)
	methods := make(map[string]int)
	soon := 0
	for _, c := range snap.Contracts {
		statuses[c.Status]++
		methods[c.PaymentMethod]++
		if expiring(c, today) {
			soon++
		}
	}
	return Document{Sections: []Section{
		{
			Lines: []Line{line("Total Contracts", "%d", len(snap.Contracts))},
			Groups: []Group{
				{Name: "Contract Status", Lines: countLines(statuses)},
				{Name: "Payment Methods", Lines: countLines(methods)},
			},
		},
		{Lines: []Line{line(fmt.Sprintf("Contracts Expiring in %d Days", ExpiryWindowDays), "%d", soon)}},
	}}
}

// nearFull reports whether occupied is at least ninety percent of capacity.
func nearFull(occupied, capacity int) bool {
	return occupied > 0 && occupied*10 >= capacity*9
}

func overdue(f domain.Fee, today time.Time) bool {
	return f.Status == domain.PaymentOverdue ||
		(f.Status == domain.PaymentPending && domain.Date(f.DueDate).Before(today))
}

func summaryReport(snap domain.Snapshot, now time.Time) Document {
	today := domain.Date(now)
	active := 0
	for _, s := range snap.Students {
		if s.Status == domain.StudentActive {
			active++
		}
	}
	occ := occupancyByRoom(snap.Students)
	var beds bedTotals
	crowded := 0
	for _, r := range snap.Rooms {
		beds.add(r, occ[r.ID])
		if nearFull(occ[r.ID], r.Capacity) {
			crowded++
		}
	}
	var fees feeTotals
	late := 0
	for _, f := range snap.Fees {
		fees.add(f)
		if overdue(f, today) {
			late++
		}
	}
	soon := 0
	for _, c := range snap.Contracts {
		if expiring(c, today) {
			soon++
		}
	}
	deposits, _ := depositTotals(snap.Contracts)

	alerts := Section{Heading: "ALERTS AND NOTIFICATIONS"}
	if crowded > 0 {
		alerts.Lines = append(alerts.Lines, line("", "- %d rooms are at or above 90%% capacity", crowded))
	}
	if soon > 0 {
		alerts.Lines = append(alerts.Lines, line("", "- %d contracts expiring within %d days", soon, ExpiryWindowDays))
	}
	if late > 0 {
		alerts.Lines = append(alerts.Lines, line("", "- %d overdue fee payments", late))
	}
	if len(alerts.Lines) == 0 {
		alerts.Lines = append(alerts.Lines, line("", "No alerts."))
	}

	return Document{Sections: []Section{
		{Heading: "STUDENT STATISTICS", Lines: []Line{
			line("Total Students", "%d", len(snap.Students)),
			line("Active Students", "%d (%s)", active, Percent(int64(active), int64(len(snap.Students)))),
		}},
		{Heading: "OCCUPANCY STATISTICS", Lines: []Line{
			line("Total Rooms", "%d", beds.rooms),
			line("Total Beds", "%d", beds.beds),
			line("Occupied Beds", "%d (%s)", beds.occupied, Percent(int64(beds.occupied), int64(beds.beds))),
		}},
		{Heading: "FINANCIAL SUMMARY", Lines: []Line{
			line("Total Fees Billed", "%s", fees.billed),
			line("Total Collected", "%s", fees.collected),
			line("Collection Rate", "%s", Percent(fees.collected.Cents(), fees.billed.Cents())),
			line("Total Deposits Held", "%s", deposits),
		}},
		alerts,
	}}
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
