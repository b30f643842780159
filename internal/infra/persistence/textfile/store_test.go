package textfile

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"dormcore/pkg/domain"
)

type captureLogger struct {
	warns  []string
	errors []string
}

func (l *captureLogger) Debug(string, ...any)    {}
func (l *captureLogger) Info(string, ...any)     {}
func (l *captureLogger) Warn(msg string, _ ...any) { l.warns = append(l.warns, msg) }
func (l *captureLogger) Error(msg string, _ ...any) {
	l.errors = append(l.errors, msg)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func strPtr(v string) *string { return &v }

func sampleSnapshot() domain.Snapshot {
	paid := day(2024, 9, 3)
	return domain.Snapshot{
		Students: []domain.Student{
			{ID: 1, Code: "ST001", Name: "Nguyen Van A", BirthDate: day(2005, 5, 15), Gender: "Male", Phone: "0123456789", Email: "a@email.com", Hometown: "Ha Noi", RoomID: 1, Status: domain.StudentActive},
			{ID: 2, Code: "ST002", Name: "Le, Thi B", BirthDate: day(2004, 9, 20), Gender: "Female", Hometown: `C:\dorm`, Status: domain.StudentGraduated},
		},
		Rooms: []domain.Room{
			{ID: 1, Number: "P401", Capacity: 4, Price: 12000, Occupancy: 1, Status: domain.RoomOccupied},
		},
		Contracts: []domain.Contract{
			{ID: 1, Code: "C001", StudentID: 1, RoomID: 1, StartDate: day(2024, 9, 1), EndDate: day(2025, 3, 1), Price: 12000, PaymentMethod: "Bank Transfer", Status: domain.ContractActive, Deposit: 12000},
		},
		Fees: []domain.Fee{
			{ID: 1, Code: "F001", StudentID: 1, Kind: domain.FeeRoom, Amount: 12000, PaymentMethod: "CASH", Status: domain.PaymentPaid, DueDate: day(2024, 10, 1), PaidDate: &paid, Description: strPtr("september, incl. deposit")},
			{ID: 2, Code: "F002", StudentID: 2, Kind: domain.FeeWater, Amount: 550, PaymentMethod: "CASH", Status: domain.PaymentPending, DueDate: day(2024, 10, 1)},
			{ID: 3, Code: "F003", StudentID: 2, Kind: domain.FeeInternet, Amount: 900, PaymentMethod: "CASH", Status: domain.PaymentPending, DueDate: day(2024, 10, 1), Description: strPtr("null")},
		},
	}
}

func TestCodecEscapesDelimiterInFreeText(t *testing.T) {
	snap := sampleSnapshot()
	line := EncodeFee(snap.Fees[0])
	if got := len(strings.Split(strings.ReplaceAll(line, `\,`, ""), ",")); got != feeFields {
		t.Fatalf("expected %d raw fields after escaping, got %d in %q", feeFields, got, line)
	}
	fee, err := DecodeFee(line)
	if err != nil {
		t.Fatalf("decode fee: %v", err)
	}
	if fee.Description == nil || *fee.Description != "september, incl. deposit" {
		t.Fatalf("description not restored: %v", fee.Description)
	}

	student, err := DecodeStudent(EncodeStudent(snap.Students[1]))
	if err != nil {
		t.Fatalf("decode student: %v", err)
	}
	if student.Name != "Le, Thi B" || student.Hometown != `C:\dorm` {
		t.Fatalf("unexpected student round trip: %+v", student)
	}
}

func TestCodecNullSentinel(t *testing.T) {
	snap := sampleSnapshot()
	pending := EncodeFee(snap.Fees[1])
	if !strings.HasSuffix(pending, ",null,null") {
		t.Fatalf("expected null sentinels, got %q", pending)
	}
	fee, err := DecodeFee(pending)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if fee.PaidDate != nil || fee.Description != nil {
		t.Fatalf("expected absent optional fields, got %+v", fee)
	}
	literal, err := DecodeFee(EncodeFee(snap.Fees[2]))
	if err != nil {
		t.Fatalf("decode literal: %v", err)
	}
	if literal.Description == nil || *literal.Description != "null" {
		t.Fatalf("literal null description lost: %v", literal.Description)
	}
}

func TestCodecRejectsMalformedLines(t *testing.T) {
	bad := []string{
		"1,ST001,Name,2005-05-15,Male,0123,a@b.c,Town,0",        // field count
		"x,ST001,Name,2005-05-15,Male,0123,a@b.c,Town,0,ACTIVE", // id type
		"1,ST001,Name,15/05/2005,Male,0123,a@b.c,Town,0,ACTIVE", // date
		"0,ST001,Name,2005-05-15,Male,0123,a@b.c,Town,0,ACTIVE", // id range
		"1,ST001,Name,2005-05-15,Male,0123,a@b.c,Town,0,SLEEPING",
		"1,ST001,Name,2005-05-15,Male,0123,a@b.c,Town,0,ACTIVE\\",
	}
	for _, line := range bad {
		if _, err := DecodeStudent(line); err == nil {
			t.Fatalf("expected %q to be rejected", line)
		}
	}
	if _, err := DecodeRoom("1,P401,4-Person,0,120.00,0,AVAILABLE"); err == nil {
		t.Fatalf("expected zero capacity room rejected")
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "data")
	store, err := New(dir)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	want := sampleSnapshot()
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	reopened, err := New(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, err := reopened.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.Students) != 2 || len(got.Rooms) != 1 || len(got.Contracts) != 1 || len(got.Fees) != 3 {
		t.Fatalf("unexpected counts: %+v", got)
	}
	if got.Students[1] != want.Students[1] || got.Contracts[0] != want.Contracts[0] {
		t.Fatalf("student/contract mismatch:\n%+v\n%+v", got.Students[1], want.Students[1])
	}
	room := got.Rooms[0]
	if room.ID != 1 || room.Number != "P401" || room.Capacity != 4 || room.Price != 12000 {
		t.Fatalf("room mismatch: %+v", room)
	}
	if room.Occupancy != 0 || room.Status != "" {
		t.Fatalf("derived room columns must not be loaded: %+v", room)
	}
	if !got.Fees[0].PaidDate.Equal(*want.Fees[0].PaidDate) {
		t.Fatalf("paid date mismatch")
	}
}

func TestStoreSkipsCorruptedLine(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	logger := &captureLogger{}
	store, err := New(dir, WithLogger(logger))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	snap := sampleSnapshot()
	if err := store.Save(ctx, snap, domain.KindFee); err != nil {
		t.Fatalf("save: %v", err)
	}
	path := store.Path(domain.KindFee)
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	corrupted := append([]string{lines[0], "9,F009,1,WATER,1.00"}, lines[1:]...)
	corrupted = append(corrupted, "", lines[0]) // blank line and duplicate id
	if err := os.WriteFile(path, []byte(strings.Join(corrupted, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.Fees) != len(snap.Fees) {
		t.Fatalf("expected %d fees, got %d", len(snap.Fees), len(got.Fees))
	}
	if len(logger.warns) != 2 {
		t.Fatalf("expected 2 warnings (malformed + duplicate), got %v", logger.warns)
	}
}

func TestStoreSaveOnlyRequestedKinds(t *testing.T) {
	ctx := context.Background()
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	snap := sampleSnapshot()
	if err := store.Save(ctx, snap, domain.KindRoom); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(store.Path(domain.KindStudent)); !os.IsNotExist(err) {
		t.Fatalf("students file should not exist yet: %v", err)
	}
	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.Rooms) != 1 || len(got.Students) != 0 {
		t.Fatalf("unexpected snapshot %+v", got)
	}
	raw, _ := os.ReadFile(store.Path(domain.KindRoom))
	if string(raw) != "1,P401,4-Person,4,120.00,1,OCCUPIED\n" {
		t.Fatalf("unexpected room record %q", raw)
	}
}

func TestStoreLoadEmptyDir(t *testing.T) {
	store, err := New(filepath.Join(t.TempDir(), "nested", "data"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	got, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !got.Empty() {
		t.Fatalf("expected empty snapshot, got %+v", got)
	}
}

func TestStoreSaveFailureSurfacesError(t *testing.T) {
	dir := t.TempDir()
	logger := &captureLogger{}
	store, err := New(dir, WithLogger(logger))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	// a directory squatting on the target name makes the rename fail
	if err := os.Mkdir(store.Path(domain.KindStudent), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(store.Path(domain.KindStudent), "keep"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := store.Save(context.Background(), sampleSnapshot(), domain.KindStudent); err == nil {
		t.Fatalf("expected save failure")
	}
	if len(logger.errors) != 1 {
		t.Fatalf("expected error log, got %v", logger.errors)
	}
}
