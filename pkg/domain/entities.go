// Package domain defines the persistent dormitory entities, value types, and
// validation primitives shared by the repository, its backends and reports.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// Kind identifies an entity collection stored by the repository.
type Kind string

// Supported entity kinds, also used as persistence bucket names.
const (
	// KindStudent identifies the student collection.
	KindStudent Kind = "student"
	// KindRoom identifies the room collection.
	KindRoom Kind = "room"
	// KindContract identifies the contract collection.
	KindContract Kind = "contract"
	// KindFee identifies the fee collection.
	KindFee Kind = "fee"
)

// Kinds lists every entity kind in persistence order.
func Kinds() []Kind {
	return []Kind{KindStudent, KindRoom, KindContract, KindFee}
}

// StudentStatus enumerates residency states of a student.
type StudentStatus string

// Canonical student statuses.
const (
	StudentActive    StudentStatus = "ACTIVE"
	StudentInactive  StudentStatus = "INACTIVE"
	StudentGraduated StudentStatus = "GRADUATED"
)

// RoomStatus is derived from occupancy and never stored.
type RoomStatus string

// Derived room statuses.
const (
	RoomAvailable RoomStatus = "AVAILABLE"
	RoomOccupied  RoomStatus = "OCCUPIED"
	RoomFull      RoomStatus = "FULL"
)

// ContractStatus enumerates contract lifecycle states.
type ContractStatus string

// Canonical contract statuses.
const (
	ContractActive     ContractStatus = "ACTIVE"
	ContractExpired    ContractStatus = "EXPIRED"
	ContractTerminated ContractStatus = "TERMINATED"
	ContractPending    ContractStatus = "PENDING"
)

// FeeKind enumerates billable fee categories.
type FeeKind string

// Supported fee kinds.
const (
	FeeRoom        FeeKind = "ROOM"
	FeeElectricity FeeKind = "ELECTRICITY"
	FeeWater       FeeKind = "WATER"
	FeeCleaning    FeeKind = "CLEANING"
	FeeInternet    FeeKind = "INTERNET"
	FeeMaintenance FeeKind = "MAINTENANCE"
)

// FeeKinds lists every fee kind in declaration order.
func FeeKinds() []FeeKind {
	return []FeeKind{FeeRoom, FeeElectricity, FeeWater, FeeCleaning, FeeInternet, FeeMaintenance}
}

var feeKindLabels = map[FeeKind]string{
	FeeRoom:        "Room",
	FeeElectricity: "Electricity",
	FeeWater:       "Water",
	FeeCleaning:    "Cleaning",
	FeeInternet:    "Internet",
	FeeMaintenance: "Maintenance",
}

// DisplayName returns the human readable label for the fee kind.
func (k FeeKind) DisplayName() string {
	if label, ok := feeKindLabels[k]; ok {
		return label
	}
	return string(k)
}

// ParseFeeKind resolves a fee kind from its canonical name (case-insensitive).
func ParseFeeKind(raw string) (FeeKind, error) {
	kind := FeeKind(strings.ToUpper(strings.TrimSpace(raw)))
	if _, ok := feeKindLabels[kind]; !ok {
		return "", fmt.Errorf("%w: unknown fee kind %q", ErrInvalid, raw)
	}
	return kind, nil
}

// PaymentStatus enumerates fee settlement states.
type PaymentStatus string

// Canonical payment statuses.
const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentPaid      PaymentStatus = "PAID"
	PaymentOverdue   PaymentStatus = "OVERDUE"
	PaymentCancelled PaymentStatus = "CANCELLED"
)

// Default payment methods applied when callers leave the field empty.
const (
	DefaultFeePaymentMethod      = "CASH"
	DefaultContractPaymentMethod = "MONTHLY"
)

// Student is a dormitory resident. RoomID zero means unassigned.
type Student struct {
	ID        int           `json:"id"`
	Code      string        `json:"code" validate:"required,max=32"`
	Name      string        `json:"name" validate:"required,max=100"`
	BirthDate time.Time     `json:"birth_date" validate:"required"`
	Gender    string        `json:"gender" validate:"required,max=16"`
	Phone     string        `json:"phone" validate:"omitempty,max=20"`
	Email     string        `json:"email" validate:"omitempty,email"`
	Hometown  string        `json:"hometown" validate:"omitempty,max=100"`
	RoomID    int           `json:"room_id" validate:"gte=0"`
	Status    StudentStatus `json:"status" validate:"oneof=ACTIVE INACTIVE GRADUATED"`
}

// Room is a bookable dormitory room. Occupancy and Status are populated on
// read from the current student links and ignored on write.
type Room struct {
	ID        int        `json:"id"`
	Number    string     `json:"number" validate:"required,max=16"`
	Capacity  int        `json:"capacity" validate:"gt=0"`
	Price     Money      `json:"price" validate:"gte=0"`
	Occupancy int        `json:"-"`
	Status    RoomStatus `json:"-"`
}

// TypeLabel describes the room by bed count, e.g. "4-Person".
func (r Room) TypeLabel() string {
	return fmt.Sprintf("%d-Person", r.Capacity)
}

// AvailableBeds returns the number of free beds given the populated occupancy.
func (r Room) AvailableBeds() int {
	if free := r.Capacity - r.Occupancy; free > 0 {
		return free
	}
	return 0
}

// DeriveRoomStatus computes the room status for the given occupancy.
func DeriveRoomStatus(occupancy, capacity int) RoomStatus {
	switch {
	case occupancy <= 0:
		return RoomAvailable
	case occupancy >= capacity:
		return RoomFull
	default:
		return RoomOccupied
	}
}

// Contract binds a student to a room for a date range.
type Contract struct {
	ID            int            `json:"id"`
	Code          string         `json:"code" validate:"required,max=32"`
	StudentID     int            `json:"student_id" validate:"gt=0"`
	RoomID        int            `json:"room_id" validate:"gt=0"`
	StartDate     time.Time      `json:"start_date" validate:"required"`
	EndDate       time.Time      `json:"end_date" validate:"required,gtfield=StartDate"`
	Price         Money          `json:"price" validate:"gt=0"`
	PaymentMethod string         `json:"payment_method" validate:"required,max=32"`
	Status        ContractStatus `json:"status" validate:"oneof=ACTIVE EXPIRED TERMINATED PENDING"`
	Deposit       Money          `json:"deposit" validate:"gte=0"`
}

// Fee is a billable charge issued to a student.
type Fee struct {
	ID            int           `json:"id"`
	Code          string        `json:"code" validate:"required,max=32"`
	StudentID     int           `json:"student_id" validate:"gt=0"`
	Kind          FeeKind       `json:"kind" validate:"oneof=ROOM ELECTRICITY WATER CLEANING INTERNET MAINTENANCE"`
	Amount        Money         `json:"amount" validate:"gt=0"`
	PaymentMethod string        `json:"payment_method" validate:"required,max=32"`
	Status        PaymentStatus `json:"status" validate:"oneof=PENDING PAID OVERDUE CANCELLED"`
	DueDate       time.Time     `json:"due_date" validate:"required"`
	PaidDate      *time.Time    `json:"paid_date,omitempty"`
	Description   *string       `json:"description,omitempty" validate:"omitempty,max=500"`
}

// ReportFormat identifies an export encoding.
type ReportFormat string

// Supported export formats.
const (
	FormatExcel ReportFormat = "EXCEL"
	FormatText  ReportFormat = "TEXT"
)

// ReportStatus tracks an export through generation.
type ReportStatus string

// Report statuses.
const (
	ReportGenerating ReportStatus = "GENERATING"
	ReportCompleted  ReportStatus = "COMPLETED"
	ReportFailed     ReportStatus = "FAILED"
)

// ReportRecord is one entry of the generated reports index.
type ReportRecord struct {
	ID          int          `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Type        string       `json:"type"`
	GeneratedAt time.Time    `json:"generated_at"`
	Path        string       `json:"path"`
	Format      ReportFormat `json:"format"`
	Status      ReportStatus `json:"status"`
}

// CloneStudent returns a copy of s; students have no shared references.
func CloneStudent(s Student) Student { return s }

// CloneRoom returns a copy of r.
func CloneRoom(r Room) Room { return r }

// CloneContract returns a copy of c.
func CloneContract(c Contract) Contract { return c }

// CloneFee returns a deep copy of f so callers cannot mutate stored pointers.
func CloneFee(f Fee) Fee {
	cp := f
	if f.PaidDate != nil {
		t := *f.PaidDate
		cp.PaidDate = &t
	}
	if f.Description != nil {
		d := *f.Description
		cp.Description = &d
	}
	return cp
}
