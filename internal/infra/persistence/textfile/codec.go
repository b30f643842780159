package textfile

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"dormcore/pkg/domain"
)

const (
	delimiter = ','
	escape    = '\\'
	// nullToken marks an absent optional field.
	nullToken = "null"
)

// Field counts per record kind. A line with any other count is rejected.
const (
	studentFields  = 10
	roomFields     = 7
	contractFields = 10
	feeFields      = 10
)

func escapeField(s string) string {
	if s == nullToken {
		// keep a literal "null" distinguishable from the absence sentinel
		return "nul\\l"
	}
	if !strings.ContainsAny(s, ",\\\n\r") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 4)
	for _, r := range s {
		switch r {
		case delimiter, escape:
			b.WriteRune(escape)
			b.WriteRune(r)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// splitRecord splits a line on unescaped delimiters and unescapes each field.
// raw reports, per field, whether it was exactly the null token before unescaping.
func splitRecord(line string) (fields []string, null []bool, err error) {
	var cur strings.Builder
	rawNull := func(s string) bool { return s == nullToken }
	var rawCur strings.Builder
	escaped := false
	flush := func() {
		fields = append(fields, cur.String())
		null = append(null, rawNull(rawCur.String()))
		cur.Reset()
		rawCur.Reset()
	}
	for _, r := range line {
		if escaped {
			rawCur.WriteRune(r)
			switch r {
			case 'n':
				cur.WriteRune('\n')
			case 'r':
				cur.WriteRune('\r')
			default:
				cur.WriteRune(r)
			}
			escaped = false
			continue
		}
		switch r {
		case escape:
			rawCur.WriteRune(r)
			escaped = true
		case delimiter:
			flush()
		default:
			rawCur.WriteRune(r)
			cur.WriteRune(r)
		}
	}
	if escaped {
		return nil, nil, fmt.Errorf("dangling escape at end of record")
	}
	flush()
	return fields, null, nil
}

func joinRecord(fields ...string) string {
	return strings.Join(fields, string(delimiter))
}

type fieldReader struct {
	fields []string
	null   []bool
	err    error
}

func newFieldReader(line string, want int) (*fieldReader, error) {
	fields, null, err := splitRecord(line)
	if err != nil {
		return nil, err
	}
	if len(fields) != want {
		return nil, fmt.Errorf("expected %d fields, got %d", want, len(fields))
	}
	return &fieldReader{fields: fields, null: null}, nil
}

func (r *fieldReader) fail(idx int, what string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("field %d (%s): %w", idx, what, err)
	}
}

func (r *fieldReader) str(idx int) string { return r.fields[idx] }

func (r *fieldReader) int(idx int, what string) int {
	v, err := strconv.Atoi(strings.TrimSpace(r.fields[idx]))
	if err != nil {
		r.fail(idx, what, err)
	}
	return v
}

func (r *fieldReader) money(idx int, what string) domain.Money {
	v, err := domain.ParseMoney(r.fields[idx])
	if err != nil {
		r.fail(idx, what, err)
	}
	return v
}

func (r *fieldReader) date(idx int, what string) time.Time {
	v, err := domain.ParseDate(r.fields[idx])
	if err != nil {
		r.fail(idx, what, err)
	}
	return v
}

func (r *fieldReader) optionalDate(idx int, what string) *time.Time {
	if r.null[idx] {
		return nil
	}
	v := r.date(idx, what)
	return &v
}

func (r *fieldReader) optionalString(idx int) *string {
	if r.null[idx] {
		return nil
	}
	v := r.fields[idx]
	return &v
}

func positiveID(id int) error {
	if id <= 0 {
		return fmt.Errorf("%w: id must be positive, got %d", domain.ErrInvalid, id)
	}
	return nil
}

// EncodeStudent renders a student as
// id,code,name,birth,gender,phone,email,hometown,roomId,status.
func EncodeStudent(s domain.Student) string {
	return joinRecord(
		strconv.Itoa(s.ID),
		escapeField(s.Code),
		escapeField(s.Name),
		domain.FormatDate(s.BirthDate),
		escapeField(s.Gender),
		escapeField(s.Phone),
		escapeField(s.Email),
		escapeField(s.Hometown),
		strconv.Itoa(s.RoomID),
		string(s.Status),
	)
}

// DecodeStudent parses a line produced by EncodeStudent.
func DecodeStudent(line string) (domain.Student, error) {
	r, err := newFieldReader(line, studentFields)
	if err != nil {
		return domain.Student{}, err
	}
	s := domain.Student{
		ID:        r.int(0, "id"),
		Code:      r.str(1),
		Name:      r.str(2),
		BirthDate: r.date(3, "birth_date"),
		Gender:    r.str(4),
		Phone:     r.str(5),
		Email:     r.str(6),
		Hometown:  r.str(7),
		RoomID:    r.int(8, "room_id"),
		Status:    domain.StudentStatus(r.str(9)),
	}
	if r.err != nil {
		return domain.Student{}, r.err
	}
	if err := positiveID(s.ID); err != nil {
		return domain.Student{}, err
	}
	return s, domain.ValidateStudent(s)
}

// EncodeRoom renders a room as id,number,type,capacity,price,occupancy,status.
// Occupancy and status are written for readers of the file and recomputed on load.
func EncodeRoom(r domain.Room) string {
	status := r.Status
	if status == "" {
		status = domain.DeriveRoomStatus(r.Occupancy, r.Capacity)
	}
	return joinRecord(
		strconv.Itoa(r.ID),
		escapeField(r.Number),
		r.TypeLabel(),
		strconv.Itoa(r.Capacity),
		r.Price.String(),
		strconv.Itoa(r.Occupancy),
		string(status),
	)
}

// DecodeRoom parses a line produced by EncodeRoom. Stored occupancy is ignored.
func DecodeRoom(line string) (domain.Room, error) {
	r, err := newFieldReader(line, roomFields)
	if err != nil {
		return domain.Room{}, err
	}
	room := domain.Room{
		ID:       r.int(0, "id"),
		Number:   r.str(1),
		Capacity: r.int(3, "capacity"),
		Price:    r.money(4, "price"),
	}
	_ = r.int(5, "occupancy")
	if r.err != nil {
		return domain.Room{}, r.err
	}
	if err := positiveID(room.ID); err != nil {
		return domain.Room{}, err
	}
	return room, domain.ValidateRoom(room)
}

// EncodeContract renders a contract as
// id,code,studentId,roomId,start,end,price,paymentMethod,status,deposit.
func EncodeContract(c domain.Contract) string {
	return joinRecord(
		strconv.Itoa(c.ID),
		escapeField(c.Code),
		strconv.Itoa(c.StudentID),
		strconv.Itoa(c.RoomID),
		domain.FormatDate(c.StartDate),
		domain.FormatDate(c.EndDate),
		c.Price.String(),
		escapeField(c.PaymentMethod),
		string(c.Status),
		c.Deposit.String(),
	)
}

// DecodeContract parses a line produced by EncodeContract.
func DecodeContract(line string) (domain.Contract, error) {
	r, err := newFieldReader(line, contractFields)
	if err != nil {
		return domain.Contract{}, err
	}
	c := domain.Contract{
		ID:            r.int(0, "id"),
		Code:          r.str(1),
		StudentID:     r.int(2, "student_id"),
		RoomID:        r.int(3, "room_id"),
		StartDate:     r.date(4, "start_date"),
		EndDate:       r.date(5, "end_date"),
		Price:         r.money(6, "price"),
		PaymentMethod: r.str(7),
		Status:        domain.ContractStatus(r.str(8)),
		Deposit:       r.money(9, "deposit"),
	}
	if r.err != nil {
		return domain.Contract{}, r.err
	}
	if err := positiveID(c.ID); err != nil {
		return domain.Contract{}, err
	}
	return c, domain.ValidateContract(c)
}

// EncodeFee renders a fee as
// id,code,studentId,kind,amount,paymentMethod,status,due,paidDate,description
// with the null token standing in for an absent paid date or description.
func EncodeFee(f domain.Fee) string {
	paid := nullToken
	if f.PaidDate != nil {
		paid = domain.FormatDate(*f.PaidDate)
	}
	desc := nullToken
	if f.Description != nil {
		desc = escapeField(*f.Description)
	}
	return joinRecord(
		strconv.Itoa(f.ID),
		escapeField(f.Code),
		strconv.Itoa(f.StudentID),
		string(f.Kind),
		f.Amount.String(),
		escapeField(f.PaymentMethod),
		string(f.Status),
		domain.FormatDate(f.DueDate),
		paid,
		desc,
	)
}

// DecodeFee parses a line produced by EncodeFee.
func DecodeFee(line string) (domain.Fee, error) {
	r, err := newFieldReader(line, feeFields)
	if err != nil {
		return domain.Fee{}, err
	}
	f := domain.Fee{
		ID:            r.int(0, "id"),
		Code:          r.str(1),
		StudentID:     r.int(2, "student_id"),
		Kind:          domain.FeeKind(r.str(3)),
		Amount:        r.money(4, "amount"),
		PaymentMethod: r.str(5),
		Status:        domain.PaymentStatus(r.str(6)),
		DueDate:       r.date(7, "due_date"),
		PaidDate:      r.optionalDate(8, "paid_date"),
		Description:   r.optionalString(9),
	}
	if r.err != nil {
		return domain.Fee{}, r.err
	}
	if err := positiveID(f.ID); err != nil {
		return domain.Fee{}, err
	}
	return f, domain.ValidateFee(f)
}
