package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dormcore/pkg/domain"
)

// ListFees returns a copy of every fee ordered by id.
func (r *Repository) ListFees() []domain.Fee {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.listFees()
}

// GetFee returns the fee with id.
func (r *Repository) GetFee(id int) (domain.Fee, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.state.fees[id]
	if !ok {
		return domain.Fee{}, false
	}
	return domain.CloneFee(f), true
}

func normalizeFee(f *domain.Fee) {
	f.Code = strings.TrimSpace(f.Code)
	f.PaymentMethod = strings.TrimSpace(f.PaymentMethod)
	if f.PaymentMethod == "" {
		f.PaymentMethod = domain.DefaultFeePaymentMethod
	}
	if f.Status == "" {
		f.Status = domain.PaymentPending
	}
	f.DueDate = domain.Date(f.DueDate)
	if f.PaidDate != nil {
		paid := domain.Date(*f.PaidDate)
		f.PaidDate = &paid
	}
}

// AddFee validates f, requires its student to exist, assigns the next fee id
// and persists the fee collection. A blank code is generated from the id.
func (r *Repository) AddFee(ctx context.Context, f domain.Fee) (domain.Fee, error) {
	f = domain.CloneFee(f)
	normalizeFee(&f)
	var created domain.Fee
	err := r.mutate(ctx, "add_fee", func(st *state) ([]domain.Kind, error) {
		fee, err := r.insertFeeLocked(st, f)
		if err != nil {
			return nil, err
		}
		created = domain.CloneFee(fee)
		return []domain.Kind{domain.KindFee}, nil
	})
	return created, err
}

func (r *Repository) insertFeeLocked(st *state, f domain.Fee) (domain.Fee, error) {
	blankCode := f.Code == ""
	if blankCode {
		f.Code = "pending"
	}
	if err := domain.ValidateFee(f); err != nil {
		return domain.Fee{}, err
	}
	if err := st.feeRefsExist(f); err != nil {
		return domain.Fee{}, err
	}
	f.ID = nextID(&r.feeSeq)
	if blankCode {
		f.Code = seqCode("F", f.ID)
	}
	st.fees[f.ID] = f
	return f, nil
}

func (st *state) feeRefsExist(f domain.Fee) error {
	if _, ok := st.students[f.StudentID]; !ok {
		return domain.ErrNotFound{Kind: domain.KindStudent, ID: f.StudentID}
	}
	return nil
}

// UpdateFee replaces the stored fee with the same id. Its student must exist.
func (r *Repository) UpdateFee(ctx context.Context, f domain.Fee) (domain.Fee, error) {
	f = domain.CloneFee(f)
	normalizeFee(&f)
	err := r.mutate(ctx, "update_fee", func(st *state) ([]domain.Kind, error) {
		if _, ok := st.fees[f.ID]; !ok {
			return nil, domain.ErrNotFound{Kind: domain.KindFee, ID: f.ID}
		}
		if err := domain.ValidateFee(f); err != nil {
			return nil, err
		}
		if err := st.feeRefsExist(f); err != nil {
			return nil, err
		}
		st.fees[f.ID] = f
		return []domain.Kind{domain.KindFee}, nil
	})
	return domain.CloneFee(f), err
}

// DeleteFee removes the fee.
func (r *Repository) DeleteFee(ctx context.Context, id int) error {
	return r.deleteEntity(ctx, "delete_fee", domain.KindFee, id)
}

// RecordFeePayment marks a PENDING or OVERDUE fee as PAID today. A non-empty
// method replaces the recorded payment method.
func (r *Repository) RecordFeePayment(ctx context.Context, id int, method string) (domain.Fee, error) {
	var out domain.Fee
	err := r.mutate(ctx, "record_fee_payment", func(st *state) ([]domain.Kind, error) {
		f, ok := st.fees[id]
		if !ok {
			return nil, domain.ErrNotFound{Kind: domain.KindFee, ID: id}
		}
		if f.Status != domain.PaymentPending && f.Status != domain.PaymentOverdue {
			return nil, fmt.Errorf("fee %s is %s: %w", f.Code, f.Status, domain.ErrInvalidTransition)
		}
		today := r.today()
		f.Status = domain.PaymentPaid
		f.PaidDate = &today
		if m := strings.TrimSpace(method); m != "" {
			f.PaymentMethod = m
		}
		st.fees[id] = f
		out = domain.CloneFee(f)
		return []domain.Kind{domain.KindFee}, nil
	})
	return out, err
}

// MarkOverdueFees moves PENDING fees due before today to OVERDUE and returns
// how many changed.
func (r *Repository) MarkOverdueFees(ctx context.Context) (int, error) {
	changed := 0
	err := r.mutate(ctx, "mark_overdue_fees", func(st *state) ([]domain.Kind, error) {
		today := r.today()
		for id, f := range st.fees {
			if f.Status == domain.PaymentPending && f.DueDate.Before(today) {
				f.Status = domain.PaymentOverdue
				st.fees[id] = f
				changed++
			}
		}
		if changed == 0 {
			return nil, nil
		}
		return []domain.Kind{domain.KindFee}, nil
	})
	return changed, err
}

// GenerateMonthlyFees issues one fee of kind and amount due on due to each
// listed student, or to every ACTIVE student when none are listed. All fees
// are persisted in a single write; an unknown student rejects the batch.
func (r *Repository) GenerateMonthlyFees(ctx context.Context, kind domain.FeeKind, amount domain.Money, due time.Time, studentIDs ...int) ([]domain.Fee, error) {
	var created []domain.Fee
	err := r.mutate(ctx, "generate_monthly_fees", func(st *state) ([]domain.Kind, error) {
		ids := studentIDs
		if len(ids) == 0 {
			for _, s := range st.listStudents() {
				if s.Status == domain.StudentActive {
					ids = append(ids, s.ID)
				}
			}
		}
		for _, id := range ids {
			if _, ok := st.students[id]; !ok {
				return nil, domain.ErrNotFound{Kind: domain.KindStudent, ID: id}
			}
		}
		desc := fmt.Sprintf("%s fee %s", kind.DisplayName(), domain.Date(due).Format("01/2006"))
		build := func(studentID int) domain.Fee {
			d := desc
			f := domain.Fee{Code: "pending", StudentID: studentID, Kind: kind, Amount: amount, DueDate: due, Description: &d}
			normalizeFee(&f)
			return f
		}
		if len(ids) == 0 {
			return nil, nil
		}
		if err := domain.ValidateFee(build(ids[0])); err != nil {
			return nil, err
		}
		for _, id := range ids {
			f := build(id)
			f.Code = ""
			fee, err := r.insertFeeLocked(st, f)
			if err != nil {
				return nil, err
			}
			created = append(created, domain.CloneFee(fee))
		}
		return []domain.Kind{domain.KindFee}, nil
	})
	return created, err
}

// FeesByStudent returns the fees issued to studentID.
func (r *Repository) FeesByStudent(studentID int) []domain.Fee {
	return r.filterFees(func(f domain.Fee) bool { return f.StudentID == studentID })
}

// OverdueFees returns fees marked OVERDUE plus PENDING fees already past due.
func (r *Repository) OverdueFees() []domain.Fee {
	today := r.today()
	return r.filterFees(func(f domain.Fee) bool {
		return f.Status == domain.PaymentOverdue || (f.Status == domain.PaymentPending && f.DueDate.Before(today))
	})
}

// UnpaidTotal sums PENDING and OVERDUE fees of studentID.
func (r *Repository) UnpaidTotal(studentID int) domain.Money {
	var total domain.Money
	for _, f := range r.FeesByStudent(studentID) {
		if f.Status == domain.PaymentPending || f.Status == domain.PaymentOverdue {
			total += f.Amount
		}
	}
	return total
}

// FeeTotalsByKind sums billed amounts per fee kind, excluding cancelled fees.
func (r *Repository) FeeTotalsByKind() map[domain.FeeKind]domain.Money {
	out := make(map[domain.FeeKind]domain.Money)
	for _, f := range r.ListFees() {
		if f.Status != domain.PaymentCancelled {
			out[f.Kind] += f.Amount
		}
	}
	return out
}

func (r *Repository) filterFees(keep func(domain.Fee) bool) []domain.Fee {
	all := r.ListFees()
	out := all[:0]
	for _, f := range all {
		if keep(f) {
			out = append(out, f)
		}
	}
	return out
}
