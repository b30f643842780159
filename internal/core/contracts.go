package core

import (
	"context"
	"fmt"
	"strings"

	"dormcore/pkg/domain"
)

// ListContracts returns a copy of every contract ordered by id.
func (r *Repository) ListContracts() []domain.Contract {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.listContracts()
}

// GetContract returns the contract with id.
func (r *Repository) GetContract(id int) (domain.Contract, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.state.contracts[id]
	return c, ok
}

func normalizeContract(c *domain.Contract) {
	c.Code = strings.TrimSpace(c.Code)
	c.PaymentMethod = strings.TrimSpace(c.PaymentMethod)
	if c.PaymentMethod == "" {
		c.PaymentMethod = domain.DefaultContractPaymentMethod
	}
	if c.Status == "" {
		c.Status = domain.ContractActive
	}
	c.StartDate = domain.Date(c.StartDate)
	c.EndDate = domain.Date(c.EndDate)
}

// AddContract validates c, requires its student and room to exist, assigns
// the next contract id and persists the contract collection. A blank code is
// generated from the id.
func (r *Repository) AddContract(ctx context.Context, c domain.Contract) (domain.Contract, error) {
	normalizeContract(&c)
	var created domain.Contract
	err := r.mutate(ctx, "add_contract", func(st *state) ([]domain.Kind, error) {
		blankCode := c.Code == ""
		if blankCode {
			c.Code = "pending"
		}
		if err := domain.ValidateContract(c); err != nil {
			return nil, err
		}
		if err := st.contractRefsExist(c); err != nil {
			return nil, err
		}
		c.ID = nextID(&r.contractSeq)
		if blankCode {
			c.Code = seqCode("C", c.ID)
		}
		st.contracts[c.ID] = c
		created = c
		return []domain.Kind{domain.KindContract}, nil
	})
	return created, err
}

func (st *state) contractRefsExist(c domain.Contract) error {
	if _, ok := st.students[c.StudentID]; !ok {
		return domain.ErrNotFound{Kind: domain.KindStudent, ID: c.StudentID}
	}
	if _, ok := st.rooms[c.RoomID]; !ok {
		return domain.ErrNotFound{Kind: domain.KindRoom, ID: c.RoomID}
	}
	return nil
}

// UpdateContract replaces the stored contract with the same id. Its student
// and room must exist.
func (r *Repository) UpdateContract(ctx context.Context, c domain.Contract) (domain.Contract, error) {
	normalizeContract(&c)
	err := r.mutate(ctx, "update_contract", func(st *state) ([]domain.Kind, error) {
		if _, ok := st.contracts[c.ID]; !ok {
			return nil, domain.ErrNotFound{Kind: domain.KindContract, ID: c.ID}
		}
		if err := domain.ValidateContract(c); err != nil {
			return nil, err
		}
		if err := st.contractRefsExist(c); err != nil {
			return nil, err
		}
		st.contracts[c.ID] = c
		return []domain.Kind{domain.KindContract}, nil
	})
	return c, err
}

// DeleteContract removes the contract.
func (r *Repository) DeleteContract(ctx context.Context, id int) error {
	return r.deleteEntity(ctx, "delete_contract", domain.KindContract, id)
}

// TerminateContract moves an ACTIVE contract to TERMINATED.
func (r *Repository) TerminateContract(ctx context.Context, id int) (domain.Contract, error) {
	var out domain.Contract
	err := r.mutate(ctx, "terminate_contract", func(st *state) ([]domain.Kind, error) {
		c, ok := st.contracts[id]
		if !ok {
			return nil, domain.ErrNotFound{Kind: domain.KindContract, ID: id}
		}
		if c.Status != domain.ContractActive {
			return nil, fmt.Errorf("contract %s is %s: %w", c.Code, c.Status, domain.ErrInvalidTransition)
		}
		c.Status = domain.ContractTerminated
		st.contracts[id] = c
		out = c
		return []domain.Kind{domain.KindContract}, nil
	})
	return out, err
}

// ContractsByStudent returns the contracts that reference studentID.
func (r *Repository) ContractsByStudent(studentID int) []domain.Contract {
	return r.filterContracts(func(c domain.Contract) bool { return c.StudentID == studentID })
}

// ActiveContracts returns contracts with ACTIVE status.
func (r *Repository) ActiveContracts() []domain.Contract {
	return r.filterContracts(func(c domain.Contract) bool { return c.Status == domain.ContractActive })
}

// ExpiringContracts returns active contracts ending between today and today
// plus days, inclusive.
func (r *Repository) ExpiringContracts(days int) []domain.Contract {
	today := r.today()
	limit := today.AddDate(0, 0, days)
	return r.filterContracts(func(c domain.Contract) bool {
		return c.Status == domain.ContractActive && !c.EndDate.Before(today) && !c.EndDate.After(limit)
	})
}

func (r *Repository) filterContracts(keep func(domain.Contract) bool) []domain.Contract {
	all := r.ListContracts()
	out := all[:0]
	for _, c := range all {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}
