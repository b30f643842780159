package domain

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func validStudent() Student {
	return Student{
		Code:      "ST100",
		Name:      "Tran Van E",
		BirthDate: time.Date(2004, 2, 1, 0, 0, 0, 0, time.UTC),
		Gender:    "Male",
		Email:     "e@example.com",
		Status:    StudentActive,
	}
}

func TestValidateStudent(t *testing.T) {
	if err := ValidateStudent(validStudent()); err != nil {
		t.Fatalf("valid student rejected: %v", err)
	}
	s := validStudent()
	s.Name = ""
	s.Email = "not-an-email"
	err := ValidateStudent(s)
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
	var verr ValidationError
	if !errors.As(err, &verr) || len(verr.Fields) != 2 {
		t.Fatalf("expected two field errors, got %v", err)
	}
	if !strings.Contains(err.Error(), "name:required") || !strings.Contains(err.Error(), "email:email") {
		t.Fatalf("unexpected message %q", err.Error())
	}
	s = validStudent()
	s.Status = "SUSPENDED"
	if err := ValidateStudent(s); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected unknown status rejected, got %v", err)
	}
}

func TestValidateRoomCapacity(t *testing.T) {
	if err := ValidateRoom(Room{Number: "P401", Capacity: 4, Price: 12000}); err != nil {
		t.Fatalf("valid room rejected: %v", err)
	}
	for _, capacity := range []int{0, -1} {
		if err := ValidateRoom(Room{Number: "P9", Capacity: capacity}); !errors.Is(err, ErrInvalid) {
			t.Fatalf("capacity %d accepted", capacity)
		}
	}
}

func TestValidateContractDates(t *testing.T) {
	start := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	c := Contract{
		Code:          "C1",
		StudentID:     1,
		RoomID:        1,
		StartDate:     start,
		EndDate:       start.AddDate(0, 6, 0),
		Price:         12000,
		PaymentMethod: DefaultContractPaymentMethod,
		Status:        ContractActive,
	}
	if err := ValidateContract(c); err != nil {
		t.Fatalf("valid contract rejected: %v", err)
	}
	c.EndDate = start
	if err := ValidateContract(c); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected end == start rejected, got %v", err)
	}
	c.EndDate = start.AddDate(0, 0, -1)
	if err := ValidateContract(c); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected end before start rejected, got %v", err)
	}
}

func TestValidateFeeAmount(t *testing.T) {
	f := Fee{
		Code:          "F1",
		StudentID:     1,
		Kind:          FeeWater,
		Amount:        1500,
		PaymentMethod: DefaultFeePaymentMethod,
		Status:        PaymentPending,
		DueDate:       time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := ValidateFee(f); err != nil {
		t.Fatalf("valid fee rejected: %v", err)
	}
	f.Amount = 0
	if err := ValidateFee(f); !errors.Is(err, ErrInvalid) {
		t.Fatalf("zero amount accepted")
	}
	f.Amount = 100
	f.Kind = "PARKING"
	if err := ValidateFee(f); !errors.Is(err, ErrInvalid) {
		t.Fatalf("unknown kind accepted")
	}
}
