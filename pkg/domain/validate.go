package domain

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "" || name == "-" {
				return f.Name
			}
			return name
		})
	})
	return validate
}

func validateStruct(kind Kind, v any) error {
	err := validatorInstance().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %s: %v", ErrInvalid, kind, err)
	}
	out := ValidationError{Kind: kind}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Rule: fe.Tag(), Param: fe.Param()})
	}
	return out
}

// ValidateStudent checks required fields and enumerations.
func ValidateStudent(s Student) error {
	return validateStruct(KindStudent, s)
}

// ValidateRoom checks the room number and a positive capacity.
func ValidateRoom(r Room) error {
	return validateStruct(KindRoom, r)
}

// ValidateContract checks the date range, references and amounts.
func ValidateContract(c Contract) error {
	return validateStruct(KindContract, c)
}

// ValidateFee checks the fee kind, amount and due date.
func ValidateFee(f Fee) error {
	return validateStruct(KindFee, f)
}
