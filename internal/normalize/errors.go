package normalize

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/go-playground/validator/v10"
)

// ErrMissingField matches every *MissingFieldError
var ErrMissingField = errors.New("missing required field")

// MissingFieldError names the remote field a payload lacked
type MissingFieldError struct {
	Entity string
	Field  string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: missing required field %q", e.Entity, e.Field)
}

func (e *MissingFieldError) Is(target error) bool {
	return target == ErrMissingField
}

func missing(entity, field string) error {
	return &MissingFieldError{Entity: entity, Field: field}
}

var validate = newValidator()

// newValidator reports failures under the remote field names from `remote` tags
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("remote"); name != "" {
			return name
		}
		return f.Name
	})
	return v
}

func check(entity string, v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return missing(entity, verrs[0].Field())
	}
	return fmt.Errorf("%s: %w", entity, err)
}
