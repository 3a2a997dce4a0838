package loader

import "fmt"

var (
	ErrInvalidYamlFormat = fmt.Errorf("invalid yaml format")
	ErrRequiredField     = fmt.Errorf("required field")
	ErrInvalidValue      = fmt.Errorf("invalid value")
)

type requiredFieldError struct {
	field  string
	entity string
}

func (e *requiredFieldError) Error() string {
	if e.entity == "" {
		return fmt.Sprintf("missing required field %q", e.field)
	}
	return fmt.Sprintf("missing required field %q in entity %q", e.field, e.entity)
}

func (e *requiredFieldError) Unwrap() error { return ErrRequiredField }

type invalidFieldError struct {
	field  string
	reason string
}

func (e *invalidFieldError) Error() string {
	return fmt.Sprintf("invalid field %q: %s", e.field, e.reason)
}

func (e *invalidFieldError) Unwrap() error { return ErrInvalidValue }

type duplicateEntityNameError struct {
	name string
}

func (e *duplicateEntityNameError) Error() string {
	return fmt.Sprintf("duplicate entity name %q, entity names must be unique", e.name)
}

func (e *duplicateEntityNameError) Unwrap() error { return ErrInvalidValue }
