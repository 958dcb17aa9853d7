package sysinfo

import (
	"errors"
	"fmt"
)

var ErrMissingRequiredField = errors.New("missing required field")

// ParseError is returned when a payload lacks what is needed to identify the node.
type ParseError struct {
	Field string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %q", ErrMissingRequiredField, e.Field)
}

func (e *ParseError) Is(target error) bool {
	return target == ErrMissingRequiredField
}
