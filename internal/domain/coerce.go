package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// FieldError reports a form field whose text could not be coerced.
type FieldError struct {
	Field string
	Value string
	Want  string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %q is not %s", e.Field, e.Value, e.Want)
}

// OptionalFloat converts s to a number. Blank input is absent (nil), never 0.
func OptionalFloat(field, s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, &FieldError{Field: field, Value: s, Want: "a number"}
	}
	return &v, nil
}

// OptionalInt converts s to a whole number. Blank input is absent (nil).
func OptionalInt(field, s string) (*int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, &FieldError{Field: field, Value: s, Want: "a whole number"}
	}
	return &v, nil
}

// OptionalText returns nil for blank input so it is sent as null, not "".
func OptionalText(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
