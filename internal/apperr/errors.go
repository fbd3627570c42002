package apperr

import (
	"errors"
	"strings"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")
)

// ValidationError reports request fields that are missing or malformed.
type ValidationError struct {
	Fields []string
	Reason string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Reason
	}
	reason := e.Reason
	if reason == "" {
		reason = "missing required fields"
	}
	return reason + ": " + strings.Join(e.Fields, ", ")
}

func Missing(fields ...string) *ValidationError {
	return &ValidationError{Fields: fields, Reason: "missing required fields"}
}

func Invalid(reason string) *ValidationError {
	return &ValidationError{Reason: reason}
}
