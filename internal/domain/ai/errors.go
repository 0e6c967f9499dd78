package ai

import (
	"errors"
	"fmt"
	"strings"
)

// ErrQuotaExceeded indicates the AI provider returned a quota/limit error (HTTP 429 or similar).
var ErrQuotaExceeded = errors.New("ai quota exceeded")

var (
	// ErrUpstream covers provider call failures and empty completions.
	ErrUpstream = errors.New("ai upstream failure")
	// ErrMalformedResponse means the completion could not be parsed as JSON.
	ErrMalformedResponse = errors.New("ai response is not valid json")
	// ErrEmptyResponse means the completion was an empty JSON array.
	ErrEmptyResponse = errors.New("ai response is empty")
)

// FieldError describes one field that does not match its shape.
type FieldError struct {
	Field        string `json:"field"`
	ExpectedType string `json:"expectedType"`
	Reason       string `json:"reason"`
}

// ValidationError lists every field of a response that violates its shape.
type ValidationError struct {
	Shape  string       `json:"shape"`
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s (%s): %s", f.Field, f.ExpectedType, f.Reason))
	}
	return fmt.Sprintf("%s response does not match shape: %s", e.Shape, strings.Join(parts, "; "))
}

// Has reports whether field is among the violations.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}
