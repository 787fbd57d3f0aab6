package core

import (
	"errors"
	"fmt"
	"strings"
)

// IssueKind classifies a resolution-level problem. These are recovered locally and carried on
// the ResolvedLine as data; only InvalidInput is returned as an error.
type IssueKind string

const (
	IssueUnresolved        IssueKind = "UNRESOLVED"
	IssueInsufficientStock IssueKind = "INSUFFICIENT_STOCK"
	IssueCapacityExceeded  IssueKind = "CAPACITY_EXCEEDED"
	IssueBelowMinimum      IssueKind = "BELOW_MINIMUM"
	IssueSupplierMismatch  IssueKind = "SUPPLIER_MISMATCH"
	IssueLowConfidence     IssueKind = "LOW_CONFIDENCE_STORE"
)

// Issue describes something the engine could not satisfy. Quantity carries the unmet or
// clamped amount for stock and capacity issues.
type Issue struct {
	Kind     IssueKind `json:"kind"`
	Field    string    `json:"field,omitempty"`
	Quantity int64     `json:"quantity,omitempty"`
	Message  string    `json:"message"`
}

// Blocking reports whether the issue prevents the line from being submitted as is.
func (i Issue) Blocking() bool {
	switch i.Kind {
	case IssueUnresolved, IssueInsufficientStock, IssueCapacityExceeded:
		return true
	}
	return false
}

var (
	// ErrInvalidInput is matched by every *InvalidInputError.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnsubmittable is returned when resolved lines cannot be turned into a backend payload.
	ErrUnsubmittable = errors.New("transaction cannot be submitted")
)

// FieldError is one failed constraint on a RawLine field.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// InvalidInputError reports a structurally malformed RawLine.
type InvalidInputError struct {
	Fields []FieldError
	Reason string
}

func (e *InvalidInputError) Error() string {
	if len(e.Fields) == 0 {
		return "invalid line: " + e.Reason
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s failed %q", f.Field, f.Rule))
	}
	return "invalid line: " + strings.Join(parts, ", ")
}

func (e *InvalidInputError) Is(target error) bool { return target == ErrInvalidInput }

// LineError ties an InvalidInput failure to the position of the line in its batch.
type LineError struct {
	Index int   `json:"index"`
	Err   error `json:"-"`
}

func (e LineError) Error() string { return fmt.Sprintf("line %d: %v", e.Index, e.Err) }

func (e LineError) Unwrap() error { return e.Err }
