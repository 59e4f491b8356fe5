package models

import (
	"errors"
	"fmt"
)

// Boundary errors. Anything wrapping ErrMalformedInput is a rejected request,
// never a data-quality condition.
var (
	ErrMalformedInput  = errors.New("malformed input")
	ErrDuplicateDate   = fmt.Errorf("%w: duplicate date", ErrMalformedInput)
	ErrOutOfOrder      = fmt.Errorf("%w: records out of date order", ErrMalformedInput)
	ErrInvalidDate     = fmt.Errorf("%w: invalid date", ErrMalformedInput)
	ErrUserMismatch    = fmt.Errorf("%w: record belongs to another user", ErrMalformedInput)
	ErrMissingUser     = fmt.Errorf("%w: user_id is required", ErrMalformedInput)
	ErrInvalidFraction = fmt.Errorf("%w: fraction must be in (0, 1]", ErrMalformedInput)
	ErrInvalidMode     = fmt.Errorf("%w: unknown simulation mode", ErrMalformedInput)
	ErrUnknownMetric   = fmt.Errorf("%w: unknown metric", ErrMalformedInput)
	ErrInvalidRange    = fmt.Errorf("%w: from is after to", ErrMalformedInput)
)

// InputError locates a boundary failure.
type InputError struct {
	Field  string
	Index  int
	Detail string
	Err    error
}

func (e *InputError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (%s): %v", e.Field, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }
