package table

import (
	"errors"
	"fmt"
)

var (
	// ErrColumnNotFound is returned when a named column is absent from the table.
	ErrColumnNotFound = errors.New("column not found")

	// ErrInvalidDate is returned when a date column cell matches no known layout.
	ErrInvalidDate = errors.New("invalid date")

	// ErrNoHeader is returned for input without a header row.
	ErrNoHeader = errors.New("no header row")

	// ErrTooManyFields is returned for a row with more fields than the header.
	ErrTooManyFields = errors.New("too many fields")
)

// ParseError reports where CSV input failed to parse.
// Line is 1-indexed; Column and Value are empty for structural errors.
type ParseError struct {
	Line   int
	Column string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	switch {
	case e.Column != "" && e.Value != "":
		return fmt.Sprintf("line %d: column %q: %v: %q", e.Line, e.Column, e.Err, e.Value)
	case e.Column != "":
		return fmt.Sprintf("line %d: column %q: %v", e.Line, e.Column, e.Err)
	default:
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
