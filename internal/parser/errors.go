package parser

import (
	"errors"
	"fmt"
)

// ParseError represents a parsing error with position information.
type ParseError struct {
	// StartLine is the line where the failing record started (1-indexed).
	StartLine int
	// Line is the line where the error occurred (1-indexed).
	Line int
	// Column is the column, in characters, where the error occurred (1-indexed).
	Column int
	// Offset is the byte offset of the offending character in the source.
	Offset int64
	// Err is the underlying error.
	Err error
}

// Error returns a formatted error message with position information.
func (e *ParseError) Error() string {
	if e.StartLine == e.Line {
		return fmt.Sprintf("parse error on line %d, column %d (offset %d): %v",
			e.Line, e.Column, e.Offset, e.Err)
	}
	return fmt.Sprintf("parse error on line %d (record started line %d), column %d (offset %d): %v",
		e.Line, e.StartLine, e.Column, e.Offset, e.Err)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

var (
	// ErrBareQuote is a quote character inside an unquoted field.
	ErrBareQuote = errors.New("bare quote in non-quoted field")

	// ErrExtraneousQuote is content following a closing quote before the next
	// separator or line terminator.
	ErrExtraneousQuote = errors.New("extraneous character after closing quote")

	// ErrUnterminatedQuote is a quoted field still open at end of stream.
	ErrUnterminatedQuote = errors.New("unterminated quoted field")

	// ErrFieldTooLarge indicates a field exceeded MaxFieldSize.
	ErrFieldTooLarge = errors.New("field exceeds maximum size")

	// ErrTooManyFields indicates a record exceeded MaxFieldCount.
	ErrTooManyFields = errors.New("record exceeds maximum field count")

	// ErrRecordTooLarge indicates a record exceeded MaxRecordSize.
	ErrRecordTooLarge = errors.New("record exceeds maximum size")

	// ErrInvalidUTF8 is a byte sequence that is not valid UTF-8. Offset points
	// at its first byte.
	ErrInvalidUTF8 = errors.New("invalid UTF-8 encoding")

	// ErrUnexpectedInput means the lexer stopped before the end of the stream.
	ErrUnexpectedInput = errors.New("input could not be tokenized")
)
