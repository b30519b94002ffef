package csv

import (
	"errors"

	"github.com/shapestone/shape-csv-index/internal/parser"
)

// ParseError represents a parsing error with position information.
// It provides detailed context about where the error occurred in the CSV data:
// the line the failing record started on, the line, column and byte offset of
// the offending character, and the underlying error.
type ParseError = parser.ParseError

// Parsing errors, wrapped by ParseError. Test for them with errors.Is.
var (
	// ErrBareQuote indicates a quote inside an unquoted field.
	ErrBareQuote = parser.ErrBareQuote

	// ErrExtraneousQuote indicates a character between a closing quote and
	// the next separator or line terminator.
	ErrExtraneousQuote = parser.ErrExtraneousQuote

	// ErrUnterminatedQuote indicates a quoted field still open at end of input.
	ErrUnterminatedQuote = parser.ErrUnterminatedQuote

	// ErrFieldTooLarge indicates a field exceeded MaxFieldSize.
	ErrFieldTooLarge = parser.ErrFieldTooLarge

	// ErrTooManyFields indicates a record exceeded MaxFieldCount.
	ErrTooManyFields = parser.ErrTooManyFields

	// ErrRecordTooLarge indicates a record exceeded MaxRecordSize.
	ErrRecordTooLarge = parser.ErrRecordTooLarge

	// ErrInvalidUTF8 indicates input that is not valid UTF-8.
	ErrInvalidUTF8 = parser.ErrInvalidUTF8
)

// API misuse errors.
var (
	// ErrFieldIndex indicates a field index outside [0, Len()).
	ErrFieldIndex = errors.New("csv: field index out of range")

	// ErrNoFields indicates an attempt to write a record without fields.
	ErrNoFields = errors.New("csv: record has no fields")
)
