package csv

import (
	"fmt"
	"unicode/utf8"

	"github.com/shapestone/shape-csv-index/internal/parser"
)

// Default limits applied by DefaultReaderOptions.
const (
	DefaultMaxFieldSize  = 16 * 1024 * 1024
	DefaultMaxFieldCount = 16 * 1024
	DefaultMaxRecordSize = 4 * DefaultMaxFieldSize
)

// ReaderOptions configures CSV parsing behavior.
type ReaderOptions struct {
	// Comma is the field delimiter.
	// It must be a valid rune and not \r, \n, or the Unicode replacement character.
	// Default: ','
	Comma rune

	// Quote is the quote character. Doubling it inside a quoted field yields
	// one literal quote.
	// Default: '"'
	Quote rune

	// Comment, if not 0, is the comment character. A record whose first
	// character is Comment is a comment line: the rest of the physical line,
	// without the comment character, becomes its single field.
	// Default: 0 (disabled)
	Comment rune

	// SkipComments drops comment lines instead of returning them.
	// Default: false
	SkipComments bool

	// SkipEmptyLines drops bare line terminators instead of returning a
	// record with one empty field.
	// Default: false
	SkipEmptyLines bool

	// LazyQuotes controls whether a quote may appear in an unquoted field
	// and a non-doubled quote may appear in a quoted field.
	// Default: false
	LazyQuotes bool

	// DetectBOM skips a UTF-8 byte order mark at the start of the stream.
	// Default: false
	DetectBOM bool

	// MaxFieldSize is the maximum size of a field in bytes. 0 means no limit.
	// Default: 16 MiB
	MaxFieldSize int

	// MaxFieldCount is the maximum number of fields per record. 0 means no limit.
	// Default: 16384
	MaxFieldCount int

	// MaxRecordSize is the maximum size of all fields of a record in bytes.
	// 0 means no limit.
	// Default: 64 MiB
	MaxRecordSize int
}

// DefaultReaderOptions returns the default reader configuration.
func DefaultReaderOptions() ReaderOptions {
	return ReaderOptions{
		Comma:         ',',
		Quote:         '"',
		MaxFieldSize:  DefaultMaxFieldSize,
		MaxFieldCount: DefaultMaxFieldCount,
		MaxRecordSize: DefaultMaxRecordSize,
	}
}

// parserOptions translates the public options for internal/parser.
func (o ReaderOptions) parserOptions() parser.Options {
	return parser.Options{
		Comma:          o.Comma,
		Quote:          o.Quote,
		Comment:        o.Comment,
		SkipComments:   o.SkipComments,
		SkipEmptyLines: o.SkipEmptyLines,
		LazyQuotes:     o.LazyQuotes,
		DetectBOM:      o.DetectBOM,
		MaxFieldSize:   o.MaxFieldSize,
		MaxFieldCount:  o.MaxFieldCount,
		MaxRecordSize:  o.MaxRecordSize,
	}
}

// QuotePolicy decides which fields the Writer encloses in quotes.
type QuotePolicy int

const (
	// QuoteNeeded quotes only fields that would not read back otherwise.
	QuoteNeeded QuotePolicy = iota
	// QuoteAlways quotes every field.
	QuoteAlways
	// QuoteNeededOrEmpty also quotes empty fields.
	QuoteNeededOrEmpty
)

// String returns the string representation of QuotePolicy.
func (p QuotePolicy) String() string {
	switch p {
	case QuoteNeeded:
		return "needed"
	case QuoteAlways:
		return "always"
	case QuoteNeededOrEmpty:
		return "needed-or-empty"
	default:
		return fmt.Sprintf("QuotePolicy(%d)", int(p))
	}
}

// LineTerminator selects the record terminator the Writer emits.
type LineTerminator int

const (
	// LF terminates records with \n.
	LF LineTerminator = iota
	// CRLF terminates records with \r\n.
	CRLF
	// CR terminates records with \r.
	CR
)

// String returns the terminator sequence.
func (t LineTerminator) String() string {
	switch t {
	case CRLF:
		return "\r\n"
	case CR:
		return "\r"
	default:
		return "\n"
	}
}

// WriterOptions configures CSV writing behavior.
type WriterOptions struct {
	// Comma is the field delimiter.
	// Default: ','
	Comma rune

	// Quote is the quote character.
	// Default: '"'
	Quote rune

	// Comment, if not 0, is the comment character used by WriteComment.
	// A first field starting with it is quoted so it does not read back as a comment.
	// Default: 0 (disabled)
	Comment rune

	// QuotePolicy selects which fields are quoted.
	// Default: QuoteNeeded
	QuotePolicy QuotePolicy

	// LineTerminator is the record terminator.
	// Default: LF
	LineTerminator LineTerminator
}

// DefaultWriterOptions returns the default writer configuration.
func DefaultWriterOptions() WriterOptions {
	return WriterOptions{
		Comma: ',',
		Quote: '"',
	}
}

// validControl reports whether r can serve as a separator, quote or comment character.
func validControl(r rune) bool {
	return r != 0 && r != '\r' && r != '\n' && utf8.ValidRune(r) && r != utf8.RuneError
}

// validateControls checks the three control characters. comment 0 is allowed.
func validateControls(comma, quote, comment rune) error {
	if !validControl(comma) {
		return &OptionsError{Field: "Comma", Message: "invalid delimiter"}
	}
	if !validControl(quote) {
		return &OptionsError{Field: "Quote", Message: "invalid quote character"}
	}
	if comma == quote {
		return &OptionsError{Field: "Quote", Message: "quote character same as delimiter"}
	}
	if comment == 0 {
		return nil
	}
	if !validControl(comment) {
		return &OptionsError{Field: "Comment", Message: "invalid comment character"}
	}
	if comment == comma {
		return &OptionsError{Field: "Comment", Message: "comment character same as delimiter"}
	}
	if comment == quote {
		return &OptionsError{Field: "Comment", Message: "comment character same as quote character"}
	}
	return nil
}

// Validate checks if the reader options are valid.
func (o ReaderOptions) Validate() error {
	if err := validateControls(o.Comma, o.Quote, o.Comment); err != nil {
		return err
	}
	if o.MaxFieldSize < 0 {
		return &OptionsError{Field: "MaxFieldSize", Message: "must not be negative"}
	}
	if o.MaxFieldCount < 0 {
		return &OptionsError{Field: "MaxFieldCount", Message: "must not be negative"}
	}
	if o.MaxRecordSize < 0 {
		return &OptionsError{Field: "MaxRecordSize", Message: "must not be negative"}
	}
	return nil
}

// Validate checks if the writer options are valid.
func (o WriterOptions) Validate() error {
	if err := validateControls(o.Comma, o.Quote, o.Comment); err != nil {
		return err
	}
	if o.QuotePolicy < QuoteNeeded || o.QuotePolicy > QuoteNeededOrEmpty {
		return &OptionsError{Field: "QuotePolicy", Message: "unknown policy " + o.QuotePolicy.String()}
	}
	if o.LineTerminator < LF || o.LineTerminator > CR {
		return &OptionsError{Field: "LineTerminator", Message: fmt.Sprintf("unknown terminator %d", int(o.LineTerminator))}
	}
	return nil
}

// OptionsError represents an invalid option configuration.
type OptionsError struct {
	Field   string
	Message string
}

func (e *OptionsError) Error() string {
	return "csv: invalid " + e.Field + ": " + e.Message
}
