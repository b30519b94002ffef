// Package scanner finds record boundaries in CSV bytes without building fields.
//
// It runs a table-driven automaton over raw bytes, reporting where each record
// starts. It agrees with internal/parser on every boundary, line number and
// error, which is what lets an offset index drive the parser later.
package scanner

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"unicode/utf8"

	"github.com/shapestone/shape-csv-index/internal/parser"
)

// ErrMultibyteControl is returned for a separator, quote or comment character
// outside ASCII, which the byte automaton cannot recognize.
var ErrMultibyteControl = errors.New("scanner: control characters must be ASCII")

// Kind classifies a record by its first character.
type Kind uint8

const (
	// KindData is an ordinary record.
	KindData Kind = iota
	// KindComment is a record that starts with the comment character.
	KindComment
	// KindEmpty is a bare line terminator.
	KindEmpty
)

func (k Kind) String() string {
	switch k {
	case KindData:
		return "data"
	case KindComment:
		return "comment"
	case KindEmpty:
		return "empty"
	}
	return "unknown"
}

// Start describes where a record begins.
type Start struct {
	Offset int64
	Line   int
	Kind   Kind
}

// Options configures a Scanner. The fields mirror parser.Options.
type Options struct {
	Comma         rune
	Quote         rune
	Comment       rune
	LazyQuotes    bool
	DetectBOM     bool
	MaxFieldSize  int
	MaxFieldCount int
	MaxRecordSize int
	StartOffset   int64
	StartLine     int
}

var bom = []byte{0xEF, 0xBB, 0xBF}

// Scanner is a push-style boundary finder. Feed it consecutive blocks of the
// source and call Finish at the end.
type Scanner struct {
	opts  Options
	table *table
	mask  swarMask

	state   dfaState
	offset  int64
	line    int
	column  int
	lastCR  bool
	started bool
	bomLen  int

	// carry holds an incomplete UTF-8 sequence split across blocks.
	carry []byte

	recordLine int
	fieldLen   int
	recordLen  int
	fieldCount int
	records    int

	err error
}

// New creates a Scanner.
func New(opts Options) (*Scanner, error) {
	for _, r := range []rune{opts.Comma, opts.Quote, opts.Comment} {
		if r < 0 || r >= utf8.RuneSelf {
			return nil, ErrMultibyteControl
		}
	}
	if opts.StartLine <= 0 {
		opts.StartLine = 1
	}
	return &Scanner{
		opts:   opts,
		table:  newTable(byte(opts.Comma), byte(opts.Quote), byte(opts.Comment), opts.LazyQuotes),
		mask:   newSWARMask(byte(opts.Comma), byte(opts.Quote)),
		offset: opts.StartOffset,
		line:   opts.StartLine,
		column: 1,
	}, nil
}

// Offset returns the number of source bytes consumed, including the start offset.
func (s *Scanner) Offset() int64 { return s.offset }

// Line returns the current physical line.
func (s *Scanner) Line() int { return s.line }

// Records returns the number of record starts reported so far.
func (s *Scanner) Records() int { return s.records }

// BOMLength returns the length of the skipped byte order mark, or 0.
func (s *Scanner) BOMLength() int { return s.bomLen }

// Scan reads r in pooled blocks until EOF, reporting every record start to
// emit. The context is checked between blocks.
func (s *Scanner) Scan(ctx context.Context, r io.Reader, emit func(Start) error) error {
	bp := getBlock()
	defer putBlock(bp)
	block := *bp

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := io.ReadFull(r, block)
		if n > 0 {
			if ferr := s.Feed(block[:n], emit); ferr != nil {
				return ferr
			}
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return s.Finish()
		}
		if err != nil {
			return err
		}
	}
}

// Feed scans the next block of the source. A byte order mark is only
// recognized when it lies entirely within the first non-empty block.
func (s *Scanner) Feed(data []byte, emit func(Start) error) error {
	if s.err != nil {
		return s.err
	}
	if !s.started && len(data) > 0 {
		s.started = true
		if s.opts.DetectBOM && s.offset == 0 && bytes.HasPrefix(data, bom) {
			data = data[len(bom):]
			s.offset = int64(len(bom))
			s.bomLen = len(bom)
		}
	}

	if len(s.carry) > 0 {
		for len(data) > 0 && !utf8.FullRune(s.carry) {
			s.carry = append(s.carry, data[0])
			data = data[1:]
		}
		if !utf8.FullRune(s.carry) {
			return nil
		}
		if r, size := utf8.DecodeRune(s.carry); r == utf8.RuneError && size == 1 {
			return s.fail(s.invalidUTF8())
		}
		if err := s.scan(s.carry, emit); err != nil {
			return err
		}
		s.carry = s.carry[:0]
	}

	valid := validPrefix(data)
	if err := s.scan(data[:valid], emit); err != nil {
		return err
	}
	if rest := data[valid:]; len(rest) > 0 {
		if utf8.FullRune(rest) {
			return s.fail(s.invalidUTF8())
		}
		s.carry = append(s.carry[:0], rest...)
	}
	return nil
}

// scan runs the automaton over valid UTF-8 bytes.
func (s *Scanner) scan(data []byte, emit func(Start) error) error {
	for i := 0; i < len(data); {
		st := s.state
		if st == stateUnquoted || st == stateQuoted || st == stateComment {
			if n := s.skip(data[i:]); n > 0 {
				i += n
				continue
			}
		}

		b := data[i]
		class := s.table.classes[b]
		if st == stateRecordStart {
			if b == '\n' && s.lastCR {
				// second half of a CRLF terminator
				s.lastCR = false
				s.offset++
				i++
				continue
			}
			if err := s.beginRecord(class, emit); err != nil {
				return s.fail(err)
			}
		}

		tr := s.table.transitions[st][class]
		switch tr.action {
		case actionContent:
			if err := s.content(1); err != nil {
				return s.fail(err)
			}
		case actionEndField:
			if err := s.endField(); err != nil {
				return s.fail(err)
			}
		case actionEndRecord:
			if err := s.endField(); err != nil {
				return s.fail(err)
			}
			s.fieldCount = 0
			s.recordLen = 0
		case actionBareQuote:
			return s.fail(s.errorf(parser.ErrBareQuote))
		case actionExtraneousQuote:
			return s.fail(s.errorf(parser.ErrExtraneousQuote))
		}

		s.state = tr.next
		s.advance(b)
		i++
	}
	return nil
}

// Finish closes the last record at end of stream.
func (s *Scanner) Finish() error {
	if s.err != nil {
		return s.err
	}
	if len(s.carry) > 0 {
		return s.fail(s.invalidUTF8())
	}
	switch s.state {
	case stateRecordStart:
		return nil
	case stateQuoted:
		if !s.opts.LazyQuotes {
			return s.fail(s.errorf(parser.ErrUnterminatedQuote))
		}
	}
	if err := s.endField(); err != nil {
		return s.fail(err)
	}
	s.state = stateRecordStart
	s.fieldCount = 0
	s.recordLen = 0
	return nil
}

func (s *Scanner) beginRecord(class charClass, emit func(Start) error) error {
	kind := KindData
	switch class {
	case classComment:
		kind = KindComment
	case classCR, classLF:
		kind = KindEmpty
	}
	s.recordLine = s.line
	s.records++
	return emit(Start{Offset: s.offset, Line: s.line, Kind: kind})
}

// skip consumes whole 8-byte words free of structural bytes.
func (s *Scanner) skip(data []byte) int {
	n, chars := 0, 0
	for n+8 <= len(data) && s.room(n+8) {
		word := binary.LittleEndian.Uint64(data[n:])
		if s.mask.match(word) {
			break
		}
		chars += runeStarts(word)
		n += 8
	}
	if n == 0 {
		return 0
	}
	s.fieldLen += n
	s.recordLen += n
	s.offset += int64(n)
	s.column += chars
	s.lastCR = false
	return n
}

// room reports whether n more content bytes fit the size limits.
func (s *Scanner) room(n int) bool {
	if max := s.opts.MaxFieldSize; max > 0 && s.fieldLen+n > max {
		return false
	}
	if max := s.opts.MaxRecordSize; max > 0 && s.recordLen+n > max {
		return false
	}
	return true
}

func (s *Scanner) content(n int) error {
	if max := s.opts.MaxRecordSize; max > 0 && s.recordLen+n > max {
		return s.errorf(parser.ErrRecordTooLarge)
	}
	if max := s.opts.MaxFieldSize; max > 0 && s.fieldLen+n > max {
		return s.errorf(parser.ErrFieldTooLarge)
	}
	s.fieldLen += n
	s.recordLen += n
	return nil
}

func (s *Scanner) endField() error {
	if max := s.opts.MaxFieldCount; max > 0 && s.fieldCount >= max {
		return s.errorf(parser.ErrTooManyFields)
	}
	s.fieldCount++
	s.fieldLen = 0
	return nil
}

// advance moves the position past b. CR, LF and CRLF each count as one line.
func (s *Scanner) advance(b byte) {
	s.offset++
	switch {
	case b == '\r':
		s.line++
		s.column = 1
		s.lastCR = true
	case b == '\n':
		if !s.lastCR {
			s.line++
		}
		s.column = 1
		s.lastCR = false
	default:
		if b&0xC0 != 0x80 {
			s.column++
		}
		s.lastCR = false
	}
}

func (s *Scanner) errorf(err error) error {
	return &parser.ParseError{
		StartLine: s.recordLine,
		Line:      s.line,
		Column:    s.column,
		Offset:    s.offset,
		Err:       err,
	}
}

// invalidUTF8 reports an invalid sequence at the current offset. Between
// records the failing record is the one that would start here.
func (s *Scanner) invalidUTF8() error {
	if s.state == stateRecordStart {
		s.recordLine = s.line
	}
	return s.errorf(parser.ErrInvalidUTF8)
}

// validPrefix returns the length of the longest valid UTF-8 prefix of data.
// A truncated sequence at the end counts as invalid here.
func validPrefix(data []byte) int {
	if utf8.Valid(data) {
		return len(data)
	}
	for i := 0; i < len(data); {
		if data[i] < utf8.RuneSelf {
			i++
			continue
		}
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size == 1 {
			return i
		}
		i += size
	}
	return len(data)
}

func (s *Scanner) fail(err error) error {
	s.err = err
	return err
}
