// Package parser implements the pull-based CSV record state machine.
//
// The parser consumes tokens from internal/tokenizer and assembles records one
// at a time. Callers drive it with Next; nothing is read ahead beyond the
// single token of lookahead the state machine needs.
package parser

import (
	"bufio"
	"bytes"
	"io"
	"strings"
	"unicode/utf8"

	shapetokenizer "github.com/shapestone/shape-core/pkg/tokenizer"
	"github.com/shapestone/shape-csv-index/internal/tokenizer"
)

// Options configures the parser behavior.
type Options struct {
	// Comma is the field separator. Default: ','
	Comma rune
	// Quote is the quote character. Default: '"'
	Quote rune
	// Comment starts a comment line when it is the first character of a record. 0 disables comments.
	Comment rune
	// SkipComments drops comment records instead of returning them.
	SkipComments bool
	// SkipEmptyLines drops records produced by bare line terminators.
	SkipEmptyLines bool
	// LazyQuotes treats stray quotes literally instead of failing.
	LazyQuotes bool
	// DetectBOM skips a UTF-8 byte order mark at offset 0.
	DetectBOM bool
	// MaxFieldSize is the maximum field size in bytes. 0 means no limit.
	MaxFieldSize int
	// MaxFieldCount is the maximum number of fields per record. 0 means no limit.
	MaxFieldCount int
	// MaxRecordSize is the maximum size of all fields of a record in bytes. 0 means no limit.
	MaxRecordSize int
	// StartOffset is the source byte offset of the first byte the parser reads.
	StartOffset int64
	// StartLine is the physical line number of the first byte the parser reads. 0 means 1.
	StartLine int
}

// DefaultOptions returns default parser options.
func DefaultOptions() Options {
	return Options{
		Comma: ',',
		Quote: '"',
	}
}

// Record is one parsed record.
type Record struct {
	Fields  []string
	Line    int
	Offset  int64
	Comment bool
}

type state int

const (
	stateFieldStart state = iota
	stateUnquoted
	stateQuoted
	stateQuoteInQuoted
	stateRecordEnd
	stateComment
	stateEndOfStream
)

const bom = "\uFEFF"

// Parser is a forward-only cursor over the records of one source.
type Parser struct {
	lexer   shapetokenizer.Tokenizer
	stream  shapetokenizer.Stream
	src     *source
	runes   *runeReader
	opts    Options
	current *shapetokenizer.Token

	buf        fieldBuffer
	fields     []string
	recordSize int
	startLine  int

	line   int
	column int
	offset int64

	// badUTF8 marks an in-memory document cut short at an invalid sequence.
	badUTF8 bool
	err     error
}

// NewParser creates a parser for an in-memory document with default options.
func NewParser(input string) *Parser {
	return NewParserWithOptions(input, DefaultOptions())
}

// NewParserWithOptions creates a parser for an in-memory document.
func NewParserWithOptions(input string, opts Options) *Parser {
	if opts.DetectBOM && opts.StartOffset == 0 && strings.HasPrefix(input, bom) {
		input = input[len(bom):]
		opts.StartOffset = int64(len(bom))
	}
	valid := validPrefix(input)
	p := newParser(shapetokenizer.NewStream(input[:valid]), nil, nil, opts)
	p.badUTF8 = valid < len(input)
	return p
}

// validPrefix returns the length of the longest valid UTF-8 prefix of s.
func validPrefix(s string) int {
	if utf8.ValidString(s) {
		return len(s)
	}
	for i := 0; i < len(s); {
		if s[i] < utf8.RuneSelf {
			i++
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			return i
		}
		i += size
	}
	return len(s)
}

// NewParserFromReader creates a parser that pulls from r. Read errors other
// than io.EOF are returned unchanged by Next.
func NewParserFromReader(r io.Reader, opts Options) *Parser {
	src := &source{r: r}
	var in io.Reader = src
	if opts.DetectBOM && opts.StartOffset == 0 {
		br := bufio.NewReader(src)
		if head, _ := br.Peek(len(bom)); bytes.Equal(head, []byte(bom)) {
			_, _ = br.Discard(len(bom))
			opts.StartOffset = int64(len(bom))
		}
		in = br
	}
	runes := newRuneReader(in)
	return newParser(shapetokenizer.NewStreamFromReader(runes), src, runes, opts)
}

func newParser(stream shapetokenizer.Stream, src *source, runes *runeReader, opts Options) *Parser {
	if opts.StartLine <= 0 {
		opts.StartLine = 1
	}
	lexer := tokenizer.NewTokenizerWithStreamAndOptions(stream, tokenizer.Options{
		Separator: opts.Comma,
		Quote:     opts.Quote,
	})
	p := &Parser{
		lexer:  lexer,
		stream: stream,
		src:    src,
		runes:  runes,
		opts:   opts,
		buf:    newFieldBuffer(opts.MaxFieldSize),
		fields: make([]string, 0, 8),
		line:   opts.StartLine,
		column: 1,
		offset: opts.StartOffset,
	}
	p.load()
	return p
}

// Next returns the next record. At the end of the stream it returns io.EOF.
// Errors are sticky: once Next fails, every later call returns the same error.
func (p *Parser) Next() (Record, error) {
	if p.err != nil {
		return Record{}, p.err
	}
	for {
		rec, blank, err := p.readRecord()
		if err != nil {
			p.fail(err)
			return Record{}, err
		}
		if rec.Comment && p.opts.SkipComments {
			continue
		}
		if blank && p.opts.SkipEmptyLines {
			continue
		}
		return rec, nil
	}
}

// Position returns the byte offset and line number where the next record starts.
func (p *Parser) Position() (offset int64, line int) {
	return p.offset, p.line
}

func (p *Parser) fail(err error) {
	p.err = err
	p.fields = nil
	p.buf.release()
}

// readRecord runs the state machine over one record. blank reports a record
// made of a bare line terminator.
func (p *Parser) readRecord() (rec Record, blank bool, err error) {
	p.startLine = p.line
	if p.current == nil {
		if err := p.endOfInput(); err != nil {
			return Record{}, false, err
		}
		return Record{}, false, io.EOF
	}

	p.fields = p.fields[:0]
	p.recordSize = 0
	rec = Record{Line: p.line, Offset: p.offset}
	consumed := false
	st := stateFieldStart

	for {
		tok := p.current
		if tok == nil && st != stateRecordEnd && st != stateEndOfStream {
			if err := p.endOfInput(); err != nil {
				return Record{}, false, err
			}
		}

		switch st {
		case stateFieldStart:
			if tok == nil {
				if err := p.endField(); err != nil {
					return Record{}, false, err
				}
				st = stateEndOfStream
				continue
			}
			switch tok.Kind() {
			case tokenizer.TokenQuote:
				consumed = true
				p.advance()
				st = stateQuoted
			case tokenizer.TokenSeparator:
				consumed = true
				if err := p.endField(); err != nil {
					return Record{}, false, err
				}
				p.advance()
			case tokenizer.TokenNewline:
				if err := p.endField(); err != nil {
					return Record{}, false, err
				}
				p.advance()
				st = stateRecordEnd
			default:
				if p.isCommentStart(tok, consumed) {
					rec.Comment = true
					consumed = true
					if err := p.appendContent(tok.ValueString()[utf8.RuneLen(p.opts.Comment):]); err != nil {
						return Record{}, false, err
					}
					p.advance()
					st = stateComment
					continue
				}
				consumed = true
				st = stateUnquoted
			}

		case stateUnquoted:
			if tok == nil {
				if err := p.endField(); err != nil {
					return Record{}, false, err
				}
				st = stateEndOfStream
				continue
			}
			switch tok.Kind() {
			case tokenizer.TokenSeparator:
				if err := p.endField(); err != nil {
					return Record{}, false, err
				}
				p.advance()
				st = stateFieldStart
			case tokenizer.TokenNewline:
				if err := p.endField(); err != nil {
					return Record{}, false, err
				}
				p.advance()
				st = stateRecordEnd
			case tokenizer.TokenQuote:
				if !p.opts.LazyQuotes {
					return Record{}, false, p.errorf(ErrBareQuote)
				}
				fallthrough
			default:
				if err := p.appendContent(tok.ValueString()); err != nil {
					return Record{}, false, err
				}
				p.advance()
			}

		case stateQuoted:
			if tok == nil {
				if !p.opts.LazyQuotes {
					return Record{}, false, p.errorf(ErrUnterminatedQuote)
				}
				if err := p.endField(); err != nil {
					return Record{}, false, err
				}
				st = stateEndOfStream
				continue
			}
			if tok.Kind() == tokenizer.TokenQuote {
				p.advance()
				st = stateQuoteInQuoted
				continue
			}
			// Separators and line terminators are content here; advance counts the lines.
			if err := p.appendContent(tok.ValueString()); err != nil {
				return Record{}, false, err
			}
			p.advance()

		case stateQuoteInQuoted:
			if tok == nil {
				if err := p.endField(); err != nil {
					return Record{}, false, err
				}
				st = stateEndOfStream
				continue
			}
			switch tok.Kind() {
			case tokenizer.TokenQuote:
				if err := p.appendContent(tok.ValueString()); err != nil {
					return Record{}, false, err
				}
				p.advance()
				st = stateQuoted
			case tokenizer.TokenSeparator:
				if err := p.endField(); err != nil {
					return Record{}, false, err
				}
				p.advance()
				st = stateFieldStart
			case tokenizer.TokenNewline:
				if err := p.endField(); err != nil {
					return Record{}, false, err
				}
				p.advance()
				st = stateRecordEnd
			default:
				if !p.opts.LazyQuotes {
					return Record{}, false, p.errorf(ErrExtraneousQuote)
				}
				if err := p.appendContent(tok.ValueString()); err != nil {
					return Record{}, false, err
				}
				p.advance()
				st = stateUnquoted
			}

		case stateComment:
			if tok == nil {
				if err := p.endField(); err != nil {
					return Record{}, false, err
				}
				st = stateEndOfStream
				continue
			}
			if tok.Kind() == tokenizer.TokenNewline {
				if err := p.endField(); err != nil {
					return Record{}, false, err
				}
				p.advance()
				st = stateRecordEnd
				continue
			}
			if err := p.appendContent(tok.ValueString()); err != nil {
				return Record{}, false, err
			}
			p.advance()

		case stateRecordEnd, stateEndOfStream:
			rec.Fields = make([]string, len(p.fields))
			copy(rec.Fields, p.fields)
			return rec, !consumed, nil
		}
	}
}

// isCommentStart reports whether tok opens a comment line: the comment
// character must be the very first character of the record.
func (p *Parser) isCommentStart(tok *shapetokenizer.Token, consumed bool) bool {
	if p.opts.Comment == 0 || consumed || len(p.fields) > 0 {
		return false
	}
	r, _ := utf8.DecodeRuneInString(tok.ValueString())
	return r == p.opts.Comment
}

// appendContent adds s to the current field, enforcing size limits.
func (p *Parser) appendContent(s string) error {
	if max := p.opts.MaxRecordSize; max > 0 && p.recordSize+p.buf.len()+len(s) > max {
		return p.errorf(ErrRecordTooLarge)
	}
	if !p.buf.appendString(s) {
		return p.errorf(ErrFieldTooLarge)
	}
	return nil
}

// endField moves the buffered field into the record.
func (p *Parser) endField() error {
	if max := p.opts.MaxFieldCount; max > 0 && len(p.fields) >= max {
		return p.errorf(ErrTooManyFields)
	}
	p.recordSize += p.buf.len()
	p.fields = append(p.fields, p.buf.take())
	return nil
}

// load fetches the next token into the lookahead slot.
func (p *Parser) load() {
	token, ok := p.lexer.NextToken()
	if ok {
		p.current = token
	} else {
		p.current = nil
	}
}

// advance consumes the lookahead token, updating the position counters.
func (p *Parser) advance() {
	if p.current != nil {
		value := p.current.ValueString()
		p.offset += int64(len(value))
		if p.current.Kind() == tokenizer.TokenNewline {
			p.line++
			p.column = 1
		} else {
			p.column += utf8.RuneCountInString(value)
		}
	}
	p.load()
}

// endOfInput explains why the lexer stopped. It returns nil for a clean end of stream.
func (p *Parser) endOfInput() error {
	if p.src != nil && p.src.err != nil {
		return p.src.err
	}
	if p.badUTF8 || (p.runes != nil && p.runes.invalid) {
		return p.errorf(ErrInvalidUTF8)
	}
	if !p.stream.IsEos() {
		return p.errorf(ErrUnexpectedInput)
	}
	return nil
}

func (p *Parser) errorf(err error) error {
	return &ParseError{
		StartLine: p.startLine,
		Line:      p.line,
		Column:    p.column,
		Offset:    p.offset,
		Err:       err,
	}
}

// source records the first read error so it survives the shape-core stream,
// which only reports end of stream.
type source struct {
	r   io.Reader
	err error
}

func (s *source) Read(b []byte) (int, error) {
	n, err := s.r.Read(b)
	if err != nil && err != io.EOF && s.err == nil {
		s.err = err
	}
	return n, err
}
