package csv

import (
	"bufio"
	"io"
	"strings"
	"unicode/utf8"
)

// Writer writes CSV records to an io.Writer.
//
// Output is buffered; call Flush when done. Fields are quoted when the
// QuotePolicy asks for it or when they would not read back unchanged
// otherwise. Everything a Writer produces is read back by a Reader with the
// same separator, quote and comment characters as the identical records.
//
// The first sink error is sticky: it is returned by every later call.
type Writer struct {
	w    *bufio.Writer
	opts WriterOptions
	err  error

	comma   string
	quote   string
	escaped string
	term    string
	special string
}

// NewWriter creates a Writer over w. Invalid options are reported by the
// first write.
func NewWriter(w io.Writer, opts WriterOptions) *Writer {
	cw := &Writer{
		w:       bufio.NewWriter(w),
		opts:    opts,
		comma:   string(opts.Comma),
		quote:   string(opts.Quote),
		escaped: string(opts.Quote) + string(opts.Quote),
		term:    opts.LineTerminator.String(),
		special: string(opts.Comma) + string(opts.Quote) + "\r\n",
	}
	if err := opts.Validate(); err != nil {
		cw.err = err
	}
	return cw
}

// Write writes one record. A record needs at least one field.
func (w *Writer) Write(fields []string) error {
	if w.err != nil {
		return w.err
	}
	if len(fields) == 0 {
		return ErrNoFields
	}

	for i, field := range fields {
		if i > 0 {
			w.writeString(w.comma)
		}
		if w.needsQuotes(i, field, len(fields)) {
			w.writeString(w.quote)
			w.writeString(strings.ReplaceAll(field, w.quote, w.escaped))
			w.writeString(w.quote)
		} else {
			w.writeString(field)
		}
	}
	w.writeString(w.term)
	return w.err
}

// WriteRecord writes a record. Comment records are written as comment lines
// when the Writer has a comment character.
func (w *Writer) WriteRecord(rec Record) error {
	if rec.IsComment() && w.opts.Comment != 0 && rec.Len() == 1 {
		return w.WriteComment(rec.fields[0])
	}
	return w.Write(rec.fields)
}

// WriteAll writes all records and flushes.
func (w *Writer) WriteAll(records [][]string) error {
	for _, fields := range records {
		if err := w.Write(fields); err != nil {
			return err
		}
	}
	return w.Flush()
}

// WriteComment writes text as comment lines. Each line break in text starts
// a new comment line.
func (w *Writer) WriteComment(text string) error {
	if w.err != nil {
		return w.err
	}
	if w.opts.Comment == 0 {
		return &OptionsError{Field: "Comment", Message: "no comment character configured"}
	}

	for {
		line, rest, more := cutLine(text)
		w.writeRune(w.opts.Comment)
		w.writeString(line)
		w.writeString(w.term)
		if !more {
			break
		}
		text = rest
	}
	return w.err
}

// Flush writes any buffered data to the underlying io.Writer.
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	if err := w.w.Flush(); err != nil {
		w.err = err
	}
	return w.err
}

// Error reports any error that occurred during a previous Write or Flush.
func (w *Writer) Error() error {
	return w.err
}

// needsQuotes decides whether field i of an n-field record is quoted.
func (w *Writer) needsQuotes(i int, field string, n int) bool {
	if w.opts.QuotePolicy == QuoteAlways {
		return true
	}
	if field == "" {
		// a lone empty field would read back as an empty line
		return n == 1 || w.opts.QuotePolicy == QuoteNeededOrEmpty
	}
	if i == 0 {
		// a leading byte order mark would be dropped by readers that detect one
		if strings.HasPrefix(field, "\uFEFF") {
			return true
		}
		if r, _ := utf8.DecodeRuneInString(field); w.opts.Comment != 0 && r == w.opts.Comment {
			return true
		}
	}
	return strings.ContainsAny(field, w.special)
}

func (w *Writer) writeString(s string) {
	if w.err != nil {
		return
	}
	if _, err := w.w.WriteString(s); err != nil {
		w.err = err
	}
}

func (w *Writer) writeRune(r rune) {
	if w.err != nil {
		return
	}
	if _, err := w.w.WriteRune(r); err != nil {
		w.err = err
	}
}

// cutLine splits text at the first CR, LF or CRLF.
func cutLine(text string) (line, rest string, found bool) {
	i := strings.IndexAny(text, "\r\n")
	if i < 0 {
		return text, "", false
	}
	n := 1
	if text[i] == '\r' && i+1 < len(text) && text[i+1] == '\n' {
		n = 2
	}
	return text[:i], text[i+n:], true
}
