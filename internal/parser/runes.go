package parser

import (
	"io"
	"unicode/utf8"
)

const (
	runeChunk = 8 * 1024

	// maxEmptyReads matches bufio's tolerance for readers that return 0, nil.
	maxEmptyReads = 100
)

// runeReader hands the shape-core stream whole, valid runes only. The stream
// decodes every Read on its own and drops bytes it cannot decode, so a rune
// split across two reads would otherwise be lost.
//
// At the first invalid sequence the reader stops short of it and reports
// io.EOF; invalid is then set and the parser turns it into ErrInvalidUTF8.
type runeReader struct {
	r       io.Reader
	buf     []byte
	head    int
	tail    int
	err     error
	invalid bool
}

func newRuneReader(r io.Reader) *runeReader {
	return &runeReader{r: r, buf: make([]byte, runeChunk)}
}

func (rr *runeReader) Read(p []byte) (int, error) {
	for empty := 0; ; {
		if n := rr.drain(p); n > 0 {
			return n, nil
		}
		if rr.invalid {
			return 0, io.EOF
		}
		if rr.err != nil {
			if rr.err == io.EOF && rr.tail > rr.head {
				// truncated sequence at end of input
				rr.invalid = true
				return 0, io.EOF
			}
			return 0, rr.err
		}
		if rr.fill() == 0 && rr.err == nil {
			if empty++; empty >= maxEmptyReads {
				rr.err = io.ErrNoProgress
			}
		}
	}
}

// drain copies the leading complete runes of the buffer into p. It stops at an
// incomplete trailing sequence, which stays buffered for the next fill.
func (rr *runeReader) drain(p []byte) int {
	data := rr.buf[rr.head:rr.tail]
	if len(data) > len(p) {
		data = data[:len(p)]
	}
	n := 0
	for n < len(data) {
		if data[n] < utf8.RuneSelf {
			n++
			continue
		}
		if !utf8.FullRune(data[n:]) {
			break
		}
		r, size := utf8.DecodeRune(data[n:])
		if r == utf8.RuneError && size == 1 {
			rr.invalid = true
			rr.tail = rr.head + n
			break
		}
		n += size
	}
	copy(p, data[:n])
	rr.head += n
	return n
}

// fill reads more input behind the buffered bytes, which are at most an
// incomplete rune when fill is called.
func (rr *runeReader) fill() int {
	if rr.head > 0 {
		rr.tail = copy(rr.buf, rr.buf[rr.head:rr.tail])
		rr.head = 0
	}
	n, err := rr.r.Read(rr.buf[rr.tail:])
	rr.tail += n
	if err != nil {
		rr.err = err
	}
	return n
}
