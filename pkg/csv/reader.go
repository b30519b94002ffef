package csv

import (
	"io"
	"iter"

	"github.com/shapestone/shape-csv-index/internal/parser"
)

// Reader reads records from a CSV source one at a time.
//
// A Reader keeps only the record being assembled in memory. It is not safe
// for concurrent use; read disjoint ranges with separate Readers instead.
//
// Example:
//
//	r := csv.NewReader(file, csv.DefaultReaderOptions())
//	for rec, err := range r.All() {
//	    if err != nil {
//	        // handle error
//	    }
//	    fmt.Println(rec.Line(), rec.Fields())
//	}
type Reader struct {
	p   *parser.Parser
	err error
}

// NewReader creates a Reader over r. Invalid options are reported by the
// first call to Next.
func NewReader(r io.Reader, opts ReaderOptions) *Reader {
	return NewReaderAt(r, opts, 0, 1)
}

// NewReaderAt creates a Reader over r whose first byte sits at byte offset
// and physical line of the original source. Records carry those absolute
// positions. offset must be a record start, such as an index entry.
// A byte order mark is only recognized when offset is 0.
func NewReaderAt(r io.Reader, opts ReaderOptions, offset int64, line int) *Reader {
	if err := opts.Validate(); err != nil {
		return &Reader{err: err}
	}
	po := opts.parserOptions()
	po.StartOffset = offset
	po.StartLine = line
	return &Reader{p: parser.NewParserFromReader(r, po)}
}

// newStringReader reads an in-memory document without an io.Reader adapter.
func newStringReader(input string, opts ReaderOptions) *Reader {
	if err := opts.Validate(); err != nil {
		return &Reader{err: err}
	}
	return &Reader{p: parser.NewParserWithOptions(input, opts.parserOptions())}
}

// Next returns the next record. It returns io.EOF when the input is
// exhausted. Errors are sticky: after a failure every call returns it again.
// Source read errors are returned unchanged.
func (r *Reader) Next() (Record, error) {
	if r.err != nil {
		return Record{}, r.err
	}
	rec, err := r.p.Next()
	if err != nil {
		r.err = err
		return Record{}, err
	}
	return Record{
		fields:  rec.Fields,
		line:    rec.Line,
		offset:  rec.Offset,
		comment: rec.Comment,
	}, nil
}

// All returns an iterator over the remaining records. A failure is yielded
// once with a zero Record, then iteration stops. Breaking out early is safe.
func (r *Reader) All() iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		for {
			rec, err := r.Next()
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(Record{}, err)
				return
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

// ReadAll reads all remaining records.
func (r *Reader) ReadAll() ([]Record, error) {
	var records []Record
	for rec, err := range r.All() {
		if err != nil {
			return records, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// Position returns the byte offset and line where the next record starts.
func (r *Reader) Position() (offset int64, line int) {
	if r.p == nil {
		return 0, 1
	}
	return r.p.Position()
}
