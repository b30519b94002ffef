// Package csvindex builds and uses record-offset indexes over CSV sources.
//
// An Index records where every record of a source starts (byte offset and
// physical line). It is built in a single pass by a byte-level scanner that
// agrees with csv.Reader on record boundaries, and it can be persisted,
// reloaded and validated against the reader configuration it is used with.
//
// With an index, a Reader jumps straight to record i, reads a page of
// records, or splits the source into byte ranges that start on record
// boundaries and parses them concurrently:
//
//	idx, err := csvindex.BuildFile(ctx, "data.csv", opts)
//	if err != nil {
//	    // handle error
//	}
//	r, err := csvindex.OpenFile("data.csv", idx, opts)
//	if err != nil {
//	    // handle error
//	}
//	defer r.Close()
//
//	rec, err := r.Record(1_000_000)
//
// An Index is immutable once built and safe to share between goroutines.
package csvindex

import (
	"cmp"
	"errors"
	"fmt"

	"golang.org/x/exp/slices"

	"github.com/shapestone/shape-csv-index/internal/scanner"
	"github.com/shapestone/shape-csv-index/pkg/csv"
)

// Encoding is the only source encoding indexes are built for.
const Encoding = "UTF-8"

var (
	// ErrRecordIndex is returned for a record index outside the index.
	ErrRecordIndex = errors.New("csvindex: record index out of range")

	// ErrCorruptIndex is returned when a persisted index cannot be decoded.
	ErrCorruptIndex = errors.New("csvindex: corrupt index")

	// ErrMultibyteControl is returned by Build for a separator, quote or
	// comment character outside ASCII.
	ErrMultibyteControl = scanner.ErrMultibyteControl
)

// Signature is the part of the reader configuration that decides where
// records start. An index is only valid for readers with the same signature.
type Signature struct {
	Comma          rune
	Quote          rune
	Comment        rune
	SkipComments   bool
	SkipEmptyLines bool
	LazyQuotes     bool
	DetectBOM      bool
	Encoding       string
	// BOMLength is the length of the byte order mark found at the start of
	// the source, 0 if none was skipped.
	BOMLength int
}

func signatureOf(opts csv.ReaderOptions) Signature {
	return Signature{
		Comma:          opts.Comma,
		Quote:          opts.Quote,
		Comment:        opts.Comment,
		SkipComments:   opts.SkipComments,
		SkipEmptyLines: opts.SkipEmptyLines,
		LazyQuotes:     opts.LazyQuotes,
		DetectBOM:      opts.DetectBOM,
		Encoding:       Encoding,
	}
}

// Entry is the start of one record.
type Entry struct {
	Offset int64
	Line   int
}

// Index maps record numbers to record starts.
type Index struct {
	sig         Signature
	size        int64
	fingerprint uint64
	entries     []Entry
}

// Len returns the number of indexed records.
func (idx *Index) Len() int {
	return len(idx.entries)
}

// Entry returns the start of record i.
func (idx *Index) Entry(i int) (Entry, error) {
	if i < 0 || i >= len(idx.entries) {
		return Entry{}, fmt.Errorf("%w: %d of %d", ErrRecordIndex, i, len(idx.entries))
	}
	return idx.entries[i], nil
}

// Entries returns a copy of all entries in source order.
func (idx *Index) Entries() []Entry {
	return slices.Clone(idx.entries)
}

// Size returns the number of bytes in the indexed source.
func (idx *Index) Size() int64 {
	return idx.size
}

// Signature returns the configuration the index was built with.
func (idx *Index) Signature() Signature {
	return idx.sig
}

// Fingerprint returns the xxhash64 of the indexed source bytes.
func (idx *Index) Fingerprint() uint64 {
	return idx.fingerprint
}

// RecordLength returns the number of bytes from the start of record i to
// the start of the next record, or to the end of the source for the last
// one. Skipped comment and empty lines count towards the preceding record.
func (idx *Index) RecordLength(i int) (int64, error) {
	e, err := idx.Entry(i)
	if err != nil {
		return 0, err
	}
	return idx.end(i) - e.Offset, nil
}

// end returns the offset where the span of record i ends.
func (idx *Index) end(i int) int64 {
	if i+1 < len(idx.entries) {
		return idx.entries[i+1].Offset
	}
	return idx.size
}

// Find returns the number of the record whose span contains offset, or -1
// when offset lies before the first record or outside the source.
func (idx *Index) Find(offset int64) int {
	if offset < 0 || offset >= idx.size {
		return -1
	}
	i, found := slices.BinarySearchFunc(idx.entries, offset, compareOffset)
	if found {
		return i
	}
	return i - 1
}

// firstAtOrAfter returns the first entry with an offset of at least offset.
func (idx *Index) firstAtOrAfter(offset int64) int {
	i, _ := slices.BinarySearchFunc(idx.entries, offset, compareOffset)
	return i
}

func compareOffset(e Entry, offset int64) int {
	return cmp.Compare(e.Offset, offset)
}

// MismatchError reports an index that does not fit the configuration or
// source it is used with.
type MismatchError struct {
	Field string
	Want  string
	Got   string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("csvindex: %s mismatch: index has %s, got %s", e.Field, e.Want, e.Got)
}

// Validate checks that the index was built with the record-boundary
// settings of opts.
func (idx *Index) Validate(opts csv.ReaderOptions) error {
	got := signatureOf(opts)
	want := idx.sig

	runes := []struct {
		field     string
		want, got rune
	}{
		{"Comma", want.Comma, got.Comma},
		{"Quote", want.Quote, got.Quote},
		{"Comment", want.Comment, got.Comment},
	}
	for _, r := range runes {
		if r.want != r.got {
			return &MismatchError{Field: r.field, Want: fmt.Sprintf("%q", r.want), Got: fmt.Sprintf("%q", r.got)}
		}
	}

	flags := []struct {
		field     string
		want, got bool
	}{
		{"SkipComments", want.SkipComments, got.SkipComments},
		{"SkipEmptyLines", want.SkipEmptyLines, got.SkipEmptyLines},
		{"LazyQuotes", want.LazyQuotes, got.LazyQuotes},
		{"DetectBOM", want.DetectBOM, got.DetectBOM},
	}
	for _, f := range flags {
		if f.want != f.got {
			return &MismatchError{Field: f.field, Want: fmt.Sprint(f.want), Got: fmt.Sprint(f.got)}
		}
	}

	if want.Encoding != Encoding {
		return &MismatchError{Field: "Encoding", Want: want.Encoding, Got: Encoding}
	}
	return nil
}

// ValidateSource checks that a source of size bytes can be the indexed one.
func (idx *Index) ValidateSource(size int64) error {
	if size != idx.size {
		return &MismatchError{Field: "Size", Want: fmt.Sprint(idx.size), Got: fmt.Sprint(size)}
	}
	return nil
}
