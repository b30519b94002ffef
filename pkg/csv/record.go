package csv

import (
	"encoding/binary"
	"fmt"
	"slices"

	"github.com/cespare/xxhash/v2"
)

// Record is an immutable snapshot of one parsed record.
//
// Field order matches the left-to-right order in the source row. A bare line
// terminator reads as a record with exactly one empty field, so a record never
// has zero fields unless it was built by hand with NewRecord.
type Record struct {
	fields  []string
	line    int
	offset  int64
	comment bool
}

// NewRecord creates a record from field values, e.g. for Writer.WriteRecord.
// The fields are copied.
func NewRecord(fields ...string) Record {
	return Record{fields: slices.Clone(fields)}
}

// Len returns the number of fields.
func (r Record) Len() int {
	return len(r.fields)
}

// Field returns the field at index i.
// It fails with ErrFieldIndex when i is outside [0, Len()).
func (r Record) Field(i int) (string, error) {
	if i < 0 || i >= len(r.fields) {
		return "", fmt.Errorf("%w: %d of %d", ErrFieldIndex, i, len(r.fields))
	}
	return r.fields[i], nil
}

// Fields returns a copy of all field values.
func (r Record) Fields() []string {
	return slices.Clone(r.fields)
}

// Line returns the 1-based physical line the record starts on.
func (r Record) Line() int {
	return r.line
}

// Offset returns the byte offset of the record's first character in the source.
func (r Record) Offset() int64 {
	return r.offset
}

// IsComment reports whether the record is a comment line.
func (r Record) IsComment() bool {
	return r.comment
}

// Equal reports whether both records have the same field sequence.
// Position and comment metadata are not compared.
func (r Record) Equal(other Record) bool {
	return slices.Equal(r.fields, other.fields)
}

// Hash returns a hash of the field sequence, consistent with Equal.
func (r Record) Hash() uint64 {
	d := xxhash.New()
	var n [8]byte
	for _, f := range r.fields {
		// length prefix keeps ["ab"] and ["a", "b"] apart
		binary.LittleEndian.PutUint64(n[:], uint64(len(f)))
		_, _ = d.Write(n[:])
		_, _ = d.WriteString(f)
	}
	return d.Sum64()
}

// String returns a debug representation of the record.
func (r Record) String() string {
	kind := "record"
	if r.comment {
		kind = "comment"
	}
	return fmt.Sprintf("%s(line %d, offset %d)%q", kind, r.line, r.offset, r.fields)
}
