package csvindex

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/exp/mmap"
	"golang.org/x/sync/errgroup"

	"github.com/shapestone/shape-csv-index/pkg/csv"
)

// Reader reads records of an indexed source by number or by range.
//
// Every call opens its own section of the source and its own parser, so a
// Reader may be used from several goroutines at once as long as the
// underlying io.ReaderAt allows concurrent ReadAt calls.
type Reader struct {
	ra     io.ReaderAt
	idx    *Index
	opts   csv.ReaderOptions
	closer io.Closer
	c      *config
}

// Open returns a Reader over ra. It fails with *MismatchError when idx was
// built with different record-boundary settings than opts, or when ra
// reports a size (Size() int64 or Len() int) other than the indexed one.
func Open(ra io.ReaderAt, idx *Index, opts csv.ReaderOptions, options ...Option) (*Reader, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if err := idx.Validate(opts); err != nil {
		return nil, err
	}
	if size, ok := sourceSize(ra); ok {
		if err := idx.ValidateSource(size); err != nil {
			return nil, err
		}
	}
	return &Reader{ra: ra, idx: idx, opts: opts, c: newConfig(options)}, nil
}

// OpenFile memory-maps the file at path and opens a Reader over it.
// Close releases the mapping.
func OpenFile(path string, idx *Index, opts csv.ReaderOptions, options ...Option) (*Reader, error) {
	m, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csvindex: open %s: %w", path, err)
	}
	r, err := Open(m, idx, opts, options...)
	if err != nil {
		_ = m.Close()
		return nil, err
	}
	r.closer = m
	return r, nil
}

func sourceSize(ra io.ReaderAt) (int64, bool) {
	switch s := ra.(type) {
	case interface{ Size() int64 }:
		return s.Size(), true
	case interface{ Len() int }:
		return int64(s.Len()), true
	}
	return 0, false
}

// Close releases the memory mapping of a Reader from OpenFile. It is a
// no-op for Readers from Open.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	err := r.closer.Close()
	r.closer = nil
	return err
}

// Index returns the index the Reader uses.
func (r *Reader) Index() *Index {
	return r.idx
}

// Record reads record i.
func (r *Reader) Record(i int) (csv.Record, error) {
	records, err := r.Records(i, 1)
	if err != nil {
		return csv.Record{}, err
	}
	return records[0], nil
}

// Records reads up to n records starting at record i. Fewer come back when
// the source ends first.
func (r *Reader) Records(i, n int) ([]csv.Record, error) {
	start, err := r.idx.Entry(i)
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, nil
	}
	last := min(i+n, r.idx.Len()) - 1

	cr := r.reader(start, r.idx.end(last))
	records := make([]csv.Record, 0, last-i+1)
	for len(records) < cap(records) {
		rec, err := cr.Next()
		if err == io.EOF {
			return nil, r.stale("Records", i+len(records))
		}
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// RangeReader returns a csv.Reader over rng. Its records carry absolute
// offsets and lines.
func (r *Reader) RangeReader(rng Range) *csv.Reader {
	return r.reader(Entry{Offset: rng.Start, Line: rng.Line}, rng.End)
}

func (r *Reader) reader(start Entry, end int64) *csv.Reader {
	section := io.NewSectionReader(r.ra, start.Offset, end-start.Offset)
	return csv.NewReaderAt(section, r.opts, start.Offset, start.Line)
}

// ReadPartitions splits the source into at most n ranges and parses them
// concurrently, one goroutine per range. fn is called for every record and
// may run on several goroutines at once; records of one range arrive in
// source order.
//
// The first error from a range or from fn cancels the others and is
// returned. A range holding a different number of records than the index
// expects fails with *MismatchError.
func (r *Reader) ReadPartitions(ctx context.Context, n int, fn func(rng Range, rec csv.Record) error) error {
	ranges := r.idx.Partition(n)
	began := time.Now()
	r.c.event(ctx, slog.LevelInfo, "read", "start", time.Time{}, slog.Int("ranges", len(ranges)))

	g, ctx := errgroup.WithContext(ctx)
	for _, rng := range ranges {
		g.Go(func() error {
			return r.readRange(ctx, rng, fn)
		})
	}
	if err := g.Wait(); err != nil {
		r.c.event(ctx, slog.LevelError, "read", "error", began, slog.String("err", err.Error()))
		return err
	}

	r.c.event(ctx, slog.LevelInfo, "read", "finish", began, slog.Int("count", r.idx.Len()))
	return nil
}

func (r *Reader) readRange(ctx context.Context, rng Range, fn func(Range, csv.Record) error) error {
	cr := r.RangeReader(rng)
	count := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec, err := cr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		count++
		if err := fn(rng, rec); err != nil {
			return err
		}
	}
	if count != rng.Count {
		return &MismatchError{Field: "Records", Want: fmt.Sprint(rng.Count), Got: fmt.Sprint(count)}
	}
	return nil
}

// stale reports a source that ended before record i although the index
// lists it.
func (r *Reader) stale(field string, i int) error {
	return &MismatchError{Field: field, Want: fmt.Sprintf("record %d", i), Got: "end of source"}
}
