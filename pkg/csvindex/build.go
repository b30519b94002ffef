package csvindex

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/exp/mmap"

	"github.com/shapestone/shape-csv-index/internal/scanner"
	"github.com/shapestone/shape-csv-index/pkg/csv"
)

// Build reads r once and indexes every record a csv.Reader with opts would
// return. Comment and empty lines that opts skips get no entry.
//
// Malformed input fails with the same *csv.ParseError a csv.Reader reports.
// The separator, quote and comment characters must be ASCII. ctx is checked
// between blocks of the source.
func Build(ctx context.Context, r io.Reader, opts csv.ReaderOptions, options ...Option) (*Index, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	c := newConfig(options)

	s, err := scanner.New(scanner.Options{
		Comma:         opts.Comma,
		Quote:         opts.Quote,
		Comment:       opts.Comment,
		LazyQuotes:    opts.LazyQuotes,
		DetectBOM:     opts.DetectBOM,
		MaxFieldSize:  opts.MaxFieldSize,
		MaxFieldCount: opts.MaxFieldCount,
		MaxRecordSize: opts.MaxRecordSize,
	})
	if err != nil {
		return nil, fmt.Errorf("csvindex: %w", err)
	}

	began := time.Now()
	c.event(ctx, slog.LevelInfo, "build", "start", time.Time{})

	digest := xxhash.New()
	src := &countingReader{r: io.TeeReader(r, digest)}
	if c.progress != nil {
		src.report = func(n int64) {
			c.progress(Progress{Bytes: n, Records: s.Records()})
		}
	}

	var entries []Entry
	err = s.Scan(ctx, src, func(st scanner.Start) error {
		switch st.Kind {
		case scanner.KindComment:
			if opts.SkipComments {
				return nil
			}
		case scanner.KindEmpty:
			if opts.SkipEmptyLines {
				return nil
			}
		}
		entries = append(entries, Entry{Offset: st.Offset, Line: st.Line})
		return nil
	})
	if err != nil {
		c.event(ctx, slog.LevelError, "build", "error", began,
			slog.Int64("bytes", src.n),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("csvindex: build: %w", err)
	}

	sig := signatureOf(opts)
	sig.BOMLength = s.BOMLength()
	idx := &Index{
		sig:         sig,
		size:        src.n,
		fingerprint: digest.Sum64(),
		entries:     entries,
	}

	c.event(ctx, slog.LevelInfo, "build", "finish", began,
		slog.Int("count", len(entries)),
		slog.Int64("bytes", idx.size),
	)
	return idx, nil
}

// BuildFile indexes the file at path through a read-only memory mapping.
func BuildFile(ctx context.Context, path string, opts csv.ReaderOptions, options ...Option) (*Index, error) {
	ra, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csvindex: open %s: %w", path, err)
	}
	defer ra.Close()

	return Build(ctx, io.NewSectionReader(ra, 0, int64(ra.Len())), opts, options...)
}

// countingReader counts the bytes read through it.
type countingReader struct {
	r      io.Reader
	n      int64
	report func(int64)
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	if c.report != nil && n > 0 {
		c.report(c.n)
	}
	return n, err
}
