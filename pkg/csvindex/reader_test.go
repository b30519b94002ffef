package csvindex_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/shapestone/shape-csv-index/pkg/csv"
	"github.com/shapestone/shape-csv-index/pkg/csvindex"
)

// generated returns rows records of mixed shape: quoted fields with
// separators, doubled quotes, embedded CRLF and LF, and multibyte text.
func generated(rows int) string {
	var sb strings.Builder
	sb.WriteString("id,name,note\r\n")
	for i := 0; i < rows; i++ {
		switch i % 4 {
		case 0:
			fmt.Fprintf(&sb, "%d,plain%d,text\r\n", i, i)
		case 1:
			fmt.Fprintf(&sb, "%d,\"with, comma\",\"say \"\"%d\"\"\"\r\n", i, i)
		case 2:
			fmt.Fprintf(&sb, "%d,\"multi\r\nline\nrow\",ünï%d\r\n", i, i)
		default:
			fmt.Fprintf(&sb, "%d,,\n", i)
		}
	}
	return sb.String()
}

func open(t *testing.T, input string, opts csv.ReaderOptions) *csvindex.Reader {
	t.Helper()
	r, err := csvindex.Open(strings.NewReader(input), build(t, input, opts), opts)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return r
}

func sameRecord(a, b csv.Record) bool {
	return a.Equal(b) && a.Offset() == b.Offset() && a.Line() == b.Line() && a.IsComment() == b.IsComment()
}

func TestReader_Record(t *testing.T) {
	input := generated(40)
	opts := csv.DefaultReaderOptions()
	want := serial(t, input, opts)
	r := open(t, input, opts)

	for i := len(want) - 1; i >= 0; i-- {
		got, err := r.Record(i)
		if err != nil {
			t.Fatalf("Record(%d) error = %v", i, err)
		}
		if !sameRecord(got, want[i]) {
			t.Errorf("Record(%d) = %v, want %v", i, got, want[i])
		}
	}

	for _, i := range []int{-1, len(want)} {
		if _, err := r.Record(i); !errors.Is(err, csvindex.ErrRecordIndex) {
			t.Errorf("Record(%d) error = %v, want ErrRecordIndex", i, err)
		}
	}
}

func TestReader_Records(t *testing.T) {
	input := generated(10)
	opts := csv.DefaultReaderOptions()
	want := serial(t, input, opts)
	r := open(t, input, opts)

	tests := []struct {
		i, n      int
		wantCount int
	}{
		{0, 3, 3},
		{4, 4, 4},
		{9, 100, len(want) - 9},
		{2, 0, 0},
	}

	for _, tt := range tests {
		got, err := r.Records(tt.i, tt.n)
		if err != nil {
			t.Fatalf("Records(%d, %d) error = %v", tt.i, tt.n, err)
		}
		if len(got) != tt.wantCount {
			t.Fatalf("Records(%d, %d) returned %d records, want %d", tt.i, tt.n, len(got), tt.wantCount)
		}
		for k, rec := range got {
			if !sameRecord(rec, want[tt.i+k]) {
				t.Errorf("Records(%d, %d)[%d] = %v, want %v", tt.i, tt.n, k, rec, want[tt.i+k])
			}
		}
	}
}

func TestReader_SkippedLines(t *testing.T) {
	opts := findOptions()
	r := open(t, findInput, opts)
	want := serial(t, findInput, opts)

	got, err := r.Records(0, 3)
	if err != nil {
		t.Fatal(err)
	}
	for i := range want {
		if !sameRecord(got[i], want[i]) {
			t.Errorf("record %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestReader_BOM(t *testing.T) {
	opts := csv.DefaultReaderOptions()
	opts.DetectBOM = true
	input := "\uFEFFh1,h2\nv1,v2\n"
	r := open(t, input, opts)

	rec, err := r.Record(0)
	if err != nil {
		t.Fatal(err)
	}
	if f, _ := rec.Field(0); f != "h1" || rec.Offset() != 3 {
		t.Errorf("Record(0) = %v", rec)
	}

	all, err := r.RangeReader(r.Index().Partition(1)[0]).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if f, _ := all[0].Field(0); f != "h1" || len(all) != 2 {
		t.Errorf("range records = %v", all)
	}
}

func TestReader_RangeReader(t *testing.T) {
	input := generated(25)
	opts := csv.DefaultReaderOptions()
	want := serial(t, input, opts)
	r := open(t, input, opts)

	for _, rng := range r.Index().Partition(5) {
		got, err := r.RangeReader(rng).ReadAll()
		if err != nil {
			t.Fatalf("range %+v: %v", rng, err)
		}
		if len(got) != rng.Count {
			t.Fatalf("range %+v returned %d records", rng, len(got))
		}
		for k, rec := range got {
			if !sameRecord(rec, want[rng.First+k]) {
				t.Errorf("range %+v record %d = %v, want %v", rng, k, rec, want[rng.First+k])
			}
		}
	}
}

// TestReader_ReadPartitions tests that a parallel read returns exactly the
// records of a serial read, for any number of ranges.
func TestReader_ReadPartitions(t *testing.T) {
	input := generated(500)
	opts := csv.DefaultReaderOptions()
	want := serial(t, input, opts)
	r := open(t, input, opts)

	for _, n := range []int{1, 2, 3, 8, 64, 10000} {
		t.Run(fmt.Sprint(n), func(t *testing.T) {
			var mu sync.Mutex
			got := make(map[int64]csv.Record)
			lastInRange := make(map[int]int64)

			err := r.ReadPartitions(context.Background(), n, func(rng csvindex.Range, rec csv.Record) error {
				mu.Lock()
				defer mu.Unlock()
				if prev, ok := lastInRange[rng.First]; ok && rec.Offset() <= prev {
					return fmt.Errorf("range %d out of order at offset %d", rng.First, rec.Offset())
				}
				lastInRange[rng.First] = rec.Offset()
				if rec.Offset() < rng.Start || rec.Offset() >= rng.End {
					return fmt.Errorf("record at %d outside range %+v", rec.Offset(), rng)
				}
				got[rec.Offset()] = rec
				return nil
			})
			if err != nil {
				t.Fatalf("ReadPartitions() error = %v", err)
			}
			if len(got) != len(want) {
				t.Fatalf("read %d records, want %d", len(got), len(want))
			}
			for _, w := range want {
				if g, ok := got[w.Offset()]; !ok || !sameRecord(g, w) {
					t.Errorf("record at %d = %v, want %v", w.Offset(), g, w)
				}
			}
		})
	}
}

// TestReader_ReadPartitionsMultibyte tests partitioned reads of a file whose
// runes straddle every read boundary.
func TestReader_ReadPartitionsMultibyte(t *testing.T) {
	input := "a,b,c\n" + strings.Repeat("héllo,wörld,€uro\n", 20000)
	path := filepath.Join(t.TempDir(), "multibyte.csv")
	if err := os.WriteFile(path, []byte(input), 0o600); err != nil {
		t.Fatal(err)
	}
	opts := csv.DefaultReaderOptions()

	want := serial(t, input, opts)
	if len(want) != 20001 {
		t.Fatalf("serial read %d records, want 20001", len(want))
	}
	idx, err := csvindex.BuildFile(context.Background(), path, opts)
	if err != nil {
		t.Fatal(err)
	}
	if idx.Len() != len(want) {
		t.Fatalf("index has %d entries, want %d", idx.Len(), len(want))
	}
	for i, e := range idx.Entries() {
		if e.Offset != want[i].Offset() || e.Line != want[i].Line() {
			t.Fatalf("entry %d = %+v, record at %d line %d", i, e, want[i].Offset(), want[i].Line())
		}
	}

	r, err := csvindex.OpenFile(path, idx, opts)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	var mu sync.Mutex
	got := make(map[int64]csv.Record, len(want))
	err = r.ReadPartitions(context.Background(), 4, func(_ csvindex.Range, rec csv.Record) error {
		mu.Lock()
		defer mu.Unlock()
		got[rec.Offset()] = rec
		return nil
	})
	if err != nil {
		t.Fatalf("ReadPartitions() error = %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("read %d records, want %d", len(got), len(want))
	}
	for _, w := range want {
		if g := got[w.Offset()]; !sameRecord(g, w) {
			t.Fatalf("record at %d = %v, want %v", w.Offset(), g, w)
		}
	}

	last, err := r.Record(len(want) - 1)
	if err != nil {
		t.Fatal(err)
	}
	if !sameRecord(last, want[len(want)-1]) {
		t.Errorf("Record(last) = %v, want %v", last, want[len(want)-1])
	}
}

func TestReader_ReadPartitionsCallbackError(t *testing.T) {
	r := open(t, generated(200), csv.DefaultReaderOptions())
	errStop := errors.New("stop")

	err := r.ReadPartitions(context.Background(), 4, func(csvindex.Range, csv.Record) error {
		return errStop
	})
	if !errors.Is(err, errStop) {
		t.Errorf("ReadPartitions() error = %v, want %v", err, errStop)
	}
}

func TestReader_ReadPartitionsCanceled(t *testing.T) {
	r := open(t, generated(50), csv.DefaultReaderOptions())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.ReadPartitions(ctx, 2, func(csvindex.Range, csv.Record) error { return nil })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("ReadPartitions() error = %v, want context.Canceled", err)
	}
}

func TestOpen_Mismatch(t *testing.T) {
	input := "a,b\nc,d\n"
	opts := csv.DefaultReaderOptions()
	idx := build(t, input, opts)

	other := opts
	other.Comma = ';'
	var me *csvindex.MismatchError
	if _, err := csvindex.Open(strings.NewReader(input), idx, other); !errors.As(err, &me) || me.Field != "Comma" {
		t.Errorf("Open() with other separator error = %v", err)
	}

	if _, err := csvindex.Open(strings.NewReader(input+"e\n"), idx, opts); !errors.As(err, &me) || me.Field != "Size" {
		t.Errorf("Open() of longer source error = %v", err)
	}

	var oe *csv.OptionsError
	if _, err := csvindex.Open(strings.NewReader(input), idx, csv.ReaderOptions{Comma: ',', Quote: ','}); !errors.As(err, &oe) {
		t.Errorf("Open() with invalid options error = %v", err)
	}
}

// TestReader_StaleIndex tests that a source rewritten to the same size is
// caught while reading.
func TestReader_StaleIndex(t *testing.T) {
	opts := csv.DefaultReaderOptions()
	idx := build(t, "a\nb\nc\n", opts)

	r, err := csvindex.Open(strings.NewReader("abcde\n"), idx, opts)
	if err != nil {
		t.Fatal(err)
	}
	var me *csvindex.MismatchError
	err = r.ReadPartitions(context.Background(), 1, func(csvindex.Range, csv.Record) error { return nil })
	if !errors.As(err, &me) || me.Field != "Records" {
		t.Errorf("ReadPartitions() error = %v, want Records mismatch", err)
	}
}

func TestOpenFile(t *testing.T) {
	input := generated(30)
	path := filepath.Join(t.TempDir(), "data.csv")
	if err := os.WriteFile(path, []byte(input), 0o600); err != nil {
		t.Fatal(err)
	}
	opts := csv.DefaultReaderOptions()

	idx, err := csvindex.BuildFile(context.Background(), path, opts)
	if err != nil {
		t.Fatal(err)
	}
	r, err := csvindex.OpenFile(path, idx, opts)
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}

	want := serial(t, input, opts)
	got, err := r.Record(17)
	if err != nil {
		t.Fatal(err)
	}
	if !sameRecord(got, want[17]) {
		t.Errorf("Record(17) = %v, want %v", got, want[17])
	}

	if err := r.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := r.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	short := build(t, "x\n", opts)
	if _, err := csvindex.OpenFile(path, short, opts); err == nil {
		t.Error("OpenFile() accepted an index of another source")
	}
}
