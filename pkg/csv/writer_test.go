package csv_test

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/shapestone/shape-csv-index/pkg/csv"
)

func writeString(t *testing.T, opts csv.WriterOptions, records ...[]string) string {
	t.Helper()
	var buf bytes.Buffer
	if err := csv.NewWriter(&buf, opts).WriteAll(records); err != nil {
		t.Fatalf("WriteAll() error = %v", err)
	}
	return buf.String()
}

func TestWriter_Quoting(t *testing.T) {
	withComment := csv.DefaultWriterOptions()
	withComment.Comment = '#'

	always := csv.DefaultWriterOptions()
	always.QuotePolicy = csv.QuoteAlways

	orEmpty := csv.DefaultWriterOptions()
	orEmpty.QuotePolicy = csv.QuoteNeededOrEmpty

	tests := []struct {
		name   string
		opts   csv.WriterOptions
		fields []string
		want   string
	}{
		{"plain", csv.DefaultWriterOptions(), []string{"a", "b"}, "a,b\n"},
		{"separator", csv.DefaultWriterOptions(), []string{"a,b", "c"}, "\"a,b\",c\n"},
		{"quote doubled", csv.DefaultWriterOptions(), []string{`say "hi"`}, "\"say \"\"hi\"\"\"\n"},
		{"line break", csv.DefaultWriterOptions(), []string{"l1\nl2", "x"}, "\"l1\nl2\",x\n"},
		{"carriage return", csv.DefaultWriterOptions(), []string{"l1\rl2"}, "\"l1\rl2\"\n"},
		{"empty among others", csv.DefaultWriterOptions(), []string{"", "x"}, ",x\n"},
		{"sole empty field", csv.DefaultWriterOptions(), []string{""}, "\"\"\n"},
		{"leading comment rune", withComment, []string{"#x", "#y"}, "\"#x\",#y\n"},
		{"leading byte order mark", csv.DefaultWriterOptions(), []string{"\uFEFFa", "\uFEFFb"}, "\"\uFEFFa\",\uFEFFb\n"},
		{"always", always, []string{"a", ""}, "\"a\",\"\"\n"},
		{"needed or empty", orEmpty, []string{"a", ""}, "a,\"\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := writeString(t, tt.opts, tt.fields); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWriter_LineTerminators(t *testing.T) {
	for _, lt := range []csv.LineTerminator{csv.LF, csv.CRLF, csv.CR} {
		opts := csv.DefaultWriterOptions()
		opts.LineTerminator = lt
		want := "a" + lt.String() + "b" + lt.String()
		if got := writeString(t, opts, []string{"a"}, []string{"b"}); got != want {
			t.Errorf("terminator %q: got %q, want %q", lt, got, want)
		}
	}
}

func TestWriter_NoFields(t *testing.T) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf, csv.DefaultWriterOptions())
	if err := w.Write(nil); !errors.Is(err, csv.ErrNoFields) {
		t.Fatalf("Write(nil) error = %v, want ErrNoFields", err)
	}
	// the writer stays usable
	if err := w.Write([]string{"a"}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "a\n" {
		t.Errorf("output = %q", buf.String())
	}
}

func TestWriter_WriteComment(t *testing.T) {
	opts := csv.DefaultWriterOptions()
	opts.Comment = '#'

	var buf bytes.Buffer
	w := csv.NewWriter(&buf, opts)
	if err := w.WriteComment("one\r\ntwo\nthree"); err != nil {
		t.Fatal(err)
	}
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}
	if got, want := buf.String(), "#one\n#two\n#three\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	w = csv.NewWriter(&buf, csv.DefaultWriterOptions())
	var oe *csv.OptionsError
	if err := w.WriteComment("x"); !errors.As(err, &oe) {
		t.Errorf("WriteComment() without comment char error = %v", err)
	}
}

func TestWriter_WriteRecordComment(t *testing.T) {
	ropts := csv.DefaultReaderOptions()
	ropts.Comment = '#'
	records := readString(t, "#hello\nv\n", ropts)

	wopts := csv.DefaultWriterOptions()
	wopts.Comment = '#'
	var buf bytes.Buffer
	w := csv.NewWriter(&buf, wopts)
	for _, rec := range records {
		if err := w.WriteRecord(rec); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}
	if got, want := buf.String(), "#hello\nv\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

type failingWriter struct{ err error }

func (f failingWriter) Write([]byte) (int, error) { return 0, f.err }

func TestWriter_StickySinkError(t *testing.T) {
	errSink := errors.New("sink closed")
	w := csv.NewWriter(failingWriter{errSink}, csv.DefaultWriterOptions())

	if err := w.Write([]string{"a"}); err != nil {
		t.Fatalf("buffered Write() error = %v", err)
	}
	if err := w.Flush(); !errors.Is(err, errSink) {
		t.Fatalf("Flush() error = %v, want %v", err, errSink)
	}
	if err := w.Write([]string{"b"}); !errors.Is(err, errSink) {
		t.Errorf("Write() after failure error = %v, want %v", err, errSink)
	}
	if !errors.Is(w.Error(), errSink) {
		t.Errorf("Error() = %v", w.Error())
	}
}

// TestWriter_RoundTrip tests that written records read back unchanged under
// every policy and terminator.
func TestWriter_RoundTrip(t *testing.T) {
	records := [][]string{
		{"plain", "with,comma", `with "quote"`},
		{"multi\nline", "cr\ronly", "crlf\r\nend"},
		{""},
		{"", ""},
		{"#hash", " spaced ", "ünïcödé"},
		{"trailing\n"},
	}

	for _, policy := range []csv.QuotePolicy{csv.QuoteNeeded, csv.QuoteAlways, csv.QuoteNeededOrEmpty} {
		for _, lt := range []csv.LineTerminator{csv.LF, csv.CRLF, csv.CR} {
			for _, comma := range []rune{',', ';', '\t'} {
				t.Run(fmt.Sprintf("%v/%q/%q", policy, lt, comma), func(t *testing.T) {
					wopts := csv.DefaultWriterOptions()
					wopts.Comma = comma
					wopts.Comment = '#'
					wopts.QuotePolicy = policy
					wopts.LineTerminator = lt

					var buf bytes.Buffer
					if err := csv.NewWriter(&buf, wopts).WriteAll(records); err != nil {
						t.Fatal(err)
					}

					ropts := csv.DefaultReaderOptions()
					ropts.Comma = comma
					ropts.Comment = '#'
					got := readString(t, buf.String(), ropts)
					if !reflect.DeepEqual(fieldsOf(got), records) {
						t.Errorf("round trip of %q = %q", buf.String(), fieldsOf(got))
					}
				})
			}
		}
	}
}

// TestWriter_LeadingBOMRoundTrip tests that a first field starting with a
// byte order mark survives a reader that strips one.
func TestWriter_LeadingBOMRoundTrip(t *testing.T) {
	records := [][]string{{"\uFEFF", "a#", ""}, {"\uFEFFx", "y"}}
	out := writeString(t, csv.DefaultWriterOptions(), records...)

	ropts := csv.DefaultReaderOptions()
	ropts.DetectBOM = true
	got := readString(t, out, ropts)
	if !reflect.DeepEqual(fieldsOf(got), records) {
		t.Errorf("round trip of %q = %q, want %q", out, fieldsOf(got), records)
	}
}

func TestWriter_InvalidOptionsSticky(t *testing.T) {
	w := csv.NewWriter(&strings.Builder{}, csv.WriterOptions{Comma: '"', Quote: '"'})
	var oe *csv.OptionsError
	if err := w.Write([]string{"a"}); !errors.As(err, &oe) {
		t.Errorf("Write() error = %v, want *OptionsError", err)
	}
	if err := w.Flush(); !errors.As(err, &oe) {
		t.Errorf("Flush() error = %v, want *OptionsError", err)
	}
}
