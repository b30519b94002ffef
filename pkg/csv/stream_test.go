package csv_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/shapestone/shape-csv-index/pkg/csv"
)

func TestScanner(t *testing.T) {
	s := csv.NewScanner(strings.NewReader("a,b\nc,d\n"))

	var got []string
	for s.Scan() {
		f, err := s.Record().Field(1)
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, f)
	}
	if err := s.Err(); err != nil {
		t.Fatalf("Err() = %v", err)
	}
	if strings.Join(got, "|") != "b|d" {
		t.Errorf("second fields = %q", got)
	}
	if s.Scan() {
		t.Error("Scan() returned true after end")
	}
	if s.Record().Len() != 0 {
		t.Error("Record() not zero after end")
	}
}

func TestScanner_Error(t *testing.T) {
	s := csv.NewScanner(strings.NewReader("ok\n\"broken\n"))
	n := 0
	for s.Scan() {
		n++
	}
	if n != 1 {
		t.Errorf("scanned %d records before error, want 1", n)
	}
	if !errors.Is(s.Err(), csv.ErrUnterminatedQuote) {
		t.Errorf("Err() = %v, want ErrUnterminatedQuote", s.Err())
	}
}

func TestScannerWithOptions(t *testing.T) {
	opts := csv.DefaultReaderOptions()
	opts.Comma = '|'
	opts.Comment = '#'
	opts.SkipComments = true

	s := csv.NewScannerWithOptions(strings.NewReader("#skip\nx|y\n"), opts)
	if !s.Scan() {
		t.Fatalf("Scan() = false, Err() = %v", s.Err())
	}
	if rec := s.Record(); rec.Len() != 2 || rec.Line() != 2 {
		t.Errorf("Record() = %v", rec)
	}
}
