package csv

import (
	"io"
)

// Scanner provides a bufio.Scanner style interface for reading CSV records
// one at a time. It holds one record in memory regardless of input size.
//
// Example usage:
//
//	file, _ := os.Open("data.csv")
//	defer file.Close()
//
//	scanner := csv.NewScanner(file)
//	for scanner.Scan() {
//	    record := scanner.Record()
//	    fmt.Println(record.Fields())
//	}
//	if err := scanner.Err(); err != nil {
//	    // handle error
//	}
type Scanner struct {
	reader *Reader
	record Record
	err    error
	done   bool
}

// NewScanner creates a new Scanner that reads CSV with default options.
func NewScanner(reader io.Reader) *Scanner {
	return NewScannerWithOptions(reader, DefaultReaderOptions())
}

// NewScannerWithOptions creates a new Scanner with custom reader options.
func NewScannerWithOptions(reader io.Reader, opts ReaderOptions) *Scanner {
	return &Scanner{reader: NewReader(reader, opts)}
}

// Scan advances the scanner to the next record.
// It returns false when there are no more records or an error occurs.
// After Scan returns false, the Err method will return any error that occurred.
func (s *Scanner) Scan() bool {
	if s.done {
		return false
	}
	rec, err := s.reader.Next()
	if err != nil {
		s.done = true
		s.record = Record{}
		if err != io.EOF {
			s.err = err
		}
		return false
	}
	s.record = rec
	return true
}

// Record returns the current record.
// Before the first Scan, or after Scan returned false, it is the zero Record.
func (s *Scanner) Record() Record {
	return s.record
}

// Err returns the error, if any, that was encountered during scanning.
// It returns nil at EOF.
func (s *Scanner) Err() error {
	return s.err
}
