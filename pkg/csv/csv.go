// Package csv reads and writes delimited text as a stream of records.
//
// Records are produced by a pull-based state machine with configurable
// separator, quote and comment characters, strict or lazy quote handling,
// and size limits that bound memory on hostile input. Every record carries
// its starting line and byte offset, which is what package csvindex builds
// its offset index from.
//
// # Thread Safety
//
// Reader, Scanner and Writer are not safe for concurrent use. The
// package-level functions create their own parser per call and may be used
// from multiple goroutines.
//
// # Reading
//
//	r := csv.NewReader(file, csv.DefaultReaderOptions())
//	for {
//	    rec, err := r.Next()
//	    if err == io.EOF {
//	        break
//	    }
//	    if err != nil {
//	        // handle error
//	    }
//	    fmt.Println(rec.Fields())
//	}
//
// # Writing
//
//	w := csv.NewWriter(os.Stdout, csv.DefaultWriterOptions())
//	w.Write([]string{"name", "note"})
//	w.Write([]string{"Alice", "says \"hi\""})
//	w.Flush()
//
// # AST
//
// Parse and ParseReader return Shape's unified AST: an *ast.ArrayDataNode of
// records, each an *ast.ArrayDataNode of *ast.LiteralNode string fields.
// Render turns such a tree back into CSV.
package csv

import (
	"io"

	"github.com/shapestone/shape-core/pkg/ast"
)

// Parse parses CSV format into an AST from a string with default options.
//
// Example:
//
//	node, err := csv.Parse("name,age\nAlice,30\nBob,25")
//	arrayNode := node.(*ast.ArrayDataNode)
//	records := arrayNode.Elements()
//	// records[0] is the header row
func Parse(input string) (ast.SchemaNode, error) {
	return ParseWithOptions(input, DefaultReaderOptions())
}

// ParseWithOptions parses CSV format into an AST from a string with custom options.
//
// Example:
//
//	opts := csv.DefaultReaderOptions()
//	opts.Comma = '\t'
//	node, err := csv.ParseWithOptions("name\tage\nAlice\t30", opts)
func ParseWithOptions(input string, opts ReaderOptions) (ast.SchemaNode, error) {
	return buildNode(newStringReader(input, opts))
}

// ParseReader parses CSV format into an AST from an io.Reader with default options.
//
// Example:
//
//	file, err := os.Open("data.csv")
//	if err != nil {
//	    // handle error
//	}
//	defer file.Close()
//
//	node, err := csv.ParseReader(file)
func ParseReader(reader io.Reader) (ast.SchemaNode, error) {
	return ParseReaderWithOptions(reader, DefaultReaderOptions())
}

// ParseReaderWithOptions parses CSV format into an AST from an io.Reader with custom options.
func ParseReaderWithOptions(reader io.Reader, opts ReaderOptions) (ast.SchemaNode, error) {
	return buildNode(NewReader(reader, opts))
}

// buildNode collects the records of r into an AST.
func buildNode(r *Reader) (ast.SchemaNode, error) {
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	return RecordsToNode(records), nil
}

// Format returns the format identifier for this parser.
// Returns "CSV" to identify this as the CSV data format parser.
func Format() string {
	return "CSV"
}

// Validate checks if the input string is valid CSV under default options.
//
// Returns nil if the input is valid CSV, otherwise the first error, usually
// a *ParseError:
//
//	if err := csv.Validate(input); err != nil {
//	    fmt.Println("Invalid CSV:", err)
//	}
func Validate(input string) error {
	return ValidateWithOptions(input, DefaultReaderOptions())
}

// ValidateWithOptions checks if the input string is valid CSV with custom options.
//
// Example:
//
//	opts := csv.DefaultReaderOptions()
//	opts.Comma = ';'
//	err := csv.ValidateWithOptions("a;b;c", opts)
func ValidateWithOptions(input string, opts ReaderOptions) error {
	return drain(newStringReader(input, opts))
}

// ValidateReader checks if the input from an io.Reader is valid CSV under
// default options. Records are discarded as they are read, so memory use
// does not grow with the input.
func ValidateReader(reader io.Reader) error {
	return drain(NewReader(reader, DefaultReaderOptions()))
}

func drain(r *Reader) error {
	for _, err := range r.All() {
		if err != nil {
			return err
		}
	}
	return nil
}
