package csv

import (
	"bytes"
	"fmt"

	"github.com/shapestone/shape-core/pkg/ast"
)

// Render converts an AST node to CSV bytes with default writer options.
//
// The node should be the result of Parse() or ParseReader(), or any
// *ast.ArrayDataNode of records. A single record node (an array of literals)
// renders as one line.
//
// Rendering goes through Writer, so quoting follows the same rules:
// fields containing the separator, quotes or line breaks are quoted, quotes
// are doubled, and every record ends with a line terminator.
//
// Example:
//
//	node, _ := csv.Parse("name,age\nAlice,30\nBob,25\n")
//	bytes, _ := csv.Render(node)
//	// bytes: name,age\nAlice,30\nBob,25\n
func Render(node ast.SchemaNode) ([]byte, error) {
	return RenderWithOptions(node, DefaultWriterOptions())
}

// RenderWithOptions converts an AST node to CSV bytes with custom options.
//
// Example:
//
//	opts := csv.DefaultWriterOptions()
//	opts.Comma = '\t'
//	opts.LineTerminator = csv.CRLF
//	bytes, err := csv.RenderWithOptions(node, opts)
func RenderWithOptions(node ast.SchemaNode, opts WriterOptions) ([]byte, error) {
	if node == nil {
		return []byte{}, nil
	}

	records, err := nodeRecords(node)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := NewWriter(&buf, opts)
	for i, fields := range records {
		if err := w.Write(fields); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
	}
	if err := w.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// nodeRecords flattens a file or record node into field slices.
func nodeRecords(node ast.SchemaNode) ([][]string, error) {
	switch n := node.(type) {
	case *ast.ArrayDataNode:
		elements := n.Elements()
		if len(elements) == 0 {
			return nil, nil
		}
		// Check if this is a file (array of arrays) or a record (array of literals)
		if _, ok := elements[0].(*ast.LiteralNode); ok {
			fields, err := literalFields(elements)
			if err != nil {
				return nil, err
			}
			return [][]string{fields}, nil
		}
		records := make([][]string, len(elements))
		for i, elem := range elements {
			rec, ok := elem.(*ast.ArrayDataNode)
			if !ok {
				return nil, fmt.Errorf("unexpected element type in array: %T", elem)
			}
			fields, err := literalFields(rec.Elements())
			if err != nil {
				return nil, fmt.Errorf("record %d: %w", i, err)
			}
			records[i] = fields
		}
		return records, nil
	case *ast.LiteralNode:
		return [][]string{{literalString(n)}}, nil
	default:
		return nil, fmt.Errorf("unsupported node type for CSV rendering: %T", node)
	}
}

func literalFields(elements []ast.SchemaNode) ([]string, error) {
	fields := make([]string, len(elements))
	for i, elem := range elements {
		lit, ok := elem.(*ast.LiteralNode)
		if !ok {
			return nil, fmt.Errorf("field %d: unexpected node type %T", i, elem)
		}
		fields[i] = literalString(lit)
	}
	return fields, nil
}

// literalString returns a literal's value as a CSV field.
func literalString(node *ast.LiteralNode) string {
	switch v := node.Value().(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}
