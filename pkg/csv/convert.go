package csv

import (
	"github.com/shapestone/shape-core/pkg/ast"
)

// NodeToRecords converts an AST node to a slice of string records.
//
// It accepts a file node (array of record arrays), a single record node
// (array of literals) or a single literal. Non-string literal values are
// formatted with %v.
//
// Example:
//
//	node, _ := csv.Parse("name,age\nAlice,30\n")
//	records, _ := csv.NodeToRecords(node)
//	// records is [][]string{{"name","age"}, {"Alice","30"}}
func NodeToRecords(node ast.SchemaNode) ([][]string, error) {
	if node == nil {
		return nil, nil
	}
	return nodeRecords(node)
}

// RecordsToNode converts records to an AST node. Each record node, and each
// of its fields, is positioned at the record's source offset and line.
//
// Example:
//
//	node := csv.RecordsToNode([]csv.Record{
//	    csv.NewRecord("name", "age"),
//	    csv.NewRecord("Alice", "30"),
//	})
func RecordsToNode(records []Record) ast.SchemaNode {
	nodes := make([]ast.SchemaNode, len(records))
	for i, rec := range records {
		pos := ast.ZeroPosition()
		if rec.line > 0 {
			pos = ast.NewPosition(int(rec.offset), rec.line, 1)
		}
		fields := make([]ast.SchemaNode, len(rec.fields))
		for j, f := range rec.fields {
			fields[j] = ast.NewLiteralNode(f, pos)
		}
		nodes[i] = ast.NewArrayDataNode(fields, pos)
	}
	return ast.NewArrayDataNode(nodes, ast.ZeroPosition())
}
