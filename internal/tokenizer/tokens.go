// Package tokenizer provides CSV lexing using Shape's tokenizer framework.
package tokenizer

// Token type constants for the CSV lexer.
//
// The lexer emits character-level tokens only. Whether a separator or a line
// terminator is structural depends on quoting state, which the parser tracks.
const (
	// Structural tokens
	TokenSeparator = "Separator" // field separator (',' by default)
	TokenQuote     = "Quote"     // quote character ('"' by default)
	TokenNewline   = "Newline"   // \r\n, \n or \r (line terminator)

	// Field content token
	TokenField = "Field" // run of characters that are none of the above

	// Special token
	TokenEOF = "EOF" // End of file
)
