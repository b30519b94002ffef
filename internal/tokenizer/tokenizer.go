package tokenizer

import (
	"unicode/utf8"

	"github.com/shapestone/shape-core/pkg/tokenizer"
)

// Options configures the lexer.
type Options struct {
	// Separator is the field delimiter. Default: ','
	Separator rune
	// Quote is the quote character. Default: '"'
	Quote rune
}

// DefaultOptions returns default lexer options.
func DefaultOptions() Options {
	return Options{
		Separator: ',',
		Quote:     '"',
	}
}

// NewTokenizer creates a lexer with default separator and quote.
//
// Matchers are tried in order:
// 1. Newlines (CRLF before LF and CR so the longer sequence wins)
// 2. Separator
// 3. Quote
// 4. Field content (any run of other characters)
func NewTokenizer() tokenizer.Tokenizer {
	return NewTokenizerWithOptions(DefaultOptions())
}

// NewTokenizerWithOptions creates a lexer with custom options.
func NewTokenizerWithOptions(opts Options) tokenizer.Tokenizer {
	return tokenizer.NewTokenizerWithoutWhitespace(
		tokenizer.StringMatcherFunc(TokenNewline, "\r\n"),
		tokenizer.StringMatcherFunc(TokenNewline, "\n"),
		tokenizer.StringMatcherFunc(TokenNewline, "\r"),

		tokenizer.StringMatcherFunc(TokenSeparator, string(opts.Separator)),
		tokenizer.StringMatcherFunc(TokenQuote, string(opts.Quote)),

		FieldContentMatcher(opts.Separator, opts.Quote),
	)
}

// NewTokenizerWithStream creates a lexer over a pre-configured stream.
// This is how io.Reader sources are lexed.
func NewTokenizerWithStream(stream tokenizer.Stream) tokenizer.Tokenizer {
	return NewTokenizerWithStreamAndOptions(stream, DefaultOptions())
}

// NewTokenizerWithStreamAndOptions creates a lexer from a stream with custom options.
func NewTokenizerWithStreamAndOptions(stream tokenizer.Stream, opts Options) tokenizer.Tokenizer {
	tok := NewTokenizerWithOptions(opts)
	tok.InitializeFromStream(stream)
	return tok
}

// FieldContentMatcher creates a matcher for field content.
// It matches runs of characters that are not the separator, the quote, CR or LF.
//
// Grammar:
//
//	Field = Character+ ;
//	Character = <any character except separator, quote, CR, LF> ;
//
// Uses ByteStream for fast scanning when both control characters are ASCII.
func FieldContentMatcher(sep, quote rune) tokenizer.Matcher {
	ascii := sep < utf8.RuneSelf && quote < utf8.RuneSelf
	return func(stream tokenizer.Stream) *tokenizer.Token {
		if ascii {
			if byteStream, ok := stream.(tokenizer.ByteStream); ok {
				return fieldContentMatcherByte(byteStream, byte(sep), byte(quote))
			}
		}
		return fieldContentMatcherRune(stream, sep, quote)
	}
}

// fieldContentMatcherByte scans bytes directly. Multi-byte UTF-8 sequences never
// contain ASCII bytes, so stopping on ASCII control bytes is safe.
func fieldContentMatcherByte(stream tokenizer.ByteStream, sep, quote byte) *tokenizer.Token {
	startPos := stream.BytePosition()

	for {
		b, ok := stream.PeekByte()
		if !ok {
			break
		}
		if b == sep || b == quote || b == '\n' || b == '\r' {
			break
		}
		stream.NextByte()
	}

	if stream.BytePosition() == startPos {
		return nil
	}

	value := stream.SliceFrom(startPos)
	return tokenizer.NewToken(TokenField, []rune(string(value)))
}

// fieldContentMatcherRune is the rune-based fallback.
func fieldContentMatcherRune(stream tokenizer.Stream, sep, quote rune) *tokenizer.Token {
	var value []rune

	for {
		r, ok := stream.PeekChar()
		if !ok {
			break
		}
		if r == sep || r == quote || r == '\n' || r == '\r' {
			break
		}
		stream.NextChar()
		value = append(value, r)
	}

	if len(value) == 0 {
		return nil
	}

	return tokenizer.NewToken(TokenField, value)
}
