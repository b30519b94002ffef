package scanner

import "math/bits"

const (
	loBits = 0x0101010101010101
	hiBits = 0x8080808080808080
)

// swarMask tests 8-byte words for structural bytes using SIMD Within A
// Register. Each byte is broadcast to all 8 lanes once, up front.
type swarMask struct {
	sep, quote uint64
}

func newSWARMask(sep, quote byte) swarMask {
	return swarMask{
		sep:   uint64(sep) * loBits,
		quote: uint64(quote) * loBits,
	}
}

// match reports whether word contains the separator, the quote, CR or LF.
func (m swarMask) match(word uint64) bool {
	return hasZeroByte(word^m.sep) ||
		hasZeroByte(word^m.quote) ||
		hasZeroByte(word^(uint64('\r')*loBits)) ||
		hasZeroByte(word^(uint64('\n')*loBits))
}

// hasZeroByte uses the null byte detection trick: the expression
// ((x - 0x01..01) & ^x & 0x80..80) is non-zero iff some byte of x is zero.
func hasZeroByte(x uint64) bool {
	return (x-loBits)&^x&hiBits != 0
}

// runeStarts counts the bytes of word that begin a UTF-8 sequence, i.e. that
// are not continuation bytes (10xxxxxx).
func runeStarts(word uint64) int {
	continuation := word & (^word << 1) & hiBits
	return 8 - bits.OnesCount64(continuation)
}
