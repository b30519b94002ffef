package csvindex

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/cespare/xxhash/v2"
)

// Persisted layout, little-endian:
//
//	magic "SCIX" | version u32
//	comma, quote, comment i32 | flags u8 | bom length u8 | encoding length u16 | encoding
//	size i64 | fingerprint u64 | entry count u64
//	entries: offset i64, line i64
//	xxhash64 of everything above
var magic = [4]byte{'S', 'C', 'I', 'X'}

const version uint32 = 1

const (
	flagSkipComments uint8 = 1 << iota
	flagSkipEmptyLines
	flagLazyQuotes
	flagDetectBOM
)

// entryChunk bounds how many entries are decoded per read, so a forged
// entry count cannot force a large allocation up front.
const entryChunk = 4096

type header struct {
	Magic       [4]byte
	Version     uint32
	Comma       int32
	Quote       int32
	Comment     int32
	Flags       uint8
	BOMLength   uint8
	EncodingLen uint16
}

type body struct {
	Size        int64
	Fingerprint uint64
	Count       uint64
}

type diskEntry struct {
	Offset int64
	Line   int64
}

// WriteTo writes the index in its persisted form.
func (idx *Index) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	bw := bufio.NewWriter(cw)
	digest := xxhash.New()
	out := io.MultiWriter(bw, digest)

	sig := idx.sig
	var flags uint8
	if sig.SkipComments {
		flags |= flagSkipComments
	}
	if sig.SkipEmptyLines {
		flags |= flagSkipEmptyLines
	}
	if sig.LazyQuotes {
		flags |= flagLazyQuotes
	}
	if sig.DetectBOM {
		flags |= flagDetectBOM
	}

	h := header{
		Magic:       magic,
		Version:     version,
		Comma:       sig.Comma,
		Quote:       sig.Quote,
		Comment:     sig.Comment,
		Flags:       flags,
		BOMLength:   uint8(sig.BOMLength),
		EncodingLen: uint16(len(sig.Encoding)),
	}
	if err := binary.Write(out, binary.LittleEndian, h); err != nil {
		return cw.n, err
	}
	if _, err := io.WriteString(out, sig.Encoding); err != nil {
		return cw.n, err
	}
	b := body{Size: idx.size, Fingerprint: idx.fingerprint, Count: uint64(len(idx.entries))}
	if err := binary.Write(out, binary.LittleEndian, b); err != nil {
		return cw.n, err
	}

	var buf [16]byte
	for _, e := range idx.entries {
		binary.LittleEndian.PutUint64(buf[0:8], uint64(e.Offset))
		binary.LittleEndian.PutUint64(buf[8:16], uint64(e.Line))
		if _, err := out.Write(buf[:]); err != nil {
			return cw.n, err
		}
	}

	if err := binary.Write(bw, binary.LittleEndian, digest.Sum64()); err != nil {
		return cw.n, err
	}
	err := bw.Flush()
	return cw.n, err
}

// ReadFrom decodes an index written by WriteTo. Truncated or altered input
// fails with ErrCorruptIndex; other read errors are returned unchanged.
//
// When r is an io.ByteReader, such as a *bufio.Reader or *bytes.Reader,
// ReadFrom consumes exactly the encoded index and leaves what follows unread.
// Other readers are buffered and may be read past the end of the index.
func ReadFrom(r io.Reader) (*Index, error) {
	src := r
	if _, ok := r.(io.ByteReader); !ok {
		src = bufio.NewReader(r)
	}
	digest := xxhash.New()
	in := io.TeeReader(src, digest)

	var h header
	if err := binary.Read(in, binary.LittleEndian, &h); err != nil {
		return nil, corrupt(err, "header")
	}
	if h.Magic != magic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrCorruptIndex, h.Magic[:])
	}
	if h.Version != version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorruptIndex, h.Version)
	}

	enc := make([]byte, h.EncodingLen)
	if _, err := io.ReadFull(in, enc); err != nil {
		return nil, corrupt(err, "encoding")
	}

	var b body
	if err := binary.Read(in, binary.LittleEndian, &b); err != nil {
		return nil, corrupt(err, "body")
	}
	if b.Size < 0 {
		return nil, fmt.Errorf("%w: negative size %d", ErrCorruptIndex, b.Size)
	}

	entries := make([]Entry, 0, min(b.Count, entryChunk))
	chunk := make([]diskEntry, entryChunk)
	for remaining := b.Count; remaining > 0; {
		n := min(remaining, entryChunk)
		if err := binary.Read(in, binary.LittleEndian, chunk[:n]); err != nil {
			return nil, corrupt(err, "entries")
		}
		for _, de := range chunk[:n] {
			entries = append(entries, Entry{Offset: de.Offset, Line: int(de.Line)})
		}
		remaining -= n
	}

	sum := digest.Sum64()
	var stored uint64
	if err := binary.Read(in, binary.LittleEndian, &stored); err != nil {
		return nil, corrupt(err, "checksum")
	}
	if stored != sum {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorruptIndex)
	}

	if err := checkEntries(entries, b.Size); err != nil {
		return nil, err
	}

	return &Index{
		sig: Signature{
			Comma:          h.Comma,
			Quote:          h.Quote,
			Comment:        h.Comment,
			SkipComments:   h.Flags&flagSkipComments != 0,
			SkipEmptyLines: h.Flags&flagSkipEmptyLines != 0,
			LazyQuotes:     h.Flags&flagLazyQuotes != 0,
			DetectBOM:      h.Flags&flagDetectBOM != 0,
			Encoding:       string(enc),
			BOMLength:      int(h.BOMLength),
		},
		size:        b.Size,
		fingerprint: b.Fingerprint,
		entries:     entries,
	}, nil
}

// checkEntries verifies that entries are strictly increasing, lie inside
// the source, and that lines never go backwards.
func checkEntries(entries []Entry, size int64) error {
	prev := Entry{Offset: -1, Line: 1}
	for i, e := range entries {
		if e.Offset <= prev.Offset || e.Offset >= size || e.Line < prev.Line {
			return fmt.Errorf("%w: entry %d (offset %d, line %d) out of order", ErrCorruptIndex, i, e.Offset, e.Line)
		}
		prev = e
	}
	return nil
}

func corrupt(err error, part string) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: truncated %s", ErrCorruptIndex, part)
	}
	return err
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
