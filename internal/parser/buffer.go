package parser

import "sync"

// bufferPool holds field buffers between parsers. A parser owns its buffer
// exclusively until it reaches a terminal state.
var bufferPool = sync.Pool{
	New: func() interface{} {
		b := make([]byte, 0, 64)
		return &b
	},
}

// maxPooledBuffer keeps a pathological field from pinning memory in the pool.
const maxPooledBuffer = 64 * 1024

// fieldBuffer accumulates the bytes of the field currently being assembled.
type fieldBuffer struct {
	buf []byte
	max int // 0 means unlimited
}

func newFieldBuffer(max int) fieldBuffer {
	p := bufferPool.Get().(*[]byte)
	return fieldBuffer{buf: (*p)[:0], max: max}
}

// appendString adds s and reports false if the field would exceed max.
func (b *fieldBuffer) appendString(s string) bool {
	if b.max > 0 && len(b.buf)+len(s) > b.max {
		return false
	}
	b.buf = append(b.buf, s...)
	return true
}

func (b *fieldBuffer) len() int {
	return len(b.buf)
}

// take returns the field and empties the buffer, keeping its capacity.
func (b *fieldBuffer) take() string {
	s := string(b.buf)
	b.buf = b.buf[:0]
	return s
}

// release hands the backing array back to the pool.
func (b *fieldBuffer) release() {
	if b.buf == nil {
		return
	}
	if cap(b.buf) <= maxPooledBuffer {
		buf := b.buf[:0]
		bufferPool.Put(&buf)
	}
	b.buf = nil
}
