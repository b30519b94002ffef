package scanner

import "sync"

// blockSize is the read granularity of Scan.
const blockSize = 64 * 1024

// blockPool recycles read blocks between scans.
var blockPool = sync.Pool{
	New: func() interface{} {
		b := make([]byte, blockSize)
		return &b
	},
}

// getBlock gets a read block from the pool.
func getBlock() *[]byte {
	return blockPool.Get().(*[]byte)
}

// putBlock returns a block to the pool. Blocks of another size are dropped.
func putBlock(b *[]byte) {
	if cap(*b) != blockSize {
		return
	}
	*b = (*b)[:blockSize]
	blockPool.Put(b)
}
