package transport

import (
	"sync"

	"github.com/ShreyPatel4/FastLane-NVMe/internal/constants"
)

// Pooled staging buffers for transport data paths. Size-bucketed with
// power-of-2 sizes (64KB through 1MB) to balance memory efficiency with
// allocation reduction; 1MB matches the largest transfer a descriptor may
// request. Uses the *[]byte pattern to avoid sync.Pool interface allocation
// overhead.

// Buffer size thresholds
const (
	size64k  = 64 * 1024
	size128k = 128 * 1024
	size256k = 256 * 1024
	size512k = 512 * 1024
	size1m   = constants.TransferBufferSize
)

// stagingPool is the shared buffer pool for all transports.
var stagingPool = struct {
	pool64k  sync.Pool
	pool128k sync.Pool
	pool256k sync.Pool
	pool512k sync.Pool
	pool1m   sync.Pool
}{
	pool64k:  sync.Pool{New: func() any { b := make([]byte, size64k); return &b }},
	pool128k: sync.Pool{New: func() any { b := make([]byte, size128k); return &b }},
	pool256k: sync.Pool{New: func() any { b := make([]byte, size256k); return &b }},
	pool512k: sync.Pool{New: func() any { b := make([]byte, size512k); return &b }},
	pool1m:   sync.Pool{New: func() any { b := make([]byte, size1m); return &b }},
}

// GetBuffer returns a pooled buffer of at least the requested size.
// Caller must call PutBuffer when done. Requests above 1MB fall back to a
// plain allocation that is never pooled.
func GetBuffer(size uint32) []byte {
	switch {
	case size <= size64k:
		return (*stagingPool.pool64k.Get().(*[]byte))[:size]
	case size <= size128k:
		return (*stagingPool.pool128k.Get().(*[]byte))[:size]
	case size <= size256k:
		return (*stagingPool.pool256k.Get().(*[]byte))[:size]
	case size <= size512k:
		return (*stagingPool.pool512k.Get().(*[]byte))[:size]
	case size <= size1m:
		return (*stagingPool.pool1m.Get().(*[]byte))[:size]
	default:
		return make([]byte, size)
	}
}

// PutBuffer returns a buffer to the pool.
// The buffer's capacity determines which pool it goes to.
func PutBuffer(buf []byte) {
	c := cap(buf)
	// Restore full capacity before returning to pool
	buf = buf[:c]
	switch c {
	case size64k:
		stagingPool.pool64k.Put(&buf)
	case size128k:
		stagingPool.pool128k.Put(&buf)
	case size256k:
		stagingPool.pool256k.Put(&buf)
	case size512k:
		stagingPool.pool512k.Put(&buf)
	case size1m:
		stagingPool.pool1m.Put(&buf)
		// Buffers with non-standard capacity are not returned to pool
	}
}
