package pool

import (
	"io"
	"sync"
)

// CopyBufferSize is the size of the buffers handed out by the pool (256KB).
const CopyBufferSize = 256 * 1024

var buffers = sync.Pool{
	New: func() any {
		buf := make([]byte, CopyBufferSize)
		return &buf
	},
}

// Get returns a CopyBufferSize buffer. Return it with Put.
func Get() *[]byte {
	return buffers.Get().(*[]byte)
}

// Put returns buf to the pool. Buffers of another size are dropped.
func Put(buf *[]byte) {
	if buf == nil || cap(*buf) != CopyBufferSize {
		return
	}
	*buf = (*buf)[:CopyBufferSize]
	buffers.Put(buf)
}

// Copy copies src to dst through a pooled buffer.
func Copy(dst io.Writer, src io.Reader) (int64, error) {
	buf := Get()
	defer Put(buf)
	return io.CopyBuffer(dst, src, *buf)
}
