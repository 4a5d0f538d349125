package internal

import (
	"bytes"
	"sync"
)

// BufferPool holds buffers used when encoding records, states and frames.
var BufferPool = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, 64))
	},
}

// GetBuffer returns an empty buffer from the pool.
func GetBuffer() *bytes.Buffer {
	buf := BufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// PutBuffer returns buf to the pool.
func PutBuffer(buf *bytes.Buffer) {
	BufferPool.Put(buf)
}

// CopyBytes returns a copy of the buffer's contents that stays valid after the buffer is reused.
func CopyBytes(buf *bytes.Buffer) []byte {
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out
}
