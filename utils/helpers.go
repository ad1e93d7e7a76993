// Package utils holds small pooled-buffer helpers shared by the decode
// adapters (adapters/decoder, adapters/vips) for draining a source reader
// before handing the bytes to an image codec.
package utils

import "bytes"

// CloneBytes returns a copy of b, safe to keep after the source buffer is
// released back to the pool.
func CloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// BytesReader creates an io.Reader backed by b without allocation.
func BytesReader(b []byte) *bytes.Reader {
	return bytes.NewReader(b)
}
