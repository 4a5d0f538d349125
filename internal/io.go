package internal

import (
	"github.com/oomph-ac/netmove/oerror"
	"github.com/sandertv/gophertunnel/minecraft/protocol"
)

// Bool reads or writes a bool as a single byte that must be 0 or 1. protocol.Reader.Bool accepts any
// byte, which would let two encodings of the same value exist. Reading any other byte panics with
// ErrMalformedRecord, to be recovered by the decoder.
func Bool(io protocol.IO, b *bool) {
	var v uint8
	if *b {
		v = 1
	}
	io.Uint8(&v)
	if v > 1 {
		panic(oerror.New("%w: bool byte %#x", oerror.ErrMalformedRecord, v))
	}
	*b = v == 1
}
