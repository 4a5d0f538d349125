package transport

import (
	"github.com/oomph-ac/netmove/internal"
	"github.com/oomph-ac/netmove/move"
	"github.com/oomph-ac/netmove/oerror"
)

// Kind is the first byte of every frame and tells what its payload holds.
type Kind byte

const (
	// FrameRecord frames hold a single encoded move.Record.
	FrameRecord Kind = iota + 1
	// FrameUpdate frames hold an encoded Update.
	FrameUpdate
)

// EncodeFrame prefixes the payload with its kind.
func EncodeFrame(kind Kind, payload []byte) []byte {
	buf := internal.GetBuffer()
	defer internal.PutBuffer(buf)

	buf.WriteByte(byte(kind))
	buf.Write(payload)
	return internal.CopyBytes(buf)
}

// DecodeFrame splits a frame into its kind and payload.
func DecodeFrame(b []byte) (Kind, []byte, error) {
	if len(b) == 0 {
		return 0, nil, oerror.New("%w: empty frame", oerror.ErrUnknownFrame)
	}
	switch kind := Kind(b[0]); kind {
	case FrameRecord, FrameUpdate:
		return kind, b[1:], nil
	default:
		return 0, nil, oerror.New("%w: %d", oerror.ErrUnknownFrame, kind)
	}
}

// RecordFrame encodes rec into a FrameRecord frame.
func RecordFrame(rec move.Record) []byte {
	return EncodeFrame(FrameRecord, move.Encode(rec))
}

// UpdateFrame encodes u into a FrameUpdate frame.
func UpdateFrame(u Update) []byte {
	return EncodeFrame(FrameUpdate, EncodeUpdate(u))
}
