package transport

import (
	"bytes"

	"github.com/oomph-ac/netmove/internal"
	"github.com/oomph-ac/netmove/movement"
	"github.com/oomph-ac/netmove/oerror"
	"github.com/sandertv/gophertunnel/minecraft/protocol"
	"github.com/zeebo/xxh3"
)

// Update is the authoritative result of applying the record with the given sequence.
type Update struct {
	Sequence uint32
	State    movement.State
	// Checksum is the xxh3 hash of the encoded state. Equal checksums allow the predicting side to
	// acknowledge without comparing every field.
	Checksum uint64
}

// NewUpdate returns an update for the state with its checksum filled out.
func NewUpdate(sequence uint32, state movement.State) Update {
	return Update{Sequence: sequence, State: state, Checksum: StateChecksum(state)}
}

// StateChecksum returns the xxh3 hash of the encoded state.
func StateChecksum(state movement.State) uint64 {
	buf := internal.GetBuffer()
	defer internal.PutBuffer(buf)

	state.Marshal(protocol.NewWriter(buf, 0))
	return xxh3.Hash(buf.Bytes())
}

// EncodeUpdate encodes the update as sequence, state and checksum.
func EncodeUpdate(u Update) []byte {
	buf := internal.GetBuffer()
	defer internal.PutBuffer(buf)

	w := protocol.NewWriter(buf, 0)
	w.Varuint32(&u.Sequence)
	u.State.Marshal(w)
	w.Uint64(&u.Checksum)
	return internal.CopyBytes(buf)
}

// DecodeUpdate decodes an update and verifies its checksum.
func DecodeUpdate(b []byte) (u Update, err error) {
	defer func() {
		if v := recover(); v != nil {
			u, err = Update{}, oerror.New("%w: update: %v", oerror.ErrMalformedRecord, v)
		}
	}()

	r := protocol.NewReader(bytes.NewBuffer(b), 0, false)
	r.Varuint32(&u.Sequence)
	u.State.Marshal(r)
	r.Uint64(&u.Checksum)
	if sum := StateChecksum(u.State); sum != u.Checksum {
		return Update{}, oerror.New("%w: update checksum %x does not match state %x", oerror.ErrMalformedRecord, u.Checksum, sum)
	}
	return u, nil
}
