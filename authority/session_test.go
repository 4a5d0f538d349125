package authority

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/oomph-ac/netmove/move"
	"github.com/oomph-ac/netmove/movement"
	"github.com/oomph-ac/netmove/oerror"
	"github.com/oomph-ac/netmove/simulation"
	"github.com/oomph-ac/netmove/transport"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

const dt = float32(1.0 / 64)

func newSession(conn transport.Conn) *Session {
	return NewSession("test", conn, simulation.NewSimulator(simulation.DefaultOptions()), movement.DefaultOptions(),
		movement.NewState(mgl32.Vec3{0, 0, 100}, movement.ModeFalling), logrus.New())
}

func encode(seq uint32, intent move.Intent) []byte {
	return move.Encode(move.Capture(intent, seq, dt))
}

func TestSessionRejectsDuplicatesAndReordering(t *testing.T) {
	s := newSession(nil)

	u, err := s.HandleRecord(encode(1, move.Intent{}))
	require.NoError(t, err)
	require.Equal(t, uint32(1), u.Sequence)

	_, err = s.HandleRecord(encode(3, move.Intent{}))
	require.NoError(t, err)
	state := s.State()

	_, err = s.HandleRecord(encode(3, move.Intent{Acceleration: mgl32.Vec3{100, 0, 0}}))
	require.True(t, errors.Is(err, oerror.ErrDuplicateRecord))
	_, err = s.HandleRecord(encode(2, move.Intent{Acceleration: mgl32.Vec3{100, 0, 0}}))
	require.True(t, errors.Is(err, oerror.ErrOutOfOrder))

	require.Equal(t, state, s.State(), "rejected records must not be applied")
	require.Equal(t, uint32(3), s.LastSequence())
	require.Equal(t, Stats{Applied: 2, Duplicates: 1, OutOfOrder: 1}, s.Stats())
}

func TestSessionDropsMalformedRecords(t *testing.T) {
	s := newSession(nil)
	_, err := s.HandleRecord(encode(1, move.Intent{}))
	require.NoError(t, err)
	state := s.State()

	for _, b := range [][]byte{nil, {1}, {0, 2, 0, 0, 0, 0}, encode(2, move.Intent{Acceleration: mgl32.Vec3{1, 2, 3}})[:9]} {
		_, err := s.HandleRecord(b)
		require.Error(t, err)
	}
	require.Equal(t, state, s.State())
	require.Equal(t, uint64(4), s.Stats().Malformed)

	require.Error(t, s.HandlePacket(transport.UpdateFrame(transport.NewUpdate(1, state))))
	require.True(t, errors.Is(s.HandlePacket([]byte{0xff}), oerror.ErrUnknownFrame))
}

func TestSessionClampsUnsafeFields(t *testing.T) {
	s := newSession(nil)
	var u transport.Update
	for seq := uint32(1); seq <= 128; seq++ {
		var err error
		u, err = s.HandleRecord(encode(seq, move.Intent{Acceleration: mgl32.Vec3{4000, 0, 0}, MaxCustomSpeed: 5000}))
		require.NoError(t, err)
	}
	v := u.State.Vel
	require.InDelta(t, 800, mgl32.Vec2{v.X(), v.Y()}.Len(), 1e-2)
	require.Equal(t, uint64(128), s.Stats().Clamped)
}

func TestSessionFlushSendsNewestUpdate(t *testing.T) {
	link := transport.NewLink(transport.LinkOptions{})
	client, server := link.Ends()
	s := newSession(server)

	for seq := uint32(1); seq <= 3; seq++ {
		require.NoError(t, client.WritePacket(transport.RecordFrame(move.Capture(move.Intent{}, seq, dt))))
	}
	require.NoError(t, client.WritePacket([]byte{0xff}))
	require.NoError(t, s.Process())

	b, ok, err := client.ReadPacket()
	require.NoError(t, err)
	require.True(t, ok)
	_, ok, _ = client.ReadPacket()
	require.False(t, ok, "only the newest update is sent")

	kind, payload, err := transport.DecodeFrame(b)
	require.NoError(t, err)
	require.Equal(t, transport.FrameUpdate, kind)
	u, err := transport.DecodeUpdate(payload)
	require.NoError(t, err)
	require.Equal(t, uint32(3), u.Sequence)
	require.Equal(t, s.State(), u.State)

	require.NoError(t, s.Process())
	_, ok, _ = client.ReadPacket()
	require.False(t, ok, "nothing new to flush")
}
