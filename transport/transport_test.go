package transport

import (
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/oomph-ac/netmove/move"
	"github.com/oomph-ac/netmove/movement"
	"github.com/oomph-ac/netmove/oerror"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/xxh3"
)

func TestFrames(t *testing.T) {
	rec := move.Capture(move.Intent{Acceleration: mgl32.Vec3{1, 0, 0}}, 5, 0.05)
	kind, payload, err := DecodeFrame(RecordFrame(rec))
	require.NoError(t, err)
	require.Equal(t, FrameRecord, kind)
	decoded, err := move.Decode(payload)
	require.NoError(t, err)
	require.Equal(t, rec, decoded)

	_, _, err = DecodeFrame(nil)
	require.True(t, errors.Is(err, oerror.ErrUnknownFrame))
	_, _, err = DecodeFrame([]byte{0x7f, 1, 2})
	require.True(t, errors.Is(err, oerror.ErrUnknownFrame))
}

func TestUpdateChecksum(t *testing.T) {
	s := movement.NewState(mgl32.Vec3{1, 2, 3}, movement.ModePulling)
	s.Vel = mgl32.Vec3{4, 5, 6}
	s.PendingLaunch, s.HasPendingLaunch = mgl32.Vec3{0, 0, 500}, true

	u := NewUpdate(99, s)
	kind, payload, err := DecodeFrame(UpdateFrame(u))
	require.NoError(t, err)
	require.Equal(t, FrameUpdate, kind)

	decoded, err := DecodeUpdate(payload)
	require.NoError(t, err)
	require.Equal(t, u, decoded)
	require.Equal(t, movement.ModePulling, decoded.State.Mode())

	s.Pos[0] = 1.5
	require.NotEqual(t, u.Checksum, StateChecksum(s))

	tampered := EncodeUpdate(Update{Sequence: 99, State: s, Checksum: u.Checksum})
	_, err = DecodeUpdate(tampered)
	require.True(t, errors.Is(err, oerror.ErrMalformedRecord))

	_, err = DecodeUpdate(payload[:len(payload)-3])
	require.True(t, errors.Is(err, oerror.ErrMalformedRecord))
}

func drain(c Conn) [][]byte {
	var out [][]byte
	for {
		b, ok, err := c.ReadPacket()
		if err != nil || !ok {
			return out
		}
		out = append(out, b)
	}
}

func TestDecodeUpdateRejectsNonCanonicalBool(t *testing.T) {
	b := EncodeUpdate(NewUpdate(3, movement.NewState(mgl32.Vec3{1, 2, 3}, movement.ModeFalling)))
	// Sequence (1 byte), position and velocity (12 bytes each), then OnGround.
	const onGround = 1 + 12 + 12
	require.Zero(t, b[onGround])
	b[onGround] = 2

	// Recompute the checksum over the tampered state so only the bool byte is wrong.
	state := b[1 : len(b)-8]
	sum := xxh3.Hash(state)
	for i := range 8 {
		b[len(b)-8+i] = byte(sum >> (8 * i))
	}

	_, err := DecodeUpdate(b)
	require.True(t, errors.Is(err, oerror.ErrMalformedRecord), "%v", err)
}

func TestLinkLatency(t *testing.T) {
	link := NewLink(LinkOptions{Latency: 2})
	a, b := link.Ends()

	require.NoError(t, a.WritePacket([]byte{1}))
	require.Empty(t, drain(b))
	link.Tick()
	require.Empty(t, drain(b))
	link.Tick()
	require.Equal(t, [][]byte{{1}}, drain(b))

	require.NoError(t, b.WritePacket([]byte{2}))
	link.Tick()
	link.Tick()
	require.Equal(t, [][]byte{{2}}, drain(a))
}

func TestLinkWithoutLatencyDeliversImmediately(t *testing.T) {
	link := NewLink(LinkOptions{})
	a, b := link.Ends()
	buf := []byte{1, 2}
	require.NoError(t, a.WritePacket(buf))
	buf[0] = 9
	require.Equal(t, [][]byte{{1, 2}}, drain(b))
}

func TestLinkConditionsAreDeterministic(t *testing.T) {
	run := func() [][]byte {
		link := NewLink(LinkOptions{Latency: 1, Jitter: 3, Loss: 0.2, Duplicate: 0.2, Seed: 7})
		a, b := link.Ends()
		var got [][]byte
		for i := range 200 {
			require.NoError(t, a.WritePacket([]byte{byte(i)}))
			link.Tick()
			got = append(got, drain(b)...)
		}
		for range 5 {
			link.Tick()
			got = append(got, drain(b)...)
		}
		return got
	}

	first := run()
	require.Equal(t, first, run())
	require.NotEqual(t, 200, len(first), "loss and duplication should change the packet count")

	reordered := false
	for i := 1; i < len(first); i++ {
		if first[i][0] < first[i-1][0] {
			reordered = true
		}
	}
	require.True(t, reordered)
}

func TestPipeClose(t *testing.T) {
	link := NewLink(LinkOptions{})
	a, b := link.Ends()
	require.NoError(t, b.Close())
	require.NoError(t, a.WritePacket([]byte{1}))
	_, _, err := b.ReadPacket()
	require.True(t, errors.Is(err, oerror.ErrClosed))
	require.True(t, errors.Is(b.WritePacket([]byte{1}), oerror.ErrClosed))
}

type fakePacketConn struct {
	in      chan []byte
	written [][]byte
}

func (f *fakePacketConn) ReadPacket() ([]byte, error) {
	b, ok := <-f.in
	if !ok {
		return nil, io.EOF
	}
	return b, nil
}

func (f *fakePacketConn) Write(b []byte) (int, error) {
	f.written = append(f.written, b)
	return len(b), nil
}

func (f *fakePacketConn) Close() error { return nil }

func (f *fakePacketConn) RemoteAddr() net.Addr {
	return &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 19132}
}

func TestRakNetConnQueuesPackets(t *testing.T) {
	f := &fakePacketConn{in: make(chan []byte)}
	c := newRakNetConn(f, logrus.New())

	_, ok, err := c.ReadPacket()
	require.NoError(t, err)
	require.False(t, ok)

	f.in <- []byte{1, 2, 3}
	var b []byte
	require.Eventually(t, func() bool {
		b, ok, err = c.ReadPacket()
		return ok
	}, time.Second, time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, b)

	require.NoError(t, c.WritePacket([]byte{4}))
	require.Equal(t, [][]byte{{4}}, f.written)

	close(f.in)
	require.Eventually(t, func() bool {
		_, _, err = c.ReadPacket()
		return err != nil
	}, time.Second, time.Millisecond)
	require.True(t, errors.Is(err, io.EOF))

	require.NoError(t, c.Close())
	require.True(t, errors.Is(c.WritePacket([]byte{5}), oerror.ErrClosed))
}
