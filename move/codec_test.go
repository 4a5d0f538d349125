package move

import (
	"bytes"
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/oomph-ac/netmove/oerror"
	"github.com/sandertv/gophertunnel/minecraft/protocol"
	"github.com/stretchr/testify/require"
)

// header writes a record header followed by the given amount of absent optional fields.
func header(version uint8, seq uint32, dt float32, absent int) *bytes.Buffer {
	buf := bytes.NewBuffer(nil)
	w := protocol.NewWriter(buf, 0)
	w.Uint8(&version)
	w.Varuint32(&seq)
	w.Float32(&dt)
	for range absent {
		f := false
		w.Bool(&f)
	}
	return buf
}

func TestDecodeAbsentFieldsYieldDefaults(t *testing.T) {
	rec, err := Decode(header(SchemaVersion, 7, 0.05, 6).Bytes())
	require.NoError(t, err)
	require.Equal(t, uint32(7), rec.Sequence)
	require.Equal(t, float32(0.05), rec.DeltaTime)
	require.Equal(t, DefaultMaxCustomSpeed, rec.MaxCustomSpeed)
	require.False(t, rec.WantsToLaunch)
	require.Zero(t, rec.Flags)
	require.Equal(t, mgl32.Vec3{}, rec.LaunchVelocity)
}

func TestEncodeOmitsDefaults(t *testing.T) {
	rec := Default()
	rec.Sequence = 7
	rec.DeltaTime = 0.05

	require.Equal(t, header(SchemaVersion, 7, 0.05, 6).Bytes(), Encode(rec))
}

func TestEncodeDecodePresentFields(t *testing.T) {
	rec := Capture(Intent{
		Acceleration:    mgl32.Vec3{1, 2, 0},
		WantsToPull:     true,
		PullTarget:      mgl32.Vec3{100, 0, 50},
		WantsToLaunch:   true,
		LaunchVelocity:  mgl32.Vec3{0, 0, 500},
		LaunchOverrideZ: true,
		MaxCustomSpeed:  5000,
		CustomFlags:     0b0101,
	}, 42, 1.0/60)

	decoded, err := Decode(Encode(rec))
	require.NoError(t, err)
	require.Equal(t, rec, decoded)
	require.True(t, decoded.HasFlag(FlagCustom0))
	require.False(t, decoded.HasFlag(FlagCustom1))
	require.True(t, decoded.HasFlag(FlagCustom2))
	require.Equal(t, uint8(0b0101), decoded.CustomFlags())
}

func TestDecodeMalformed(t *testing.T) {
	_, err := Decode(nil)
	require.True(t, errors.Is(err, oerror.ErrMalformedRecord))

	full := Encode(Capture(Intent{Acceleration: mgl32.Vec3{1, 0, 0}}, 3, 0.1))
	for i := 1; i < len(full); i++ {
		_, err := Decode(full[:i])
		require.Truef(t, errors.Is(err, oerror.ErrMalformedRecord), "truncated to %d bytes: %v", i, err)
	}

	_, err = Decode(header(0, 1, 0.1, 6).Bytes())
	require.True(t, errors.Is(err, oerror.ErrUnsupportedVersion))
}

func TestDecodeIgnoresTrailingFields(t *testing.T) {
	buf := header(SchemaVersion+1, 9, 0.1, 6)
	buf.Write([]byte{1, 0xde, 0xad})

	rec, err := Decode(buf.Bytes())
	require.NoError(t, err)
	require.Equal(t, SchemaVersion+1, rec.Version)
	require.Equal(t, uint32(9), rec.Sequence)
}

func TestDecodeRejectsNonCanonicalBool(t *testing.T) {
	// Flags absent, WantsToLaunch present with a value byte of 2.
	buf := header(SchemaVersion, 5, 0.05, 1)
	buf.Write([]byte{1, 2, 0, 0, 0, 0})
	_, err := Decode(buf.Bytes())
	require.True(t, errors.Is(err, oerror.ErrMalformedRecord), "value byte: %v", err)

	// Presence byte of 2 for Flags.
	buf = header(SchemaVersion, 5, 0.05, 0)
	buf.Write([]byte{2, 0, 0, 0, 0, 0, 0})
	_, err = Decode(buf.Bytes())
	require.True(t, errors.Is(err, oerror.ErrMalformedRecord), "presence byte: %v", err)

	canonical := header(SchemaVersion, 5, 0.05, 1)
	canonical.Write([]byte{1, 1, 0, 0, 0, 0})
	rec, err := Decode(canonical.Bytes())
	require.NoError(t, err)
	require.True(t, rec.WantsToLaunch)
	require.Equal(t, canonical.Bytes(), Encode(rec))
}
