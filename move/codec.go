package move

import (
	"bytes"
	"errors"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/oomph-ac/netmove/internal"
	"github.com/oomph-ac/netmove/oerror"
	"github.com/sandertv/gophertunnel/minecraft/protocol"
)

// Encode writes the record in its wire layout: version, sequence and delta time, followed by every
// optional field as a presence bool and, if present, its value. Fields equal to their declared
// default are omitted.
func Encode(r Record) []byte {
	buf := internal.GetBuffer()
	defer internal.PutBuffer(buf)

	w := protocol.NewWriter(buf, 0)
	if r.Version == 0 {
		r.Version = SchemaVersion
	}
	w.Uint8(&r.Version)
	w.Varuint32(&r.Sequence)
	w.Float32(&r.DeltaTime)

	writeOptional(w, r.Flags, 0, w.Uint8)
	writeOptional(w, r.WantsToLaunch, false, func(b *bool) { internal.Bool(w, b) })
	writeOptional(w, r.MaxCustomSpeed, DefaultMaxCustomSpeed, w.Float32)
	writeOptional(w, r.LaunchVelocity, mgl32.Vec3{}, w.Vec3)
	writeOptional(w, r.Acceleration, mgl32.Vec3{}, w.Vec3)
	writeOptional(w, r.PullTarget, mgl32.Vec3{}, w.Vec3)
	return internal.CopyBytes(buf)
}

// Decode reads a record written by Encode. Absent optional fields are set to their declared default.
// Bytes following the fields known to this version are ignored so that records written by newer
// versions can still be read. Decode never panics on malformed input.
func Decode(b []byte) (rec Record, err error) {
	defer func() {
		if v := recover(); v != nil {
			if e, ok := v.(error); ok && errors.Is(e, oerror.ErrMalformedRecord) {
				rec, err = Record{}, e
				return
			}
			rec, err = Record{}, oerror.New("%w: %v", oerror.ErrMalformedRecord, v)
		}
	}()

	r := protocol.NewReader(bytes.NewBuffer(b), 0, false)
	r.Uint8(&rec.Version)
	if rec.Version == 0 {
		return Record{}, oerror.New("%w: version %d", oerror.ErrUnsupportedVersion, rec.Version)
	}
	r.Varuint32(&rec.Sequence)
	r.Float32(&rec.DeltaTime)

	readOptional(r, &rec.Flags, 0, r.Uint8)
	readOptional(r, &rec.WantsToLaunch, false, func(b *bool) { internal.Bool(r, b) })
	readOptional(r, &rec.MaxCustomSpeed, DefaultMaxCustomSpeed, r.Float32)
	readOptional(r, &rec.LaunchVelocity, mgl32.Vec3{}, r.Vec3)
	readOptional(r, &rec.Acceleration, mgl32.Vec3{}, r.Vec3)
	readOptional(r, &rec.PullTarget, mgl32.Vec3{}, r.Vec3)
	return rec, nil
}

// writeOptional writes a presence bool followed by v if v differs from def.
func writeOptional[T comparable](w *protocol.Writer, v T, def T, f func(*T)) {
	present := v != def
	internal.Bool(w, &present)
	if present {
		f(&v)
	}
}

// readOptional reads a presence bool and, if set, the value. Otherwise v is set to def.
func readOptional[T any](r *protocol.Reader, v *T, def T, f func(*T)) {
	var present bool
	internal.Bool(r, &present)
	if !present {
		*v = def
		return
	}
	f(v)
}
