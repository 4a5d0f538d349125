package move

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/oomph-ac/netmove/utils"
)

// SchemaVersion is the version of the record layout written by Encode.
const SchemaVersion uint8 = 1

// DefaultMaxCustomSpeed is the declared default of Record.MaxCustomSpeed. A record that omits the
// field on the wire decodes with this value.
const DefaultMaxCustomSpeed float32 = 800

// Bits of Record.Flags. Use Record.HasFlag to test them.
const (
	FlagWantsToFly uint32 = iota
	FlagWantsToPull
	FlagLaunchOverrideXY
	FlagLaunchOverrideZ
	FlagCustom0
	FlagCustom1
	FlagCustom2
	FlagCustom3
)

// customFlagMask covers FlagCustom0 through FlagCustom3.
const customFlagMask uint8 = 0xf0

// Record is the movement intent of one or more simulation ticks. A record is never modified once it
// has been sent; only unsent records may be combined.
type Record struct {
	// Version is the schema version the record was written with.
	Version uint8
	// Sequence increases by one for every sampled tick. A combined record carries the newest
	// sequence it covers.
	Sequence uint32
	// DeltaTime is the amount of time, in seconds, the record covers.
	DeltaTime float32

	// Flags holds the boolean intent bits, see FlagWantsToFly and friends.
	Flags uint8
	// WantsToLaunch is set if an impulse was requested on this tick. The impulse is applied on the
	// next tick.
	WantsToLaunch bool

	// MaxCustomSpeed is the horizontal speed cap requested by the predicting side. The
	// authoritative side clamps it before use.
	MaxCustomSpeed float32
	// LaunchVelocity is the requested impulse. Only meaningful when WantsToLaunch is set.
	LaunchVelocity mgl32.Vec3
	// Acceleration is the input acceleration vector.
	Acceleration mgl32.Vec3
	// PullTarget is the point the entity is dragged towards while pulling, sampled when the record
	// was captured.
	PullTarget mgl32.Vec3
}

// Default returns a record holding the declared default of every optional field.
func Default() Record {
	return Record{Version: SchemaVersion, MaxCustomSpeed: DefaultMaxCustomSpeed}
}

// HasFlag returns whether the given flag bit is set.
func (r Record) HasFlag(flag uint32) bool {
	return utils.HasFlag(uint64(r.Flags), flag)
}

// SetFlag sets or clears the given flag bit.
func (r *Record) SetFlag(flag uint32, v bool) {
	if v {
		r.Flags |= 1 << flag
	} else {
		r.Flags &^= 1 << flag
	}
}

// WantsToFly ...
func (r Record) WantsToFly() bool {
	return r.HasFlag(FlagWantsToFly)
}

// WantsToPull ...
func (r Record) WantsToPull() bool {
	return r.HasFlag(FlagWantsToPull)
}

// CustomFlags returns the four custom flag bits, FlagCustom0 being the lowest.
func (r Record) CustomFlags() uint8 {
	return (r.Flags & customFlagMask) >> FlagCustom0
}

// IntentEquals reports whether every field that affects the outcome of the movement is equal in
// both records. Version, Sequence and DeltaTime are not compared.
func (r Record) IntentEquals(o Record) bool {
	return r.Flags == o.Flags &&
		r.WantsToLaunch == o.WantsToLaunch &&
		r.MaxCustomSpeed == o.MaxCustomSpeed &&
		r.LaunchVelocity == o.LaunchVelocity &&
		r.Acceleration == o.Acceleration &&
		r.PullTarget == o.PullTarget
}
