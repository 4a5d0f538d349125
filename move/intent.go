package move

import "github.com/go-gl/mathgl/mgl32"

// Intent is the input snapshot of a single tick, as produced by the input mapping of the predicting
// side.
type Intent struct {
	Acceleration mgl32.Vec3

	WantsToFly  bool
	WantsToPull bool
	// PullTarget is the live position of the pull target.
	PullTarget mgl32.Vec3

	WantsToLaunch    bool
	LaunchVelocity   mgl32.Vec3
	LaunchOverrideXY bool
	LaunchOverrideZ  bool

	// MaxCustomSpeed is the requested speed cap. Zero requests DefaultMaxCustomSpeed.
	MaxCustomSpeed float32
	// CustomFlags holds four game specific bits.
	CustomFlags uint8
}

// Capture turns an intent snapshot into a record. It reads nothing but its arguments, so the same
// intent always yields the same record.
func Capture(intent Intent, sequence uint32, dt float32) Record {
	rec := Default()
	rec.Sequence = sequence
	rec.DeltaTime = dt
	rec.Acceleration = intent.Acceleration
	if intent.MaxCustomSpeed != 0 {
		rec.MaxCustomSpeed = intent.MaxCustomSpeed
	}

	rec.SetFlag(FlagWantsToFly, intent.WantsToFly)
	if intent.WantsToPull {
		rec.SetFlag(FlagWantsToPull, true)
		rec.PullTarget = intent.PullTarget
	}
	if intent.WantsToLaunch {
		rec.WantsToLaunch = true
		rec.LaunchVelocity = intent.LaunchVelocity
		rec.SetFlag(FlagLaunchOverrideXY, intent.LaunchOverrideXY)
		rec.SetFlag(FlagLaunchOverrideZ, intent.LaunchOverrideZ)
	}
	rec.Flags |= (intent.CustomFlags << FlagCustom0) & customFlagMask
	return rec
}
