package movement

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/oomph-ac/netmove/game"
	"github.com/oomph-ac/netmove/move"
)

// Bounds are the limits the authoritative executor clamps untrusted record fields to.
type Bounds struct {
	MaxCustomSpeed  float32
	MaxLaunchSpeed  float32
	MaxAcceleration float32
	MaxDeltaTime    float32
	MaxPullRange    float32
}

// DefaultBounds returns the bounds authoritative executors clamp to unless configured otherwise.
func DefaultBounds() Bounds {
	return Bounds{
		MaxCustomSpeed:  move.DefaultMaxCustomSpeed,
		MaxLaunchSpeed:  3000,
		MaxAcceleration: 4096,
		MaxDeltaTime:    0.25,
		MaxPullRange:    5000,
	}
}

// Tick is a record after sanitising, together with the delta time it is advanced by.
type Tick struct {
	move.Record
	// Delta is the time, in seconds, the tick is advanced by.
	Delta float32
}

// Field names passed to Options.OnClamp.
const (
	FieldDeltaTime      = "delta_time"
	FieldMaxCustomSpeed = "max_custom_speed"
	FieldLaunchVelocity = "launch_velocity"
	FieldAcceleration   = "acceleration"
	FieldPullTarget     = "pull_target"
)

// sanitise replaces values that are NaN or infinite on both sides. On the authoritative side every
// field that affects the outcome is also clamped to the bounds.
func (x *Executor) sanitise(s State, rec move.Record, dt float32) Tick {
	t := Tick{Record: rec, Delta: game.Sanitize(dt, 0)}
	t.MaxCustomSpeed = game.Sanitize(rec.MaxCustomSpeed, move.DefaultMaxCustomSpeed)
	t.LaunchVelocity = game.SanitizeVec3(rec.LaunchVelocity, mgl32.Vec3{})
	t.Acceleration = game.SanitizeVec3(rec.Acceleration, mgl32.Vec3{})
	t.PullTarget = game.SanitizeVec3(rec.PullTarget, s.Pos)
	if t.Delta < 0 {
		t.Delta = 0
	}
	if t.MaxCustomSpeed < 0 {
		t.MaxCustomSpeed = 0
	}
	if !x.opts.Authoritative {
		return t
	}

	b := x.opts.Bounds
	if t.Delta > b.MaxDeltaTime {
		t.Delta = b.MaxDeltaTime
		x.clamped(FieldDeltaTime, dt)
	}
	if t.MaxCustomSpeed > b.MaxCustomSpeed {
		t.MaxCustomSpeed = b.MaxCustomSpeed
		x.clamped(FieldMaxCustomSpeed, rec.MaxCustomSpeed)
	}
	if l := t.LaunchVelocity.Len(); l > b.MaxLaunchSpeed {
		t.LaunchVelocity = game.ClampLen(t.LaunchVelocity, b.MaxLaunchSpeed)
		x.clamped(FieldLaunchVelocity, l)
	}
	if l := t.Acceleration.Len(); l > b.MaxAcceleration {
		t.Acceleration = game.ClampLen(t.Acceleration, b.MaxAcceleration)
		x.clamped(FieldAcceleration, l)
	}
	if rel := t.PullTarget.Sub(s.Pos); t.WantsToPull() && rel.Len() > b.MaxPullRange {
		t.PullTarget = s.Pos.Add(game.ClampLen(rel, b.MaxPullRange))
		x.clamped(FieldPullTarget, rel.Len())
	}
	return t
}

func (x *Executor) clamped(field string, requested any) {
	if x.opts.OnClamp != nil {
		x.opts.OnClamp(field, requested)
	}
}
