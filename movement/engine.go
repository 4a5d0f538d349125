package movement

import "github.com/go-gl/mathgl/mgl32"

// Body is the part of the movement state an Engine integrates.
type Body struct {
	Pos mgl32.Vec3
	Vel mgl32.Vec3
	// Accel is the input acceleration of the record.
	Accel mgl32.Vec3
	// External, if HasExternal is set, replaces the velocity for this tick. It is used by drag
	// modes such as ModePulling.
	External    mgl32.Vec3
	HasExternal bool
	// MaxSpeed caps the horizontal speed produced by Accel.
	MaxSpeed float32
	OnGround bool
}

// Engine advances bodies. Implementations must be deterministic: the same body, delta time and
// mode must always yield the same result on every machine.
type Engine interface {
	// Integrate advances the body by dt seconds in the given mode.
	Integrate(body Body, dt float32, mode Mode) Body
	// CanEnterMode reports whether the engine supports the given mode.
	CanEnterMode(mode Mode) bool
}
