package simulation

import (
	"github.com/chewxy/math32"
	"github.com/ethaniccc/float32-cube/cube"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/oomph-ac/netmove/movement"
)

// Options define the world the simulator moves bodies in.
type Options struct {
	// Gravity is the downwards acceleration, in units per second squared, applied outside of
	// ModeFlying and ModePulling.
	Gravity float32
	// GroundFriction and AirFriction are the fractions of horizontal velocity lost per second when no
	// input acceleration is given.
	GroundFriction float32
	AirFriction    float32

	FloorHeight   float32
	CeilingHeight float32

	// FlyingEnabled allows bodies to enter ModeFlying.
	FlyingEnabled bool

	BodyWidth  float32
	BodyHeight float32
}

// DefaultOptions returns the options of the default engine.
func DefaultOptions() Options {
	return Options{
		Gravity:        DefaultGravity,
		GroundFriction: DefaultGroundFriction,
		AirFriction:    DefaultAirFriction,
		FloorHeight:    DefaultFloorHeight,
		CeilingHeight:  DefaultCeilingHeight,
		FlyingEnabled:  true,
		BodyWidth:      DefaultBodyWidth,
		BodyHeight:     DefaultBodyHeight,
	}
}

// Simulator is the default movement.Engine. It moves bodies through an open world bounded by a floor
// and a ceiling. Z is the vertical axis.
//
// All arithmetic is done on float32 and every product is explicitly converted, which keeps the
// compiler from fusing multiply-adds. Results are therefore identical on every architecture.
type Simulator struct {
	Options Options
}

// NewSimulator returns a simulator using the options passed.
func NewSimulator(opts Options) *Simulator {
	return &Simulator{Options: opts}
}

// CanEnterMode refuses ModeFlying unless flying is enabled. Every other mode may be entered.
func (s *Simulator) CanEnterMode(mode movement.Mode) bool {
	return mode != movement.ModeFlying || s.Options.FlyingEnabled
}

// Integrate advances the body by dt seconds.
func (s *Simulator) Integrate(b movement.Body, dt float32, mode movement.Mode) movement.Body {
	if b.HasExternal {
		b.Vel = b.External
	} else {
		b.Vel = s.accelerate(b, dt, mode)
	}

	b.Pos = mgl32.Vec3{
		b.Pos[0] + float32(b.Vel[0]*dt),
		b.Pos[1] + float32(b.Vel[1]*dt),
		b.Pos[2] + float32(b.Vel[2]*dt),
	}
	s.collide(&b)
	return b
}

// accelerate applies input acceleration, gravity and friction to the velocity of the body.
func (s *Simulator) accelerate(b movement.Body, dt float32, mode movement.Mode) mgl32.Vec3 {
	vel := b.Vel
	vel[0] += float32(b.Accel[0] * dt)
	vel[1] += float32(b.Accel[1] * dt)
	if mode == movement.ModeFlying {
		vel[2] += float32(b.Accel[2] * dt)
	} else {
		vel[2] -= float32(s.Options.Gravity * dt)
	}

	if b.Accel[0] == 0 && b.Accel[1] == 0 {
		friction := s.Options.AirFriction
		if b.OnGround {
			friction = s.Options.GroundFriction
		}
		keep := math32.Max(0, 1-float32(friction*dt))
		vel[0], vel[1] = float32(vel[0]*keep), float32(vel[1]*keep)
		if mode == movement.ModeFlying {
			vel[2] = float32(vel[2] * keep)
		}
	}

	if hz := math32.Sqrt(float32(vel[0]*vel[0]) + float32(vel[1]*vel[1])); hz > b.MaxSpeed && hz > 0 {
		scale := b.MaxSpeed / hz
		vel[0], vel[1] = float32(vel[0]*scale), float32(vel[1]*scale)
	}
	return vel
}

// collide keeps the bounding box of the body between the floor and the ceiling.
func (s *Simulator) collide(b *movement.Body) {
	bb := s.BodyBox(b.Pos)
	floor, top := s.Options.FloorHeight, s.Options.CeilingHeight
	b.OnGround = false
	switch {
	case bb.Min().Z() < floor:
		b.Pos[2] = floor
		if b.Vel[2] < 0 {
			b.Vel[2] = 0
		}
		b.OnGround = b.Vel[2] == 0
	case bb.Min().Z() <= floor+GroundEpsilon:
		b.OnGround = b.Vel[2] <= 0
	case bb.Max().Z() > top:
		b.Pos[2] = top - s.Options.BodyHeight
		if b.Vel[2] > 0 {
			b.Vel[2] = 0
		}
	}
}

// BodyBox returns the bounding box of a body standing at pos.
func (s *Simulator) BodyBox(pos mgl32.Vec3) cube.BBox {
	h := s.Options.BodyWidth / 2
	return cube.Box(
		pos[0]-h, pos[1]-h, pos[2],
		pos[0]+h, pos[1]+h, pos[2]+s.Options.BodyHeight,
	)
}
