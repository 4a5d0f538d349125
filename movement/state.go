package movement

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/oomph-ac/netmove/internal"
	"github.com/sandertv/gophertunnel/minecraft/protocol"
)

// State is the full movement state of an entity. It is a value: the executor returns a new State
// for every record rather than changing the one passed.
type State struct {
	Pos mgl32.Vec3
	Vel mgl32.Vec3

	OnGround bool
	// Flying is maintained by the enter and exit hooks of ModeFlying.
	Flying bool
	// PullSpeed is the current drag speed while in ModePulling.
	PullSpeed float32

	// PendingLaunch is the velocity that will be set on the next call to Executor.Advance if
	// HasPendingLaunch is true.
	PendingLaunch    mgl32.Vec3
	HasPendingLaunch bool

	mode Mode
}

// NewState returns a state at the given position in the given mode. Enter hooks are not run.
func NewState(pos mgl32.Vec3, mode Mode) State {
	return State{Pos: pos, mode: mode}
}

// Mode returns the active movement mode.
func (s State) Mode() Mode {
	return s.mode
}

// Marshal encodes or decodes the state. Bool bytes other than 0 and 1 are rejected when decoding.
func (s *State) Marshal(io protocol.IO) {
	io.Vec3(&s.Pos)
	io.Vec3(&s.Vel)
	internal.Bool(io, &s.OnGround)
	internal.Bool(io, &s.Flying)
	io.Float32(&s.PullSpeed)
	internal.Bool(io, &s.HasPendingLaunch)
	if s.HasPendingLaunch {
		io.Vec3(&s.PendingLaunch)
	}
	io.Uint8((*uint8)(&s.mode))
}
