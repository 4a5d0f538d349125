package movement

import "fmt"

// Mode is a movement mode. Exactly one mode is active per State and it is only ever changed through
// Executor.RequestMode.
type Mode uint8

const (
	// ModeNone disables movement. Records advanced in this mode have no effect.
	ModeNone Mode = iota
	ModeGrounded
	ModeFalling
	// ModeFlying is only entered if the Engine allows it.
	ModeFlying
	// ModePulling drags the entity towards the pull target of the record.
	ModePulling
	// ModeCustom is the first mode available for WithCustomMode.
	ModeCustom
)

func (m Mode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModeGrounded:
		return "grounded"
	case ModeFalling:
		return "falling"
	case ModeFlying:
		return "flying"
	case ModePulling:
		return "pulling"
	}
	return fmt.Sprintf("custom(%d)", m-ModeCustom)
}

// Hook is called when a mode is entered or exited. It may modify the state passed, but must not
// change its mode.
type Hook func(s *State)

// TickFunc moves the entity for a single record in a specific mode.
type TickFunc func(x *Executor, s *State, rec Tick)

// modeFuncs holds the hooks and tick function of a single mode.
type modeFuncs struct {
	enter, exit Hook
	tick        TickFunc
	registered  bool
}

// ModeObserver is notified of mode transitions. It can only observe them: the state passed is a copy.
type ModeObserver interface {
	HandleModeExit(s State, from, to Mode)
	HandleModeEnter(s State, from, to Mode)
}

// NopModeObserver implements ModeObserver and does nothing.
type NopModeObserver struct{}

func (NopModeObserver) HandleModeExit(State, Mode, Mode)  {}
func (NopModeObserver) HandleModeEnter(State, Mode, Mode) {}

func builtinModes() [256]modeFuncs {
	var modes [256]modeFuncs
	modes[ModeNone] = modeFuncs{registered: true}
	modes[ModeGrounded] = modeFuncs{
		enter: func(s *State) {
			s.OnGround = true
			if s.Vel[2] < 0 {
				s.Vel[2] = 0
			}
		},
		tick:       tickIntegrate,
		registered: true,
	}
	modes[ModeFalling] = modeFuncs{tick: tickIntegrate, registered: true}
	modes[ModeFlying] = modeFuncs{
		enter:      func(s *State) { s.Flying = true },
		exit:       func(s *State) { s.Flying = false },
		tick:       tickIntegrate,
		registered: true,
	}
	modes[ModePulling] = modeFuncs{
		enter:      func(s *State) { s.PullSpeed = s.Vel.Len() },
		exit:       func(s *State) { s.PullSpeed = 0 },
		tick:       tickPull,
		registered: true,
	}
	return modes
}
