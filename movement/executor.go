package movement

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/oomph-ac/netmove/assert"
	"github.com/oomph-ac/netmove/move"
)

// Options define executor behaviour.
type Options struct {
	// Authoritative executors clamp every untrusted record field to Bounds before use. Predicting
	// executors use the values of their own records as they are.
	Authoritative bool
	Bounds        Bounds

	// PullAcceleration is the rate, in units per second squared, the drag speed of ModePulling
	// increases by.
	PullAcceleration float32
	// PullMaxSpeed caps the drag speed of ModePulling.
	PullMaxSpeed float32

	// OnClamp is called by authoritative executors for every field that had to be clamped.
	OnClamp func(field string, requested any)
	// Debugf receives trace logs of mode transitions.
	Debugf func(format string, args ...any)
}

// DefaultOptions returns predicting executor options with the default bounds and pull tuning.
func DefaultOptions() Options {
	return Options{
		Bounds:           DefaultBounds(),
		PullAcceleration: 2000,
		PullMaxSpeed:     1500,
	}
}

// Option configures an Executor.
type Option func(x *Executor)

// WithCustomMode registers a game specific mode. The tick function may be nil, in which case the mode
// integrates like ModeFalling.
func WithCustomMode(mode Mode, enter, exit Hook, tick TickFunc) Option {
	assert.IsTrue(mode >= ModeCustom, "custom mode %d collides with a built-in mode", mode)
	return func(x *Executor) {
		if tick == nil {
			tick = tickIntegrate
		}
		x.modes[mode] = modeFuncs{enter: enter, exit: exit, tick: tick, registered: true}
	}
}

// WithModeObserver adds an observer that is notified of every mode transition.
func WithModeObserver(o ModeObserver) Option {
	return func(x *Executor) {
		x.observers = append(x.observers, o)
	}
}

// Executor advances movement states by move records. The same executor configuration on the
// predicting and the authoritative side produces identical results for identical records, as long as
// no field had to be clamped.
type Executor struct {
	engine    Engine
	opts      Options
	modes     [256]modeFuncs
	observers []ModeObserver
}

// NewExecutor returns an executor that integrates using the engine passed.
func NewExecutor(engine Engine, opts Options, options ...Option) *Executor {
	assert.IsTrue(engine != nil, "executor requires a movement engine")
	x := &Executor{engine: engine, opts: opts, modes: builtinModes()}
	for _, o := range options {
		o(x)
	}
	return x
}

// Authoritative reports whether the executor clamps untrusted fields.
func (x *Executor) Authoritative() bool {
	return x.opts.Authoritative
}

// Advance applies a single record to the state and returns the resulting state. Advance is a pure
// function of its arguments and the executor configuration.
func (x *Executor) Advance(state State, rec move.Record, dt float32) State {
	s := state
	if s.mode == ModeNone {
		return s
	}
	t := x.sanitise(s, rec, dt)

	// Transitions requested by the intent of this tick.
	switch {
	case t.WantsToFly() && x.engine.CanEnterMode(ModeFlying):
		x.RequestMode(&s, ModeFlying)
	case t.WantsToPull():
		x.RequestMode(&s, ModePulling)
	case s.mode == ModeFlying, s.mode == ModePulling:
		x.RequestMode(&s, ModeFalling)
	}

	// A launch requested on the previous tick takes effect now.
	if s.HasPendingLaunch {
		s.Vel = s.PendingLaunch
		s.PendingLaunch, s.HasPendingLaunch = mgl32.Vec3{}, false
		x.RequestMode(&s, ModeFalling)
	}

	if tick := x.modes[s.mode].tick; tick != nil {
		tick(x, &s, t)
	}

	switch {
	case s.mode == ModeFalling && s.OnGround:
		x.RequestMode(&s, ModeGrounded)
	case s.mode == ModeGrounded && !s.OnGround:
		x.RequestMode(&s, ModeFalling)
	}

	if t.WantsToLaunch {
		s.PendingLaunch = launchVelocity(s.Vel, t)
		s.HasPendingLaunch = true
	}
	return s
}

// RequestMode switches the state to the given mode, running the exit hook of the current mode before
// the enter hook of the new one. Requesting the active mode, an unregistered mode or a mode the engine
// refuses is a no-op. RequestMode reports whether the mode was changed.
func (x *Executor) RequestMode(s *State, mode Mode) bool {
	if s.mode == mode || !x.modes[mode].registered {
		return false
	}
	if mode != ModeNone && !x.engine.CanEnterMode(mode) {
		return false
	}
	from := s.mode
	if exit := x.modes[from].exit; exit != nil {
		exit(s)
	}
	for _, o := range x.observers {
		o.HandleModeExit(*s, from, mode)
	}

	s.mode = mode
	if enter := x.modes[mode].enter; enter != nil {
		enter(s)
	}
	assert.IsTrue(s.mode == mode, "mode hook changed mode from %v to %v", mode, s.mode)
	for _, o := range x.observers {
		o.HandleModeEnter(*s, from, mode)
	}
	if x.opts.Debugf != nil {
		x.opts.Debugf("movement mode %v -> %v", from, mode)
	}
	return true
}

// Integrate advances the state through the engine using the input of the tick. Custom tick functions
// may use it to fall back to the default integration.
func (x *Executor) Integrate(s *State, t Tick, external *mgl32.Vec3) {
	body := Body{
		Pos:      s.Pos,
		Vel:      s.Vel,
		Accel:    t.Acceleration,
		MaxSpeed: t.MaxCustomSpeed,
		OnGround: s.OnGround,
	}
	if external != nil {
		body.External, body.HasExternal = *external, true
	}
	body = x.engine.Integrate(body, t.Delta, s.mode)
	s.Pos, s.Vel, s.OnGround = body.Pos, body.Vel, body.OnGround
}

func tickIntegrate(x *Executor, s *State, t Tick) {
	x.Integrate(s, t, nil)
}

// tickPull drags the entity towards the pull target. The drag velocity is derived from the target of
// the current record every tick so that a moving target is followed.
func tickPull(x *Executor, s *State, t Tick) {
	speed := math32.Min(s.PullSpeed+float32(x.opts.PullAcceleration*t.Delta), x.opts.PullMaxSpeed)
	s.PullSpeed = speed

	rel := t.PullTarget.Sub(s.Pos)
	dist := rel.Len()
	var drag mgl32.Vec3
	if dist > 0 && t.Delta > 0 {
		if step := float32(speed * t.Delta); step > dist {
			// Don't overshoot the target.
			speed = dist / t.Delta
		}
		drag = rel.Mul(speed / dist)
	}
	x.Integrate(s, t, &drag)
}

// launchVelocity returns the velocity a launch requested in this tick results in. Components that
// aren't overridden are added to the current velocity.
func launchVelocity(current mgl32.Vec3, t Tick) mgl32.Vec3 {
	v := t.LaunchVelocity
	if !t.HasFlag(move.FlagLaunchOverrideXY) {
		v[0] += current[0]
		v[1] += current[1]
	}
	if !t.HasFlag(move.FlagLaunchOverrideZ) {
		v[2] += current[2]
	}
	return v
}
