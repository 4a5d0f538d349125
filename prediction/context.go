package prediction

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"
	"github.com/elliotchance/orderedmap/v2"
	"github.com/getsentry/sentry-go"
	"github.com/oomph-ac/netmove/game"
	"github.com/oomph-ac/netmove/move"
	"github.com/oomph-ac/netmove/movement"
	"github.com/oomph-ac/netmove/oerror"
	"github.com/oomph-ac/netmove/transport"
	"github.com/oomph-ac/netmove/utils"
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"
)

// Config holds the tuning of a Context.
type Config struct {
	// BufferSize is the maximum amount of unacknowledged moves.
	BufferSize int
	// MaxCombineDelta is the maximum delta time of a combined move.
	MaxCombineDelta float32
	// StalenessTicks is the amount of ticks without acknowledgement after which a desync is flagged.
	// Zero disables the check.
	StalenessTicks int
	// PositionTolerance and VelocityTolerance are the per component differences between a predicted
	// and an authoritative state that are still accepted.
	PositionTolerance float32
	VelocityTolerance float32
}

// DefaultConfig returns a 64 move buffer, 0.05s combine window, 200 tick staleness window and 0.01
// tolerances.
func DefaultConfig() Config {
	return Config{
		BufferSize:        64,
		MaxCombineDelta:   0.05,
		StalenessTicks:    200,
		PositionTolerance: 0.01,
		VelocityTolerance: 0.01,
	}
}

// Stats are counters of a Context.
type Stats struct {
	Sent         uint64
	Combined     uint64
	Acknowledged uint64
	Corrections  uint64
	Resyncs      uint64
	Stale        uint64
}

// Context is the prediction state of a single locally controlled entity. It is created when the entity
// spawns and closed when it despawns. A Context is not safe for concurrent use: it is driven by the
// tick loop of the predicting side.
type Context struct {
	entity string
	exec   *movement.Executor
	conf   Config
	log    *logrus.Logger
	h      Handler

	state    movement.State
	moves    *Buffer
	sequence uint32

	lastAck       uint32
	ticksSinceAck int

	stats  Stats
	closed *atomic.Bool
}

// NewContext returns a context predicting the entity with the given name from the initial state.
func NewContext(entity string, exec *movement.Executor, initial movement.State, conf Config, log *logrus.Logger) *Context {
	if conf.BufferSize <= 0 {
		conf.BufferSize = DefaultConfig().BufferSize
	}
	return &Context{
		entity: entity,
		exec:   exec,
		conf:   conf,
		log:    log,
		h:      NopHandler{},
		state:  initial,
		moves:  NewBuffer(conf.BufferSize, conf.MaxCombineDelta).WithTolerance(conf.PositionTolerance, conf.VelocityTolerance),
		closed: atomic.NewBool(false),
	}
}

// Handle sets the handler of the context. Passing nil resets it to NopHandler.
func (c *Context) Handle(h Handler) {
	if h == nil {
		h = NopHandler{}
	}
	c.h = h
}

// State returns the live predicted state.
func (c *Context) State() movement.State {
	return c.state
}

// Buffer returns the saved move buffer of the context.
func (c *Context) Buffer() *Buffer {
	return c.moves
}

// Sequence returns the sequence of the latest captured record.
func (c *Context) Sequence() uint32 {
	return c.sequence
}

// Desynced reports whether the next authoritative update will cause a full resync.
func (c *Context) Desynced() bool {
	return c.moves.Desynced()
}

// Stats returns the counters of the context.
func (c *Context) Stats() Stats {
	return c.stats
}

// Tick captures the intent of the current tick and applies it to the live state. The record is combined
// with the latest unsent move when that is safe, and appended to the buffer otherwise. The returned
// record is the one that will be sent for this tick. ErrBufferExhausted is returned if an unacknowledged
// move had to be dropped; the live state is advanced regardless.
func (c *Context) Tick(intent move.Intent, dt float32) (move.Record, error) {
	if c.closed.Load() {
		return move.Record{}, oerror.New("tick %s: %w", c.entity, oerror.ErrClosed)
	}
	c.sequence++
	rec := move.Capture(intent, c.sequence, dt)

	var err error
	if latest, ok := c.moves.Latest(); ok && c.moves.TryCombine(rec, latest, c.exec) {
		c.state = latest.After
		rec = latest.Record
		c.stats.Combined++
	} else {
		before, desynced := c.state, c.moves.Desynced()
		c.state = c.exec.Advance(before, rec, dt)
		if _, err = c.moves.Append(rec, before, c.state); errors.Is(err, oerror.ErrBufferExhausted) && !desynced {
			c.desync(err.Error())
		}
	}

	c.ticksSinceAck++
	if c.conf.StalenessTicks > 0 && c.ticksSinceAck > c.conf.StalenessTicks && c.moves.Len() > 0 && !c.moves.Desynced() {
		c.moves.MarkDesync()
		c.desync(fmt.Sprintf("no acknowledgement for %d ticks", c.ticksSinceAck))
	}
	return rec, err
}

// Flush writes every unsent record to the connection and marks it sent.
func (c *Context) Flush(conn transport.Conn) error {
	if c.closed.Load() {
		return oerror.New("flush %s: %w", c.entity, oerror.ErrClosed)
	}
	for m := range c.moves.Moves() {
		if m.Sent {
			continue
		}
		if err := conn.WritePacket(transport.RecordFrame(m.Record)); err != nil {
			return oerror.New("flush %s: move %d: %w", c.entity, m.Record.Sequence, err)
		}
		m.Sent = true
		c.stats.Sent++
	}
	return nil
}

// HandlePacket handles a frame received from the authoritative side.
func (c *Context) HandlePacket(b []byte) error {
	kind, payload, err := transport.DecodeFrame(b)
	if err != nil {
		return err
	}
	if kind != transport.FrameUpdate {
		return oerror.New("%w: predicting side can't handle frame %d", oerror.ErrUnknownFrame, kind)
	}
	return c.HandleUpdate(payload)
}

// HandleUpdate decodes an authoritative update and reconciles with it.
func (c *Context) HandleUpdate(b []byte) error {
	u, err := transport.DecodeUpdate(b)
	if err != nil {
		return err
	}
	return c.Apply(u)
}

// Apply reconciles the live state with an authoritative update. Updates older than the latest
// acknowledged one are ignored. If the prediction for the update's sequence matches within tolerance the
// moves up to it are acknowledged. Otherwise the live state is snapped to the authoritative state and all
// newer moves are replayed on top of it.
func (c *Context) Apply(u transport.Update) error {
	if c.closed.Load() {
		return oerror.New("apply %s: %w", c.entity, oerror.ErrClosed)
	}
	if u.Sequence <= c.lastAck {
		c.stats.Stale++
		return nil
	}
	if u.Sequence > c.sequence {
		return oerror.New("%w: update for sequence %d that was never sent (latest %d)", oerror.ErrOutOfOrder, u.Sequence, c.sequence)
	}
	c.lastAck = u.Sequence
	c.ticksSinceAck = 0

	if c.moves.Desynced() {
		c.state = u.State
		c.moves.Clear()
		c.moves.ClearDesync()
		c.stats.Resyncs++
		c.log.Warnf("%s: resynchronised to authoritative state of move %d", c.entity, u.Sequence)
		c.h.HandleResync(u)
		return nil
	}

	if m, ok := c.moves.Find(u.Sequence); ok && c.matches(m.After, u) {
		c.stats.Acknowledged += uint64(c.moves.Acknowledge(u.Sequence))
		return nil
	}

	predicted := c.state
	c.stats.Acknowledged += uint64(c.moves.Acknowledge(u.Sequence))
	c.state = c.moves.ReplayFrom(u.Sequence, u.State, c.exec)
	c.stats.Corrections++

	corr := Correction{
		Sequence:      u.Sequence,
		Predicted:     predicted,
		Authoritative: u.State,
		Corrected:     c.state,
		Replayed:      c.moves.Len(),
	}
	c.logCorrection(corr)
	c.h.HandleCorrection(corr)
	return nil
}

// matches reports whether the predicted state is close enough to the authoritative one to acknowledge it.
func (c *Context) matches(predicted movement.State, u transport.Update) bool {
	if transport.StateChecksum(predicted) == u.Checksum {
		return true
	}
	return statesMatch(predicted, u.State, c.conf.PositionTolerance, c.conf.VelocityTolerance)
}

// statesMatch compares two states field by field. Positions are compared with posTol, velocities and
// the pull speed with velTol. Flags and the mode must be equal.
func statesMatch(a, b movement.State, posTol, velTol float32) bool {
	return a.Mode() == b.Mode() &&
		a.OnGround == b.OnGround &&
		a.Flying == b.Flying &&
		a.HasPendingLaunch == b.HasPendingLaunch &&
		game.WithinTolerance(a.Pos, b.Pos, posTol) &&
		game.WithinTolerance(a.Vel, b.Vel, velTol) &&
		game.WithinTolerance(a.PendingLaunch, b.PendingLaunch, velTol) &&
		math32.Abs(a.PullSpeed-b.PullSpeed) <= velTol
}

func (c *Context) logCorrection(corr Correction) {
	data := orderedmap.NewOrderedMap[string, any]()
	data.Set("seq", corr.Sequence)
	data.Set("predictedPos", game.RoundVec32(corr.Predicted.Pos, 3))
	data.Set("authPos", game.RoundVec32(corr.Authoritative.Pos, 3))
	data.Set("predictedVel", game.RoundVec32(corr.Predicted.Vel, 3))
	data.Set("authVel", game.RoundVec32(corr.Authoritative.Vel, 3))
	data.Set("mode", corr.Authoritative.Mode())
	data.Set("replayed", corr.Replayed)
	c.log.Debugf("%s: corrected movement %s", c.entity, utils.OrderedMapToString(data))
}

// desync reports a desync to the handler, the log and Sentry.
func (c *Context) desync(reason string) {
	c.log.Warnf("%s: movement desync: %s", c.entity, reason)
	c.h.HandleDesync(reason)

	hub := sentry.CurrentHub().Clone()
	hub.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("side", "predicting")
		scope.SetTag("entity", c.entity)
	})
	hub.CaptureMessage(fmt.Sprintf("movement desync: %s", reason))
}

// Close releases the buffered moves. Any further use of the context returns ErrClosed.
func (c *Context) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return oerror.New("close %s: %w", c.entity, oerror.ErrClosed)
	}
	c.moves.Clear()
	return nil
}
