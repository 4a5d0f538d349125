package authority

import (
	"errors"
	"time"

	"github.com/elliotchance/orderedmap/v2"
	"github.com/getsentry/sentry-go"
	"github.com/oomph-ac/netmove/move"
	"github.com/oomph-ac/netmove/movement"
	"github.com/oomph-ac/netmove/oerror"
	"github.com/oomph-ac/netmove/transport"
	"github.com/oomph-ac/netmove/utils"
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"
)

// Stats are counters of a Session.
type Stats struct {
	Applied    uint64
	Malformed  uint64
	Duplicates uint64
	OutOfOrder uint64
	Clamped    uint64
	Updates    uint64
}

// Session is the authoritative movement of a single entity. Records are applied in strictly increasing
// sequence order; duplicated and reordered records are rejected. A Session is not safe for concurrent
// use.
type Session struct {
	entity string
	conn   transport.Conn
	exec   *movement.Executor
	log    *logrus.Logger

	state    movement.State
	lastSeq  uint32
	applying uint32

	latest  transport.Update
	pending bool

	stats  Stats
	closed *atomic.Bool
}

// NewSession returns a session for the entity, starting at the initial state. Records are read from and
// updates written to conn, which may be nil if the session is driven through HandleRecord directly.
// The executor options are made authoritative.
func NewSession(entity string, conn transport.Conn, engine movement.Engine, opts movement.Options, initial movement.State, log *logrus.Logger, options ...movement.Option) *Session {
	s := &Session{
		entity: entity,
		conn:   conn,
		log:    log,
		state:  initial,
		closed: atomic.NewBool(false),
	}
	opts.Authoritative = true
	opts.OnClamp = s.clamped
	s.exec = movement.NewExecutor(engine, opts, options...)
	return s
}

// Entity returns the name of the entity.
func (s *Session) Entity() string {
	return s.entity
}

// State returns the authoritative state.
func (s *Session) State() movement.State {
	return s.state
}

// LastSequence returns the sequence of the last applied record.
func (s *Session) LastSequence() uint32 {
	return s.lastSeq
}

// Stats returns the counters of the session.
func (s *Session) Stats() Stats {
	return s.stats
}

// HandlePacket handles a frame received from the predicting side.
func (s *Session) HandlePacket(b []byte) error {
	kind, payload, err := transport.DecodeFrame(b)
	if err != nil {
		return err
	}
	if kind != transport.FrameRecord {
		return oerror.New("%w: authoritative side can't handle frame %d", oerror.ErrUnknownFrame, kind)
	}
	_, err = s.HandleRecord(payload)
	return err
}

// HandleRecord decodes a record and applies it to the authoritative state. Malformed records are
// dropped without changing the state and ErrMalformedRecord is returned. Records with a sequence at or
// below the last applied one return ErrDuplicateRecord or ErrOutOfOrder and are never applied again.
func (s *Session) HandleRecord(b []byte) (u transport.Update, err error) {
	defer func() {
		if v := recover(); v != nil {
			s.log.Errorf("%s: HandleRecord() panic: %v", s.entity, v)
			hub := sentry.CurrentHub().Clone()
			hub.ConfigureScope(func(scope *sentry.Scope) {
				scope.SetTag("side", "authoritative")
				scope.SetTag("entity", s.entity)
			})
			hub.Recover(oerror.New("%v", v))
			hub.Flush(time.Second * 5)
			u, err = transport.Update{}, oerror.New("%s: panic handling record: %v", s.entity, v)
		}
	}()

	if s.closed.Load() {
		return u, oerror.New("%s: %w", s.entity, oerror.ErrClosed)
	}
	rec, err := move.Decode(b)
	if err != nil {
		s.stats.Malformed++
		return u, err
	}
	return s.Apply(rec)
}

// Apply applies a decoded record to the authoritative state.
func (s *Session) Apply(rec move.Record) (transport.Update, error) {
	switch {
	case rec.Sequence == s.lastSeq:
		s.stats.Duplicates++
		return transport.Update{}, oerror.New("%w: %d", oerror.ErrDuplicateRecord, rec.Sequence)
	case rec.Sequence < s.lastSeq:
		s.stats.OutOfOrder++
		return transport.Update{}, oerror.New("%w: %d after %d", oerror.ErrOutOfOrder, rec.Sequence, s.lastSeq)
	}

	s.applying = rec.Sequence
	s.state = s.exec.Advance(s.state, rec, rec.DeltaTime)
	s.lastSeq = rec.Sequence
	s.stats.Applied++

	s.latest, s.pending = transport.NewUpdate(rec.Sequence, s.state), true
	return s.latest, nil
}

// Process handles every packet pending on the connection of the session, then flushes the newest
// update. Rejected records are logged and skipped.
func (s *Session) Process() error {
	if s.conn == nil {
		return nil
	}
	for {
		b, ok, err := s.conn.ReadPacket()
		if err != nil {
			return oerror.New("%s: read: %w", s.entity, err)
		}
		if !ok {
			break
		}
		if err := s.HandlePacket(b); err != nil {
			s.logRejected(err)
		}
	}
	return s.Flush(s.conn)
}

// Flush writes the newest update to the connection if one was produced since the last flush. Only the
// newest update is sent: it acknowledges every record before it.
func (s *Session) Flush(conn transport.Conn) error {
	if !s.pending {
		return nil
	}
	if err := conn.WritePacket(transport.UpdateFrame(s.latest)); err != nil {
		return oerror.New("%s: flush: %w", s.entity, err)
	}
	s.pending = false
	s.stats.Updates++
	return nil
}

func (s *Session) logRejected(err error) {
	switch {
	case errors.Is(err, oerror.ErrDuplicateRecord), errors.Is(err, oerror.ErrOutOfOrder):
		s.log.Debugf("%s: rejected record: %v", s.entity, err)
	default:
		s.log.Warnf("%s: dropped record: %v", s.entity, err)
	}
}

func (s *Session) clamped(field string, requested any) {
	s.stats.Clamped++
	data := orderedmap.NewOrderedMap[string, any]()
	data.Set("field", field)
	data.Set("requested", requested)
	data.Set("seq", s.applying)
	s.log.Debugf("%s: clamped record field %s", s.entity, utils.OrderedMapToString(data))
}

// Close closes the session and its connection.
func (s *Session) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
