package prediction

import (
	"iter"

	"github.com/oomph-ac/netmove/move"
	"github.com/oomph-ac/netmove/movement"
	"github.com/oomph-ac/netmove/oerror"
	"github.com/oomph-ac/netmove/utils"
)

// SavedMove is a record together with the states before and after applying it.
type SavedMove struct {
	Record move.Record
	// Before is the state the record was applied to, After is the predicted result.
	Before movement.State
	After  movement.State

	// Sent is set once the record was written to the connection. Sent records are never changed.
	Sent bool
	// Acknowledged is set when the authoritative side confirmed a sequence at or past the record's.
	Acknowledged bool
}

// Buffer holds all moves that were not yet acknowledged, oldest first. Its capacity is fixed: once
// full, appending drops the oldest move and flags a desync.
type Buffer struct {
	moves           *utils.CircularQueue[*SavedMove]
	maxCombineDelta float32
	posTol, velTol  float32
	desync          bool
}

// NewBuffer returns a buffer holding at most capacity moves. Two moves are only combined while their
// summed delta time is at most maxCombineDelta.
func NewBuffer(capacity int, maxCombineDelta float32) *Buffer {
	conf := DefaultConfig()
	return &Buffer{
		moves:           utils.NewCircularQueue[*SavedMove](capacity, nil),
		maxCombineDelta: maxCombineDelta,
		posTol:          conf.PositionTolerance,
		velTol:          conf.VelocityTolerance,
	}
}

// WithTolerance sets how far a combined move may end up from the two moves applied separately.
func (b *Buffer) WithTolerance(pos, vel float32) *Buffer {
	b.posTol, b.velTol = pos, vel
	return b
}

// Append adds a new move to the end of the buffer. If the buffer was full the oldest move is dropped,
// the desync flag is raised and ErrBufferExhausted is returned. The new move is stored either way.
func (b *Buffer) Append(rec move.Record, before, after movement.State) (*SavedMove, error) {
	m := &SavedMove{Record: rec, Before: before, After: after}
	old, dropped, err := b.moves.Append(m)
	if err != nil {
		return nil, err
	}
	if dropped {
		b.desync = true
		return m, oerror.New("%w: dropped move %d", oerror.ErrBufferExhausted, old.Record.Sequence)
	}
	return m, nil
}

// TryCombine merges candidate into latest if the merged record moves the entity the same way the two
// records do separately: latest must be unsent, both records must carry the same intent, neither may
// launch, latest must not have changed mode or left a deferred effect, and the summed delta time must
// not exceed the maximum. The merged record is then advanced from latest.Before over the summed delta
// time and compared against advancing latest.After by candidate alone. The merge only happens if both
// agree within the buffer's tolerance. On success the merged record takes the sequence of candidate and latest.After
// holds its result.
func (b *Buffer) TryCombine(candidate move.Record, latest *SavedMove, x *movement.Executor) bool {
	switch {
	case latest == nil || latest.Sent || latest.Acknowledged:
		return false
	case candidate.WantsToLaunch || latest.Record.WantsToLaunch:
		return false
	case !latest.Record.IntentEquals(candidate):
		return false
	case latest.Before.HasPendingLaunch || latest.After.HasPendingLaunch:
		return false
	case latest.Before.Mode() != latest.After.Mode():
		return false
	case candidate.Sequence <= latest.Record.Sequence:
		return false
	}
	dt := latest.Record.DeltaTime + candidate.DeltaTime
	if !(dt <= b.maxCombineDelta) {
		return false
	}

	merged := latest.Record
	merged.DeltaTime, merged.Sequence = dt, candidate.Sequence
	combined := x.Advance(latest.Before, merged, dt)
	separate := x.Advance(latest.After, candidate, candidate.DeltaTime)
	if !statesMatch(combined, separate, b.posTol, b.velTol) {
		return false
	}
	latest.Record, latest.After = merged, combined
	return true
}

// Acknowledge removes every move with a sequence at or below upto and returns how many were removed.
func (b *Buffer) Acknowledge(upto uint32) int {
	n := 0
	for {
		oldest, err := b.moves.Get(0)
		if err != nil || oldest.Record.Sequence > upto {
			return n
		}
		b.moves.Pop()
		oldest.Acknowledged = true
		n++
	}
}

// ReplayFrom applies every buffered move newer than sequence, oldest first, starting from the
// authoritative state passed. The Before and After states of the replayed moves are replaced, and the
// resulting state is returned.
func (b *Buffer) ReplayFrom(sequence uint32, authoritative movement.State, x *movement.Executor) movement.State {
	state := authoritative
	for m := range b.moves.Iter() {
		if m.Record.Sequence <= sequence {
			continue
		}
		m.Before = state
		state = x.Advance(state, m.Record, m.Record.DeltaTime)
		m.After = state
	}
	return state
}

// Find returns the buffered move with exactly the sequence passed.
func (b *Buffer) Find(sequence uint32) (*SavedMove, bool) {
	for m := range b.moves.Iter() {
		if m.Record.Sequence == sequence {
			return m, true
		}
	}
	return nil, false
}

// Latest returns the newest buffered move.
func (b *Buffer) Latest() (*SavedMove, bool) {
	return b.moves.Last()
}

// Moves iterates over all buffered moves, oldest first.
func (b *Buffer) Moves() iter.Seq[*SavedMove] {
	return b.moves.Iter()
}

// Len returns the amount of buffered moves.
func (b *Buffer) Len() int {
	return b.moves.Len()
}

// Cap returns the maximum amount of buffered moves.
func (b *Buffer) Cap() int {
	return b.moves.Cap()
}

// Clear drops every buffered move.
func (b *Buffer) Clear() {
	b.moves.Clear()
}

// Desynced reports whether moves were lost since the desync flag was last cleared.
func (b *Buffer) Desynced() bool {
	return b.desync
}

// MarkDesync raises the desync flag.
func (b *Buffer) MarkDesync() {
	b.desync = true
}

// ClearDesync lowers the desync flag.
func (b *Buffer) ClearDesync() {
	b.desync = false
}
