package transport

import (
	"math/rand/v2"
	"slices"

	"github.com/oomph-ac/netmove/oerror"
	"go.uber.org/atomic"
)

// LinkOptions describe the network conditions a Link simulates. All randomness is drawn from a
// generator seeded with Seed, so a link with the same options and traffic always behaves the same.
type LinkOptions struct {
	// Latency is the amount of ticks a packet is in flight.
	Latency int
	// Jitter is the maximum amount of extra ticks added to the latency of a packet. Packets with
	// different jitter may arrive out of order.
	Jitter int
	// Loss is the probability in [0, 1] that a packet is dropped.
	Loss float64
	// Duplicate is the probability in [0, 1] that a packet is delivered twice.
	Duplicate float64
	Seed      uint64
}

// Link is an in-memory, tick driven connection between two PipeConns.
type Link struct {
	opts LinkOptions
	rng  *rand.Rand
	tick int
	ord  int

	a, b *PipeConn
}

type inflight struct {
	due, ord int
	to       *PipeConn
	b        []byte
}

// NewLink returns a link simulating the given conditions.
func NewLink(opts LinkOptions) *Link {
	l := &Link{opts: opts, rng: rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))}
	l.a = &PipeConn{link: l, closed: atomic.NewBool(false)}
	l.b = &PipeConn{link: l, closed: atomic.NewBool(false)}
	l.a.peer, l.b.peer = l.b, l.a
	return l
}

// SetOptions changes the conditions of the link. Packets already in flight keep their delivery tick. The
// seed of the new options is ignored.
func (l *Link) SetOptions(opts LinkOptions) {
	l.opts = opts
}

// Ends returns both ends of the link.
func (l *Link) Ends() (*PipeConn, *PipeConn) {
	return l.a, l.b
}

// Tick advances the link by a single tick and delivers every packet that is due.
func (l *Link) Tick() {
	l.tick++
	l.deliver()
}

func (l *Link) deliver() {
	for _, c := range [2]*PipeConn{l.a, l.b} {
		slices.SortStableFunc(c.flight, func(x, y inflight) int {
			if x.due != y.due {
				return x.due - y.due
			}
			return x.ord - y.ord
		})
		n := 0
		for _, p := range c.flight {
			if p.due > l.tick {
				break
			}
			if !p.to.closed.Load() {
				p.to.inbox = append(p.to.inbox, p.b)
			}
			n++
		}
		c.flight = slices.Delete(c.flight, 0, n)
	}
}

func (l *Link) send(from *PipeConn, b []byte) {
	if l.opts.Loss > 0 && l.rng.Float64() < l.opts.Loss {
		return
	}
	copies := 1
	if l.opts.Duplicate > 0 && l.rng.Float64() < l.opts.Duplicate {
		copies++
	}
	for range copies {
		due := l.tick + l.opts.Latency
		if l.opts.Jitter > 0 {
			due += l.rng.IntN(l.opts.Jitter + 1)
		}
		l.ord++
		from.flight = append(from.flight, inflight{due: due, ord: l.ord, to: from.peer, b: slices.Clone(b)})
	}
	if l.opts.Latency == 0 && l.opts.Jitter == 0 {
		l.deliver()
	}
}

// PipeConn is one end of a Link. It implements Conn. A PipeConn must only be used from the goroutine
// that ticks its Link.
type PipeConn struct {
	link   *Link
	peer   *PipeConn
	flight []inflight
	inbox  [][]byte
	closed *atomic.Bool
}

// WritePacket ...
func (c *PipeConn) WritePacket(b []byte) error {
	if c.closed.Load() {
		return oerror.New("pipe: write: %w", oerror.ErrClosed)
	}
	c.link.send(c, b)
	return nil
}

// ReadPacket ...
func (c *PipeConn) ReadPacket() ([]byte, bool, error) {
	if c.closed.Load() {
		return nil, false, oerror.New("pipe: read: %w", oerror.ErrClosed)
	}
	if len(c.inbox) == 0 {
		return nil, false, nil
	}
	b := c.inbox[0]
	c.inbox[0] = nil
	c.inbox = c.inbox[1:]
	return b, true, nil
}

// Close ...
func (c *PipeConn) Close() error {
	c.closed.Store(true)
	c.inbox = nil
	return nil
}
