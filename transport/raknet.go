package transport

import (
	"net"

	"github.com/oomph-ac/netmove/oerror"
	"github.com/sandertv/go-raknet"
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"
)

// packetConn is implemented by *raknet.Conn.
type packetConn interface {
	ReadPacket() ([]byte, error)
	Write(b []byte) (int, error)
	Close() error
	RemoteAddr() net.Addr
}

// RakNetConn adapts a RakNet connection to Conn. Packets are read on a separate goroutine and queued
// until the tick loop picks them up with ReadPacket.
type RakNetConn struct {
	conn    packetConn
	packets chan []byte
	err     *atomic.Error
	closed  *atomic.Bool
	log     *logrus.Logger
}

// DialRakNet dials a RakNet server at the address passed.
func DialRakNet(address string, log *logrus.Logger) (*RakNetConn, error) {
	conn, err := raknet.Dial(address)
	if err != nil {
		return nil, oerror.New("dial raknet %s: %w", address, err)
	}
	return newRakNetConn(conn, log), nil
}

func newRakNetConn(conn packetConn, log *logrus.Logger) *RakNetConn {
	c := &RakNetConn{
		conn:    conn,
		packets: make(chan []byte, 256),
		err:     atomic.NewError(nil),
		closed:  atomic.NewBool(false),
		log:     log,
	}
	go c.readLoop()
	return c
}

func (c *RakNetConn) readLoop() {
	defer close(c.packets)
	for {
		b, err := c.conn.ReadPacket()
		if err != nil {
			if !c.closed.Load() {
				c.err.Store(err)
				c.log.Debugf("raknet %v: read: %v", c.conn.RemoteAddr(), err)
			}
			return
		}
		select {
		case c.packets <- b:
		default:
			c.log.Warnf("raknet %v: receive queue full, dropping packet", c.conn.RemoteAddr())
		}
	}
}

// RemoteAddr ...
func (c *RakNetConn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// WritePacket ...
func (c *RakNetConn) WritePacket(b []byte) error {
	if c.closed.Load() {
		return oerror.New("raknet: write: %w", oerror.ErrClosed)
	}
	if _, err := c.conn.Write(b); err != nil {
		return oerror.New("raknet: write: %w", err)
	}
	return nil
}

// ReadPacket ...
func (c *RakNetConn) ReadPacket() ([]byte, bool, error) {
	select {
	case b, ok := <-c.packets:
		if !ok {
			if err := c.err.Load(); err != nil {
				return nil, false, err
			}
			return nil, false, oerror.New("raknet: read: %w", oerror.ErrClosed)
		}
		return b, true, nil
	default:
		return nil, false, nil
	}
}

// Close ...
func (c *RakNetConn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.conn.Close()
}

// RakNetListener accepts RakNet connections.
type RakNetListener struct {
	l   *raknet.Listener
	log *logrus.Logger
}

// ListenRakNet listens for RakNet connections on the address passed.
func ListenRakNet(address string, log *logrus.Logger) (*RakNetListener, error) {
	l, err := raknet.Listen(address)
	if err != nil {
		return nil, oerror.New("listen raknet %s: %w", address, err)
	}
	return &RakNetListener{l: l, log: log}, nil
}

// Accept blocks until a new connection is made.
func (l *RakNetListener) Accept() (*RakNetConn, error) {
	conn, err := l.l.Accept()
	if err != nil {
		return nil, err
	}
	pc, ok := conn.(packetConn)
	if !ok {
		_ = conn.Close()
		return nil, oerror.New("raknet: accepted %T is not a packet connection", conn)
	}
	return newRakNetConn(pc, l.log), nil
}

// Addr ...
func (l *RakNetListener) Addr() net.Addr {
	return l.l.Addr()
}

// Close ...
func (l *RakNetListener) Close() error {
	return l.l.Close()
}
