package transport

// Conn is a packet connection between the predicting and the authoritative side. Neither ordering nor
// delivery is assumed: records and updates carry their own sequence numbers.
type Conn interface {
	// WritePacket sends a single packet.
	WritePacket(b []byte) error
	// ReadPacket returns the next packet received without blocking. ok is false if no packet is
	// pending.
	ReadPacket() (b []byte, ok bool, err error)
	// Close closes the connection.
	Close() error
}
