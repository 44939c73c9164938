package transport

import (
	"sync/atomic"

	"github.com/edaniels/golog"
)

type memConn struct {
	local, remote *Hub
	self, peer    PeerID
	mirror        *memConn
	closed        atomic.Bool
}

func (c *memConn) Send(data []byte, class Reliability) error {
	if c.closed.Load() {
		return ErrClosed
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	c.remote.Deliver(c.self, cp, class)
	return nil
}

func (c *memConn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.mirror.closed.Store(true)
	c.local.Detach(c.peer, c, EventDisconnect)
	c.remote.Detach(c.self, c.mirror, EventDisconnect)
	return nil
}

// Pipe returns two connected in-process transports. The first sees the
// second as peer b and the second sees the first as peer a. Both delivery
// classes are lossless.
func Pipe(a, b PeerID, logger golog.Logger) (Transport, Transport) {
	if logger == nil {
		logger = golog.Global().Named("pipe")
	}
	hubA := NewHub(DefaultQueueSize, logger.Named(string(a)))
	hubB := NewHub(DefaultQueueSize, logger.Named(string(b)))
	toB := &memConn{local: hubA, remote: hubB, self: a, peer: b}
	toA := &memConn{local: hubB, remote: hubA, self: b, peer: a}
	toB.mirror = toA
	toA.mirror = toB
	// attaching a fresh hub cannot fail
	_ = hubA.Attach(b, toB)
	_ = hubB.Attach(a, toA)
	return hubA, hubB
}
