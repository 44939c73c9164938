// Package transport moves pointer datagrams between holders and watchers.
package transport

import (
	"errors"
	"fmt"
)

// A PeerID identifies a remote sender for the lifetime of its session.
type PeerID string

// Event is the kind of a Packet.
type Event uint8

// The packet kinds. Only EventData packets carry a payload.
const (
	EventData Event = iota
	EventConnect
	EventDisconnect
	EventTimeout
)

func (e Event) String() string {
	switch e {
	case EventData:
		return "data"
	case EventConnect:
		return "connect"
	case EventDisconnect:
		return "disconnect"
	case EventTimeout:
		return "timeout"
	default:
		return fmt.Sprintf("Event(%d)", uint8(e))
	}
}

// A Packet is either a datagram received from Sender or a lifecycle
// event about Sender.
type Packet struct {
	Sender PeerID
	Event  Event
	Data   []byte
}

// Reliability is the delivery class requested for a send.
type Reliability uint8

const (
	// Unreliable packets may be dropped or reordered; only the latest value
	// matters.
	Unreliable Reliability = iota
	// Reliable packets must arrive, in order per peer.
	Reliable
)

func (r Reliability) String() string {
	if r == Reliable {
		return "reliable"
	}
	return "unreliable"
}

// MaxPayloadSize is the largest datagram any transport carries.
const MaxPayloadSize = 8 * 1024 * 1024

// A Transport delivers datagrams to and from remote peers.
type Transport interface {
	// Packets returns the receive stream. It is closed when the transport
	// is closed.
	Packets() <-chan Packet

	// Send sends data to a single peer.
	Send(peer PeerID, data []byte, class Reliability) error

	// Broadcast sends data to every connected peer.
	Broadcast(data []byte, class Reliability) error

	// Close releases the transport and every peer connection.
	Close() error
}

// A Conn is a single established connection to a peer, as registered
// with a Hub by a concrete transport.
type Conn interface {
	Send(data []byte, class Reliability) error
	Close() error
}

var (
	// ErrUnknownPeer happens when sending to a peer with no connection.
	ErrUnknownPeer = errors.New("unknown peer")
	// ErrClosed happens when using a transport after it was closed.
	ErrClosed = errors.New("transport closed")
	// ErrNoAvailablePort happens when none of the candidate ports can be bound.
	ErrNoAvailablePort = errors.New("no available port")
)
