package transport

import (
	"sync"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// DefaultQueueSize is how many packets a Hub buffers before unreliable
// packets start being dropped and reliable ones block their sender.
const DefaultQueueSize = 256

// A Hub is the peer registry shared by concrete transports. Connections
// attach under a PeerID and feed received datagrams through Deliver; the
// Hub turns those into a single Packet stream and routes sends back to the
// right connection. A Hub implements Transport.
type Hub struct {
	mu    sync.Mutex
	conns map[PeerID]Conn

	// sendMu guards the lifetime of packets; Deliver holds it for reading.
	sendMu    sync.RWMutex
	packets   chan Packet
	closed    chan struct{}
	closeOnce sync.Once

	logger golog.Logger
}

// NewHub returns an empty hub buffering up to queueSize packets.
func NewHub(queueSize int, logger golog.Logger) *Hub {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if logger == nil {
		logger = golog.Global().Named("transport")
	}
	return &Hub{
		conns:   map[PeerID]Conn{},
		packets: make(chan Packet, queueSize),
		closed:  make(chan struct{}),
		logger:  logger,
	}
}

// Attach registers conn as the connection for peer and emits a connect
// event. A previous connection for the same peer is closed and replaced.
func (h *Hub) Attach(peer PeerID, conn Conn) error {
	select {
	case <-h.closed:
		return ErrClosed
	default:
	}
	h.mu.Lock()
	prev, hadPrev := h.conns[peer]
	h.conns[peer] = conn
	h.mu.Unlock()
	if hadPrev && prev != conn {
		h.logger.Debugw("replacing connection", "peer", peer)
		if err := prev.Close(); err != nil {
			h.logger.Debugw("error closing replaced connection", "peer", peer, "error", err)
		}
	}
	h.emit(Packet{Sender: peer, Event: EventConnect}, true)
	return nil
}

// Detach unregisters conn for peer and emits ev (EventDisconnect or
// EventTimeout). It is a no-op if conn is no longer the peer's connection.
func (h *Hub) Detach(peer PeerID, conn Conn, ev Event) {
	h.mu.Lock()
	current, ok := h.conns[peer]
	if !ok || current != conn {
		h.mu.Unlock()
		return
	}
	delete(h.conns, peer)
	h.mu.Unlock()
	h.emit(Packet{Sender: peer, Event: ev}, true)
}

// Deliver hands a received datagram to the packet stream. Unreliable
// datagrams are dropped when the queue is full; reliable ones wait.
func (h *Hub) Deliver(peer PeerID, data []byte, class Reliability) {
	if !h.emit(Packet{Sender: peer, Event: EventData, Data: data}, class == Reliable) {
		h.logger.Debugw("dropped datagram", "peer", peer, "class", class, "size", len(data))
	}
}

func (h *Hub) emit(p Packet, wait bool) bool {
	h.sendMu.RLock()
	defer h.sendMu.RUnlock()
	select {
	case <-h.closed:
		return false
	default:
	}
	if !wait {
		select {
		case h.packets <- p:
			return true
		default:
			return false
		}
	}
	select {
	case h.packets <- p:
		return true
	case <-h.closed:
		return false
	}
}

// Packets returns the receive stream.
func (h *Hub) Packets() <-chan Packet {
	return h.packets
}

// Peers returns the currently attached peers.
func (h *Hub) Peers() []PeerID {
	h.mu.Lock()
	defer h.mu.Unlock()
	peers := make([]PeerID, 0, len(h.conns))
	for peer := range h.conns {
		peers = append(peers, peer)
	}
	return peers
}

// Send sends data to peer.
func (h *Hub) Send(peer PeerID, data []byte, class Reliability) error {
	h.mu.Lock()
	conn, ok := h.conns[peer]
	h.mu.Unlock()
	if !ok {
		return errors.Wrapf(ErrUnknownPeer, "%q", peer)
	}
	return conn.Send(data, class)
}

// Broadcast sends data to all attached peers.
func (h *Hub) Broadcast(data []byte, class Reliability) error {
	h.mu.Lock()
	conns := make(map[PeerID]Conn, len(h.conns))
	for peer, conn := range h.conns {
		conns[peer] = conn
	}
	h.mu.Unlock()

	var err error
	for peer, conn := range conns {
		if sendErr := conn.Send(data, class); sendErr != nil {
			err = multierr.Append(err, errors.Wrapf(sendErr, "error sending to %q", peer))
		}
	}
	return err
}

// Close closes every attached connection and then the packet stream.
func (h *Hub) Close() error {
	var err error
	h.closeOnce.Do(func() {
		close(h.closed)

		h.mu.Lock()
		conns := h.conns
		h.conns = map[PeerID]Conn{}
		h.mu.Unlock()
		for _, conn := range conns {
			err = multierr.Combine(err, conn.Close())
		}

		h.sendMu.Lock()
		close(h.packets)
		h.sendMu.Unlock()
	})
	return err
}
