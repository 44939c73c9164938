package transport

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/edaniels/golog"
	"go.viam.com/test"
)

type recordingConn struct {
	mu     sync.Mutex
	sent   [][]byte
	closed bool
	err    error
}

func (c *recordingConn) Send(data []byte, class Reliability) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, data)
	return nil
}

func (c *recordingConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *recordingConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func nextPacket(t *testing.T, tr Transport) Packet {
	t.Helper()
	select {
	case p, ok := <-tr.Packets():
		test.That(t, ok, test.ShouldBeTrue)
		return p
	case <-time.After(time.Second):
		t.Fatal("no packet in time")
		return Packet{}
	}
}

func TestHubAttachDetach(t *testing.T) {
	hub := NewHub(8, golog.NewTestLogger(t))

	first := &recordingConn{}
	test.That(t, hub.Attach("a", first), test.ShouldBeNil)
	test.That(t, nextPacket(t, hub), test.ShouldResemble, Packet{Sender: "a", Event: EventConnect})
	test.That(t, hub.Peers(), test.ShouldResemble, []PeerID{"a"})

	// a reconnect replaces and closes the old connection
	second := &recordingConn{}
	test.That(t, hub.Attach("a", second), test.ShouldBeNil)
	test.That(t, nextPacket(t, hub), test.ShouldResemble, Packet{Sender: "a", Event: EventConnect})
	test.That(t, first.isClosed(), test.ShouldBeTrue)

	// the stale connection detaching changes nothing
	hub.Detach("a", first, EventDisconnect)
	test.That(t, hub.Peers(), test.ShouldHaveLength, 1)

	test.That(t, hub.Send("a", []byte("hi"), Reliable), test.ShouldBeNil)
	test.That(t, second.sent, test.ShouldResemble, [][]byte{[]byte("hi")})
	test.That(t, first.sent, test.ShouldBeEmpty)

	hub.Detach("a", second, EventTimeout)
	test.That(t, nextPacket(t, hub), test.ShouldResemble, Packet{Sender: "a", Event: EventTimeout})
	test.That(t, hub.Peers(), test.ShouldBeEmpty)

	err := hub.Send("a", []byte("hi"), Reliable)
	test.That(t, errors.Is(err, ErrUnknownPeer), test.ShouldBeTrue)

	test.That(t, hub.Close(), test.ShouldBeNil)
}

func TestHubDeliver(t *testing.T) {
	hub := NewHub(2, golog.NewTestLogger(t))
	defer hub.Close()

	hub.Deliver("a", []byte{1}, Unreliable)
	hub.Deliver("a", []byte{2}, Reliable)
	// the queue is full so this one is dropped
	hub.Deliver("a", []byte{3}, Unreliable)

	test.That(t, nextPacket(t, hub), test.ShouldResemble, Packet{Sender: "a", Data: []byte{1}})
	test.That(t, nextPacket(t, hub), test.ShouldResemble, Packet{Sender: "a", Data: []byte{2}})

	select {
	case p := <-hub.Packets():
		t.Fatalf("unexpected packet %v", p)
	default:
	}

	// reliable deliveries wait for room
	hub.Deliver("a", []byte{4}, Reliable)
	hub.Deliver("a", []byte{5}, Reliable)
	done := make(chan struct{})
	go func() {
		hub.Deliver("a", []byte{6}, Reliable)
		close(done)
	}()
	select {
	case <-done:
		t.Fatal("reliable delivery should block on a full queue")
	case <-time.After(20 * time.Millisecond):
	}
	test.That(t, nextPacket(t, hub).Data, test.ShouldResemble, []byte{4})
	<-done
	test.That(t, nextPacket(t, hub).Data, test.ShouldResemble, []byte{5})
	test.That(t, nextPacket(t, hub).Data, test.ShouldResemble, []byte{6})
}

func TestHubBroadcast(t *testing.T) {
	hub := NewHub(8, golog.NewTestLogger(t))
	a, b := &recordingConn{}, &recordingConn{err: errors.New("broken")}
	test.That(t, hub.Attach("a", a), test.ShouldBeNil)
	test.That(t, hub.Attach("b", b), test.ShouldBeNil)

	err := hub.Broadcast([]byte("x"), Unreliable)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "broken")
	test.That(t, a.sent, test.ShouldResemble, [][]byte{[]byte("x")})

	test.That(t, hub.Close(), test.ShouldBeNil)
	test.That(t, a.isClosed(), test.ShouldBeTrue)
	test.That(t, b.isClosed(), test.ShouldBeTrue)
}

func TestHubClose(t *testing.T) {
	hub := NewHub(1, golog.NewTestLogger(t))
	hub.Deliver("a", []byte{1}, Reliable)

	// a sender blocked on a full queue is released by Close
	done := make(chan struct{})
	go func() {
		hub.Deliver("a", []byte{2}, Reliable)
		close(done)
	}()
	test.That(t, hub.Close(), test.ShouldBeNil)
	<-done
	test.That(t, hub.Close(), test.ShouldBeNil)

	test.That(t, hub.Attach("a", &recordingConn{}), test.ShouldBeError, ErrClosed)
	hub.Deliver("a", []byte{3}, Unreliable)

	var n int
	for range hub.Packets() {
		n++
	}
	test.That(t, n, test.ShouldBeLessThanOrEqualTo, 2)
}
