package transport

import (
	"testing"

	"github.com/edaniels/golog"
	"go.viam.com/test"
)

func TestPipe(t *testing.T) {
	a, b := Pipe("a", "b", golog.NewTestLogger(t))

	test.That(t, nextPacket(t, a), test.ShouldResemble, Packet{Sender: "b", Event: EventConnect})
	test.That(t, nextPacket(t, b), test.ShouldResemble, Packet{Sender: "a", Event: EventConnect})

	data := []byte("hello")
	test.That(t, a.Send("b", data, Unreliable), test.ShouldBeNil)
	data[0] = 'j'
	test.That(t, nextPacket(t, b), test.ShouldResemble, Packet{Sender: "a", Data: []byte("hello")})

	test.That(t, b.Broadcast([]byte("back"), Reliable), test.ShouldBeNil)
	test.That(t, nextPacket(t, a), test.ShouldResemble, Packet{Sender: "b", Data: []byte("back")})

	// closing one side disconnects the other
	test.That(t, a.Close(), test.ShouldBeNil)
	test.That(t, nextPacket(t, b), test.ShouldResemble, Packet{Sender: "a", Event: EventDisconnect})
	test.That(t, b.Send("a", data, Reliable), test.ShouldNotBeNil)
	test.That(t, b.Close(), test.ShouldBeNil)

	_, ok := <-a.Packets()
	test.That(t, ok, test.ShouldBeFalse)
}

func TestFanout(t *testing.T) {
	logger := golog.NewTestLogger(t)
	holder1, watcher1 := Pipe("holder", "w1", logger)
	holder2, watcher2 := Pipe("holder", "w2", logger)
	defer watcher1.Close()
	defer watcher2.Close()

	f := Fanout(holder1, holder2)
	seen := map[PeerID]bool{}
	for i := 0; i < 2; i++ {
		p := nextPacket(t, f)
		test.That(t, p.Event, test.ShouldEqual, EventConnect)
		seen[p.Sender] = true
	}
	test.That(t, seen, test.ShouldResemble, map[PeerID]bool{"w1": true, "w2": true})

	test.That(t, f.Send("w2", []byte("only two"), Reliable), test.ShouldBeNil)
	nextPacket(t, watcher2) // connect
	test.That(t, nextPacket(t, watcher2).Data, test.ShouldResemble, []byte("only two"))

	test.That(t, f.Send("nobody", nil, Reliable), test.ShouldNotBeNil)

	test.That(t, f.Broadcast([]byte("all"), Unreliable), test.ShouldBeNil)
	nextPacket(t, watcher1) // connect
	test.That(t, nextPacket(t, watcher1).Data, test.ShouldResemble, []byte("all"))
	test.That(t, nextPacket(t, watcher2).Data, test.ShouldResemble, []byte("all"))

	test.That(t, watcher1.Send("holder", []byte("from one"), Reliable), test.ShouldBeNil)
	p := nextPacket(t, f)
	test.That(t, p.Sender, test.ShouldEqual, PeerID("w1"))
	test.That(t, p.Data, test.ShouldResemble, []byte("from one"))

	test.That(t, f.Close(), test.ShouldBeNil)
	for range f.Packets() {
	}
}
