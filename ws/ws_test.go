package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/edaniels/golog"
	"go.viam.com/test"

	"github.com/edaniels/gopointer/transport"
)

func nextPacket(t *testing.T, tr transport.Transport) transport.Packet {
	t.Helper()
	select {
	case p, ok := <-tr.Packets():
		test.That(t, ok, test.ShouldBeTrue)
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("no packet in time")
		return transport.Packet{}
	}
}

func TestWebsocket(t *testing.T) {
	logger := golog.NewTestLogger(t)
	hub := transport.NewHub(0, logger)
	defer hub.Close()
	srv := httptest.NewServer(NewHandler(hub, logger))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + Path
	holder, err := Dial(context.Background(), wsURL, "holder", logger)
	test.That(t, err, test.ShouldBeNil)

	watcherHost := transport.PeerID(strings.TrimPrefix(srv.URL, "http://"))
	test.That(t, nextPacket(t, holder), test.ShouldResemble, transport.Packet{Sender: watcherHost, Event: transport.EventConnect})
	test.That(t, nextPacket(t, hub), test.ShouldResemble, transport.Packet{Sender: "holder", Event: transport.EventConnect})

	test.That(t, holder.Send(watcherHost, []byte("pose"), transport.Unreliable), test.ShouldBeNil)
	test.That(t, holder.Broadcast([]byte("asset"), transport.Reliable), test.ShouldBeNil)
	test.That(t, nextPacket(t, hub), test.ShouldResemble, transport.Packet{Sender: "holder", Data: []byte("pose")})
	test.That(t, nextPacket(t, hub), test.ShouldResemble, transport.Packet{Sender: "holder", Data: []byte("asset")})

	test.That(t, hub.Send("holder", []byte("hello"), transport.Reliable), test.ShouldBeNil)
	test.That(t, nextPacket(t, holder), test.ShouldResemble, transport.Packet{Sender: watcherHost, Data: []byte("hello")})

	// a clean close is a disconnect on the other side
	test.That(t, holder.Close(), test.ShouldBeNil)
	test.That(t, nextPacket(t, hub), test.ShouldResemble, transport.Packet{Sender: "holder", Event: transport.EventDisconnect})
}

func TestDialFails(t *testing.T) {
	_, err := Dial(context.Background(), "ws://127.0.0.1:1/ws", "holder", golog.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
	_, err = Dial(context.Background(), "://nope", "holder", golog.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
}
