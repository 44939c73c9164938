package webrtc

import (
	"testing"
	"time"

	"github.com/edaniels/golog"
	"go.viam.com/test"

	"github.com/edaniels/gopointer/transport"
)

func TestPeerConnReady(t *testing.T) {
	logger := golog.NewTestLogger(t)
	hub := transport.NewHub(0, logger)
	defer hub.Close()

	conn := newPeerConn(nil, "holder", hub, logger)
	test.That(t, conn.isReady(), test.ShouldBeFalse)
	test.That(t, conn.Send([]byte("asset"), transport.Reliable), test.ShouldEqual, errChannelNotOpen)

	waiting := make(chan struct{})
	go func() {
		<-conn.ready
		close(waiting)
	}()
	conn.markReady()
	select {
	case <-waiting:
	case <-time.After(time.Second):
		t.Fatal("ready was not signaled")
	}
	test.That(t, conn.isReady(), test.ShouldBeTrue)
	test.That(t, waitFor(t, hub, transport.EventConnect).Sender, test.ShouldEqual, transport.PeerID("holder"))

	// reopening keeps the channel closed and reattaches
	conn.markReady()
	test.That(t, conn.isReady(), test.ShouldBeTrue)
	test.That(t, hub.Peers(), test.ShouldResemble, []transport.PeerID{"holder"})
}
