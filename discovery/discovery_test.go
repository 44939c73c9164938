package discovery

import (
	"net"
	"testing"

	"go.viam.com/test"
)

func TestWatcherAddress(t *testing.T) {
	w := Watcher{Instance: "desk", IP: net.ParseIP("192.168.1.20"), Port: 27050}
	test.That(t, w.Addr(), test.ShouldEqual, "192.168.1.20:27050")
	test.That(t, w.URL("/offer"), test.ShouldEqual, "http://192.168.1.20:27050/offer")
}
