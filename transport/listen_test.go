package transport

import (
	"errors"
	"net"
	"testing"

	"go.viam.com/test"
)

func TestListen(t *testing.T) {
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	test.That(t, err, test.ShouldBeNil)
	defer taken.Close()
	takenPort := taken.Addr().(*net.TCPAddr).Port

	t.Run("falls through to a free port", func(t *testing.T) {
		listener, err := Listen("127.0.0.1", []int{takenPort, 0})
		test.That(t, err, test.ShouldBeNil)
		defer listener.Close()
		test.That(t, listener.Addr().(*net.TCPAddr).Port, test.ShouldNotEqual, takenPort)
	})

	t.Run("no free port", func(t *testing.T) {
		_, err := Listen("127.0.0.1", []int{takenPort, takenPort})
		test.That(t, errors.Is(err, ErrNoAvailablePort), test.ShouldBeTrue)
	})
}
