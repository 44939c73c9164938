package transport

import (
	"fmt"
	"net"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// DefaultPorts are the ports a watcher tries, in order, when none are configured.
var DefaultPorts = []int{27050, 27051, 27052, 27053}

// Listen binds a TCP listener on host at the first port of candidates that
// is free. A port of 0 lets the system pick one. It fails with
// ErrNoAvailablePort once every candidate has been tried.
func Listen(host string, candidates []int) (net.Listener, error) {
	if len(candidates) == 0 {
		candidates = DefaultPorts
	}
	var attempts error
	for _, port := range candidates {
		listener, err := net.Listen("tcp", net.JoinHostPort(host, fmt.Sprint(port)))
		if err == nil {
			return listener, nil
		}
		attempts = multierr.Append(attempts, err)
	}
	return nil, errors.Wrapf(ErrNoAvailablePort, "tried %v: %v", candidates, attempts)
}
