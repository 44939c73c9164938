// Package discovery finds watchers on the local network over mDNS.
package discovery

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/edaniels/golog"
	"github.com/hashicorp/mdns"
	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// ServiceType is the mDNS service watchers announce.
const ServiceType = "_pointercast._tcp"

// DefaultBrowseTimeout is how long Browse listens for answers.
const DefaultBrowseTimeout = 2 * time.Second

// A Watcher is an announced watcher.
type Watcher struct {
	Instance string
	IP       net.IP
	Port     int
	Info     []string
}

// Addr returns the host:port of the watcher's signaling server.
func (w Watcher) Addr() string {
	return net.JoinHostPort(w.IP.String(), strconv.Itoa(w.Port))
}

// URL returns an http URL for path on the watcher's signaling server.
func (w Watcher) URL(path string) string {
	return fmt.Sprintf("http://%s%s", w.Addr(), path)
}

// An Advertisement announces a watcher until closed.
type Advertisement struct {
	server *mdns.Server
	logger golog.Logger
}

// Advertise announces a watcher listening on port. An empty instance uses
// the hostname.
func Advertise(instance string, port int, info []string, logger golog.Logger) (*Advertisement, error) {
	if logger == nil {
		logger = golog.Global().Named("discovery")
	}
	if instance == "" {
		host, err := os.Hostname()
		if err != nil {
			return nil, errors.Wrap(err, "could not get hostname")
		}
		instance = host
	}
	service, err := mdns.NewMDNSService(instance, ServiceType, "", "", port, nil, info)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create mDNS service")
	}
	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, errors.Wrap(err, "failed to start mDNS server")
	}
	logger.Infow("advertising", "instance", instance, "service", ServiceType, "port", port)
	return &Advertisement{server: server, logger: logger}, nil
}

// Close stops announcing.
func (a *Advertisement) Close() error {
	a.logger.Debug("stopping advertisement")
	return a.server.Shutdown()
}

// Browse collects the watchers that answer within timeout.
func Browse(ctx context.Context, timeout time.Duration) ([]Watcher, error) {
	if timeout <= 0 {
		timeout = DefaultBrowseTimeout
	}
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	entries := make(chan *mdns.ServiceEntry, 16)
	var (
		mu       sync.Mutex
		watchers []Watcher
		seen     = map[string]bool{}
	)
	var collector sync.WaitGroup
	collector.Add(1)
	utils.ManagedGo(func() {
		for e := range entries {
			if e.AddrV4 == nil || e.Port == 0 {
				continue
			}
			w := Watcher{Instance: e.Name, IP: e.AddrV4, Port: e.Port, Info: e.InfoFields}
			mu.Lock()
			if !seen[w.Addr()] {
				seen[w.Addr()] = true
				watchers = append(watchers, w)
			}
			mu.Unlock()
		}
	}, collector.Done)

	err := mdns.Query(&mdns.QueryParam{
		Service:     ServiceType,
		Timeout:     timeout,
		Entries:     entries,
		DisableIPv6: true,
	})
	close(entries)
	collector.Wait()
	if err != nil {
		return nil, errors.Wrap(err, "mDNS query failed")
	}
	mu.Lock()
	defer mu.Unlock()
	return watchers, nil
}
