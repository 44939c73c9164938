package transport

import (
	"sync"

	"go.uber.org/multierr"
	"go.viam.com/utils"
)

type fanout struct {
	transports []Transport
	packets    chan Packet
	workers    sync.WaitGroup
}

// Fanout joins several transports into one. Packets from all of them are
// merged into one stream and sends go to whichever transport knows the peer.
// It is how a holder talks to more than one watcher.
func Fanout(transports ...Transport) Transport {
	f := &fanout{
		transports: transports,
		packets:    make(chan Packet, DefaultQueueSize),
	}
	f.workers.Add(len(transports))
	for _, t := range transports {
		t := t
		utils.ManagedGo(func() {
			for p := range t.Packets() {
				f.packets <- p
			}
		}, f.workers.Done)
	}
	utils.PanicCapturingGo(func() {
		f.workers.Wait()
		close(f.packets)
	})
	return f
}

func (f *fanout) Packets() <-chan Packet {
	return f.packets
}

func (f *fanout) Send(peer PeerID, data []byte, class Reliability) error {
	var err error
	for _, t := range f.transports {
		sendErr := t.Send(peer, data, class)
		if sendErr == nil {
			return nil
		}
		err = multierr.Append(err, sendErr)
	}
	if err == nil {
		return ErrUnknownPeer
	}
	return err
}

func (f *fanout) Broadcast(data []byte, class Reliability) error {
	var err error
	for _, t := range f.transports {
		err = multierr.Combine(err, t.Broadcast(data, class))
	}
	return err
}

func (f *fanout) Close() error {
	var err error
	for _, t := range f.transports {
		err = multierr.Combine(err, t.Close())
	}
	// drain so forwarding goroutines blocked on a full queue can exit
	utils.PanicCapturingGo(func() {
		//nolint:revive
		for range f.packets {
		}
	})
	f.workers.Wait()
	return err
}
