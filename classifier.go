package gopointer

import (
	"context"

	"github.com/dustin/go-humanize"
	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"github.com/edaniels/gopointer/transport"
)

// Classify decodes one datagram from sender into a message. It never
// touches session state so it is safe to call from any goroutine.
func Classify(sender transport.PeerID, data []byte) (PeerMessage, error) {
	if len(data) == 0 {
		return PeerMessage{}, ErrEmptyMessage
	}
	tag, payload := MessageTag(data[0]), data[1:]
	switch tag {
	case TagPose:
		p, err := decodePose(payload)
		if err != nil {
			return PeerMessage{}, err
		}
		return PeerMessage{Sender: sender, Update: PoseUpdate{Pose: p}}, nil
	case TagAnimationSet:
		as, err := decodeAnimationSet(payload)
		if err != nil {
			return PeerMessage{}, err
		}
		return PeerMessage{Sender: sender, Update: AnimationSetUpdate{Set: as}}, nil
	case TagImage:
		img, err := DecodeCursorImage(payload)
		if err != nil {
			return PeerMessage{}, errors.Wrapf(err, "rejecting %s image", humanize.Bytes(uint64(len(payload))))
		}
		return PeerMessage{Sender: sender, Update: ImageUpdate{Image: img}}, nil
	default:
		return PeerMessage{}, errors.Wrapf(ErrUnknownTag, "0x%02x", byte(tag))
	}
}

// An Ingestor owns the receive side of a transport and turns its packets
// into PeerMessages on a bounded channel.
type Ingestor struct {
	transport transport.Transport
	messages  chan PeerMessage
	logger    golog.Logger
}

// NewIngestor returns an ingestor reading tr and buffering up to
// queueSize messages.
func NewIngestor(tr transport.Transport, queueSize int, logger golog.Logger) *Ingestor {
	if queueSize <= 0 {
		queueSize = transport.DefaultQueueSize
	}
	if logger == nil {
		logger = golog.Global().Named("ingestor")
	}
	return &Ingestor{
		transport: tr,
		messages:  make(chan PeerMessage, queueSize),
		logger:    logger,
	}
}

// Messages returns the hand-off channel. It is closed when Run returns.
func (in *Ingestor) Messages() <-chan PeerMessage {
	return in.messages
}

// Run forwards messages until ctx is done or the transport stops. Bad
// datagrams are logged and dropped. It must only be called once.
func (in *Ingestor) Run(ctx context.Context) error {
	defer close(in.messages)
	packets := in.transport.Packets()
	for {
		var p transport.Packet
		var ok bool
		select {
		case <-ctx.Done():
			return nil
		case p, ok = <-packets:
		}
		if !ok {
			in.logger.Debug("transport closed")
			return nil
		}

		var msg PeerMessage
		switch p.Event {
		case transport.EventData:
			var err error
			msg, err = Classify(p.Sender, p.Data)
			if err != nil {
				in.logger.Debugw("dropping datagram", "peer", p.Sender, "size", len(p.Data), "error", err)
				continue
			}
			if u, isImage := msg.Update.(ImageUpdate); isImage {
				in.logger.Debugw("received cursor image",
					"peer", p.Sender, "frames", u.Image.NumFrames(), "size", humanize.Bytes(uint64(len(p.Data))))
			}
		case transport.EventConnect:
			in.logger.Infow("peer connected", "peer", p.Sender)
			continue
		case transport.EventDisconnect, transport.EventTimeout:
			in.logger.Infow("peer left", "peer", p.Sender, "reason", p.Event)
			msg = PeerMessage{Sender: p.Sender, Update: PeerLeft{Reason: p.Event}}
		default:
			in.logger.Debugw("ignoring packet", "peer", p.Sender, "event", p.Event)
			continue
		}

		select {
		case <-ctx.Done():
			return nil
		case in.messages <- msg:
		}
	}
}
