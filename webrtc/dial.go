package webrtc

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/pion/webrtc/v3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/edaniels/gopointer/transport"
)

// DialTimeout bounds signaling and the wait for the assets channel.
const DialTimeout = 15 * time.Second

// Dial offers a connection to the watcher whose offer endpoint is at
// offerURL and returns a transport with that watcher as its only peer. The
// watcher is known by the host of offerURL.
func Dial(ctx context.Context, offerURL string, self transport.PeerID, config Config) (_ transport.Transport, err error) {
	parsed, err := url.Parse(offerURL)
	if err != nil {
		return nil, errors.Wrap(err, "bad offer url")
	}
	remote := transport.PeerID(parsed.Host)
	logger := config.logger("webrtc").Named(parsed.Host)

	ctx, cancel := context.WithTimeout(ctx, DialTimeout)
	defer cancel()

	pc, err := newAPI(config, logger).NewPeerConnection(config.WebRTCConfig)
	if err != nil {
		return nil, err
	}
	hub := transport.NewHub(0, logger)
	var successful bool
	defer func() {
		if !successful {
			err = multierr.Combine(err, pc.Close(), hub.Close())
		}
	}()

	conn := newPeerConn(pc, remote, hub, logger)
	pc.OnICEConnectionStateChange(conn.onICEStateChange)

	ordered := false
	maxRetransmits := uint16(0)
	poseChannel, err := pc.CreateDataChannel(PoseChannel, &webrtc.DataChannelInit{
		Ordered:        &ordered,
		MaxRetransmits: &maxRetransmits,
	})
	if err != nil {
		return nil, err
	}
	assetsChannel, err := pc.CreateDataChannel(AssetsChannel, nil)
	if err != nil {
		return nil, err
	}
	conn.bind(poseChannel)
	conn.bind(assetsChannel)

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		return nil, err
	}
	gatherComplete := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(offer); err != nil {
		return nil, err
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-gatherComplete:
	}

	answer, err := exchangeSDP(ctx, http.DefaultClient, offerURL, self, pc.LocalDescription())
	if err != nil {
		return nil, err
	}
	if err := pc.SetRemoteDescription(answer); err != nil {
		return nil, err
	}

	// the connect event is the first packet once the assets channel opens
	select {
	case <-ctx.Done():
		return nil, errors.Wrapf(ctx.Err(), "waiting for %q", remote)
	case <-conn.ready:
	}

	successful = true
	logger.Debugw("connected", "watcher", remote)
	return hub, nil
}
