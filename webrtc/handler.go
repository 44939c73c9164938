package webrtc

import (
	"io"
	"net/http"

	"github.com/edaniels/golog"
	"github.com/pion/webrtc/v3"

	"github.com/edaniels/gopointer/transport"
)

// OfferPath is where a watcher accepts offers.
const OfferPath = "/offer"

type offerHandler struct {
	hub    *transport.Hub
	config Config
	api    *webrtc.API
	logger golog.Logger
}

// NewOfferHandler returns a handler that answers base64 encoded SDP offers
// posted by holders and registers the resulting connections with hub.
func NewOfferHandler(hub *transport.Hub, config Config) http.Handler {
	logger := config.logger("webrtc")
	return &offerHandler{
		hub:    hub,
		config: config,
		api:    newAPI(config, logger),
		logger: logger,
	}
}

func (h *offerHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	peer := transport.PeerFromRequest(r)
	body, err := io.ReadAll(io.LimitReader(r.Body, maxSDPSize))
	if err != nil {
		h.logger.Debugw("error reading offer", "peer", peer, "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	offer := webrtc.SessionDescription{}
	if err := DecodeSDP(string(body), &offer); err != nil {
		h.logger.Debugw("error decoding offer", "peer", peer, "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	pc, err := h.api.NewPeerConnection(h.config.WebRTCConfig)
	if err != nil {
		h.logger.Errorw("error creating peer connection", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	conn := newPeerConn(pc, peer, h.hub, h.logger)
	pc.OnDataChannel(conn.bind)
	pc.OnICEConnectionStateChange(conn.onICEStateChange)

	fail := func(msg string, err error) {
		h.logger.Errorw(msg, "peer", peer, "error", err)
		if closeErr := pc.Close(); closeErr != nil {
			h.logger.Errorw("error closing peer connection", "error", closeErr)
		}
		w.WriteHeader(http.StatusInternalServerError)
	}

	if err := pc.SetRemoteDescription(offer); err != nil {
		fail("error setting remote description", err)
		return
	}
	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		fail("error creating answer", err)
		return
	}
	gatherComplete := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(answer); err != nil {
		fail("error setting local description", err)
		return
	}

	select {
	case <-r.Context().Done():
		fail("offer abandoned", r.Context().Err())
		return
	case <-gatherComplete:
	}

	encodedSDP, err := EncodeSDP(pc.LocalDescription())
	if err != nil {
		fail("error encoding answer", err)
		return
	}
	h.logger.Debugw("answered offer", "peer", peer)
	w.Header().Set("Content-Type", "text/plain")
	if _, err := w.Write([]byte(encodedSDP)); err != nil {
		h.logger.Errorw("error writing answer", "peer", peer, "error", err)
	}
}
