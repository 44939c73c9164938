package webrtc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/pion/webrtc/v3"
	"github.com/pkg/errors"

	"github.com/edaniels/gopointer/transport"
)

// Adapted from https://github.com/pion/webrtc/blob/master/examples/internal/signal/signal.go

// EncodeSDP encodes the given SDP in base64.
func EncodeSDP(sdp *webrtc.SessionDescription) (string, error) {
	b, err := json.Marshal(sdp)
	if err != nil {
		return "", err
	}

	return base64.StdEncoding.EncodeToString(b), nil
}

// DecodeSDP decodes the input from base64 into the given SDP.
func DecodeSDP(in string, sdp *webrtc.SessionDescription) error {
	b, err := base64.StdEncoding.DecodeString(strings.TrimSpace(in))
	if err != nil {
		return err
	}

	return json.Unmarshal(b, sdp)
}

// maxSDPSize bounds how much of a signaling body is read.
const maxSDPSize = 1 << 20

// exchangeSDP posts an offer to a watcher's offer endpoint and returns its answer.
func exchangeSDP(
	ctx context.Context,
	client *http.Client,
	url string,
	self transport.PeerID,
	offer *webrtc.SessionDescription,
) (webrtc.SessionDescription, error) {
	var answer webrtc.SessionDescription
	encoded, err := EncodeSDP(offer)
	if err != nil {
		return answer, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(encoded))
	if err != nil {
		return answer, err
	}
	req.Header.Set("Content-Type", "text/plain")
	if self != "" {
		req.Header.Set(transport.PeerHeader, string(self))
	}
	resp, err := client.Do(req)
	if err != nil {
		return answer, errors.Wrap(err, "error sending offer")
	}
	defer func() {
		//nolint:errcheck
		resp.Body.Close()
	}()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSDPSize))
	if err != nil {
		return answer, errors.Wrap(err, "error reading answer")
	}
	if resp.StatusCode != http.StatusOK {
		return answer, errors.Errorf("watcher rejected offer (%s): %s", resp.Status, strings.TrimSpace(string(body)))
	}
	if err := DecodeSDP(string(body), &answer); err != nil {
		return answer, errors.Wrap(err, "error decoding answer")
	}
	return answer, nil
}
