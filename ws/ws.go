// Package ws carries pointer datagrams over a websocket, for networks where
// WebRTC cannot connect. Both delivery classes travel over the same ordered
// stream; the class is kept so a busy watcher still sheds stale poses first.
package ws

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/edaniels/golog"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"github.com/edaniels/gopointer/transport"
)

// Path is where a watcher accepts websocket connections.
const Path = "/ws"

const (
	writeWait = 5 * time.Second
	// messages carry a leading class byte
	maxMessageSize = transport.MaxPayloadSize + 1
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type conn struct {
	ws   *websocket.Conn
	peer transport.PeerID
	hub  *transport.Hub

	mu        sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func (c *conn) Send(data []byte, class transport.Reliability) error {
	msg := make([]byte, len(data)+1)
	msg[0] = byte(class)
	copy(msg[1:], data)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.BinaryMessage, msg)
}

func (c *conn) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		//nolint:errcheck
		c.ws.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait),
		)
		c.mu.Unlock()
		c.closeErr = c.ws.Close()
	})
	return c.closeErr
}

// readLoop delivers messages until the socket fails, then detaches. A
// clean close is a disconnect and anything else a timeout.
func (c *conn) readLoop(logger golog.Logger) {
	c.ws.SetReadLimit(maxMessageSize)
	ev := transport.EventTimeout
	for {
		msgType, msg, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) ||
				errors.Is(err, websocket.ErrCloseSent) {
				ev = transport.EventDisconnect
			} else {
				logger.Debugw("websocket read failed", "peer", c.peer, "error", err)
			}
			break
		}
		if msgType != websocket.BinaryMessage || len(msg) == 0 {
			continue
		}
		class := transport.Unreliable
		if transport.Reliability(msg[0]) == transport.Reliable {
			class = transport.Reliable
		}
		c.hub.Deliver(c.peer, msg[1:], class)
	}
	c.hub.Detach(c.peer, c, ev)
	//nolint:errcheck
	c.Close()
}

type handler struct {
	hub    *transport.Hub
	logger golog.Logger
}

// NewHandler returns a handler that upgrades holder requests to websockets
// and registers them with hub.
func NewHandler(hub *transport.Hub, logger golog.Logger) http.Handler {
	if logger == nil {
		logger = golog.Global().Named("ws")
	}
	return &handler{hub: hub, logger: logger}
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	peer := transport.PeerFromRequest(r)
	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debugw("error upgrading", "peer", peer, "error", err)
		return
	}
	c := &conn{ws: wsConn, peer: peer, hub: h.hub}
	if err := h.hub.Attach(peer, c); err != nil {
		//nolint:errcheck
		c.Close()
		return
	}
	utils.PanicCapturingGo(func() {
		c.readLoop(h.logger)
	})
}

// Dial connects to the watcher websocket endpoint at wsURL and returns a
// transport with that watcher as its only peer, known by the URL's host.
func Dial(ctx context.Context, wsURL string, self transport.PeerID, logger golog.Logger) (transport.Transport, error) {
	parsed, err := url.Parse(wsURL)
	if err != nil {
		return nil, errors.Wrap(err, "bad websocket url")
	}
	if logger == nil {
		logger = golog.Global().Named("ws")
	}
	header := http.Header{}
	if self != "" {
		header.Set(transport.PeerHeader, string(self))
	}
	wsConn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if resp != nil && resp.Body != nil {
		//nolint:errcheck
		resp.Body.Close()
	}
	if err != nil {
		return nil, errors.Wrapf(err, "error dialing %q", wsURL)
	}
	remote := transport.PeerID(parsed.Host)
	hub := transport.NewHub(0, logger)
	c := &conn{ws: wsConn, peer: remote, hub: hub}
	if err := hub.Attach(remote, c); err != nil {
		//nolint:errcheck
		c.Close()
		return nil, err
	}
	utils.PanicCapturingGo(func() {
		c.readLoop(logger)
	})
	return hub, nil
}
