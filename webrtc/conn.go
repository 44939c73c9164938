// Package webrtc carries pointer datagrams over WebRTC data channels.
// A holder offers a connection to a watcher's signaling endpoint; the pose
// channel is unordered without retransmits and the assets channel is
// ordered and reliable.
package webrtc

import (
	"sync"

	"github.com/edaniels/golog"
	"github.com/pion/webrtc/v3"
	"github.com/pkg/errors"

	"github.com/edaniels/gopointer/transport"
)

// Data channel labels.
const (
	PoseChannel   = "pose"
	AssetsChannel = "assets"
)

// DefaultICEServers is the STUN server used when none is configured.
var DefaultICEServers = []webrtc.ICEServer{
	{
		URLs: []string{"stun:stun.l.google.com:19302"},
	},
}

// A Config describes how peer connections are made.
type Config struct {
	WebRTCConfig webrtc.Configuration
	// Debug routes pion's own logging through Logger.
	Debug  bool
	Logger golog.Logger
}

// DefaultConfig uses a public STUN server.
var DefaultConfig = Config{
	WebRTCConfig: webrtc.Configuration{
		ICEServers: DefaultICEServers,
	},
}

func (config Config) logger(name string) golog.Logger {
	if config.Logger == nil {
		return golog.Global().Named(name)
	}
	return config.Logger
}

func newAPI(config Config, logger golog.Logger) *webrtc.API {
	var settingEngine webrtc.SettingEngine
	if config.Debug {
		settingEngine.LoggerFactory = LoggerFactory{logger}
	}
	return webrtc.NewAPI(webrtc.WithSettingEngine(settingEngine))
}

var errChannelNotOpen = errors.New("data channel not open")

// peerConn is the transport.Conn of one peer connection.
type peerConn struct {
	pc     *webrtc.PeerConnection
	peer   transport.PeerID
	hub    *transport.Hub
	logger golog.Logger

	mu     sync.Mutex
	pose   *webrtc.DataChannel
	assets *webrtc.DataChannel

	// ready is closed once the assets channel is open.
	ready     chan struct{}
	readyOnce sync.Once
}

func newPeerConn(pc *webrtc.PeerConnection, peer transport.PeerID, hub *transport.Hub, logger golog.Logger) *peerConn {
	return &peerConn{pc: pc, peer: peer, hub: hub, logger: logger, ready: make(chan struct{})}
}

func (c *peerConn) Send(data []byte, class transport.Reliability) error {
	c.mu.Lock()
	pose, assets := c.pose, c.assets
	c.mu.Unlock()

	if class == transport.Unreliable && pose != nil && pose.ReadyState() == webrtc.DataChannelStateOpen {
		return pose.Send(data)
	}
	if assets == nil || assets.ReadyState() != webrtc.DataChannelStateOpen {
		return errChannelNotOpen
	}
	for _, chunk := range splitChunks(data) {
		if err := assets.Send(chunk); err != nil {
			return err
		}
	}
	return nil
}

func (c *peerConn) Close() error {
	return c.pc.Close()
}

// bind wires a data channel's messages into the hub. The peer is attached
// once the assets channel opens since only then can it be sent assets.
func (c *peerConn) bind(dc *webrtc.DataChannel) {
	switch dc.Label() {
	case PoseChannel:
		c.mu.Lock()
		c.pose = dc
		c.mu.Unlock()
		dc.OnMessage(func(msg webrtc.DataChannelMessage) {
			c.hub.Deliver(c.peer, msg.Data, transport.Unreliable)
		})
	case AssetsChannel:
		c.mu.Lock()
		c.assets = dc
		c.mu.Unlock()
		var chunks reassembler
		dc.OnMessage(func(msg webrtc.DataChannelMessage) {
			payload, done, err := chunks.add(msg.Data)
			if err != nil {
				c.logger.Debugw("dropping assets payload", "peer", c.peer, "error", err)
				return
			}
			if done {
				c.hub.Deliver(c.peer, payload, transport.Reliable)
			}
		})
		dc.OnOpen(c.markReady)
	default:
		c.logger.Debugw("ignoring unknown data channel", "peer", c.peer, "label", dc.Label())
	}
}

// markReady records that assets can be sent and attaches the peer.
func (c *peerConn) markReady() {
	c.readyOnce.Do(func() {
		close(c.ready)
	})
	c.attach()
}

func (c *peerConn) isReady() bool {
	select {
	case <-c.ready:
		return true
	default:
		return false
	}
}

func (c *peerConn) attach() {
	if err := c.hub.Attach(c.peer, c); err != nil {
		c.logger.Debugw("cannot attach peer", "peer", c.peer, "error", err)
	}
}

// onICEStateChange maps ICE connectivity onto session lifecycle events.
func (c *peerConn) onICEStateChange(connectionState webrtc.ICEConnectionState) {
	c.logger.Debugw("connection state changed", "peer", c.peer, "state", connectionState.String())
	switch connectionState {
	case webrtc.ICEConnectionStateConnected:
		if c.isReady() {
			c.attach()
		}
	case webrtc.ICEConnectionStateDisconnected:
		c.hub.Detach(c.peer, c, transport.EventTimeout)
	case webrtc.ICEConnectionStateFailed, webrtc.ICEConnectionStateClosed:
		c.hub.Detach(c.peer, c, transport.EventDisconnect)
		if connectionState == webrtc.ICEConnectionStateFailed {
			if err := c.pc.Close(); err != nil {
				c.logger.Debugw("error closing failed connection", "peer", c.peer, "error", err)
			}
		}
	case webrtc.ICEConnectionStateChecking, webrtc.ICEConnectionStateCompleted,
		webrtc.ICEConnectionStateNew, webrtc.ICEConnectionState(0): // zero value is the unknown state in pion v3
	}
}
