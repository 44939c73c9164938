package gopointer

import (
	"time"

	"github.com/edaniels/gopointer/transport"
)

// noFrame means nothing has been blitted with the current image yet.
const noFrame int64 = -1

// A PeerSession is everything known about one remote holder. Only the
// Reconciler reads or writes it.
type PeerSession struct {
	Peer       transport.PeerID
	Pose       Pose
	Animations AnimationSet
	Image      *CursorImage
	Handle     OverlayHandle

	lastFrame int64
	lastSeen  time.Time
}

func newPeerSession(peer transport.PeerID, handle OverlayHandle, img *CursorImage, now time.Time) *PeerSession {
	return &PeerSession{
		Peer:       peer,
		Animations: DefaultAnimationSet(),
		Image:      img,
		Handle:     handle,
		lastFrame:  noFrame,
		lastSeen:   now,
	}
}

// frameAt returns the frame of the current state's track at elapsed seconds.
func (s *PeerSession) frameAt(elapsed time.Duration) Frame {
	return s.Animations.Track(s.Pose.State).FrameAt(elapsed)
}

// LastFrame returns the index of the frame last blitted, if any.
func (s *PeerSession) LastFrame() (uint32, bool) {
	if s.lastFrame == noFrame {
		return 0, false
	}
	return uint32(s.lastFrame), true
}

// LastSeen returns when the peer was last heard from.
func (s *PeerSession) LastSeen() time.Time {
	return s.lastSeen
}

// sessionStore maps peers to sessions and remembers arrival order so ticks
// visit peers deterministically.
type sessionStore struct {
	byPeer map[transport.PeerID]*PeerSession
	order  []*PeerSession
}

func newSessionStore() *sessionStore {
	return &sessionStore{byPeer: map[transport.PeerID]*PeerSession{}}
}

func (ss *sessionStore) get(peer transport.PeerID) (*PeerSession, bool) {
	s, ok := ss.byPeer[peer]
	return s, ok
}

func (ss *sessionStore) put(s *PeerSession) {
	ss.byPeer[s.Peer] = s
	ss.order = append(ss.order, s)
}

func (ss *sessionStore) len() int {
	return len(ss.order)
}

func (ss *sessionStore) each(f func(s *PeerSession)) {
	for _, s := range ss.order {
		f(s)
	}
}
