package gopointer

import (
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"github.com/edaniels/gopointer/transport"
)

// A Reconciler applies peer messages to peer sessions and decides when an
// overlay has to move or be redrawn. It is not safe for concurrent use; the
// presentation loop is its only caller.
type Reconciler struct {
	presenter    Presenter
	start        time.Time
	cursorScale  float32
	defaultImage *CursorImage
	sessions     *sessionStore
	logger       golog.Logger
}

// NewReconciler returns a reconciler whose animation clock started at
// start. New peers get the default cursor scaled by cursorScale.
func NewReconciler(presenter Presenter, start time.Time, cursorScale float32, logger golog.Logger) *Reconciler {
	if logger == nil {
		logger = golog.Global().Named("reconciler")
	}
	if cursorScale <= 0 {
		cursorScale = 1
	}
	return &Reconciler{
		presenter:    presenter,
		start:        start,
		cursorScale:  cursorScale,
		defaultImage: DefaultCursorImage().Scale(cursorScale),
		sessions:     newSessionStore(),
		logger:       logger,
	}
}

// NumSessions returns how many peers have a session.
func (r *Reconciler) NumSessions() int {
	return r.sessions.len()
}

// Session returns the session of peer.
func (r *Reconciler) Session(peer transport.PeerID) (*PeerSession, bool) {
	return r.sessions.get(peer)
}

func (r *Reconciler) elapsed(now time.Time) time.Duration {
	return now.Sub(r.start)
}

func (r *Reconciler) session(peer transport.PeerID, now time.Time) (*PeerSession, error) {
	if s, ok := r.sessions.get(peer); ok {
		return s, nil
	}
	handle, err := r.presenter.CreateOverlay(peer)
	if err != nil {
		return nil, errors.Wrapf(err, "error creating overlay for %q", peer)
	}
	s := newPeerSession(peer, handle, r.defaultImage, now)
	r.sessions.put(s)
	r.logger.Infow("new peer", "peer", peer, "handle", handle, "peers", r.sessions.len())
	return s, nil
}

// Apply applies msg at time now. It returns an intent when the peer's
// overlay must move or be redrawn. A rejected update leaves the session as
// it was.
func (r *Reconciler) Apply(msg PeerMessage, now time.Time) (RenderIntent, bool, error) {
	if left, ok := msg.Update.(PeerLeft); ok {
		s, ok := r.sessions.get(msg.Sender)
		if !ok {
			return RenderIntent{}, false, nil
		}
		r.logger.Debugw("hiding peer", "peer", msg.Sender, "reason", left.Reason)
		intent, changed := r.setPose(s, Pose{}, now)
		return intent, changed, nil
	}

	s, err := r.session(msg.Sender, now)
	if err != nil {
		return RenderIntent{}, false, err
	}
	s.lastSeen = now

	switch u := msg.Update.(type) {
	case PoseUpdate:
		intent, changed := r.setPose(s, u.Pose, now)
		return intent, changed, nil
	case ImageUpdate:
		if u.Image == nil {
			return RenderIntent{}, false, errors.New("no cursor image")
		}
		b := u.Image.Image().Bounds()
		if err := ValidateCursorDimensions(b.Dx(), b.Dy()); err != nil {
			return RenderIntent{}, false, err
		}
		s.Image = u.Image.Scale(r.cursorScale)
		s.lastFrame = noFrame
		return RenderIntent{}, false, nil
	case AnimationSetUpdate:
		if err := u.Set.Validate(); err != nil {
			return RenderIntent{}, false, err
		}
		s.Animations = u.Set
		return RenderIntent{}, false, nil
	default:
		return RenderIntent{}, false, errors.Errorf("unknown update %T", msg.Update)
	}
}

func (r *Reconciler) setPose(s *PeerSession, pose Pose, now time.Time) (RenderIntent, bool) {
	poseChanged := s.Pose != pose
	s.Pose = pose
	f := s.frameAt(r.elapsed(now))
	frameChanged := int64(f.Index) != s.lastFrame
	if !poseChanged && !frameChanged {
		return RenderIntent{}, false
	}
	return r.intent(s, f, frameChanged), true
}

func (r *Reconciler) intent(s *PeerSession, f Frame, blit bool) RenderIntent {
	intent := RenderIntent{
		Peer:   s.Peer,
		Handle: s.Handle,
		Hidden: !s.Pose.Shown(),
		X:      OffscreenX,
		Y:      OffscreenY,
	}
	if !intent.Hidden {
		width, height := r.presenter.MonitorSize()
		intent.X = int(s.Pose.X * float32(width))
		intent.Y = int(s.Pose.Y * float32(height))
	}
	if blit {
		s.lastFrame = int64(f.Index)
		img, ok := s.Image.Frame(f.Index)
		if !ok {
			r.logger.Debugw("frame out of range", "peer", s.Peer, "frame", f.Index, "frames", s.Image.NumFrames())
		} else {
			intent.Frame = img
		}
	}
	return intent
}

// Tick advances the animation of every shown peer to now and returns an
// intent for each whose frame changed.
func (r *Reconciler) Tick(now time.Time) []RenderIntent {
	elapsed := r.elapsed(now)
	var intents []RenderIntent
	r.sessions.each(func(s *PeerSession) {
		if !s.Pose.Shown() {
			return
		}
		f := s.frameAt(elapsed)
		if int64(f.Index) == s.lastFrame {
			return
		}
		intents = append(intents, r.intent(s, f, true))
	})
	return intents
}

// Expire hides every shown peer not heard from within timeout.
func (r *Reconciler) Expire(now time.Time, timeout time.Duration) []RenderIntent {
	if timeout <= 0 {
		return nil
	}
	var intents []RenderIntent
	r.sessions.each(func(s *PeerSession) {
		if !s.Pose.Shown() || now.Sub(s.lastSeen) < timeout {
			return
		}
		r.logger.Infow("peer went quiet", "peer", s.Peer, "silent", now.Sub(s.lastSeen))
		if intent, changed := r.setPose(s, Pose{}, now); changed {
			intents = append(intents, intent)
		}
	})
	return intents
}
