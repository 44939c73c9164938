package gopointer

import (
	"fmt"

	"github.com/edaniels/gopointer/transport"
)

// An Update is one change a peer asks for. It is one of PoseUpdate,
// AnimationSetUpdate, ImageUpdate or PeerLeft.
type Update interface {
	isUpdate()
}

// PoseUpdate replaces the peer's pose.
type PoseUpdate struct {
	Pose Pose
}

// AnimationSetUpdate replaces all of the peer's animation tracks.
type AnimationSetUpdate struct {
	Set AnimationSet
}

// ImageUpdate replaces the peer's cursor strip.
type ImageUpdate struct {
	Image *CursorImage
}

// PeerLeft says the peer disconnected or timed out.
type PeerLeft struct {
	Reason transport.Event
}

func (PoseUpdate) isUpdate()         {}
func (AnimationSetUpdate) isUpdate() {}
func (ImageUpdate) isUpdate()        {}
func (PeerLeft) isUpdate()           {}

// A PeerMessage is an Update tagged with who sent it. It is the only value
// that crosses from the ingestor to the presentation loop.
type PeerMessage struct {
	Sender transport.PeerID
	Update Update
}

func (m PeerMessage) String() string {
	switch u := m.Update.(type) {
	case PoseUpdate:
		return fmt.Sprintf("%s: pose %s (%.3f, %.3f)", m.Sender, u.Pose.State, u.Pose.X, u.Pose.Y)
	case AnimationSetUpdate:
		return fmt.Sprintf("%s: animation set", m.Sender)
	case ImageUpdate:
		return fmt.Sprintf("%s: image with %d frames", m.Sender, u.Image.NumFrames())
	case PeerLeft:
		return fmt.Sprintf("%s: left (%s)", m.Sender, u.Reason)
	default:
		return fmt.Sprintf("%s: %T", m.Sender, m.Update)
	}
}
