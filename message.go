package gopointer

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// A MessageTag is the first byte of every datagram and says how the rest
// is encoded.
type MessageTag byte

// The message tags.
const (
	TagPose         MessageTag = 0x01
	TagAnimationSet MessageTag = 0x02
	TagImage        MessageTag = 0x03
)

const animationSetKind = "animation_set"

var (
	// ErrEmptyMessage happens when a datagram has no tag.
	ErrEmptyMessage = errors.New("empty message")
	// ErrUnknownTag happens when a datagram's tag is not a known message.
	ErrUnknownTag = errors.New("unknown message tag")
)

func frame(tag MessageTag, payload []byte) []byte {
	msg := make([]byte, len(payload)+1)
	msg[0] = byte(tag)
	copy(msg[1:], payload)
	return msg
}

// EncodePose encodes a pose datagram.
func EncodePose(p Pose) ([]byte, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return frame(TagPose, payload), nil
}

type animationSetJSON struct {
	Kind     string `json:"kind"`
	Idle     Track  `json:"idle"`
	Visible  Track  `json:"visible"`
	Flashing Track  `json:"flashing"`
}

// EncodeAnimationSet encodes an animation set datagram.
func EncodeAnimationSet(as AnimationSet) ([]byte, error) {
	payload, err := json.Marshal(animationSetJSON{
		Kind:     animationSetKind,
		Idle:     as.Idle,
		Visible:  as.Visible,
		Flashing: as.Flashing,
	})
	if err != nil {
		return nil, err
	}
	return frame(TagAnimationSet, payload), nil
}

// EncodeImage wraps already encoded image bytes as a datagram.
func EncodeImage(encoded []byte) []byte {
	return frame(TagImage, encoded)
}

func decodePose(payload []byte) (Pose, error) {
	var p Pose
	if err := json.Unmarshal(payload, &p); err != nil {
		return Pose{}, errors.Wrap(err, "error decoding pose")
	}
	return p, nil
}

// decodeAnimationSet decodes and validates an animation set. Tracks left
// out of the message get the default track.
func decodeAnimationSet(payload []byte) (AnimationSet, error) {
	var raw animationSetJSON
	if err := json.Unmarshal(payload, &raw); err != nil {
		return AnimationSet{}, errors.Wrap(err, "error decoding animation set")
	}
	if raw.Kind != "" && raw.Kind != animationSetKind {
		return AnimationSet{}, errors.Errorf("expected kind %q but got %q", animationSetKind, raw.Kind)
	}
	as := AnimationSet{Idle: raw.Idle, Visible: raw.Visible, Flashing: raw.Flashing}.withDefaults()
	if err := as.Validate(); err != nil {
		return AnimationSet{}, err
	}
	return as, nil
}
