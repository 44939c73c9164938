package gopointer

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
)

// PoseState is the logical state of a holder's pointer.
type PoseState uint8

// The pose states. Idle is the zero value so a fresh session starts hidden.
const (
	PoseIdle PoseState = iota
	PoseVisible
	PoseFlashing
)

func (s PoseState) String() string {
	switch s {
	case PoseIdle:
		return "idle"
	case PoseVisible:
		return "visible"
	case PoseFlashing:
		return "flashing"
	default:
		return fmt.Sprintf("PoseState(%d)", uint8(s))
	}
}

// ParsePoseState parses the wire name of a state.
func ParsePoseState(name string) (PoseState, error) {
	switch name {
	case "idle":
		return PoseIdle, nil
	case "visible":
		return PoseVisible, nil
	case "flashing":
		return PoseFlashing, nil
	default:
		return PoseIdle, errors.Errorf("unknown pose state %q", name)
	}
}

// A Pose is the last known pointer state of a holder. X and Y are
// fractions of the screen in [0,1].
type Pose struct {
	State PoseState
	X, Y  float32
}

// Shown reports whether the pose should be drawn.
func (p Pose) Shown() bool {
	return p.State != PoseIdle
}

// PoseFromButtons maps the holder's mouse buttons to a pose: both buttons
// flash the pointer, the left one shows it and anything else hides it.
func PoseFromButtons(left, right bool, x, y float32) Pose {
	switch {
	case left && right:
		return Pose{State: PoseFlashing, X: x, Y: y}
	case left:
		return Pose{State: PoseVisible, X: x, Y: y}
	default:
		return Pose{State: PoseIdle}
	}
}

const poseKind = "state"

type poseJSON struct {
	Kind    string  `json:"kind"`
	State   string  `json:"state,omitempty"`
	Visible bool    `json:"visible"`
	X       float32 `json:"x"`
	Y       float32 `json:"y"`
}

// MarshalJSON writes the pose in its wire form. The visible flag is kept
// next to the state for consumers that only know about show/hide.
func (p Pose) MarshalJSON() ([]byte, error) {
	return json.Marshal(poseJSON{
		Kind:    poseKind,
		State:   p.State.String(),
		Visible: p.Shown(),
		X:       p.X,
		Y:       p.Y,
	})
}

// UnmarshalJSON reads either the tagged form or the plain visible flag form.
func (p *Pose) UnmarshalJSON(data []byte) error {
	var raw poseJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Kind != "" && raw.Kind != poseKind {
		return errors.Errorf("expected kind %q but got %q", poseKind, raw.Kind)
	}
	state := PoseIdle
	if raw.State != "" {
		var err error
		state, err = ParsePoseState(raw.State)
		if err != nil {
			return err
		}
	} else if raw.Visible {
		state = PoseVisible
	}
	*p = Pose{State: state, X: raw.X, Y: raw.Y}
	if state == PoseIdle {
		// position is meaningless while hidden; normalize so equal poses compare equal
		p.X, p.Y = 0, 0
	}
	return nil
}
