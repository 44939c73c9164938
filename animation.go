package gopointer

import (
	"math"
	"time"

	"github.com/pkg/errors"
)

// A Frame is one timed step of an animation. Index selects the square
// region of a CursorImage strip and Duration is in seconds.
type Frame struct {
	Index    uint32  `json:"index" toml:"index"`
	Duration float32 `json:"duration" toml:"duration"`
}

// A Track is an ordered, looping sequence of frames.
type Track struct {
	Frames []Frame `json:"frames" toml:"frames"`
}

// NewTrack returns a track made of the given frames.
func NewTrack(frames ...Frame) Track {
	return Track{Frames: frames}
}

// ErrEmptyTrack happens when a track has no frames.
var ErrEmptyTrack = errors.New("animation track has no frames")

// ErrDegenerateTrack happens when the durations of a track do not add up
// to a positive, finite loop length.
var ErrDegenerateTrack = errors.New("animation track has no positive total duration")

// TotalDuration returns the loop length of the track in seconds.
func (t Track) TotalDuration() float64 {
	var total float64
	for _, f := range t.Frames {
		total += float64(f.Duration)
	}
	return total
}

// Validate checks that the track can be looped.
func (t Track) Validate() error {
	if len(t.Frames) == 0 {
		return ErrEmptyTrack
	}
	for i, f := range t.Frames {
		d := float64(f.Duration)
		if math.IsNaN(d) || math.IsInf(d, 0) || d < 0 {
			return errors.Errorf("frame %d has invalid duration %v", i, f.Duration)
		}
	}
	if t.TotalDuration() <= 0 {
		return ErrDegenerateTrack
	}
	return nil
}

// SelectFrame returns the frame active at elapsed seconds into the loop.
// It is pure; the same track and elapsed time always give the same frame.
// A track whose durations sum to zero always yields its first frame.
func (t Track) SelectFrame(elapsed float32) Frame {
	if len(t.Frames) == 0 {
		return Frame{}
	}
	total := t.TotalDuration()
	if total <= 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		return t.Frames[0]
	}
	at := math.Mod(float64(elapsed), total)
	if at < 0 {
		at += total
	}
	var acc float64
	for _, f := range t.Frames {
		acc += float64(f.Duration)
		if at < acc {
			return f
		}
	}
	return t.Frames[0]
}

// FrameAt is SelectFrame for a clock that has been running for elapsed.
// The loop position is found at full precision first so long running
// clocks keep short frames apart.
func (t Track) FrameAt(elapsed time.Duration) Frame {
	total := t.TotalDuration()
	if total <= 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		return t.SelectFrame(0)
	}
	at := math.Mod(elapsed.Seconds(), total)
	if at < 0 {
		at += total
	}
	return t.SelectFrame(float32(at))
}

// An AnimationSet holds one track per pose state.
type AnimationSet struct {
	Idle     Track `json:"idle" toml:"idle"`
	Visible  Track `json:"visible" toml:"visible"`
	Flashing Track `json:"flashing" toml:"flashing"`
}

// defaultTrack shows the first frame of the cursor image forever.
func defaultTrack() Track {
	return NewTrack(Frame{Index: 0, Duration: 1})
}

// DefaultAnimationSet returns the set a peer starts with.
func DefaultAnimationSet() AnimationSet {
	return AnimationSet{
		Idle:     defaultTrack(),
		Visible:  defaultTrack(),
		Flashing: defaultTrack(),
	}
}

// Track returns the track used while in the given state.
func (as AnimationSet) Track(state PoseState) Track {
	switch state {
	case PoseVisible:
		return as.Visible
	case PoseFlashing:
		return as.Flashing
	case PoseIdle:
		fallthrough
	default:
		return as.Idle
	}
}

// withDefaults fills in any track left empty with the default track.
func (as AnimationSet) withDefaults() AnimationSet {
	if len(as.Idle.Frames) == 0 {
		as.Idle = defaultTrack()
	}
	if len(as.Visible.Frames) == 0 {
		as.Visible = defaultTrack()
	}
	if len(as.Flashing.Frames) == 0 {
		as.Flashing = defaultTrack()
	}
	return as
}

// Validate checks every track of the set.
func (as AnimationSet) Validate() error {
	if err := as.Idle.Validate(); err != nil {
		return errors.Wrap(err, "idle")
	}
	if err := as.Visible.Validate(); err != nil {
		return errors.Wrap(err, "visible")
	}
	if err := as.Flashing.Validate(); err != nil {
		return errors.Wrap(err, "flashing")
	}
	return nil
}
