package overlay

import (
	"context"
	"errors"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/edaniels/gopointer"
)

// A PoseSink takes the local pointer's pose. *gopointer.Holder is one.
type PoseSink interface {
	SetPose(p gopointer.Pose)
}

// Default pad window size.
const (
	PadWidth  = 640
	PadHeight = 360
)

var (
	padBackground = color.NRGBA{A: 48}
	padDot        = color.NRGBA{R: 255, G: 32, B: 32, A: 255}
)

// A Pad is a small translucent window standing in for the holder's screen.
// Holding the left button shows the pointer, holding both flashes it.
type Pad struct {
	sink          PoseSink
	width, height int
	pose          gopointer.Pose
	ctx           context.Context
}

// NewPad returns a pad feeding sink.
func NewPad(sink PoseSink) *Pad {
	return &Pad{sink: sink, width: PadWidth, height: PadHeight}
}

// padPose maps a cursor position in a width x height window to a pose,
// clamping positions outside the window to its edges.
func padPose(left, right bool, x, y, width, height int) gopointer.Pose {
	if width <= 0 || height <= 0 {
		return gopointer.Pose{}
	}
	return gopointer.PoseFromButtons(left, right, clamp01(float32(x)/float32(width)), clamp01(float32(y)/float32(height)))
}

func clamp01(v float32) float32 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// Update implements ebiten.Game.
func (p *Pad) Update() error {
	if p.ctx != nil && p.ctx.Err() != nil {
		return ebiten.Termination
	}
	x, y := ebiten.CursorPosition()
	p.pose = padPose(
		ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft),
		ebiten.IsMouseButtonPressed(ebiten.MouseButtonRight),
		x, y, p.width, p.height,
	)
	p.sink.SetPose(p.pose)
	return nil
}

// Draw implements ebiten.Game.
func (p *Pad) Draw(screen *ebiten.Image) {
	screen.Fill(padBackground)
	if !p.pose.Shown() {
		return
	}
	radius := float32(8)
	if p.pose.State == gopointer.PoseFlashing {
		radius = 12
	}
	vector.DrawFilledCircle(
		screen,
		p.pose.X*float32(p.width),
		p.pose.Y*float32(p.height),
		radius,
		padDot,
		true,
	)
}

// Layout implements ebiten.Game.
func (p *Pad) Layout(outsideWidth, outsideHeight int) (int, int) {
	p.width, p.height = outsideWidth, outsideHeight
	return outsideWidth, outsideHeight
}

// Run shows the pad until ctx is done or the window is closed. It must be
// called from the main goroutine.
func (p *Pad) Run(ctx context.Context) error {
	p.ctx = ctx
	ebiten.SetWindowTitle("Laser Pointer")
	ebiten.SetWindowSize(PadWidth, PadHeight)
	ebiten.SetWindowSizeLimits(200, 80, -1, -1)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	err := ebiten.RunGameWithOptions(p, &ebiten.RunGameOptions{ScreenTransparent: true})
	// hide the pointer everywhere once the pad is gone
	p.sink.SetPose(gopointer.Pose{})
	if errors.Is(err, ebiten.Termination) {
		return nil
	}
	return err
}
