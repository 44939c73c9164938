// Package overlay draws remote pointers over the local screen and reads
// the local pointer for a holder, both with ebiten.
package overlay

import (
	"context"
	"errors"
	"image"
	"time"

	"github.com/edaniels/golog"
	"github.com/hajimehoshi/ebiten/v2"

	"github.com/edaniels/gopointer"
	"github.com/edaniels/gopointer/transport"
)

// A Stepper is advanced once per overlay frame. *gopointer.Watcher is one.
type Stepper interface {
	Step(now time.Time) error
}

type sprite struct {
	peer   transport.PeerID
	img    *ebiten.Image
	x, y   int
	drawn  bool
	hidden bool
}

// An Overlay is a transparent, borderless, click-through window covering
// the primary monitor. Each peer overlay is a sprite within it. All of its
// Presenter methods run on ebiten's update goroutine.
type Overlay struct {
	width, height int
	sprites       []*sprite

	ctx     context.Context
	stepper Stepper
	logger  golog.Logger
}

// New returns an overlay sized to the primary monitor.
func New(logger golog.Logger) *Overlay {
	if logger == nil {
		logger = golog.Global().Named("overlay")
	}
	width, height := ebiten.Monitor().Size()
	if width == 0 || height == 0 {
		width, height = 1920, 1080
	}
	return &Overlay{width: width, height: height, logger: logger}
}

// MonitorSize returns the size of the covered monitor.
func (o *Overlay) MonitorSize() (int, int) {
	return o.width, o.height
}

// CreateOverlay adds a hidden sprite for peer.
func (o *Overlay) CreateOverlay(peer transport.PeerID) (gopointer.OverlayHandle, error) {
	o.sprites = append(o.sprites, &sprite{
		peer:   peer,
		x:      gopointer.OffscreenX,
		y:      gopointer.OffscreenY,
		hidden: true,
	})
	return gopointer.OverlayHandle(len(o.sprites) - 1), nil
}

func (o *Overlay) sprite(h gopointer.OverlayHandle) *sprite {
	if int(h) >= len(o.sprites) {
		return nil
	}
	return o.sprites[h]
}

// SetPosition moves a sprite. Positions off the monitor hide it.
func (o *Overlay) SetPosition(h gopointer.OverlayHandle, x, y int) {
	s := o.sprite(h)
	if s == nil {
		return
	}
	s.x, s.y = x, y
	s.hidden = x == gopointer.OffscreenX && y == gopointer.OffscreenY
}

// Blit replaces a sprite's image.
func (o *Overlay) Blit(h gopointer.OverlayHandle, frame image.Image) {
	s := o.sprite(h)
	if s == nil {
		return
	}
	if s.img != nil {
		s.img.Deallocate()
	}
	s.img = ebiten.NewImageFromImage(frame)
}

// RequestRedraw marks a sprite ready to draw. ebiten redraws every frame,
// so nothing else is needed.
func (o *Overlay) RequestRedraw(h gopointer.OverlayHandle) {
	if s := o.sprite(h); s != nil {
		s.drawn = true
	}
}

// Update implements ebiten.Game.
func (o *Overlay) Update() error {
	if o.ctx != nil && o.ctx.Err() != nil {
		return ebiten.Termination
	}
	if o.stepper == nil {
		return nil
	}
	if err := o.stepper.Step(time.Now()); err != nil {
		if errors.Is(err, gopointer.ErrStopped) {
			return ebiten.Termination
		}
		return err
	}
	return nil
}

// Draw implements ebiten.Game.
func (o *Overlay) Draw(screen *ebiten.Image) {
	for _, s := range o.sprites {
		if s.hidden || !s.drawn || s.img == nil {
			continue
		}
		var op ebiten.DrawImageOptions
		op.GeoM.Translate(float64(s.x), float64(s.y))
		screen.DrawImage(s.img, &op)
	}
}

// Layout implements ebiten.Game.
func (o *Overlay) Layout(outsideWidth, outsideHeight int) (int, int) {
	return o.width, o.height
}

// Run shows the overlay and steps stepper every frame until ctx is done or
// stepper stops. It must be called from the main goroutine.
func (o *Overlay) Run(ctx context.Context, stepper Stepper, tickInterval time.Duration) error {
	o.ctx = ctx
	o.stepper = stepper
	if tickInterval > 0 {
		ebiten.SetTPS(int(time.Second / tickInterval))
	}
	ebiten.SetWindowTitle("pointercast")
	ebiten.SetWindowDecorated(false)
	ebiten.SetWindowFloating(true)
	ebiten.SetWindowMousePassthrough(true)
	ebiten.SetWindowSize(o.width, o.height)
	ebiten.SetWindowPosition(0, 0)
	o.logger.Debugw("showing overlay", "width", o.width, "height", o.height)
	err := ebiten.RunGameWithOptions(o, &ebiten.RunGameOptions{
		ScreenTransparent: true,
		SkipTaskbar:       true,
		InitUnfocused:     true,
	})
	if errors.Is(err, ebiten.Termination) {
		return nil
	}
	return err
}
