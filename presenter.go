package gopointer

import (
	"image"
	"sync"

	"github.com/edaniels/golog"

	"github.com/edaniels/gopointer/transport"
)

// An OverlayHandle names one peer's overlay within a Presenter.
type OverlayHandle uint64

// A Presenter owns the overlays peers are drawn in. It is only ever called
// from the presentation loop.
type Presenter interface {
	// MonitorSize returns the pixel size poses are scaled to.
	MonitorSize() (width, height int)

	// CreateOverlay allocates a new, hidden overlay for peer.
	CreateOverlay(peer transport.PeerID) (OverlayHandle, error)

	// SetPosition moves the overlay's top left corner.
	SetPosition(h OverlayHandle, x, y int)

	// Blit replaces the overlay's contents with frame.
	Blit(h OverlayHandle, frame image.Image)

	// RequestRedraw asks for the overlay to be shown as it is now.
	RequestRedraw(h OverlayHandle)
}

// Off screen position used for hidden overlays.
const (
	OffscreenX = -1000
	OffscreenY = -1000
)

// A RenderIntent tells the presentation loop to move and possibly redraw a
// peer's overlay.
type RenderIntent struct {
	Peer   transport.PeerID
	Handle OverlayHandle
	Hidden bool
	X, Y   int
	// Frame is nil when only the position changed.
	Frame image.Image
}

// Render carries out intent on p.
func Render(p Presenter, intent RenderIntent) {
	p.SetPosition(intent.Handle, intent.X, intent.Y)
	if intent.Frame != nil {
		p.Blit(intent.Handle, intent.Frame)
	}
	p.RequestRedraw(intent.Handle)
}

type loggedOverlay struct {
	peer   transport.PeerID
	x, y   int
	frame  image.Image
	blits  int
	redraw int
}

// A LogPresenter is a headless Presenter that keeps overlay state in memory
// and logs every change.
type LogPresenter struct {
	width, height int
	logger        golog.Logger

	mu       sync.Mutex
	overlays []*loggedOverlay
}

// NewLogPresenter returns a presenter pretending to drive a width x height
// monitor.
func NewLogPresenter(width, height int, logger golog.Logger) *LogPresenter {
	if logger == nil {
		logger = golog.Global().Named("presenter")
	}
	return &LogPresenter{width: width, height: height, logger: logger}
}

// MonitorSize returns the configured size.
func (lp *LogPresenter) MonitorSize() (int, int) {
	return lp.width, lp.height
}

// CreateOverlay allocates an overlay parked off screen.
func (lp *LogPresenter) CreateOverlay(peer transport.PeerID) (OverlayHandle, error) {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	lp.overlays = append(lp.overlays, &loggedOverlay{peer: peer, x: OffscreenX, y: OffscreenY})
	h := OverlayHandle(len(lp.overlays) - 1)
	lp.logger.Infow("overlay created", "peer", peer, "handle", h)
	return h, nil
}

func (lp *LogPresenter) overlay(h OverlayHandle) *loggedOverlay {
	if int(h) >= len(lp.overlays) {
		return nil
	}
	return lp.overlays[h]
}

// SetPosition records the position.
func (lp *LogPresenter) SetPosition(h OverlayHandle, x, y int) {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	if o := lp.overlay(h); o != nil {
		o.x, o.y = x, y
	}
}

// Blit records the frame.
func (lp *LogPresenter) Blit(h OverlayHandle, frame image.Image) {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	if o := lp.overlay(h); o != nil {
		o.frame = frame
		o.blits++
	}
}

// RequestRedraw logs the overlay as it is now.
func (lp *LogPresenter) RequestRedraw(h OverlayHandle) {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	o := lp.overlay(h)
	if o == nil {
		return
	}
	o.redraw++
	lp.logger.Debugw("redraw", "peer", o.peer, "handle", h, "x", o.x, "y", o.y, "blits", o.blits)
}

// Position returns where the overlay was last moved to.
func (lp *LogPresenter) Position(h OverlayHandle) (x, y int, ok bool) {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	o := lp.overlay(h)
	if o == nil {
		return 0, 0, false
	}
	return o.x, o.y, true
}

// Blits returns how many frames were blitted into the overlay.
func (lp *LogPresenter) Blits(h OverlayHandle) int {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	if o := lp.overlay(h); o != nil {
		return o.blits
	}
	return 0
}

// Redraws returns how many redraws the overlay was asked for.
func (lp *LogPresenter) Redraws(h OverlayHandle) int {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	if o := lp.overlay(h); o != nil {
		return o.redraw
	}
	return 0
}

// NumOverlays returns how many overlays were created.
func (lp *LogPresenter) NumOverlays() int {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	return len(lp.overlays)
}
