package gopointer

import (
	"bytes"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"github.com/dustin/go-humanize"
	"github.com/nfnt/resize"
	"github.com/pkg/errors"

	"github.com/edaniels/gopointer/transport"
)

// CursorSize is the edge length, in pixels, of one frame of a cursor strip
// as it travels over the wire.
const CursorSize = 64

// ErrBadCursorDimensions happens when an image is not a strip of
// CursorSize square frames.
var ErrBadCursorDimensions = errors.New("bad cursor image dimensions")

// MaxCursorFileSize is the largest encoded cursor strip that fits in one
// image message, after its tag byte.
const MaxCursorFileSize = transport.MaxPayloadSize - 1

// ErrCursorTooLarge happens when an encoded cursor strip cannot be sent.
var ErrCursorTooLarge = errors.New("cursor image too large")

// ValidateCursorFileSize checks that an encoded strip of size bytes fits in
// one image message.
func ValidateCursorFileSize(size int) error {
	if size > MaxCursorFileSize {
		return errors.Wrapf(ErrCursorTooLarge, "%s exceeds %s",
			humanize.Bytes(uint64(size)), humanize.Bytes(MaxCursorFileSize))
	}
	return nil
}

// ValidateCursorDimensions checks that a width x height bitmap is a strip of
// whole CursorSize frames.
func ValidateCursorDimensions(width, height int) error {
	if height != CursorSize {
		return errors.Wrapf(ErrBadCursorDimensions, "height is %d but must be %d", height, CursorSize)
	}
	if width <= 0 || width%CursorSize != 0 {
		return errors.Wrapf(ErrBadCursorDimensions, "width %d is not a multiple of %d", width, CursorSize)
	}
	return nil
}

// A CursorImage is a horizontal strip of square frames; frame i starts at
// x = i * Size().
type CursorImage struct {
	img    image.Image
	size   int
	frames int
}

// NewCursorImage validates img and wraps it as a cursor strip.
func NewCursorImage(img image.Image) (*CursorImage, error) {
	if img == nil {
		return nil, errors.New("no cursor image")
	}
	b := img.Bounds()
	if err := ValidateCursorDimensions(b.Dx(), b.Dy()); err != nil {
		return nil, err
	}
	return &CursorImage{img: img, size: CursorSize, frames: b.Dx() / CursorSize}, nil
}

// DecodeCursorImage decodes an encoded image (PNG, JPEG, GIF, BMP or TIFF)
// and validates it as a cursor strip.
func DecodeCursorImage(data []byte) (*CursorImage, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "error decoding cursor image")
	}
	return NewCursorImage(img)
}

// Image returns the whole strip.
func (c *CursorImage) Image() image.Image {
	return c.img
}

// Size returns the edge length of a single frame.
func (c *CursorImage) Size() int {
	return c.size
}

// NumFrames returns how many frames the strip holds.
func (c *CursorImage) NumFrames() int {
	return c.frames
}

// Frame crops out frame i. It returns false if the strip has no such frame.
func (c *CursorImage) Frame(i uint32) (image.Image, bool) {
	if int64(i) >= int64(c.frames) {
		return nil, false
	}
	b := c.img.Bounds()
	x := b.Min.X + int(i)*c.size
	return imaging.Crop(c.img, image.Rect(x, b.Min.Y, x+c.size, b.Min.Y+c.size)), true
}

// Scale returns a copy of the strip with every frame resized by factor.
func (c *CursorImage) Scale(factor float32) *CursorImage {
	if factor <= 0 || factor == 1 {
		return c
	}
	size := int(math.Round(float64(factor) * float64(c.size)))
	if size < 1 {
		size = 1
	}
	img := resize.Resize(uint(size*c.frames), uint(size), c.img, resize.Lanczos3)
	return &CursorImage{img: img, size: size, frames: c.frames}
}

// DefaultCursorImage returns a single frame red laser dot.
func DefaultCursorImage() *CursorImage {
	img := imaging.New(CursorSize, CursorSize, color.NRGBA{})
	center := float64(CursorSize-1) / 2
	radius := float64(CursorSize) / 8
	for y := 0; y < CursorSize; y++ {
		for x := 0; x < CursorSize; x++ {
			d := math.Hypot(float64(x)-center, float64(y)-center)
			var alpha float64
			switch {
			case d <= radius:
				alpha = 1
			case d <= radius*2:
				// soft glow around the dot
				alpha = 0.5 * (1 - (d-radius)/radius)
			default:
				continue
			}
			img.SetNRGBA(x, y, color.NRGBA{R: 255, G: 32, B: 32, A: uint8(alpha * 255)})
		}
	}
	return &CursorImage{img: img, size: CursorSize, frames: 1}
}
