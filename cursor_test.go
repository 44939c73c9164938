package gopointer

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
	"go.viam.com/test"

	"github.com/edaniels/gopointer/transport"
)

// stripImage returns a strip of frames square frames, each filled with a
// color whose red channel is the frame index.
func stripImage(frames, height int) image.Image {
	img := imaging.New(frames*CursorSize, height, color.NRGBA{})
	for i := 0; i < frames; i++ {
		for y := 0; y < height; y++ {
			for x := i * CursorSize; x < (i+1)*CursorSize; x++ {
				img.SetNRGBA(x, y, color.NRGBA{R: uint8(i), A: 255})
			}
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	test.That(t, imaging.Encode(&buf, img, imaging.PNG), test.ShouldBeNil)
	return buf.Bytes()
}

func TestValidateCursorDimensions(t *testing.T) {
	test.That(t, ValidateCursorDimensions(3*CursorSize, CursorSize), test.ShouldBeNil)
	test.That(t, ValidateCursorDimensions(CursorSize, CursorSize), test.ShouldBeNil)

	err := ValidateCursorDimensions(CursorSize, CursorSize+1)
	test.That(t, errors.Is(err, ErrBadCursorDimensions), test.ShouldBeTrue)
	err = ValidateCursorDimensions(CursorSize+1, CursorSize)
	test.That(t, errors.Is(err, ErrBadCursorDimensions), test.ShouldBeTrue)
	err = ValidateCursorDimensions(0, CursorSize)
	test.That(t, errors.Is(err, ErrBadCursorDimensions), test.ShouldBeTrue)
}

func TestDecodeCursorImage(t *testing.T) {
	cursor, err := DecodeCursorImage(encodePNG(t, stripImage(3, CursorSize)))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cursor.NumFrames(), test.ShouldEqual, 3)
	test.That(t, cursor.Size(), test.ShouldEqual, CursorSize)

	for i := uint32(0); i < 3; i++ {
		frame, ok := cursor.Frame(i)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, frame.Bounds().Dx(), test.ShouldEqual, CursorSize)
		test.That(t, frame.Bounds().Dy(), test.ShouldEqual, CursorSize)
		r, _, _, _ := frame.At(CursorSize/2, CursorSize/2).RGBA()
		test.That(t, r>>8, test.ShouldEqual, i)
	}
	_, ok := cursor.Frame(3)
	test.That(t, ok, test.ShouldBeFalse)

	_, err = DecodeCursorImage(encodePNG(t, stripImage(1, CursorSize+1)))
	test.That(t, errors.Is(err, ErrBadCursorDimensions), test.ShouldBeTrue)

	_, err = DecodeCursorImage([]byte("not an image"))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestCursorScale(t *testing.T) {
	cursor, err := NewCursorImage(stripImage(2, CursorSize))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cursor.Scale(1), test.ShouldEqual, cursor)

	scaled := cursor.Scale(0.5)
	test.That(t, scaled.Size(), test.ShouldEqual, CursorSize/2)
	test.That(t, scaled.NumFrames(), test.ShouldEqual, 2)
	test.That(t, scaled.Image().Bounds().Dx(), test.ShouldEqual, CursorSize)
	frame, ok := scaled.Frame(1)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, frame.Bounds().Dx(), test.ShouldEqual, CursorSize/2)
}

func TestDefaultCursorImage(t *testing.T) {
	cursor := DefaultCursorImage()
	test.That(t, cursor.NumFrames(), test.ShouldEqual, 1)
	_, _, _, a := cursor.Image().At(CursorSize/2, CursorSize/2).RGBA()
	test.That(t, a, test.ShouldBeGreaterThan, 0)
	_, _, _, a = cursor.Image().At(0, 0).RGBA()
	test.That(t, a, test.ShouldEqual, 0)
}

func TestValidateCursorFileSize(t *testing.T) {
	test.That(t, ValidateCursorFileSize(0), test.ShouldBeNil)
	test.That(t, ValidateCursorFileSize(MaxCursorFileSize), test.ShouldBeNil)
	// the image message adds a tag byte and must still fit in one datagram
	test.That(t, len(EncodeImage(make([]byte, MaxCursorFileSize))), test.ShouldEqual, transport.MaxPayloadSize)

	err := ValidateCursorFileSize(MaxCursorFileSize + 1)
	test.That(t, errors.Is(err, ErrCursorTooLarge), test.ShouldBeTrue)
}
