//go:build darwin

package capture

import (
	"fmt"

	"github.com/kbinani/screenshot"
)

// Supported reports whether this build can capture the screen.
const Supported = true

type darwinGrabber struct{}

// NewGrabber returns the CoreGraphics grabber for the main display.
func NewGrabber() Grabber {
	return darwinGrabber{}
}

func (darwinGrabber) ScreenSize() (Size, error) {
	if screenshot.NumActiveDisplays() == 0 {
		return Size{}, ErrDisplayUnavailable
	}
	b := screenshot.GetDisplayBounds(0)
	return Size{Width: b.Dx(), Height: b.Dy()}, nil
}

func (darwinGrabber) Grab() (*Frame, error) {
	if screenshot.NumActiveDisplays() == 0 {
		return nil, ErrDisplayUnavailable
	}
	img, err := screenshot.CaptureDisplay(0)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCaptureFailed, err)
	}

	b := img.Bounds()
	return &Frame{
		Width:  b.Dx(),
		Height: b.Dy(),
		Stride: img.Stride,
		Pix:    img.Pix,
		Layout: LayoutRGBX,
	}, nil
}
