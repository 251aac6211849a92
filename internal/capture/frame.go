// Package capture grabs the primary display and encodes it as PNG.
//
// On Windows the screen size and frames are in physical pixels only once the
// process is DPI aware; call osutils.Startup before grabbing.
package capture

import (
	"encoding/binary"
	"fmt"
)

// Layout gives the bit offsets of the color channels inside a little-endian
// packed 32-bit pixel. Each channel is 8 bits wide.
type Layout struct {
	RedShift   uint
	GreenShift uint
	BlueShift  uint
}

var (
	// LayoutBGRX is the byte order B, G, R, X, as produced by GDI and most
	// 24-bit X servers.
	LayoutBGRX = Layout{RedShift: 16, GreenShift: 8, BlueShift: 0}

	// LayoutRGBX is the byte order R, G, B, X, as in image.RGBA.
	LayoutRGBX = Layout{RedShift: 0, GreenShift: 8, BlueShift: 16}
)

// Size is a display size in pixels.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Frame is one raw grab of the display. Rows are top to bottom, Stride bytes
// apart, four bytes per pixel.
type Frame struct {
	Width  int
	Height int
	Stride int
	Pix    []byte
	Layout Layout
}

// Validate checks that the buffer actually holds Width x Height pixels.
func (f *Frame) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("%w: empty frame %dx%d", ErrCaptureFailed, f.Width, f.Height)
	}
	if f.Stride < f.Width*4 {
		return fmt.Errorf("%w: stride %d too small for width %d", ErrCaptureFailed, f.Stride, f.Width)
	}
	if need := f.Stride * f.Height; len(f.Pix) < need {
		return fmt.Errorf("%w: buffer holds %d bytes, frame needs %d", ErrCaptureFailed, len(f.Pix), need)
	}
	for _, s := range []uint{f.Layout.RedShift, f.Layout.GreenShift, f.Layout.BlueShift} {
		if s > 24 {
			return fmt.Errorf("%w: channel shift %d out of range", ErrCaptureFailed, s)
		}
	}
	return nil
}

// RGB returns the color of the pixel at (x, y).
func (f *Frame) RGB(x, y int) (r, g, b byte) {
	word := binary.LittleEndian.Uint32(f.Pix[y*f.Stride+x*4:])
	return byte(word >> f.Layout.RedShift), byte(word >> f.Layout.GreenShift), byte(word >> f.Layout.BlueShift)
}
