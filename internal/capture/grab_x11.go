//go:build linux || freebsd

package capture

import (
	"fmt"
	"math/bits"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
)

// Supported reports whether this build can capture the screen.
const Supported = true

type x11Grabber struct{}

// NewGrabber returns the X11 grabber for the default screen of $DISPLAY.
func NewGrabber() Grabber {
	return x11Grabber{}
}

func openDisplay() (*xgb.Conn, *xproto.ScreenInfo, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrDisplayUnavailable, err)
	}
	return conn, xproto.Setup(conn).DefaultScreen(conn), nil
}

func (x11Grabber) ScreenSize() (Size, error) {
	conn, screen, err := openDisplay()
	if err != nil {
		return Size{}, err
	}
	defer conn.Close()

	return Size{Width: int(screen.WidthInPixels), Height: int(screen.HeightInPixels)}, nil
}

func (x11Grabber) Grab() (*Frame, error) {
	conn, screen, err := openDisplay()
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	setup := xproto.Setup(conn)
	layout, err := rootLayout(setup, screen)
	if err != nil {
		return nil, err
	}

	w, h := screen.WidthInPixels, screen.HeightInPixels
	reply, err := xproto.GetImage(conn, xproto.ImageFormatZPixmap, xproto.Drawable(screen.Root),
		0, 0, w, h, 0xffffffff).Reply()
	if err != nil {
		return nil, fmt.Errorf("%w: GetImage: %v", ErrCaptureFailed, err)
	}

	return &Frame{
		Width:  int(w),
		Height: int(h),
		Stride: int(w) * 4,
		Pix:    reply.Data,
		Layout: layout,
	}, nil
}

// rootLayout derives the packed pixel layout of the root window from its
// visual. Only 32 bits per pixel ZPixmaps with 8-bit channels are handled.
func rootLayout(setup *xproto.SetupInfo, screen *xproto.ScreenInfo) (Layout, error) {
	bpp := 0
	for _, f := range setup.PixmapFormats {
		if f.Depth == screen.RootDepth {
			bpp = int(f.BitsPerPixel)
			break
		}
	}
	if bpp != 32 {
		return Layout{}, fmt.Errorf("%w: unsupported pixmap format, %d bits per pixel at depth %d",
			ErrCaptureFailed, bpp, screen.RootDepth)
	}

	var visual *xproto.VisualInfo
	for _, d := range screen.AllowedDepths {
		for i := range d.Visuals {
			if d.Visuals[i].VisualId == screen.RootVisual {
				visual = &d.Visuals[i]
			}
		}
	}
	if visual == nil {
		return LayoutBGRX, nil
	}

	layout := Layout{
		RedShift:   uint(bits.TrailingZeros32(visual.RedMask)),
		GreenShift: uint(bits.TrailingZeros32(visual.GreenMask)),
		BlueShift:  uint(bits.TrailingZeros32(visual.BlueMask)),
	}
	if setup.ImageByteOrder == xproto.ImageOrderMSBFirst {
		layout.RedShift = 24 - layout.RedShift
		layout.GreenShift = 24 - layout.GreenShift
		layout.BlueShift = 24 - layout.BlueShift
	}
	return layout, nil
}
