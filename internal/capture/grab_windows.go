//go:build windows

package capture

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

// Supported reports whether this build can capture the screen.
const Supported = true

const (
	smCXScreen = 0
	smCYScreen = 1

	srcCopy    = 0x00CC0020
	captureBlt = 0x40000000

	biRGB        = 0
	dibRGBColors = 0
)

var (
	user32               = windows.NewLazySystemDLL("user32.dll")
	procGetDC            = user32.NewProc("GetDC")
	procReleaseDC        = user32.NewProc("ReleaseDC")
	procGetSystemMetrics = user32.NewProc("GetSystemMetrics")

	gdi32                      = windows.NewLazySystemDLL("gdi32.dll")
	procCreateCompatibleDC     = gdi32.NewProc("CreateCompatibleDC")
	procCreateCompatibleBitmap = gdi32.NewProc("CreateCompatibleBitmap")
	procSelectObject           = gdi32.NewProc("SelectObject")
	procBitBlt                 = gdi32.NewProc("BitBlt")
	procGetDIBits              = gdi32.NewProc("GetDIBits")
	procDeleteObject           = gdi32.NewProc("DeleteObject")
	procDeleteDC               = gdi32.NewProc("DeleteDC")
)

type bitmapInfoHeader struct {
	size          uint32
	width         int32
	height        int32
	planes        uint16
	bitCount      uint16
	compression   uint32
	sizeImage     uint32
	xPelsPerMeter int32
	yPelsPerMeter int32
	clrUsed       uint32
	clrImportant  uint32
}

type bitmapInfo struct {
	header bitmapInfoHeader
	colors [1]uint32
}

type gdiGrabber struct{}

// NewGrabber returns the GDI grabber for the primary monitor.
func NewGrabber() Grabber {
	return gdiGrabber{}
}

func screenSize() (int, int) {
	w, _, _ := procGetSystemMetrics.Call(smCXScreen)
	h, _, _ := procGetSystemMetrics.Call(smCYScreen)
	return int(int32(w)), int(int32(h))
}

func (gdiGrabber) ScreenSize() (Size, error) {
	w, h := screenSize()
	if w <= 0 || h <= 0 {
		return Size{}, ErrDisplayUnavailable
	}
	return Size{Width: w, Height: h}, nil
}

func (gdiGrabber) Grab() (*Frame, error) {
	w, h := screenSize()

	screenDC, _, _ := procGetDC.Call(0)
	if screenDC == 0 {
		return nil, fmt.Errorf("%w: GetDC failed", ErrDisplayUnavailable)
	}
	defer procReleaseDC.Call(0, screenDC)

	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: display reports %dx%d", ErrCaptureFailed, w, h)
	}

	memDC, _, _ := procCreateCompatibleDC.Call(screenDC)
	if memDC == 0 {
		return nil, fmt.Errorf("%w: CreateCompatibleDC failed", ErrCaptureFailed)
	}
	defer procDeleteDC.Call(memDC)

	bitmap, _, _ := procCreateCompatibleBitmap.Call(screenDC, uintptr(w), uintptr(h))
	if bitmap == 0 {
		return nil, fmt.Errorf("%w: CreateCompatibleBitmap failed", ErrCaptureFailed)
	}
	defer procDeleteObject.Call(bitmap)

	old, _, _ := procSelectObject.Call(memDC, bitmap)
	ok, _, err := procBitBlt.Call(memDC, 0, 0, uintptr(w), uintptr(h), screenDC, 0, 0, srcCopy|captureBlt)
	// GetDIBits needs the bitmap deselected.
	procSelectObject.Call(memDC, old)
	if ok == 0 {
		return nil, fmt.Errorf("%w: BitBlt: %v", ErrCaptureFailed, err)
	}

	bi := bitmapInfo{header: bitmapInfoHeader{
		width:       int32(w),
		height:      -int32(h), // top-down rows
		planes:      1,
		bitCount:    32,
		compression: biRGB,
	}}
	bi.header.size = uint32(unsafe.Sizeof(bi.header))

	stride := w * 4
	pix := make([]byte, stride*h)
	lines, _, err := procGetDIBits.Call(memDC, bitmap, 0, uintptr(h),
		uintptr(unsafe.Pointer(&pix[0])), uintptr(unsafe.Pointer(&bi)), dibRGBColors)
	if int(lines) != h {
		return nil, fmt.Errorf("%w: GetDIBits copied %d of %d rows: %v", ErrCaptureFailed, lines, h, err)
	}

	return &Frame{
		Width:  w,
		Height: h,
		Stride: stride,
		Pix:    pix,
		Layout: LayoutBGRX,
	}, nil
}
