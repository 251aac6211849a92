package tray

import (
	"encoding/binary"
	"sync"
)

const iconSize = 16

var (
	iconOnce  sync.Once
	iconBytes []byte
)

// Icon returns the tray icon as a 16x16 32-bit ICO: a dark monitor outline
// with a blue screen.
func Icon() []byte {
	iconOnce.Do(func() { iconBytes = buildIcon() })
	return iconBytes
}

func buildIcon() []byte {
	const (
		headerLen = 6 + 16
		dibLen    = 40
		pixelLen  = iconSize * iconSize * 4
		maskLen   = iconSize * 4 // 1bpp rows padded to 32 bits
	)
	imageLen := dibLen + pixelLen + maskLen
	icon := make([]byte, headerLen+imageLen)
	le := binary.LittleEndian

	// ICONDIR
	le.PutUint16(icon[2:], 1) // type: icon
	le.PutUint16(icon[4:], 1) // count

	// ICONDIRENTRY
	icon[6] = iconSize
	icon[7] = iconSize
	le.PutUint16(icon[10:], 1)  // planes
	le.PutUint16(icon[12:], 32) // bpp
	le.PutUint32(icon[14:], uint32(imageLen))
	le.PutUint32(icon[18:], headerLen)

	// BITMAPINFOHEADER, height doubled for the AND mask
	dib := icon[headerLen:]
	le.PutUint32(dib[0:], dibLen)
	le.PutUint32(dib[4:], iconSize)
	le.PutUint32(dib[8:], iconSize*2)
	le.PutUint16(dib[12:], 1)
	le.PutUint16(dib[14:], 32)
	le.PutUint32(dib[20:], pixelLen)

	// Rows are stored bottom-up as BGRA.
	pix := dib[dibLen:]
	for y := 0; y < iconSize; y++ {
		row := pix[(iconSize-1-y)*iconSize*4:]
		for x := 0; x < iconSize; x++ {
			copy(row[x*4:x*4+4], iconPixel(x, y))
		}
	}
	// The AND mask stays zero; alpha carries transparency.
	return icon
}

func iconPixel(x, y int) []byte {
	var (
		clear  = []byte{0, 0, 0, 0}
		frame  = []byte{0x40, 0x40, 0x40, 0xff}
		screen = []byte{0xe0, 0x90, 0x30, 0xff}
	)
	switch {
	case y >= 1 && y <= 10 && x >= 1 && x <= 14:
		if y == 1 || y == 10 || x == 1 || x == 14 {
			return frame
		}
		return screen
	case y >= 11 && y <= 12 && x >= 7 && x <= 8: // stand
		return frame
	case y == 13 && x >= 4 && x <= 11: // base
		return frame
	}
	return clear
}
