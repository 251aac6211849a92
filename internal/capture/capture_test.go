package capture

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testFrame builds a frame with a distinct color per pixel and padding bytes
// at the end of each row.
func testFrame(w, h, pad int, layout Layout) *Frame {
	stride := w*4 + pad
	pix := make([]byte, stride*h)
	for i := range pix {
		pix[i] = 0xEE // padding and X bytes must never leak into the image
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b := pixelColor(x, y)
			word := uint32(r)<<layout.RedShift | uint32(g)<<layout.GreenShift | uint32(b)<<layout.BlueShift
			// keep the unused byte set
			var mask uint32 = 0xFF<<layout.RedShift | 0xFF<<layout.GreenShift | 0xFF<<layout.BlueShift
			word |= ^mask
			binary.LittleEndian.PutUint32(pix[y*stride+x*4:], word)
		}
	}
	return &Frame{Width: w, Height: h, Stride: stride, Pix: pix, Layout: layout}
}

func pixelColor(x, y int) (byte, byte, byte) {
	return byte(x * 17), byte(y * 29), byte(x*y + 3)
}

func assertDecodes(t *testing.T, data []byte, w, h int) {
	t.Helper()

	require.True(t, bytes.HasPrefix(data, []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}))

	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, w, cfg.Width)
	assert.Equal(t, h, cfg.Height)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			wr, wg, wb := pixelColor(x, y)
			require.Equal(t, [3]byte{wr, wg, wb}, [3]byte{byte(r >> 8), byte(g >> 8), byte(b >> 8)},
				"pixel %d,%d", x, y)
		}
	}
}

func TestEncodeLayouts(t *testing.T) {
	tests := []struct {
		name   string
		layout Layout
		pad    int
	}{
		{"bgrx", LayoutBGRX, 0},
		{"rgbx", LayoutRGBX, 0},
		{"bgrx wide stride", LayoutBGRX, 12},
		{"rgbx wide stride", LayoutRGBX, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := testFrame(13, 7, tt.pad, tt.layout)
			data, err := (&Encoder{}).EncodeBytes(f)
			require.NoError(t, err)
			assertDecodes(t, data, 13, 7)
		})
	}
}

func TestEncodeWithoutFilter(t *testing.T) {
	f := testFrame(9, 4, 0, LayoutBGRX)
	data, err := (&Encoder{NoFilter: true, Level: 1}).EncodeBytes(f)
	require.NoError(t, err)
	assertDecodes(t, data, 9, 4)
}

func TestEncodeHeader(t *testing.T) {
	data, err := (&Encoder{}).EncodeBytes(testFrame(3, 2, 0, LayoutRGBX))
	require.NoError(t, err)

	// signature, then the IHDR chunk
	ihdr := data[8:]
	assert.Equal(t, uint32(13), binary.BigEndian.Uint32(ihdr[0:4]))
	assert.Equal(t, "IHDR", string(ihdr[4:8]))
	assert.Equal(t, uint32(3), binary.BigEndian.Uint32(ihdr[8:12]))
	assert.Equal(t, uint32(2), binary.BigEndian.Uint32(ihdr[12:16]))
	assert.Equal(t, byte(8), ihdr[16], "bit depth")
	assert.Equal(t, byte(2), ihdr[17], "color type")
	assert.Equal(t, byte(0), ihdr[20], "interlace")

	assert.True(t, bytes.HasSuffix(data, []byte{0, 0, 0, 0, 'I', 'E', 'N', 'D', 0xAE, 0x42, 0x60, 0x82}))
}

func TestEncodeRejectsBadFrames(t *testing.T) {
	tests := []struct {
		name  string
		frame *Frame
	}{
		{"zero pixels", &Frame{Width: 0, Height: 0, Layout: LayoutBGRX}},
		{"zero height", &Frame{Width: 4, Height: 0, Stride: 16, Layout: LayoutBGRX}},
		{"short buffer", &Frame{Width: 4, Height: 4, Stride: 16, Pix: make([]byte, 60), Layout: LayoutBGRX}},
		{"narrow stride", &Frame{Width: 4, Height: 1, Stride: 8, Pix: make([]byte, 16), Layout: LayoutBGRX}},
		{"bad shift", &Frame{Width: 1, Height: 1, Stride: 4, Pix: make([]byte, 4), Layout: Layout{RedShift: 30}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := (&Encoder{}).EncodeBytes(tt.frame)
			assert.ErrorIs(t, err, ErrCaptureFailed)
		})
	}
}

type fakeGrabber struct {
	frame   *Frame
	size    Size
	grabErr error
}

func (g *fakeGrabber) ScreenSize() (Size, error) { return g.size, nil }

func (g *fakeGrabber) Grab() (*Frame, error) {
	if g.grabErr != nil {
		return nil, g.grabErr
	}
	return g.frame, nil
}

func TestPipelineCapture(t *testing.T) {
	g := &fakeGrabber{frame: testFrame(20, 10, 0, LayoutBGRX), size: Size{Width: 20, Height: 10}}
	p := NewPipeline(g, nil, zerolog.Nop())

	size, err := p.ScreenSize()
	require.NoError(t, err)

	data, err := p.Capture()
	require.NoError(t, err)
	assertDecodes(t, data, size.Width, size.Height)
}

func TestPipelineErrors(t *testing.T) {
	p := NewPipeline(&fakeGrabber{grabErr: ErrDisplayUnavailable}, nil, zerolog.Nop())
	_, err := p.Capture()
	assert.ErrorIs(t, err, ErrDisplayUnavailable)

	p = NewPipeline(&fakeGrabber{frame: &Frame{Layout: LayoutBGRX}}, nil, zerolog.Nop())
	_, err = p.Capture()
	assert.ErrorIs(t, err, ErrCaptureFailed)
	assert.False(t, errors.Is(err, ErrDisplayUnavailable))
}

func TestPipelineSaveTo(t *testing.T) {
	g := &fakeGrabber{frame: testFrame(8, 4, 0, LayoutRGBX)}
	p := NewPipeline(g, nil, zerolog.Nop())
	dir := filepath.Join(t.TempDir(), "shots")
	now := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)

	path, err := p.SaveTo(dir, now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "hostbridge-20240309-140507.png"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assertDecodes(t, data, 8, 4)
}

func TestPipelineSaveToWritesNothingOnFailure(t *testing.T) {
	dir := t.TempDir()
	p := NewPipeline(&fakeGrabber{grabErr: ErrDisplayUnavailable}, nil, zerolog.Nop())

	_, err := p.SaveTo(dir, time.Now())
	assert.ErrorIs(t, err, ErrDisplayUnavailable)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
