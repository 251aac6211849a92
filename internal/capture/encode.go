package capture

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/klauspost/compress/zlib"
)

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

const (
	pngColorRGB   = 2
	pngBitDepth   = 8
	pngFilterNone = 0
	pngFilterSub  = 1
)

// Encoder writes frames as 8-bit RGB PNG images without interlacing.
type Encoder struct {
	// Level is the zlib compression level; zero selects the default.
	Level int

	// NoFilter disables the Sub row filter. Sub usually shrinks screenshots
	// considerably for little CPU.
	NoFilter bool
}

// Encode validates f and writes it to w as a PNG stream.
func (e *Encoder) Encode(w io.Writer, f *Frame) error {
	if err := f.Validate(); err != nil {
		return err
	}

	idat, err := e.compressRows(f)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCaptureFailed, err)
	}

	var ihdr [13]byte
	binary.BigEndian.PutUint32(ihdr[0:4], uint32(f.Width))
	binary.BigEndian.PutUint32(ihdr[4:8], uint32(f.Height))
	ihdr[8] = pngBitDepth
	ihdr[9] = pngColorRGB
	// compression, filter method and interlace are all 0

	if _, err := w.Write(pngSignature); err != nil {
		return err
	}
	if err := writeChunk(w, "IHDR", ihdr[:]); err != nil {
		return err
	}
	if err := writeChunk(w, "IDAT", idat); err != nil {
		return err
	}
	return writeChunk(w, "IEND", nil)
}

// EncodeBytes returns f encoded as PNG.
func (e *Encoder) EncodeBytes(f *Frame) ([]byte, error) {
	var buf bytes.Buffer
	if err := e.Encode(&buf, f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (e *Encoder) compressRows(f *Frame) ([]byte, error) {
	level := e.Level
	if level == 0 {
		level = zlib.DefaultCompression
	}

	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, err
	}

	rowLen := 1 + f.Width*3
	row := make([]byte, rowLen)
	for y := 0; y < f.Height; y++ {
		rgb := row[1:]
		for x := 0; x < f.Width; x++ {
			rgb[x*3], rgb[x*3+1], rgb[x*3+2] = f.RGB(x, y)
		}

		if e.NoFilter {
			row[0] = pngFilterNone
		} else {
			row[0] = pngFilterSub
			// Right to left so each byte is diffed against the unfiltered
			// byte of the previous pixel.
			for i := len(rgb) - 1; i >= 3; i-- {
				rgb[i] -= rgb[i-3]
			}
		}

		if _, err := zw.Write(row); err != nil {
			zw.Close()
			return nil, err
		}
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeChunk(w io.Writer, kind string, data []byte) error {
	var header [8]byte
	binary.BigEndian.PutUint32(header[0:4], uint32(len(data)))
	copy(header[4:8], kind)

	crc := crc32.NewIEEE()
	crc.Write(header[4:8])
	crc.Write(data)

	var footer [4]byte
	binary.BigEndian.PutUint32(footer[:], crc.Sum32())

	for _, part := range [][]byte{header[:], data, footer[:]} {
		if _, err := w.Write(part); err != nil {
			return err
		}
	}
	return nil
}
