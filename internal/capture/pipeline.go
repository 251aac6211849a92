package capture

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// Grabber reads the primary display. Every call acquires and releases its
// own display context.
type Grabber interface {
	// ScreenSize returns the current dimensions of the primary display.
	ScreenSize() (Size, error)

	// Grab reads the whole display in a single backend call.
	Grab() (*Frame, error)
}

// Pipeline combines a Grabber with the PNG Encoder.
type Pipeline struct {
	grabber Grabber
	encoder *Encoder
	log     zerolog.Logger
}

// NewPipeline creates a pipeline. A nil encoder selects the defaults.
func NewPipeline(g Grabber, enc *Encoder, log zerolog.Logger) *Pipeline {
	if enc == nil {
		enc = &Encoder{}
	}
	return &Pipeline{
		grabber: g,
		encoder: enc,
		log:     log.With().Str("component", "capture").Logger(),
	}
}

// ScreenSize reports the primary display size.
func (p *Pipeline) ScreenSize() (Size, error) {
	return p.grabber.ScreenSize()
}

// Capture grabs the display and returns it as PNG bytes.
func (p *Pipeline) Capture() ([]byte, error) {
	frame, err := p.grabber.Grab()
	if err != nil {
		return nil, err
	}

	png, err := p.encoder.EncodeBytes(frame)
	if err != nil {
		return nil, err
	}

	p.log.Debug().
		Int("width", frame.Width).
		Int("height", frame.Height).
		Int("bytes", len(png)).
		Msg("Capture: encoded frame")
	return png, nil
}

// SaveTo captures the display into dir as hostbridge-<timestamp>.png and
// returns the written path.
func (p *Pipeline) SaveTo(dir string, now time.Time) (string, error) {
	png, err := p.Capture()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	path := filepath.Join(dir, "hostbridge-"+now.Format("20060102-150405")+".png")
	if err := os.WriteFile(path, png, 0644); err != nil {
		return "", fmt.Errorf("write capture: %w", err)
	}
	p.log.Info().Str("path", path).Msg("Capture: saved to file")
	return path, nil
}

// PicturesDir returns ~/Pictures when it exists, otherwise the home
// directory.
func PicturesDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	pictures := filepath.Join(home, "Pictures")
	if info, err := os.Stat(pictures); err == nil && info.IsDir() {
		return pictures, nil
	}
	return home, nil
}
