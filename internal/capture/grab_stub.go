//go:build !linux && !freebsd && !windows && !darwin

package capture

// Supported reports whether this build can capture the screen.
const Supported = false

type stubGrabber struct{}

// NewGrabber returns a grabber that always fails with ErrUnsupported.
func NewGrabber() Grabber {
	return stubGrabber{}
}

func (stubGrabber) ScreenSize() (Size, error) { return Size{}, ErrUnsupported }

func (stubGrabber) Grab() (*Frame, error) { return nil, ErrUnsupported }
