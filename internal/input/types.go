// Package input synthesizes pointer and keyboard events on the local display.
//
// On Windows coordinates are physical pixels only once the process is DPI
// aware; call osutils.Startup before using the engine.
package input

import "strings"

// Symbol is a platform key symbol: an X keysym, a Windows virtual-key code or
// a macOS virtual keycode, depending on the backend compiled in. Backends
// that can type arbitrary characters may reserve high bits to mark a symbol
// as a Unicode code point rather than a physical key.
type Symbol uint32

// Button is a pointer button.
type Button int

const (
	ButtonLeft Button = iota
	ButtonRight
	ButtonMiddle
)

func (b Button) String() string {
	switch b {
	case ButtonRight:
		return "right"
	case ButtonMiddle:
		return "middle"
	default:
		return "left"
	}
}

// ParseButton maps a button name to a Button. Unrecognized names fall back
// to the left button rather than failing.
func ParseButton(name string) Button {
	switch strings.ToLower(name) {
	case "right":
		return ButtonRight
	case "middle":
		return ButtonMiddle
	default:
		return ButtonLeft
	}
}

// Session is an injection channel opened for the duration of one command.
// Implementations are not safe for concurrent use; every command opens its
// own.
type Session interface {
	// MoveTo moves the pointer to absolute screen coordinates.
	MoveTo(x, y int) error

	// Button presses or releases a pointer button at the current position.
	Button(b Button, pressed bool) error

	// Scroll turns the vertical wheel; positive is away from the user.
	Scroll(delta int) error

	// Key presses or releases the key for sym. It returns ErrUnmappedSymbol
	// when the current keyboard cannot produce sym.
	Key(sym Symbol, pressed bool) error

	Close() error
}

// Backend opens injection sessions on the platform's input subsystem.
type Backend interface {
	// Open returns ErrDisplayUnavailable when no injection channel can be
	// established, and ErrUnsupported on platforms without a backend.
	Open() (Session, error)
}
