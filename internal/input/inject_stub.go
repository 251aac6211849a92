//go:build !linux && !freebsd && !windows && !darwin

package input

// Supported reports whether this build can inject input.
const Supported = false

var keySymbols = map[string]Symbol{}

func runeSymbol(rune) (Symbol, bool) { return 0, false }

type stubBackend struct{}

// NewBackend returns a backend whose sessions can never be opened.
func NewBackend() Backend {
	return stubBackend{}
}

func (stubBackend) Open() (Session, error) {
	return nil, ErrUnsupported
}
