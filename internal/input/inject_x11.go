//go:build linux || freebsd

package input

import (
	"fmt"
	"math"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"github.com/jezek/xgb/xtest"
)

// Supported reports whether this build can inject input.
const Supported = true

// X pointer buttons.
const (
	xButtonLeft      = 1
	xButtonMiddle    = 2
	xButtonRight     = 3
	xButtonWheelUp   = 4
	xButtonWheelDown = 5
)

// maxScrollClicks caps the wheel clicks sent for one Scroll; each click is
// a checked round trip to the server.
const maxScrollClicks = 100

type x11Backend struct{}

// NewBackend returns the XTEST injection backend. The X server is taken
// from $DISPLAY each time a session is opened.
func NewBackend() Backend {
	return x11Backend{}
}

func (x11Backend) Open() (Session, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDisplayUnavailable, err)
	}
	if err := xtest.Init(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: XTEST extension: %v", ErrDisplayUnavailable, err)
	}

	setup := xproto.Setup(conn)
	s := &x11Session{
		conn:     conn,
		root:     setup.DefaultScreen(conn).Root,
		minCode:  setup.MinKeycode,
		maxCode:  setup.MaxKeycode,
		remapped: make(map[Symbol]xproto.Keycode),
	}
	if err := s.loadKeymap(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: keyboard mapping: %v", ErrDisplayUnavailable, err)
	}
	return s, nil
}

type x11Session struct {
	conn *xgb.Conn
	root xproto.Window

	minCode xproto.Keycode
	maxCode xproto.Keycode
	perCode int
	keysyms []xproto.Keysym

	// symbols temporarily bound to a spare keycode, released on key up
	remapped map[Symbol]xproto.Keycode
}

func (s *x11Session) loadKeymap() error {
	count := byte(s.maxCode - s.minCode + 1)
	reply, err := xproto.GetKeyboardMapping(s.conn, s.minCode, count).Reply()
	if err != nil {
		return err
	}
	s.perCode = int(reply.KeysymsPerKeycode)
	s.keysyms = reply.Keysyms
	return nil
}

func (s *x11Session) fake(eventType byte, detail byte, x, y int16) error {
	return xtest.FakeInputChecked(s.conn, eventType, detail, 0, s.root, x, y, 0).Check()
}

// The protocol carries coordinates as int16; values outside that range are
// saturated since they cannot be expressed at all.
func clampInt16(v int) int16 {
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}

func (s *x11Session) MoveTo(x, y int) error {
	return s.fake(xproto.MotionNotify, 0, clampInt16(x), clampInt16(y))
}

func (s *x11Session) Button(b Button, pressed bool) error {
	detail := byte(xButtonLeft)
	switch b {
	case ButtonRight:
		detail = xButtonRight
	case ButtonMiddle:
		detail = xButtonMiddle
	}
	return s.fake(buttonEvent(pressed), detail, 0, 0)
}

func (s *x11Session) Scroll(delta int) error {
	detail := byte(xButtonWheelUp)
	if delta < 0 {
		detail = xButtonWheelDown
		delta = -delta
	}
	for i := 0; i < min(delta, maxScrollClicks); i++ {
		if err := s.fake(xproto.ButtonPress, detail, 0, 0); err != nil {
			return err
		}
		if err := s.fake(xproto.ButtonRelease, detail, 0, 0); err != nil {
			return err
		}
	}
	return nil
}

func buttonEvent(pressed bool) byte {
	if pressed {
		return xproto.ButtonPress
	}
	return xproto.ButtonRelease
}

func keyEvent(pressed bool) byte {
	if pressed {
		return xproto.KeyPress
	}
	return xproto.KeyRelease
}

// lookup finds the keycode producing sym in the first two columns of the
// keymap. shifted is set when the symbol needs Shift held.
func (s *x11Session) lookup(sym Symbol) (code xproto.Keycode, shifted bool, ok bool) {
	cols := s.perCode
	if cols > 2 {
		cols = 2
	}
	for i := 0; i*s.perCode < len(s.keysyms); i++ {
		for col := 0; col < cols; col++ {
			if Symbol(s.keysyms[i*s.perCode+col]) == sym {
				return s.minCode + xproto.Keycode(i), col == 1, true
			}
		}
	}
	if lower, ok := lowerKeysym(sym); ok {
		if code, _, found := s.lookup(lower); found {
			return code, true, true
		}
	}
	return 0, false, false
}

// spareKeycode returns a keycode with no symbols bound to it.
func (s *x11Session) spareKeycode() (xproto.Keycode, bool) {
	for i := len(s.keysyms)/s.perCode - 1; i >= 0; i-- {
		empty := true
		for col := 0; col < s.perCode; col++ {
			if s.keysyms[i*s.perCode+col] != 0 {
				empty = false
				break
			}
		}
		if !empty {
			continue
		}
		code := s.minCode + xproto.Keycode(i)
		inUse := false
		for _, c := range s.remapped {
			if c == code {
				inUse = true
				break
			}
		}
		if !inUse {
			return code, true
		}
	}
	return 0, false
}

func (s *x11Session) bind(code xproto.Keycode, sym Symbol) error {
	syms := make([]xproto.Keysym, s.perCode)
	for i := range syms {
		syms[i] = xproto.Keysym(sym)
	}
	if err := xproto.ChangeKeyboardMappingChecked(s.conn, 1, code, byte(s.perCode), syms).Check(); err != nil {
		return err
	}
	// Round trip so clients see the MappingNotify before the key event.
	_, err := xproto.GetInputFocus(s.conn).Reply()
	return err
}

func (s *x11Session) Key(sym Symbol, pressed bool) error {
	if code, ok := s.remapped[sym]; ok {
		if err := s.fake(keyEvent(pressed), byte(code), 0, 0); err != nil {
			return err
		}
		if !pressed {
			delete(s.remapped, sym)
			return s.bind(code, 0)
		}
		return nil
	}

	code, shifted, ok := s.lookup(sym)
	if !ok {
		if !pressed {
			return nil
		}
		spare, found := s.spareKeycode()
		if !found {
			return fmt.Errorf("%w: keysym 0x%x", ErrUnmappedSymbol, uint32(sym))
		}
		if err := s.bind(spare, sym); err != nil {
			return err
		}
		s.remapped[sym] = spare
		return s.fake(xproto.KeyPress, byte(spare), 0, 0)
	}

	var shiftCode xproto.Keycode
	if shifted {
		shiftCode, _, shifted = s.lookup(xkShiftL)
	}
	if shifted && pressed {
		if err := s.fake(xproto.KeyPress, byte(shiftCode), 0, 0); err != nil {
			return err
		}
	}
	if err := s.fake(keyEvent(pressed), byte(code), 0, 0); err != nil {
		return err
	}
	if shifted && !pressed {
		return s.fake(xproto.KeyRelease, byte(shiftCode), 0, 0)
	}
	return nil
}

func (s *x11Session) Close() error {
	for sym, code := range s.remapped {
		if err := s.bind(code, 0); err != nil {
			break
		}
		delete(s.remapped, sym)
	}
	s.conn.Close()
	return nil
}
