//go:build windows

package input

import (
	"fmt"
	"unicode/utf16"
	"unsafe"

	"golang.org/x/sys/windows"
)

// Supported reports whether this build can inject input.
const Supported = true

const (
	inputMouse    = 0
	inputKeyboard = 1

	mouseeventfLeftDown   = 0x0002
	mouseeventfLeftUp     = 0x0004
	mouseeventfRightDown  = 0x0008
	mouseeventfRightUp    = 0x0010
	mouseeventfMiddleDown = 0x0020
	mouseeventfMiddleUp   = 0x0040
	mouseeventfWheel      = 0x0800

	keyeventfExtendedKey = 0x0001
	keyeventfKeyUp       = 0x0002
	keyeventfUnicode     = 0x0004

	mapvkVKToVSC = 0
	genericAll   = 0x10000000
)

var (
	user32               = windows.NewLazySystemDLL("user32.dll")
	procSendInput        = user32.NewProc("SendInput")
	procSetCursorPos     = user32.NewProc("SetCursorPos")
	procMapVirtualKeyW   = user32.NewProc("MapVirtualKeyW")
	procOpenInputDesktop = user32.NewProc("OpenInputDesktop")
	procCloseDesktop     = user32.NewProc("CloseDesktop")
)

// MOUSEINPUT and KEYBDINPUT share the INPUT union; both layouts are padded
// to the size of the larger one.
type mouseInput struct {
	dx, dy    int32
	mouseData uint32
	flags     uint32
	time      uint32
	extraInfo uintptr
}

type keyboardInput struct {
	vk        uint16
	scan      uint16
	flags     uint32
	time      uint32
	extraInfo uintptr
	_         [8]byte
}

type mouseEvent struct {
	kind uint32
	mi   mouseInput
}

type keyboardEvent struct {
	kind uint32
	ki   keyboardInput
}

type windowsBackend struct{}

// NewBackend returns the SendInput injection backend.
func NewBackend() Backend {
	return windowsBackend{}
}

func (windowsBackend) Open() (Session, error) {
	// A secure desktop (UAC prompt, lock screen) cannot be opened and would
	// silently swallow events.
	desk, _, err := procOpenInputDesktop.Call(0, 0, genericAll)
	if desk == 0 {
		return nil, fmt.Errorf("%w: OpenInputDesktop: %v", ErrDisplayUnavailable, err)
	}
	return &windowsSession{desktop: desk}, nil
}

type windowsSession struct {
	desktop uintptr
}

func sendInput(ptr unsafe.Pointer, size uintptr) error {
	n, _, err := procSendInput.Call(1, uintptr(ptr), size)
	if n != 1 {
		return fmt.Errorf("SendInput: %w", err)
	}
	return nil
}

func sendMouse(flags, data uint32) error {
	ev := mouseEvent{kind: inputMouse, mi: mouseInput{flags: flags, mouseData: data}}
	return sendInput(unsafe.Pointer(&ev), unsafe.Sizeof(ev))
}

func sendKey(vk, scan uint16, flags uint32) error {
	ev := keyboardEvent{kind: inputKeyboard, ki: keyboardInput{vk: vk, scan: scan, flags: flags}}
	return sendInput(unsafe.Pointer(&ev), unsafe.Sizeof(ev))
}

func (s *windowsSession) MoveTo(x, y int) error {
	ok, _, err := procSetCursorPos.Call(uintptr(int32(x)), uintptr(int32(y)))
	if ok == 0 {
		return fmt.Errorf("SetCursorPos: %w", err)
	}
	return nil
}

func (s *windowsSession) Button(b Button, pressed bool) error {
	var down, up uint32 = mouseeventfLeftDown, mouseeventfLeftUp
	switch b {
	case ButtonRight:
		down, up = mouseeventfRightDown, mouseeventfRightUp
	case ButtonMiddle:
		down, up = mouseeventfMiddleDown, mouseeventfMiddleUp
	}
	if pressed {
		return sendMouse(down, 0)
	}
	return sendMouse(up, 0)
}

// Scroll passes delta through as wheel data; one notch is WHEEL_DELTA (120).
func (s *windowsSession) Scroll(delta int) error {
	return sendMouse(mouseeventfWheel, uint32(int32(delta)))
}

func (s *windowsSession) Key(sym Symbol, pressed bool) error {
	var up uint32
	if !pressed {
		up = keyeventfKeyUp
	}

	if sym&unicodeFlag != 0 {
		for _, unit := range utf16.Encode([]rune{rune(sym &^ unicodeFlag)}) {
			if err := sendKey(0, unit, keyeventfUnicode|up); err != nil {
				return err
			}
		}
		return nil
	}

	scan, _, _ := procMapVirtualKeyW.Call(uintptr(sym), mapvkVKToVSC)
	flags := up
	if extendedKeys[sym] {
		flags |= keyeventfExtendedKey
	}
	return sendKey(uint16(sym), uint16(scan), flags)
}

func (s *windowsSession) Close() error {
	if s.desktop == 0 {
		return nil
	}
	ok, _, err := procCloseDesktop.Call(s.desktop)
	s.desktop = 0
	if ok == 0 {
		return fmt.Errorf("CloseDesktop: %w", err)
	}
	return nil
}
