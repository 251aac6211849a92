//go:build darwin

package input

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework CoreGraphics -framework CoreFoundation -framework ApplicationServices

#include <CoreGraphics/CoreGraphics.h>
#include <CoreFoundation/CoreFoundation.h>
#include <ApplicationServices/ApplicationServices.h>

static bool hasAccessibilityPermissions() {
    return AXIsProcessTrusted();
}

// Event sources cross into Go as integers.
static uintptr_t openSource() {
    return (uintptr_t)CGEventSourceCreate(kCGEventSourceStateHIDSystemState);
}

static void closeSource(uintptr_t src) {
    if (src != 0) {
        CFRelease((CGEventSourceRef)src);
    }
}

static CGPoint cursorPosition() {
    CGEventRef event = CGEventCreate(NULL);
    CGPoint cursor = CGEventGetLocation(event);
    CFRelease(event);
    return cursor;
}

static bool postMouseMove(uintptr_t handle, double x, double y) {
    CGEventRef event = CGEventCreateMouseEvent((CGEventSourceRef)handle, kCGEventMouseMoved, CGPointMake(x, y), kCGMouseButtonLeft);
    if (event == NULL) {
        return false;
    }
    CGEventPost(kCGHIDEventTap, event);
    CFRelease(event);
    return true;
}

// button: 0 left, 1 right, 2 middle
static bool postMouseButton(uintptr_t handle, int button, bool pressed) {
    CGMouseButton cgButton;
    CGEventType eventType;

    switch (button) {
        case 1:
            cgButton = kCGMouseButtonRight;
            eventType = pressed ? kCGEventRightMouseDown : kCGEventRightMouseUp;
            break;
        case 2:
            cgButton = kCGMouseButtonCenter;
            eventType = pressed ? kCGEventOtherMouseDown : kCGEventOtherMouseUp;
            break;
        default:
            cgButton = kCGMouseButtonLeft;
            eventType = pressed ? kCGEventLeftMouseDown : kCGEventLeftMouseUp;
            break;
    }

    CGEventRef event = CGEventCreateMouseEvent((CGEventSourceRef)handle, eventType, cursorPosition(), cgButton);
    if (event == NULL) {
        return false;
    }
    CGEventPost(kCGHIDEventTap, event);
    CFRelease(event);
    return true;
}

static bool postScroll(uintptr_t handle, int delta) {
    CGEventRef event = CGEventCreateScrollWheelEvent((CGEventSourceRef)handle, kCGScrollEventUnitLine, 1, delta);
    if (event == NULL) {
        return false;
    }
    CGEventPost(kCGHIDEventTap, event);
    CFRelease(event);
    return true;
}

static bool postKey(uintptr_t handle, CGKeyCode code, bool pressed, CGEventFlags flags) {
    CGEventRef event = CGEventCreateKeyboardEvent((CGEventSourceRef)handle, code, pressed);
    if (event == NULL) {
        return false;
    }
    CGEventSetFlags(event, flags);
    CGEventPost(kCGHIDEventTap, event);
    CFRelease(event);
    return true;
}

static bool postUnicode(uintptr_t handle, UniChar *chars, int n, bool pressed, CGEventFlags flags) {
    CGEventRef event = CGEventCreateKeyboardEvent((CGEventSourceRef)handle, 0, pressed);
    if (event == NULL) {
        return false;
    }
    CGEventKeyboardSetUnicodeString(event, n, chars);
    CGEventSetFlags(event, flags);
    CGEventPost(kCGHIDEventTap, event);
    CFRelease(event);
    return true;
}
*/
import "C"

import (
	"errors"
	"unicode/utf16"
)

// Supported reports whether this build can inject input.
const Supported = true

var errEventCreate = errors.New("CoreGraphics refused to create event")

// modifierFlags maps modifier keycodes to the CGEventFlags they set.
var modifierFlags = map[Symbol]C.CGEventFlags{
	kvkShift:   C.kCGEventFlagMaskShift,
	kvkControl: C.kCGEventFlagMaskControl,
	kvkOption:  C.kCGEventFlagMaskAlternate,
	kvkCommand: C.kCGEventFlagMaskCommand,
	kvkCaps:    C.kCGEventFlagMaskAlphaShift,
}

type darwinBackend struct{}

// NewBackend returns the CoreGraphics injection backend. The process needs
// the Accessibility permission for events to be delivered.
func NewBackend() Backend {
	return darwinBackend{}
}

func (darwinBackend) Open() (Session, error) {
	if !bool(C.hasAccessibilityPermissions()) {
		return nil, errors.Join(ErrDisplayUnavailable, errors.New("accessibility permission not granted"))
	}
	src := C.openSource()
	if src == 0 {
		return nil, errors.Join(ErrDisplayUnavailable, errors.New("cannot create event source"))
	}
	return &darwinSession{src: src}, nil
}

type darwinSession struct {
	src   C.uintptr_t
	flags C.CGEventFlags
}

func check(ok C.bool) error {
	if !bool(ok) {
		return errEventCreate
	}
	return nil
}

func (s *darwinSession) MoveTo(x, y int) error {
	return check(C.postMouseMove(s.src, C.double(x), C.double(y)))
}

func (s *darwinSession) Button(b Button, pressed bool) error {
	return check(C.postMouseButton(s.src, C.int(b), C.bool(pressed)))
}

func (s *darwinSession) Scroll(delta int) error {
	return check(C.postScroll(s.src, C.int(delta)))
}

func (s *darwinSession) Key(sym Symbol, pressed bool) error {
	if sym&unicodeFlag != 0 {
		units := utf16.Encode([]rune{rune(sym &^ unicodeFlag)})
		chars := make([]C.UniChar, len(units))
		for i, u := range units {
			chars[i] = C.UniChar(u)
		}
		return check(C.postUnicode(s.src, &chars[0], C.int(len(chars)), C.bool(pressed), s.flags))
	}

	if mask, ok := modifierFlags[sym]; ok {
		if pressed {
			s.flags |= mask
		} else {
			s.flags &^= mask
		}
	}
	return check(C.postKey(s.src, C.CGKeyCode(sym), C.bool(pressed), s.flags))
}

func (s *darwinSession) Close() error {
	C.closeSource(s.src)
	s.src = 0
	return nil
}
