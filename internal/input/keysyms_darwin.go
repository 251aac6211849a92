//go:build darwin

package input

// unicodeFlag marks a Symbol as a Unicode code point typed through
// CGEventKeyboardSetUnicodeString instead of a virtual keycode.
const unicodeFlag Symbol = 1 << 31

// macOS virtual keycodes (HIToolbox Events.h).
const (
	kvkReturn  Symbol = 0x24
	kvkTab     Symbol = 0x30
	kvkSpace   Symbol = 0x31
	kvkDelete  Symbol = 0x33
	kvkShift   Symbol = 0x38
	kvkControl Symbol = 0x3B
	kvkOption  Symbol = 0x3A
	kvkCommand Symbol = 0x37
	kvkCaps    Symbol = 0x39
)

var keySymbols = map[string]Symbol{
	"enter":     kvkReturn,
	"escape":    0x35,
	"tab":       kvkTab,
	"space":     kvkSpace,
	"backspace": kvkDelete,
	"delete":    0x75, // forward delete
	"insert":    0x72, // help
	"home":      0x73,
	"end":       0x77,
	"pageup":    0x74,
	"pagedown":  0x79,
	"left":      0x7B,
	"right":     0x7C,
	"down":      0x7D,
	"up":        0x7E,
	"f1":        0x7A,
	"f2":        0x78,
	"f3":        0x63,
	"f4":        0x76,
	"f5":        0x60,
	"f6":        0x61,
	"f7":        0x62,
	"f8":        0x64,
	"f9":        0x65,
	"f10":       0x6D,
	"f11":       0x67,
	"f12":       0x6F,
	"capslock":  kvkCaps,
	"shift":     kvkShift,
	"ctrl":      kvkControl,
	"alt":       kvkOption,
	"meta":      kvkCommand,
}

// ANSI layout keycodes for a-z.
var letterKeycodes = [26]Symbol{
	0x00, 0x0B, 0x08, 0x02, 0x0E, 0x03, 0x05, 0x04, 0x22, 0x26, 0x28, 0x25, 0x2E,
	0x2D, 0x1F, 0x23, 0x0C, 0x0F, 0x01, 0x11, 0x20, 0x09, 0x0D, 0x07, 0x10, 0x06,
}

// ANSI layout keycodes for 0-9.
var digitKeycodes = [10]Symbol{0x1D, 0x12, 0x13, 0x14, 0x15, 0x17, 0x16, 0x1A, 0x1C, 0x19}

func runeSymbol(r rune) (Symbol, bool) {
	switch {
	case r >= 'a' && r <= 'z':
		return letterKeycodes[r-'a'], true
	case r >= '0' && r <= '9':
		return digitKeycodes[r-'0'], true
	case r == ' ':
		return kvkSpace, true
	case r == '\n' || r == '\r':
		return kvkReturn, true
	case r == '\t':
		return kvkTab, true
	case r == '\b':
		return kvkDelete, true
	case r < 0x20 || r == 0x7f:
		return 0, false
	case r > 0x10ffff:
		return 0, false
	}
	return unicodeFlag | Symbol(r), true
}
