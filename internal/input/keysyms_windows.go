//go:build windows

package input

// unicodeFlag marks a Symbol as a Unicode code point sent with
// KEYEVENTF_UNICODE instead of a virtual-key code.
const unicodeFlag Symbol = 1 << 31

const (
	vkBack   Symbol = 0x08
	vkTab    Symbol = 0x09
	vkReturn Symbol = 0x0D
	vkSpace  Symbol = 0x20
)

var keySymbols = map[string]Symbol{
	"enter":     vkReturn,
	"escape":    0x1B,
	"tab":       vkTab,
	"space":     vkSpace,
	"backspace": vkBack,
	"delete":    0x2E,
	"insert":    0x2D,
	"home":      0x24,
	"end":       0x23,
	"pageup":    0x21,
	"pagedown":  0x22,
	"left":      0x25,
	"up":        0x26,
	"right":     0x27,
	"down":      0x28,
	"f1":        0x70,
	"f2":        0x71,
	"f3":        0x72,
	"f4":        0x73,
	"f5":        0x74,
	"f6":        0x75,
	"f7":        0x76,
	"f8":        0x77,
	"f9":        0x78,
	"f10":       0x79,
	"f11":       0x7A,
	"f12":       0x7B,
	"capslock":  0x14,
	"shift":     0x10,
	"ctrl":      0x11,
	"alt":       0x12,
	"meta":      0x5B,
}

// extendedKeys need KEYEVENTF_EXTENDEDKEY to be told apart from their
// numeric keypad twins.
var extendedKeys = map[Symbol]bool{
	0x21: true, 0x22: true, 0x23: true, 0x24: true,
	0x25: true, 0x26: true, 0x27: true, 0x28: true,
	0x2D: true, 0x2E: true, 0x5B: true,
}

func runeSymbol(r rune) (Symbol, bool) {
	switch {
	case r >= 'a' && r <= 'z':
		return Symbol(0x41 + r - 'a'), true
	case r >= '0' && r <= '9':
		return Symbol(0x30 + r - '0'), true
	case r == ' ':
		return vkSpace, true
	case r == '\n' || r == '\r':
		return vkReturn, true
	case r == '\t':
		return vkTab, true
	case r == '\b':
		return vkBack, true
	case r < 0x20 || r == 0x7f || r > 0x10ffff:
		return 0, false
	}
	return unicodeFlag | Symbol(r), true
}
