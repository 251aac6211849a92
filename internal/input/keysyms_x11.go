//go:build linux || freebsd

package input

import "unicode/utf8"

// X keysyms from X11/keysymdef.h.
const (
	xkReturn    Symbol = 0xff0d
	xkTab       Symbol = 0xff09
	xkBackSpace Symbol = 0xff08
	xkShiftL    Symbol = 0xffe1
)

var keySymbols = map[string]Symbol{
	"enter":     xkReturn,
	"escape":    0xff1b,
	"tab":       xkTab,
	"space":     0x0020,
	"backspace": xkBackSpace,
	"delete":    0xffff,
	"insert":    0xff63,
	"home":      0xff50,
	"end":       0xff57,
	"pageup":    0xff55,
	"pagedown":  0xff56,
	"left":      0xff51,
	"up":        0xff52,
	"right":     0xff53,
	"down":      0xff54,
	"f1":        0xffbe,
	"f2":        0xffbf,
	"f3":        0xffc0,
	"f4":        0xffc1,
	"f5":        0xffc2,
	"f6":        0xffc3,
	"f7":        0xffc4,
	"f8":        0xffc5,
	"f9":        0xffc6,
	"f10":       0xffc7,
	"f11":       0xffc8,
	"f12":       0xffc9,
	"capslock":  0xffe5,
	"shift":     xkShiftL,
	"ctrl":      0xffe3,
	"alt":       0xffe9,
	"meta":      0xffeb,
}

// runeSymbol returns the keysym for a character: Latin-1 characters are
// their own keysym, everything else uses the 0x01000000 Unicode range.
func runeSymbol(r rune) (Symbol, bool) {
	switch {
	case r == '\n' || r == '\r':
		return xkReturn, true
	case r == '\t':
		return xkTab, true
	case r == '\b':
		return xkBackSpace, true
	case r >= 0x20 && r <= 0x7e, r >= 0xa0 && r <= 0xff:
		return Symbol(r), true
	case r > 0xff && utf8.ValidRune(r):
		return Symbol(0x01000000 | r), true
	}
	return 0, false
}

// lowerKeysym returns the lowercase keysym for an uppercase Latin-1 letter.
// Keymaps often list only the lowercase symbol and leave Shift implied.
func lowerKeysym(sym Symbol) (Symbol, bool) {
	switch {
	case sym >= 'A' && sym <= 'Z':
		return sym + 0x20, true
	case sym >= 0xc0 && sym <= 0xde && sym != 0xd7:
		return sym + 0x20, true
	}
	return 0, false
}
