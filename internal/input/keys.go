package input

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// aliases folds alternative spellings onto the canonical key names used by
// the per-platform symbol tables.
var aliases = map[string]string{
	"return":     "enter",
	"esc":        "escape",
	"del":        "delete",
	"ins":        "insert",
	"pgup":       "pageup",
	"pgdn":       "pagedown",
	"arrowup":    "up",
	"arrowdown":  "down",
	"arrowleft":  "left",
	"arrowright": "right",
	"control":    "ctrl",
	"option":     "alt",
	"super":      "meta",
	"cmd":        "meta",
	"command":    "meta",
	"win":        "meta",
	"windows":    "meta",
}

// Resolver maps key names to platform symbols. It is read-only after
// construction and safe for concurrent use.
type Resolver struct {
	named   map[string]Symbol
	runeSym func(r rune) (Symbol, bool)
}

// NewResolver builds a resolver from a table of canonical lowercase names and
// a function giving the native symbol for a single character.
func NewResolver(named map[string]Symbol, runeSym func(rune) (Symbol, bool)) *Resolver {
	return &Resolver{named: named, runeSym: runeSym}
}

// DefaultResolver returns the resolver for the compiled-in backend.
func DefaultResolver() *Resolver {
	return NewResolver(keySymbols, runeSymbol)
}

// Resolve looks name up in the symbol table after lower-casing it. If that
// fails and name is exactly one character, the character's own symbol is
// used. Nothing else is tried.
func (r *Resolver) Resolve(name string) (Symbol, error) {
	if name == "" {
		return 0, fmt.Errorf("%w: empty key name", ErrInvalidKey)
	}

	lower := strings.ToLower(name)
	if canonical, ok := aliases[lower]; ok {
		lower = canonical
	}
	if sym, ok := r.named[lower]; ok {
		return sym, nil
	}

	if utf8.RuneCountInString(name) == 1 {
		c, _ := utf8.DecodeRuneInString(name)
		if sym, ok := r.ResolveRune(c); ok {
			return sym, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidKey, name)
}

// ResolveRune returns the native symbol for a single character, bypassing
// the named-key table.
func (r *Resolver) ResolveRune(c rune) (Symbol, bool) {
	if r.runeSym == nil || c == utf8.RuneError {
		return 0, false
	}
	return r.runeSym(c)
}
