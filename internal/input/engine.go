package input

import (
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"
)

// Engine performs the input commands. Each call opens its own Session and
// closes it before returning.
type Engine struct {
	backend Backend
	keys    *Resolver
	log     zerolog.Logger
}

// NewEngine creates an engine over backend. A nil resolver selects
// DefaultResolver.
func NewEngine(backend Backend, keys *Resolver, log zerolog.Logger) *Engine {
	if keys == nil {
		keys = DefaultResolver()
	}
	return &Engine{
		backend: backend,
		keys:    keys,
		log:     log.With().Str("component", "input").Logger(),
	}
}

func (e *Engine) closeSession(s Session) {
	if err := s.Close(); err != nil {
		e.log.Warn().Err(err).Msg("Input: closing session failed")
	}
}

// MoveMouse moves the pointer to (x, y). Coordinates are not clamped to the
// display.
func (e *Engine) MoveMouse(x, y int) error {
	s, err := e.backend.Open()
	if err != nil {
		return err
	}
	defer e.closeSession(s)

	return s.MoveTo(x, y)
}

// ClickMouse moves to (x, y) and clicks button there.
func (e *Engine) ClickMouse(x, y int, button Button) error {
	s, err := e.backend.Open()
	if err != nil {
		return err
	}
	defer e.closeSession(s)

	if err := s.MoveTo(x, y); err != nil {
		return err
	}
	if err := s.Button(button, true); err != nil {
		return err
	}
	return s.Button(button, false)
}

// MaxScrollDelta bounds the magnitude of a single scroll. Larger deltas are
// clamped.
const MaxScrollDelta = math.MaxInt16

// ScrollMouse moves to (x, y) and scrolls by delta wheel units, clamped to
// ±MaxScrollDelta.
func (e *Engine) ScrollMouse(x, y, delta int) error {
	delta = max(-MaxScrollDelta, min(delta, MaxScrollDelta))


	s, err := e.backend.Open()
	if err != nil {
		return err
	}
	defer e.closeSession(s)

	if err := s.MoveTo(x, y); err != nil {
		return err
	}
	if delta == 0 {
		return nil
	}
	return s.Scroll(delta)
}

// PressKey taps key while holding modifiers. The key and every modifier are
// resolved before anything is injected; modifiers go down in order and come
// back up in reverse order, also when the key itself fails.
func (e *Engine) PressKey(key string, modifiers []string) error {
	sym, err := e.keys.Resolve(key)
	if err != nil {
		return err
	}
	mods := make([]Symbol, 0, len(modifiers))
	for _, name := range modifiers {
		m, err := e.keys.Resolve(name)
		if err != nil {
			return fmt.Errorf("modifier: %w", err)
		}
		mods = append(mods, m)
	}

	s, err := e.backend.Open()
	if err != nil {
		return err
	}
	defer e.closeSession(s)

	held := make([]Symbol, 0, len(mods))
	defer func() {
		for i := len(held) - 1; i >= 0; i-- {
			if err := s.Key(held[i], false); err != nil {
				e.log.Warn().Err(err).Uint32("symbol", uint32(held[i])).Msg("Input: releasing modifier failed")
			}
		}
	}()

	for _, m := range mods {
		if err := s.Key(m, true); err != nil {
			return keyError(err)
		}
		held = append(held, m)
	}

	if err := s.Key(sym, true); err != nil {
		return keyError(err)
	}
	return keyError(s.Key(sym, false))
}

// keyError reports a symbol the keyboard cannot produce as an invalid key.
func keyError(err error) error {
	if errors.Is(err, ErrUnmappedSymbol) {
		return fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return err
}

// TypeText types text one character at a time. Characters without a native
// symbol, or that the keyboard cannot produce, are skipped.
func (e *Engine) TypeText(text string) error {
	s, err := e.backend.Open()
	if err != nil {
		return err
	}
	defer e.closeSession(s)

	skipped := 0
	for _, c := range text {
		sym, ok := e.keys.ResolveRune(c)
		if !ok {
			skipped++
			continue
		}
		if err := s.Key(sym, true); err != nil {
			if errors.Is(err, ErrUnmappedSymbol) {
				skipped++
				continue
			}
			return err
		}
		if err := s.Key(sym, false); err != nil {
			return err
		}
	}

	if skipped > 0 {
		e.log.Debug().Int("skipped", skipped).Msg("Input: skipped characters without a key")
	}
	return nil
}
