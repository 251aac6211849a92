package input

import (
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type event struct {
	kind    string
	x, y    int
	button  Button
	sym     Symbol
	pressed bool
	delta   int
}

func (e event) String() string {
	switch e.kind {
	case "move":
		return fmt.Sprintf("move %d,%d", e.x, e.y)
	case "button":
		return fmt.Sprintf("button %s %v", e.button, e.pressed)
	case "scroll":
		return fmt.Sprintf("scroll %d", e.delta)
	case "key":
		return fmt.Sprintf("key %d %v", e.sym, e.pressed)
	}
	return e.kind
}

// recorder is a Backend that logs every event of every session.
type recorder struct {
	events   []event
	opens    int
	closes   int
	openErr  error
	unmapped map[Symbol]bool
	failKey  Symbol
}

func (r *recorder) Open() (Session, error) {
	if r.openErr != nil {
		return nil, r.openErr
	}
	r.opens++
	return &recordSession{r: r}, nil
}

type recordSession struct{ r *recorder }

func (s *recordSession) MoveTo(x, y int) error {
	s.r.events = append(s.r.events, event{kind: "move", x: x, y: y})
	return nil
}

func (s *recordSession) Button(b Button, pressed bool) error {
	s.r.events = append(s.r.events, event{kind: "button", button: b, pressed: pressed})
	return nil
}

func (s *recordSession) Scroll(delta int) error {
	s.r.events = append(s.r.events, event{kind: "scroll", delta: delta})
	return nil
}

func (s *recordSession) Key(sym Symbol, pressed bool) error {
	if s.r.unmapped[sym] {
		return ErrUnmappedSymbol
	}
	if sym == s.r.failKey && pressed {
		return errors.New("injected failure")
	}
	s.r.events = append(s.r.events, event{kind: "key", sym: sym, pressed: pressed})
	return nil
}

func (s *recordSession) Close() error {
	s.r.closes++
	return nil
}

func (r *recorder) trace() []string {
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.String()
	}
	return out
}

const (
	symA     Symbol = 100
	symB     Symbol = 101
	symEnter Symbol = 200
	symShift Symbol = 300
	symCtrl  Symbol = 301
	symAlt   Symbol = 302
)

func testResolver() *Resolver {
	return NewResolver(map[string]Symbol{
		"enter": symEnter,
		"shift": symShift,
		"ctrl":  symCtrl,
		"alt":   symAlt,
	}, func(r rune) (Symbol, bool) {
		switch r {
		case 'a':
			return symA, true
		case 'b':
			return symB, true
		}
		return 0, false
	})
}

func newTestEngine(r *recorder) *Engine {
	return NewEngine(r, testResolver(), zerolog.Nop())
}

func TestResolve(t *testing.T) {
	keys := testResolver()

	tests := []struct {
		name string
		want Symbol
	}{
		{"enter", symEnter},
		{"ENTER", symEnter},
		{"Return", symEnter},
		{"control", symCtrl},
		{"option", symAlt},
		{"a", symA},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sym, err := keys.Resolve(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, sym)
		})
	}
}

func TestResolveRejectsUnknownNames(t *testing.T) {
	keys := testResolver()

	for _, name := range []string{"", "zz_unknown_key", "ab", "z"} {
		_, err := keys.Resolve(name)
		assert.ErrorIs(t, err, ErrInvalidKey, "name %q", name)
	}
}

func TestDefaultResolverKnowsCanonicalNames(t *testing.T) {
	if !Supported {
		t.Skip("no input backend on this platform")
	}
	keys := DefaultResolver()

	names := []string{
		"enter", "return", "escape", "esc", "tab", "space", "backspace",
		"delete", "del", "insert", "home", "end", "pageup", "pagedown",
		"up", "down", "left", "right", "capslock",
		"shift", "ctrl", "control", "alt", "option",
		"meta", "super", "cmd", "command", "win",
	}
	for i := 1; i <= 12; i++ {
		names = append(names, fmt.Sprintf("f%d", i))
	}
	for _, name := range names {
		_, err := keys.Resolve(name)
		assert.NoError(t, err, "name %q", name)
	}

	for _, name := range []string{"a", "A", "7", "/"} {
		_, err := keys.Resolve(name)
		assert.NoError(t, err, "name %q", name)
	}

	_, err := keys.Resolve("zz_unknown_key")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestParseButton(t *testing.T) {
	assert.Equal(t, ButtonLeft, ParseButton("left"))
	assert.Equal(t, ButtonRight, ParseButton("right"))
	assert.Equal(t, ButtonMiddle, ParseButton("Middle"))
	assert.Equal(t, ButtonLeft, ParseButton("banana"))
	assert.Equal(t, ButtonLeft, ParseButton(""))
}

func TestClickMouse(t *testing.T) {
	r := &recorder{}
	require.NoError(t, newTestEngine(r).ClickMouse(10, 20, ButtonRight))

	assert.Equal(t, []string{
		"move 10,20",
		"button right true",
		"button right false",
	}, r.trace())
	assert.Equal(t, 1, r.opens)
	assert.Equal(t, 1, r.closes)
}

func TestMoveThenClickSamePosition(t *testing.T) {
	r := &recorder{}
	e := newTestEngine(r)
	require.NoError(t, e.MoveMouse(100, 100))
	require.NoError(t, e.ClickMouse(100, 100, ButtonLeft))

	var last event
	for _, ev := range r.events {
		if ev.kind == "move" {
			last = ev
		}
	}
	assert.Equal(t, 100, last.x)
	assert.Equal(t, 100, last.y)
	assert.Equal(t, 2, r.closes)
}

func TestScrollMouse(t *testing.T) {
	r := &recorder{}
	e := newTestEngine(r)

	require.NoError(t, e.ScrollMouse(5, 6, -3))
	require.NoError(t, e.ScrollMouse(5, 6, 0))

	assert.Equal(t, []string{"move 5,6", "scroll -3", "move 5,6"}, r.trace())
}

func TestScrollMouseClampsDelta(t *testing.T) {
	r := &recorder{}
	e := newTestEngine(r)

	require.NoError(t, e.ScrollMouse(0, 0, 1_000_000_000))
	require.NoError(t, e.ScrollMouse(0, 0, -1_000_000_000))
	require.NoError(t, e.ScrollMouse(0, 0, MaxScrollDelta))

	assert.Equal(t, []string{
		"move 0,0", fmt.Sprintf("scroll %d", MaxScrollDelta),
		"move 0,0", fmt.Sprintf("scroll %d", -MaxScrollDelta),
		"move 0,0", fmt.Sprintf("scroll %d", MaxScrollDelta),
	}, r.trace())
}

func TestPressKeyWithModifiers(t *testing.T) {
	r := &recorder{}
	require.NoError(t, newTestEngine(r).PressKey("a", []string{"ctrl", "shift"}))

	assert.Equal(t, []string{
		fmt.Sprintf("key %d true", symCtrl),
		fmt.Sprintf("key %d true", symShift),
		fmt.Sprintf("key %d true", symA),
		fmt.Sprintf("key %d false", symA),
		fmt.Sprintf("key %d false", symShift),
		fmt.Sprintf("key %d false", symCtrl),
	}, r.trace())
}

func TestPressKeyInvalidNameInjectsNothing(t *testing.T) {
	r := &recorder{}
	e := newTestEngine(r)

	err := e.PressKey("zz_unknown_key", nil)
	assert.ErrorIs(t, err, ErrInvalidKey)

	err = e.PressKey("a", []string{"ctrl", "hyper"})
	assert.ErrorIs(t, err, ErrInvalidKey)

	assert.Empty(t, r.events)
	assert.Zero(t, r.opens)
}

func TestPressKeyReleasesModifiersOnFailure(t *testing.T) {
	r := &recorder{failKey: symA}
	err := newTestEngine(r).PressKey("a", []string{"alt"})
	require.Error(t, err)

	assert.Equal(t, []string{
		fmt.Sprintf("key %d true", symAlt),
		fmt.Sprintf("key %d false", symAlt),
	}, r.trace())
	assert.Equal(t, 1, r.closes)
}

func TestPressKeyUnmappedSymbol(t *testing.T) {
	r := &recorder{unmapped: map[Symbol]bool{symEnter: true}}
	err := newTestEngine(r).PressKey("enter", nil)
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestTypeTextSkipsUnknownCharacters(t *testing.T) {
	r := &recorder{unmapped: map[Symbol]bool{symB: true}}
	require.NoError(t, newTestEngine(r).TypeText("a?b€a"))

	assert.Equal(t, []string{
		fmt.Sprintf("key %d true", symA),
		fmt.Sprintf("key %d false", symA),
		fmt.Sprintf("key %d true", symA),
		fmt.Sprintf("key %d false", symA),
	}, r.trace())
}

func TestTypeTextEmpty(t *testing.T) {
	r := &recorder{}
	require.NoError(t, newTestEngine(r).TypeText(""))
	assert.Empty(t, r.events)
	assert.Equal(t, 1, r.closes)
}

func TestOpenFailurePropagates(t *testing.T) {
	r := &recorder{openErr: fmt.Errorf("%w: no X server", ErrDisplayUnavailable)}
	e := newTestEngine(r)

	assert.ErrorIs(t, e.MoveMouse(1, 1), ErrDisplayUnavailable)
	assert.ErrorIs(t, e.TypeText("a"), ErrDisplayUnavailable)
	assert.ErrorIs(t, e.PressKey("a", nil), ErrDisplayUnavailable)
}
