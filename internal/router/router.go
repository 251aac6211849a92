// Package router validates command requests and dispatches them to the
// input, capture and process engines.
package router

import (
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"

	"hostbridge/internal/capture"
	"hostbridge/internal/input"
	"hostbridge/internal/metrics"
	"hostbridge/internal/protocol"
	"hostbridge/internal/shell"
)

// InputEngine synthesizes pointer and keyboard input.
type InputEngine interface {
	MoveMouse(x, y int) error
	ClickMouse(x, y int, button input.Button) error
	ScrollMouse(x, y, delta int) error
	PressKey(key string, modifiers []string) error
	TypeText(text string) error
}

// CaptureEngine reads and encodes the primary display.
type CaptureEngine interface {
	ScreenSize() (capture.Size, error)
	Capture() ([]byte, error)
}

// ProcessEngine runs shell commands.
type ProcessEngine interface {
	Execute(command, workingDir string) (shell.Output, error)
}

// Config wires the engines into a Router. A nil engine makes its methods
// report UNIMPLEMENTED.
type Config struct {
	Input   InputEngine
	Capture CaptureEngine
	Process ProcessEngine

	Journal *Journal
	Metrics *metrics.Registry
}

// Router is safe for concurrent use. It keeps no state between calls apart
// from the journal and metrics.
type Router struct {
	input   InputEngine
	capture CaptureEngine
	process ProcessEngine
	journal *Journal
	metrics *metrics.Registry
	log     zerolog.Logger
}

// New creates a router.
func New(cfg Config, log zerolog.Logger) *Router {
	return &Router{
		input:   cfg.Input,
		capture: cfg.Capture,
		process: cfg.Process,
		journal: cfg.Journal,
		metrics: cfg.Metrics,
		log:     log.With().Str("component", "router").Logger(),
	}
}

type field struct {
	name     string
	kind     protocol.ArgKind
	optional bool
}

var schemas = map[protocol.Method][]field{
	protocol.MethodMoveMouse: {
		{name: "x", kind: protocol.ArgNumber},
		{name: "y", kind: protocol.ArgNumber},
	},
	protocol.MethodClickMouse: {
		{name: "x", kind: protocol.ArgNumber},
		{name: "y", kind: protocol.ArgNumber},
		{name: "button", kind: protocol.ArgString},
	},
	protocol.MethodScrollMouse: {
		{name: "x", kind: protocol.ArgNumber},
		{name: "y", kind: protocol.ArgNumber},
		{name: "delta", kind: protocol.ArgNumber},
	},
	protocol.MethodPressKey: {
		{name: "key", kind: protocol.ArgString},
		{name: "modifiers", kind: protocol.ArgStrings, optional: true},
	},
	protocol.MethodTypeText: {
		{name: "text", kind: protocol.ArgString},
	},
	protocol.MethodGetScreenSize: nil,
	protocol.MethodCaptureScreen: nil,
	protocol.MethodExecuteCommand: {
		{name: "command", kind: protocol.ArgString},
		{name: "workingDir", kind: protocol.ArgString, optional: true},
	},
}

func validate(m protocol.Method, args protocol.Args) error {
	for _, f := range schemas[m] {
		if !args.Has(f.name) {
			if f.optional {
				continue
			}
			return fmt.Errorf("missing required argument %q", f.name)
		}
		if !args.Is(f.name, f.kind) {
			return fmt.Errorf("argument %q must be a %s", f.name, f.kind)
		}
	}
	return nil
}

// Capabilities lists the wire names of the methods this router can serve.
func (r *Router) Capabilities() []string {
	var out []string
	for _, m := range protocol.Methods() {
		if r.offers(m) {
			out = append(out, m.String())
		}
	}
	return out
}

func (r *Router) offers(m protocol.Method) bool {
	switch m {
	case protocol.MethodMoveMouse, protocol.MethodClickMouse, protocol.MethodScrollMouse,
		protocol.MethodPressKey, protocol.MethodTypeText:
		return r.input != nil
	case protocol.MethodGetScreenSize, protocol.MethodCaptureScreen:
		return r.capture != nil
	case protocol.MethodExecuteCommand:
		return r.process != nil
	}
	return false
}

// Handle runs one request and returns its result. It never panics.
func (r *Router) Handle(req protocol.Request) protocol.Result {
	return r.HandleFrom("", req)
}

// HandleFrom is Handle with the request's origin recorded in the journal.
func (r *Router) HandleFrom(source string, req protocol.Request) (res protocol.Result) {
	start := time.Now()
	m := protocol.ParseMethod(req.Method)

	defer func() {
		if p := recover(); p != nil {
			r.log.Error().
				Str("method", req.Method).
				Interface("panic", p).
				Bytes("stack", debug.Stack()).
				Msg("Router: recovered from panic")
			res = protocol.Failuref(protocol.CodeInternal, "internal error: %v", p)
		}
		r.record(source, req.Method, m, res, time.Since(start))
	}()

	if m == protocol.MethodUnknown {
		return protocol.Failuref(protocol.CodeUnimplemented, "unknown method %q", req.Method)
	}
	if err := validate(m, req.Args); err != nil {
		return protocol.Failure(protocol.CodeInvalidArgs, err.Error())
	}
	if !r.offers(m) {
		return protocol.Failuref(protocol.CodeUnimplemented, "%s is not available on this host", m)
	}
	return r.dispatch(m, req.Args)
}

func (r *Router) dispatch(m protocol.Method, args protocol.Args) protocol.Result {
	switch m {
	case protocol.MethodMoveMouse:
		x, _ := args.Int("x")
		y, _ := args.Int("y")
		return done(r.input.MoveMouse(x, y))

	case protocol.MethodClickMouse:
		x, _ := args.Int("x")
		y, _ := args.Int("y")
		button, _ := args.String("button")
		return done(r.input.ClickMouse(x, y, input.ParseButton(button)))

	case protocol.MethodScrollMouse:
		x, _ := args.Int("x")
		y, _ := args.Int("y")
		delta, _ := args.Int("delta")
		return done(r.input.ScrollMouse(x, y, delta))

	case protocol.MethodPressKey:
		key, _ := args.String("key")
		modifiers, _ := args.Strings("modifiers")
		return done(r.input.PressKey(key, modifiers))

	case protocol.MethodTypeText:
		text, _ := args.String("text")
		return done(r.input.TypeText(text))

	case protocol.MethodGetScreenSize:
		size, err := r.capture.ScreenSize()
		if err != nil {
			return failure(err)
		}
		return protocol.Success(size)

	case protocol.MethodCaptureScreen:
		png, err := r.capture.Capture()
		if err != nil {
			return failure(err)
		}
		if r.metrics != nil {
			r.metrics.RecordCapture(len(png))
		}
		return protocol.Success(png)

	case protocol.MethodExecuteCommand:
		command, _ := args.String("command")
		dir, _ := args.String("workingDir")
		out, err := r.process.Execute(command, dir)
		if err != nil {
			return failure(err).WithDetails(shell.FailedOutput)
		}
		return protocol.Success(out)
	}
	return protocol.Failuref(protocol.CodeUnimplemented, "%s is not available on this host", m)
}

func done(err error) protocol.Result {
	if err != nil {
		return failure(err)
	}
	return protocol.Success(nil)
}

// failure maps an engine error onto its result code.
func failure(err error) protocol.Result {
	return protocol.Failure(codeFor(err), err.Error())
}

func codeFor(err error) protocol.Code {
	switch {
	case errors.Is(err, input.ErrInvalidKey):
		return protocol.CodeInvalidKey
	case errors.Is(err, input.ErrDisplayUnavailable), errors.Is(err, capture.ErrDisplayUnavailable):
		return protocol.CodeDisplayUnavailable
	case errors.Is(err, input.ErrUnsupported), errors.Is(err, capture.ErrUnsupported):
		return protocol.CodeUnimplemented
	case errors.Is(err, capture.ErrCaptureFailed):
		return protocol.CodeCaptureFailed
	case errors.Is(err, shell.ErrPipeCreate):
		return protocol.CodePipeCreateFailed
	case errors.Is(err, shell.ErrSpawn):
		return protocol.CodeSpawnFailed
	case errors.Is(err, shell.ErrPipeRead):
		return protocol.CodePipeReadFailed
	}
	return protocol.CodeInternal
}

func (r *Router) record(source, name string, m protocol.Method, res protocol.Result, took time.Duration) {
	ev := r.log.Debug()
	if !res.OK {
		ev = r.log.Warn().Str("code", res.Code())
		if res.Error != nil {
			ev = ev.Str("error", res.Error.Message)
		}
	}
	ev.Str("method", name).Str("source", source).Dur("took", took).Msg("Router: command handled")

	if r.metrics != nil {
		// m.String() keeps label values within the closed method set
		r.metrics.RecordCommand(m.String(), res.Code(), took)
	}
	if r.journal != nil {
		e := Entry{
			Time:     time.Now(),
			Method:   name,
			Code:     res.Code(),
			Duration: took,
			Source:   source,
		}
		if res.Error != nil {
			e.Message = res.Error.Message
		}
		r.journal.Add(e)
	}
}
