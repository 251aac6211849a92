// Package shell runs command lines through the platform interpreter and
// captures their output.
package shell

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrPipeCreate is returned when the output pipes cannot be created
	ErrPipeCreate = errors.New("pipe creation failed")

	// ErrSpawn is returned when the interpreter cannot be started
	ErrSpawn = errors.New("spawn failed")

	// ErrPipeRead is returned when reading a child's output fails
	ErrPipeRead = errors.New("pipe read failed")
)

// Output is the captured result of one command. Stdout and Stderr hold the
// bytes exactly as written by the child.
type Output struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exit_code"`
}

// FailedOutput is reported alongside setup failures.
var FailedOutput = Output{ExitCode: -1}

// State is a step of a single execution.
type State int

const (
	StateIdle State = iota
	StatePipesCreated
	StateSpawned
	StateDraining
	StateExited
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePipesCreated:
		return "pipes_created"
	case StateSpawned:
		return "spawned"
	case StateDraining:
		return "draining"
	case StateExited:
		return "exited"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Engine executes commands. It holds no per-call state and may be used from
// several goroutines at once.
//
// A started command always runs to completion; there is no timeout.
type Engine struct {
	interpreter []string
	log         zerolog.Logger

	// OnTransition, if set, is called for every state change of every call.
	OnTransition func(from, to State)
}

// NewEngine creates an engine that runs commands as interpreter + command.
// An empty interpreter selects DefaultInterpreter.
func NewEngine(interpreter []string, log zerolog.Logger) *Engine {
	if len(interpreter) == 0 {
		interpreter = DefaultInterpreter()
	}
	return &Engine{
		interpreter: append([]string(nil), interpreter...),
		log:         log.With().Str("component", "shell").Logger(),
	}
}

// Interpreter returns the interpreter argv prefix.
func (e *Engine) Interpreter() []string {
	return append([]string(nil), e.interpreter...)
}

type run struct {
	e     *Engine
	state State
}

func (r *run) to(s State) {
	if r.e.OnTransition != nil {
		r.e.OnTransition(r.state, s)
	}
	r.state = s
}

func closeAll(files ...*os.File) {
	for _, f := range files {
		if f != nil {
			f.Close()
		}
	}
}

// Execute runs command, optionally in workingDir, and returns what it wrote
// to stdout and stderr together with its exit code. A non-zero exit code is
// not an error. On error the returned Output is FailedOutput.
func (e *Engine) Execute(command, workingDir string) (Output, error) {
	r := &run{e: e}
	start := time.Now()

	outR, outW, err := os.Pipe()
	if err != nil {
		r.to(StateFailed)
		return FailedOutput, fmt.Errorf("%w: stdout: %v", ErrPipeCreate, err)
	}
	errR, errW, err := os.Pipe()
	if err != nil {
		closeAll(outR, outW)
		r.to(StateFailed)
		return FailedOutput, fmt.Errorf("%w: stderr: %v", ErrPipeCreate, err)
	}
	r.to(StatePipesCreated)

	cmd := interpreterCommand(e.interpreter, command)
	cmd.Dir = workingDir
	cmd.Stdout = outW
	cmd.Stderr = errW

	err = cmd.Start()
	// The child holds its own copies now; without closing ours the readers
	// would never see end of stream.
	closeAll(outW, errW)
	if err != nil {
		closeAll(outR, errR)
		r.to(StateFailed)
		e.log.Debug().Err(err).Str("command", command).Msg("Shell: spawn failed")
		return FailedOutput, fmt.Errorf("%w: %v", ErrSpawn, err)
	}
	r.to(StateSpawned)

	var stdout, stderr bytes.Buffer
	var g errgroup.Group
	g.Go(func() error { return drain(&stdout, outR, "stdout") })
	g.Go(func() error { return drain(&stderr, errR, "stderr") })
	r.to(StateDraining)
	drainErr := g.Wait()

	waitErr := cmd.Wait()
	if drainErr != nil {
		r.to(StateFailed)
		return FailedOutput, drainErr
	}

	exitCode := 0
	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			r.to(StateFailed)
			return FailedOutput, fmt.Errorf("wait: %w", waitErr)
		}
		exitCode = exitErr.ExitCode()
	}
	r.to(StateExited)

	e.log.Debug().
		Str("command", command).
		Int("exit_code", exitCode).
		Int("stdout_bytes", stdout.Len()).
		Int("stderr_bytes", stderr.Len()).
		Dur("took", time.Since(start)).
		Msg("Shell: command finished")

	return Output{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCode,
	}, nil
}

// drain copies src into dst until end of stream and closes src.
func drain(dst *bytes.Buffer, src *os.File, name string) error {
	defer src.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrPipeRead, name, err)
	}
	return nil
}
